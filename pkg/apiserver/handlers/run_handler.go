package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/store"
)

type RunHandler struct {
	runs   store.RunReader
	logger *zap.Logger
}

func NewRunHandler(runs store.RunReader, logger *zap.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

type runResponse struct {
	ID             string      `json:"id"`
	GameID         string      `json:"game_id"`
	Scenario       int         `json:"scenario"`
	PlayerID       string      `json:"player_id"`
	Policy         string      `json:"policy"`
	Capacity       int         `json:"capacity"`
	Status         string      `json:"status"`
	Admitted       int         `json:"admitted"`
	Rejected       int         `json:"rejected"`
	Processed      int         `json:"processed"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	RareAttributes []string    `json:"rare_attributes"`
	Constraints    model.JSONB `json:"constraints"`
	CreatedAt      string      `json:"created_at"`
	StartedAt      *string     `json:"started_at,omitempty"`
	FinishedAt     *string     `json:"finished_at,omitempty"`
}

type runDetailResponse struct {
	runResponse
	ReasonCounts  model.JSONB `json:"reason_counts"`
	NeedRemaining model.JSONB `json:"need_remaining"`
}

type decisionResponse struct {
	PersonIndex int         `json:"person_index"`
	Accept      bool        `json:"accept"`
	Reason      string      `json:"reason"`
	Attributes  model.JSONB `json:"attributes"`
	CreatedAt   string      `json:"created_at"`
}

func (h *RunHandler) List(c *gin.Context) {
	if !h.available(c) {
		return
	}

	limit, offset := pageParams(c, 20)
	filter := store.RunFilter{
		PlayerID: strings.TrimSpace(c.Query("player_id")),
		Limit:    limit,
		Offset:   offset,
	}
	if statusValue := strings.TrimSpace(c.Query("status")); statusValue != "" {
		parsed := model.RunStatus(strings.ToUpper(statusValue))
		if !isValidRunStatus(parsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &parsed
	}

	runs, total, err := h.runs.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	response := make([]runResponse, 0, len(runs))
	for i := range runs {
		response = append(response, mapRun(&runs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  response,
		"total": total,
	})
}

func (h *RunHandler) Get(c *gin.Context) {
	if !h.available(c) {
		return
	}
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), runID)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, runDetailResponse{
		runResponse:   mapRun(run),
		ReasonCounts:  run.ReasonCounts,
		NeedRemaining: run.NeedRemaining,
	})
}

func (h *RunHandler) ListDecisions(c *gin.Context) {
	if !h.available(c) {
		return
	}
	runID, ok := parseRunID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.runs.GetByID(ctx, runID); err != nil {
		h.writeLookupError(c, err)
		return
	}

	limit, offset := pageParams(c, 100)
	decisions, err := h.runs.ListDecisions(ctx, runID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list decisions", zap.String("run_id", runID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list decisions"})
		return
	}

	response := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		response = append(response, decisionResponse{
			PersonIndex: d.CandidateIndex,
			Accept:      d.Accept,
			Reason:      string(d.Reason),
			Attributes:  d.Attributes,
			CreatedAt:   formatTimestamp(d.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *RunHandler) available(c *gin.Context) bool {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store not configured"})
		return false
	}
	return true
}

func (h *RunHandler) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	h.logger.Error("failed to get run", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
}

func mapRun(run *model.Run) runResponse {
	rare := []string(run.RareAttributes)
	if rare == nil {
		rare = []string{}
	}
	return runResponse{
		ID:             run.ID.String(),
		GameID:         run.GameID,
		Scenario:       run.Scenario,
		PlayerID:       run.PlayerID,
		Policy:         run.Policy,
		Capacity:       run.Capacity,
		Status:         string(run.Status),
		Admitted:       run.Admitted,
		Rejected:       run.Rejected,
		Processed:      run.Processed,
		FailureReason:  run.FailureReason,
		RareAttributes: rare,
		Constraints:    run.Constraints,
		CreatedAt:      formatTimestamp(run.CreatedAt),
		StartedAt:      formatOptionalTimestamp(run.StartedAt),
		FinishedAt:     formatOptionalTimestamp(run.FinishedAt),
	}
}

func isValidRunStatus(status model.RunStatus) bool {
	switch status {
	case model.RunInitializing, model.RunRunning, model.RunCompleted, model.RunFailed, model.RunAborted:
		return true
	default:
		return false
	}
}
