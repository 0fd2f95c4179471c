// Package journal persists runs and their verdicts through a store.RunWriter.
// Decisions are buffered and written in batches; a failure to create the run
// record disables the journal for the rest of the run.
package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/store"
)

const DefaultBatchSize = 100

type Journal struct {
	writer    store.RunWriter
	logger    *zap.Logger
	batchSize int

	run     *model.Run
	pending []*model.Decision
}

var _ admission.Observer = (*Journal)(nil)

func New(writer store.RunWriter, logger *zap.Logger, batchSize int) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Journal{writer: writer, logger: logger, batchSize: batchSize}
}

func (j *Journal) OnStart(ctx context.Context, info admission.RunInfo) {
	startedAt := info.StartedAt
	constraints := make(model.JSONB, len(info.Constraints))
	for _, c := range info.Constraints {
		constraints[c.Attribute] = c.MinCount
	}

	run := &model.Run{
		ID:             info.RunID,
		GameID:         info.GameID,
		Scenario:       info.Scenario,
		PlayerID:       info.PlayerID,
		Policy:         info.Policy,
		Capacity:       info.Capacity,
		Status:         model.RunRunning,
		RareAttributes: info.RareAttributes,
		Constraints:    constraints,
		ReasonCounts:   model.JSONB{},
		NeedRemaining:  model.JSONB{},
		StartedAt:      &startedAt,
	}
	if err := j.writer.CreateRun(ctx, run); err != nil {
		j.logger.Error("failed to record run, journal disabled",
			zap.String("run_id", info.RunID.String()),
			zap.Error(err),
		)
		return
	}
	j.run = run
}

func (j *Journal) OnDecision(ctx context.Context, event admission.DecisionEvent) {
	if j.run == nil {
		return
	}

	attrs := make(model.JSONB, len(event.Candidate.Attributes))
	for k, v := range event.Candidate.Attributes {
		attrs[k] = v
	}
	j.pending = append(j.pending, &model.Decision{
		RunID:          event.RunID,
		CandidateIndex: event.Candidate.Index,
		Accept:         event.Verdict.Accept,
		Reason:         event.Verdict.Reason,
		Attributes:     attrs,
		CreatedAt:      event.DecidedAt,
	})

	if len(j.pending) >= j.batchSize {
		j.flush(ctx)
	}
}

func (j *Journal) OnFinish(ctx context.Context, outcome admission.Outcome) {
	if j.run == nil {
		return
	}
	j.flush(ctx)

	reasons := make(map[string]int, len(outcome.ReasonCounts))
	for reason, n := range outcome.ReasonCounts {
		reasons[string(reason)] = n
	}

	finishedAt := outcome.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	result := store.RunResult{
		Status:        outcome.Status,
		Admitted:      outcome.Admitted,
		Rejected:      outcome.Rejected,
		Processed:     outcome.Processed,
		FailureReason: outcome.Reason,
		ReasonCounts:  reasons,
		NeedRemaining: outcome.Final.NeedRemaining,
		FinishedAt:    finishedAt,
	}
	if err := j.writer.FinishRun(ctx, outcome.RunID, result); err != nil {
		j.logger.Error("failed to record run outcome",
			zap.String("run_id", outcome.RunID.String()),
			zap.Error(err),
		)
	}
	j.run = nil
}

// Pending reports how many decisions are buffered but not yet written.
func (j *Journal) Pending() int { return len(j.pending) }

func (j *Journal) flush(ctx context.Context) {
	if len(j.pending) == 0 {
		return
	}
	batch := j.pending
	j.pending = nil
	if err := j.writer.AppendDecisions(ctx, batch); err != nil {
		j.logger.Warn("failed to record decisions",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
	}
}
