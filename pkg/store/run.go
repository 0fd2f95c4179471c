package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nightgate/nightgate/pkg/model"
)

var ErrRunNotFound = errors.New("run not found")

// RunResult carries the terminal fields written when a run finishes.
type RunResult struct {
	Status        model.RunStatus
	Admitted      int
	Rejected      int
	Processed     int
	FailureReason string
	ReasonCounts  map[string]int
	NeedRemaining map[string]int
	FinishedAt    time.Time
}

type RunFilter struct {
	Status   *model.RunStatus
	PlayerID string
	Limit    int
	Offset   int
}

// RunWriter is the write side used while a run is in progress.
type RunWriter interface {
	// CreateRun inserts the run record when it starts.
	CreateRun(ctx context.Context, run *model.Run) error

	// AppendDecisions inserts a batch of acknowledged verdicts.
	AppendDecisions(ctx context.Context, decisions []*model.Decision) error

	// FinishRun records the outcome of a run.
	FinishRun(ctx context.Context, id uuid.UUID, result RunResult) error
}

// RunReader is the query side used by the API server.
type RunReader interface {
	List(ctx context.Context, filter RunFilter) ([]model.Run, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Run, error)
	ListDecisions(ctx context.Context, runID uuid.UUID, limit, offset int) ([]model.Decision, error)
}
