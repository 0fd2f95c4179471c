package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/quota"
)

// RunInfo describes a run as it starts.
type RunInfo struct {
	RunID          uuid.UUID
	GameID         string
	Scenario       int
	PlayerID       string
	Policy         string
	Capacity       int
	Constraints    []model.Constraint
	RareAttributes []string
	StartedAt      time.Time
}

// DecisionEvent is emitted once a verdict has been acknowledged and applied.
type DecisionEvent struct {
	RunID     uuid.UUID
	Candidate model.Candidate
	Verdict   model.Verdict
	Admitted  int
	Processed int
	DecidedAt time.Time
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID        uuid.UUID
	GameID       string
	Status       model.RunStatus
	Admitted     int
	Rejected     int
	Processed    int
	Reason       string
	ReasonCounts map[model.Reason]int
	Final        quota.Snapshot
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Observer receives run events. Observers run on the controller goroutine
// and must not block for long; they cannot influence verdicts.
type Observer interface {
	OnStart(ctx context.Context, info RunInfo)
	OnDecision(ctx context.Context, event DecisionEvent)
	OnFinish(ctx context.Context, outcome Outcome)
}

// Recorder exports decision counters, typically to Prometheus.
type Recorder interface {
	ObserveDecision(policy string, verdict model.Verdict)
	ObserveNeed(attribute string, need int)
	ObserveAdmitted(admitted int)
	ObserveRun(status model.RunStatus)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(string, model.Verdict) {}
func (nopRecorder) ObserveNeed(string, int)               {}
func (nopRecorder) ObserveAdmitted(int)                   {}
func (nopRecorder) ObserveRun(model.RunStatus)            {}
