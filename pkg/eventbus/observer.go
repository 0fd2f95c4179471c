package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/model"
)

// Observer publishes run lifecycle and decision events. Publish failures
// are logged and dropped.
type Observer struct {
	pub       Publisher
	logger    *zap.Logger
	decisions bool
}

var _ admission.Observer = (*Observer)(nil)

// NewObserver returns an observer publishing to pub. When decisions is false
// only run events are sent.
func NewObserver(pub Publisher, logger *zap.Logger, decisions bool) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{pub: pub, logger: logger, decisions: decisions}
}

func (o *Observer) OnStart(ctx context.Context, info admission.RunInfo) {
	o.publish(ctx, ChannelRun, TypeRunStarted, RunEvent{
		RunID:    info.RunID.String(),
		GameID:   info.GameID,
		Status:   string(model.RunRunning),
		Policy:   info.Policy,
		Capacity: info.Capacity,
	})
}

func (o *Observer) OnDecision(ctx context.Context, event admission.DecisionEvent) {
	if !o.decisions {
		return
	}
	o.publish(ctx, ChannelDecision, TypeDecision, DecisionEvent{
		RunID:       event.RunID.String(),
		PersonIndex: event.Candidate.Index,
		Accept:      event.Verdict.Accept,
		Reason:      string(event.Verdict.Reason),
		Attributes:  event.Candidate.Attributes,
		Admitted:    event.Admitted,
		Processed:   event.Processed,
	})
}

func (o *Observer) OnFinish(ctx context.Context, outcome admission.Outcome) {
	o.publish(ctx, ChannelRun, TypeRunFinished, RunEvent{
		RunID:         outcome.RunID.String(),
		GameID:        outcome.GameID,
		Status:        string(outcome.Status),
		Admitted:      outcome.Admitted,
		Rejected:      outcome.Rejected,
		Processed:     outcome.Processed,
		Reason:        outcome.Reason,
		NeedRemaining: outcome.Final.NeedRemaining,
	})
}

func (o *Observer) publish(ctx context.Context, channel, eventType string, payload interface{}) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		o.logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := o.pub.Publish(ctx, channel, event); err != nil {
		o.logger.Warn("failed to publish event",
			zap.String("channel", channel),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
