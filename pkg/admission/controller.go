// Package admission drives a single run: it pulls candidates from a Source,
// asks a Policy for a verdict, submits it to a Sink and applies it to the
// quota state once acknowledged. All state mutation happens on the goroutine
// calling Run.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/policy"
	"github.com/nightgate/nightgate/pkg/quota"
)

type Options struct {
	RunID    uuid.UUID
	Scenario int
	PlayerID string
	// Params must match the ones the policy was built with; they drive
	// rarity and the at-risk view in progress reports.
	Params          quota.Params
	Report          ReportOptions
	Recorder        Recorder
	Observers       []Observer
	CheckInvariants bool
}

func DefaultOptions() Options {
	return Options{
		Params:          quota.DefaultParams(),
		Report:          DefaultReportOptions(),
		CheckInvariants: true,
	}
}

type Controller struct {
	game     *model.Game
	stats    *quota.Statistics
	state    *quota.State
	policy   policy.Policy
	logger   *zap.Logger
	opts     Options
	recorder Recorder
	reporter *progressReporter

	status    model.RunStatus
	reasons   map[model.Reason]int
	rejected  int
	startedAt time.Time
}

func NewController(game *model.Game, pol policy.Policy, logger *zap.Logger, opts Options) (*Controller, error) {
	if pol == nil {
		return nil, errors.New("policy is required")
	}
	stats, err := quota.NewStatistics(game, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("build attribute statistics: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	logger = logger.With(
		zap.String("run_id", opts.RunID.String()),
		zap.String("game_id", game.ID),
		zap.String("policy", pol.Name()),
	)

	return &Controller{
		game:     game,
		stats:    stats,
		state:    quota.NewState(stats),
		policy:   pol,
		logger:   logger,
		opts:     opts,
		recorder: recorder,
		reporter: newProgressReporter(logger, opts.Report, opts.Params.Tolerance),
		status:   model.RunInitializing,
		reasons:  make(map[model.Reason]int),
	}, nil
}

func (c *Controller) RunID() uuid.UUID { return c.opts.RunID }

func (c *Controller) Status() model.RunStatus { return c.status }

func (c *Controller) Statistics() *quota.Statistics { return c.stats }

// Snapshot copies the counters. It must be called from the goroutine that
// owns the run, or after Run has returned.
func (c *Controller) Snapshot() quota.Snapshot { return c.state.Snapshot() }

// Run processes candidates until the game reports a terminal status, the
// context is cancelled or the transport fails. A verdict is applied to the
// state only after the sink has acknowledged it.
func (c *Controller) Run(ctx context.Context, source Source, sink Sink) (*Outcome, error) {
	if c.status != model.RunInitializing {
		return nil, ErrAlreadyStarted
	}
	c.startedAt = time.Now()
	c.notifyStart(ctx)

	step, err := source.Start(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return c.abort(ctx)
		}
		return c.fail(ctx, err.Error(), fmt.Errorf("start game: %w", err))
	}

	c.status = model.RunRunning
	c.logger.Info("admission run started",
		zap.Int("capacity", c.stats.Capacity()),
		zap.Strings("attributes", c.stats.Attributes()),
		zap.Strings("rare_attributes", c.stats.RareAttributes()),
	)

	for step.Status == model.GameRunning {
		if ctx.Err() != nil {
			return c.abort(ctx)
		}
		if c.state.Full() {
			return c.fail(ctx, ErrCapacityFilled.Error(), ErrCapacityFilled)
		}
		if step.Candidate == nil {
			return c.fail(ctx, ErrMissingCandidate.Error(), ErrMissingCandidate)
		}

		candidate := *step.Candidate
		traits := c.stats.Traits(&candidate)
		c.state.Observe(traits)
		verdict := c.policy.Decide(c.state, traits)

		next, err := sink.Decide(ctx, candidate.Index, verdict.Accept)
		if err != nil {
			c.state.Unobserve(traits)
			if ctx.Err() != nil {
				return c.abort(ctx)
			}
			return c.fail(ctx, err.Error(), fmt.Errorf("submit decision for candidate %d: %w", candidate.Index, err))
		}

		if err := c.apply(ctx, candidate, traits, verdict); err != nil {
			return c.fail(ctx, err.Error(), err)
		}
		step = next
	}

	switch step.Status {
	case model.GameCompleted:
		return c.finish(ctx, model.RunCompleted, "", step.RejectedCount), nil
	case model.GameFailed:
		return c.finish(ctx, model.RunFailed, step.Reason, c.rejected), nil
	default:
		err := fmt.Errorf("%w: %q", ErrUnexpectedStatus, step.Status)
		return c.fail(ctx, err.Error(), err)
	}
}

func (c *Controller) apply(ctx context.Context, candidate model.Candidate, traits []bool, verdict model.Verdict) error {
	if verdict.Accept {
		if err := c.state.Admit(traits); err != nil {
			return fmt.Errorf("admit candidate %d: %w", candidate.Index, err)
		}
	} else {
		c.rejected++
	}
	c.reasons[verdict.Reason]++

	if c.opts.CheckInvariants {
		if err := c.state.Check(); err != nil {
			c.logger.Error("quota invariant violated", zap.Int("person_index", candidate.Index), zap.Error(err))
			return err
		}
	}

	c.recorder.ObserveDecision(c.policy.Name(), verdict)
	if verdict.Accept {
		c.recorder.ObserveAdmitted(c.state.Admitted())
		for i := 0; i < c.stats.Len(); i++ {
			if traits[i] {
				c.recorder.ObserveNeed(c.stats.Attribute(i), c.state.NeedRemaining(i))
			}
		}
	}

	event := DecisionEvent{
		RunID:     c.opts.RunID,
		Candidate: candidate,
		Verdict:   verdict,
		Admitted:  c.state.Admitted(),
		Processed: c.state.Processed(),
		DecidedAt: time.Now(),
	}
	for _, observer := range c.opts.Observers {
		observer.OnDecision(ctx, event)
	}

	c.reporter.maybeReport(c.state, c.reasons)
	return nil
}

func (c *Controller) notifyStart(ctx context.Context) {
	constraints := make([]model.Constraint, len(c.game.Constraints))
	copy(constraints, c.game.Constraints)
	info := RunInfo{
		RunID:          c.opts.RunID,
		GameID:         c.game.ID,
		Scenario:       c.opts.Scenario,
		PlayerID:       c.opts.PlayerID,
		Policy:         c.policy.Name(),
		Capacity:       c.stats.Capacity(),
		Constraints:    constraints,
		RareAttributes: c.stats.RareAttributes(),
		StartedAt:      c.startedAt,
	}
	for i := 0; i < c.stats.Len(); i++ {
		c.recorder.ObserveNeed(c.stats.Attribute(i), c.state.NeedRemaining(i))
	}
	for _, observer := range c.opts.Observers {
		observer.OnStart(ctx, info)
	}
}

func (c *Controller) abort(ctx context.Context) (*Outcome, error) {
	err := ctx.Err()
	return c.finish(ctx, model.RunAborted, err.Error(), c.rejected), err
}

func (c *Controller) fail(ctx context.Context, reason string, err error) (*Outcome, error) {
	return c.finish(ctx, model.RunFailed, reason, c.rejected), err
}

func (c *Controller) finish(ctx context.Context, status model.RunStatus, reason string, rejected int) *Outcome {
	c.status = status
	reasons := make(map[model.Reason]int, len(c.reasons))
	for k, v := range c.reasons {
		reasons[k] = v
	}
	outcome := Outcome{
		RunID:        c.opts.RunID,
		GameID:       c.game.ID,
		Status:       status,
		Admitted:     c.state.Admitted(),
		Rejected:     rejected,
		Processed:    c.state.Processed(),
		Reason:       reason,
		ReasonCounts: reasons,
		Final:        c.state.Snapshot(),
		StartedAt:    c.startedAt,
		FinishedAt:   time.Now(),
	}

	fields := []zap.Field{
		zap.Int("admitted", outcome.Admitted),
		zap.Int("rejected", outcome.Rejected),
		zap.Int("processed", outcome.Processed),
		zap.Duration("elapsed", outcome.FinishedAt.Sub(outcome.StartedAt)),
	}
	switch status {
	case model.RunCompleted:
		c.logger.Info("admission run completed", fields...)
	case model.RunAborted:
		c.logger.Warn("admission run aborted", fields...)
	default:
		c.logger.Error("admission run failed", append(fields, zap.String("reason", reason))...)
	}

	c.recorder.ObserveRun(status)
	// observers still get the outcome when the run was cancelled
	finishCtx := context.WithoutCancel(ctx)
	for _, observer := range c.opts.Observers {
		observer.OnFinish(finishCtx, outcome)
	}
	return &outcome
}
