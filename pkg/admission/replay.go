package admission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nightgate/nightgate/pkg/model"
)

const ReasonArrivalsExhausted = "arrivals exhausted"

// Replay serves a prerecorded arrival sequence as a Game. It reports
// completed once capacity admits were received and failed when the sequence
// runs out first. Quotas are not checked.
type Replay struct {
	capacity int
	arrivals []model.Candidate
	pos      int
	started  bool
	done     bool
	admitted int
	rejected int
	verdicts []bool
	requests int
}

func NewReplay(capacity int, arrivals []model.Candidate) *Replay {
	copied := make([]model.Candidate, len(arrivals))
	copy(copied, arrivals)
	return &Replay{capacity: capacity, arrivals: copied}
}

// Arrivals numbers attribute maps into candidates in order.
func Arrivals(attrs ...map[string]bool) []model.Candidate {
	out := make([]model.Candidate, len(attrs))
	for i, a := range attrs {
		out[i] = model.Candidate{Index: i, Attributes: a}
	}
	return out
}

// LoadArrivals reads one JSON candidate per line.
func LoadArrivals(r io.Reader) ([]model.Candidate, error) {
	var arrivals []model.Candidate
	decoder := json.NewDecoder(r)
	for {
		var c model.Candidate
		if err := decoder.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				return arrivals, nil
			}
			return nil, fmt.Errorf("decode arrival %d: %w", len(arrivals), err)
		}
		arrivals = append(arrivals, c)
	}
}

func (r *Replay) Start(ctx context.Context) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	if r.started {
		return Step{}, errors.New("replay already started")
	}
	r.started = true
	r.requests++
	return r.current(), nil
}

func (r *Replay) Decide(ctx context.Context, index int, accept bool) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	if !r.started || r.done {
		return Step{}, errors.New("replay is not running")
	}
	if want := r.arrivals[r.pos].Index; index != want {
		return Step{}, fmt.Errorf("decision for candidate %d, expected %d", index, want)
	}
	r.requests++
	r.verdicts = append(r.verdicts, accept)
	if accept {
		r.admitted++
	} else {
		r.rejected++
	}
	r.pos++
	return r.current(), nil
}

func (r *Replay) current() Step {
	if r.admitted >= r.capacity {
		r.done = true
		return Step{Status: model.GameCompleted, RejectedCount: r.rejected}
	}
	if r.pos >= len(r.arrivals) {
		r.done = true
		return Step{Status: model.GameFailed, RejectedCount: r.rejected, Reason: ReasonArrivalsExhausted}
	}
	c := r.arrivals[r.pos]
	return Step{Status: model.GameRunning, Candidate: &c, RejectedCount: r.rejected}
}

// Verdicts returns the decisions received so far, in arrival order.
func (r *Replay) Verdicts() []bool {
	out := make([]bool, len(r.verdicts))
	copy(out, r.verdicts)
	return out
}

// Requests counts Start and Decide calls served.
func (r *Replay) Requests() int { return r.requests }
