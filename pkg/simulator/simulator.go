// Package simulator runs a local game with independently drawn attributes so
// policies can be exercised without the remote server.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/model"
)

const DefaultMaxRejections = 20000

type Config struct {
	Seed          int64 `mapstructure:"seed"`
	MaxRejections int   `mapstructure:"max_rejections"`
}

// Game is an in-process admission.Game. It is not safe for concurrent use.
type Game struct {
	setup         *model.Game
	rng           *rand.Rand
	attributes    []string
	maxRejections int

	next      model.Candidate
	started   bool
	done      bool
	admitted  int
	rejected  int
	admitTrue map[string]int
}

func New(setup *model.Game, cfg Config) (*Game, error) {
	if setup == nil || setup.Capacity <= 0 {
		return nil, errors.New("simulator needs a game with positive capacity")
	}
	maxRejections := cfg.MaxRejections
	if maxRejections <= 0 {
		maxRejections = DefaultMaxRejections
	}

	attributes := make([]string, 0, len(setup.Frequencies))
	for name := range setup.Frequencies {
		attributes = append(attributes, name)
	}
	// map order would make draws irreproducible
	sort.Strings(attributes)

	return &Game{
		setup:         setup,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		attributes:    attributes,
		maxRejections: maxRejections,
		admitTrue:     make(map[string]int),
	}, nil
}

func (g *Game) Setup() *model.Game { return g.setup }

func (g *Game) Start(ctx context.Context) (admission.Step, error) {
	if err := ctx.Err(); err != nil {
		return admission.Step{}, err
	}
	if g.started {
		return admission.Step{}, errors.New("simulated game already started")
	}
	g.started = true
	g.draw(0)
	return g.running(), nil
}

func (g *Game) Decide(ctx context.Context, index int, accept bool) (admission.Step, error) {
	if err := ctx.Err(); err != nil {
		return admission.Step{}, err
	}
	if !g.started || g.done {
		return admission.Step{}, errors.New("simulated game is not running")
	}
	if index != g.next.Index {
		return admission.Step{}, fmt.Errorf("decision for person %d, expected %d", index, g.next.Index)
	}

	if accept {
		g.admitted++
		for name, has := range g.next.Attributes {
			if has {
				g.admitTrue[name]++
			}
		}
	} else {
		g.rejected++
	}

	if g.admitted >= g.setup.Capacity {
		g.done = true
		if unmet := g.unmet(); unmet != "" {
			return g.failed("quota not met: " + unmet), nil
		}
		return admission.Step{Status: model.GameCompleted, RejectedCount: g.rejected}, nil
	}
	if g.rejected >= g.maxRejections {
		g.done = true
		return g.failed("too many rejections"), nil
	}

	g.draw(index + 1)
	return g.running(), nil
}

func (g *Game) draw(index int) {
	attrs := make(map[string]bool, len(g.attributes))
	for _, name := range g.attributes {
		attrs[name] = g.rng.Float64() < g.setup.Frequencies[name]
	}
	g.next = model.Candidate{Index: index, Attributes: attrs}
}

func (g *Game) running() admission.Step {
	c := g.next
	return admission.Step{Status: model.GameRunning, Candidate: &c, RejectedCount: g.rejected}
}

func (g *Game) failed(reason string) admission.Step {
	return admission.Step{Status: model.GameFailed, RejectedCount: g.rejected, Reason: reason}
}

func (g *Game) unmet() string {
	for _, constraint := range g.setup.Constraints {
		if g.admitTrue[constraint.Attribute] < constraint.MinCount {
			return constraint.Attribute
		}
	}
	return ""
}
