package admission

import (
	"context"

	"github.com/nightgate/nightgate/pkg/model"
)

// Step is what the game returns after each request: either the next
// candidate (status running) or a terminal status.
type Step struct {
	Status        model.GameStatus
	Candidate     *model.Candidate
	RejectedCount int
	Reason        string
}

// Source yields the first step of a game.
type Source interface {
	Start(ctx context.Context) (Step, error)
}

// Sink accepts a verdict for the candidate at index and returns the next step.
type Sink interface {
	Decide(ctx context.Context, index int, accept bool) (Step, error)
}

// Game is a Source and Sink backed by the same session.
type Game interface {
	Source
	Sink
}
