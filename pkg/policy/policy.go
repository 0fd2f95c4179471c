// Package policy turns the quota counters and a candidate's traits into an
// admit or reject verdict. Policies are pure: they read the state and never
// mutate it, so replaying the same arrivals yields the same verdicts.
package policy

import (
	"fmt"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/quota"
)

const (
	NameTrajectory = "trajectory"
	NameHelper     = "helper"
)

type Policy interface {
	Name() string
	// Decide evaluates one arrival. The arrival must already be recorded
	// through State.Observe and slots must remain.
	Decide(state *quota.State, traits []bool) model.Verdict
}

func New(name string, params quota.Params) (Policy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch name {
	case "", NameTrajectory:
		return NewTrajectory(params), nil
	case NameHelper:
		return NewHelper(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// Names lists the selectable policies.
func Names() []string {
	return []string{NameTrajectory, NameHelper}
}
