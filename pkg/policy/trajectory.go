package policy

import (
	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/quota"
)

// Trajectory is the full multi-signal rule chain: projected deficits,
// overfill protection, pace tracking and rarity, evaluated in a fixed order
// where the first matching rule wins.
type Trajectory struct {
	params quota.Params
}

func NewTrajectory(params quota.Params) *Trajectory {
	return &Trajectory{params: params}
}

func (p *Trajectory) Name() string { return NameTrajectory }

func (p *Trajectory) Decide(state *quota.State, traits []bool) model.Verdict {
	if state.TotalNeed() == 0 {
		return model.Accept(model.ReasonFillAfterConstraints)
	}

	hits := state.Hits(traits)
	k := len(hits)

	// slots left before this arrival is admitted
	atRisk := quota.AtRisk(state, state.SlotsLeft(), p.params.Tolerance)
	if len(atRisk) > 0 && !carriesAny(traits, atRisk) {
		return model.Reject(model.ReasonRiskBlock)
	}

	for _, i := range hits {
		if quota.Overfilled(state, i, p.params.OverfillFactor) {
			return model.Reject(model.ReasonOverfillGuard)
		}
	}

	if k >= 2 {
		return model.Accept(model.ReasonMultiTraitBoost)
	}

	for _, i := range hits {
		if quota.NeedsRescue(state, i, p.params.RescueRatio) {
			return model.Accept(model.ReasonBudgetRescue)
		}
	}

	if k >= 1 {
		stats := state.Statistics()
		for _, i := range hits {
			if stats.Rare(i) {
				return model.Accept(model.ReasonRareTraitBoost)
			}
		}
		return model.Accept(model.ReasonStandardHelp)
	}

	return model.Reject(model.ReasonNoHelp)
}

func carriesAny(traits []bool, indexes []int) bool {
	for _, i := range indexes {
		if traits[i] {
			return true
		}
	}
	return false
}
