package policy

import (
	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/quota"
)

// Helper admits anyone who helps an unmet quota and fills freely once every
// quota is met. It ignores projections, pace and rarity.
type Helper struct{}

func NewHelper() *Helper {
	return &Helper{}
}

func (p *Helper) Name() string { return NameHelper }

func (p *Helper) Decide(state *quota.State, traits []bool) model.Verdict {
	if state.TotalNeed() == 0 {
		return model.Accept(model.ReasonFillAfterConstraints)
	}
	switch k := len(state.Hits(traits)); {
	case k >= 2:
		return model.Accept(model.ReasonMultiTraitBoost)
	case k == 1:
		return model.Accept(model.ReasonStandardHelp)
	default:
		return model.Reject(model.ReasonNoHelp)
	}
}
