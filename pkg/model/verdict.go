package model

// Reason labels the rule that produced a verdict.
type Reason string

const (
	ReasonFillAfterConstraints Reason = "fill_after_constraints"
	ReasonRiskBlock            Reason = "risk_block"
	ReasonOverfillGuard        Reason = "overfill_guard"
	ReasonMultiTraitBoost      Reason = "multi_trait_boost"
	ReasonBudgetRescue         Reason = "budget_rescue"
	ReasonRareTraitBoost       Reason = "rare_trait_boost"
	ReasonStandardHelp         Reason = "standard_help"
	ReasonNoHelp               Reason = "no_help"
)

// Reasons lists every reason code in rule order.
var Reasons = []Reason{
	ReasonFillAfterConstraints,
	ReasonRiskBlock,
	ReasonOverfillGuard,
	ReasonMultiTraitBoost,
	ReasonBudgetRescue,
	ReasonRareTraitBoost,
	ReasonStandardHelp,
	ReasonNoHelp,
}

type Verdict struct {
	Accept bool   `json:"accept"`
	Reason Reason `json:"reason"`
}

func Accept(reason Reason) Verdict {
	return Verdict{Accept: true, Reason: reason}
}

func Reject(reason Reason) Verdict {
	return Verdict{Accept: false, Reason: reason}
}

func (v Verdict) Label() string {
	if v.Accept {
		return "accept"
	}
	return "reject"
}
