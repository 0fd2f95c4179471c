package quota

import "fmt"

// Params holds the tunable thresholds of the heuristic. The defaults were
// picked by hand for N=1000 with two to six constraints.
type Params struct {
	// Tolerance is the slack, in candidates, a projected deficit may reach
	// before the attribute counts as at-risk.
	Tolerance float64 `mapstructure:"tolerance"`
	// OverfillFactor marks an attribute overfilled once its admits reach
	// this multiple of the quota.
	OverfillFactor float64 `mapstructure:"overfill_factor"`
	// RescueRatio is the fraction of the required admit pace below which
	// an attribute needs rescue.
	RescueRatio     float64 `mapstructure:"rescue_ratio"`
	RareFrequency   float64 `mapstructure:"rare_frequency"`
	RareDemandRatio float64 `mapstructure:"rare_demand_ratio"`
}

func DefaultParams() Params {
	return Params{
		Tolerance:       5,
		OverfillFactor:  1.02,
		RescueRatio:     0.9,
		RareFrequency:   0.10,
		RareDemandRatio: 0.9,
	}
}

func (p Params) Validate() error {
	if p.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %v", p.Tolerance)
	}
	if p.OverfillFactor < 1 {
		return fmt.Errorf("overfill factor must be at least 1, got %v", p.OverfillFactor)
	}
	if p.RescueRatio <= 0 || p.RescueRatio > 1 {
		return fmt.Errorf("rescue ratio must be in (0, 1], got %v", p.RescueRatio)
	}
	if p.RareFrequency < 0 || p.RareFrequency > 1 {
		return fmt.Errorf("rare frequency must be in [0, 1], got %v", p.RareFrequency)
	}
	if p.RareDemandRatio <= 0 {
		return fmt.Errorf("rare demand ratio must be positive, got %v", p.RareDemandRatio)
	}
	return nil
}
