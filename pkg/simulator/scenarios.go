package simulator

import (
	"fmt"

	"github.com/nightgate/nightgate/pkg/model"
)

const defaultCapacity = 1000

// Scenario returns a preset shaped like the public challenge scenarios.
// Frequencies are rounded and attributes are drawn independently.
func Scenario(n int) (*model.Game, error) {
	var game *model.Game
	switch n {
	case 1:
		game = &model.Game{
			Constraints: []model.Constraint{
				{Attribute: "young", MinCount: 600},
				{Attribute: "well_dressed", MinCount: 600},
			},
			Frequencies: map[string]float64{"young": 0.3225, "well_dressed": 0.3225},
		}
	case 2:
		game = &model.Game{
			Constraints: []model.Constraint{
				{Attribute: "techno_lover", MinCount: 650},
				{Attribute: "well_connected", MinCount: 450},
				{Attribute: "creative", MinCount: 300},
				{Attribute: "berlin_local", MinCount: 750},
			},
			Frequencies: map[string]float64{
				"techno_lover":   0.6265,
				"well_connected": 0.47,
				"creative":       0.0623,
				"berlin_local":   0.398,
			},
		}
	case 3:
		game = &model.Game{
			Constraints: []model.Constraint{
				{Attribute: "underground_veteran", MinCount: 500},
				{Attribute: "international", MinCount: 650},
				{Attribute: "fashion_forward", MinCount: 550},
				{Attribute: "queer_friendly", MinCount: 250},
				{Attribute: "vinyl_collector", MinCount: 200},
				{Attribute: "german_speaker", MinCount: 800},
			},
			Frequencies: map[string]float64{
				"underground_veteran": 0.6795,
				"international":       0.5735,
				"fashion_forward":     0.691,
				"queer_friendly":      0.0461,
				"vinyl_collector":     0.0446,
				"german_speaker":      0.4565,
			},
		}
	default:
		return nil, fmt.Errorf("unknown scenario %d", n)
	}
	game.ID = fmt.Sprintf("sim-scenario-%d", n)
	game.Capacity = defaultCapacity
	return game, nil
}
