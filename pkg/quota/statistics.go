package quota

import (
	"errors"
	"fmt"

	"github.com/nightgate/nightgate/pkg/model"
)

var ErrUnknownAttribute = errors.New("unknown attribute")

// Statistics is the immutable per-game view of the constrained attributes:
// their dense indexes, quotas, population frequencies and rarity.
type Statistics struct {
	capacity   int
	attributes []string
	positions  map[string]int
	minCount   []int
	frequency  []float64
	rare       []bool
}

func NewStatistics(game *model.Game, params Params) (*Statistics, error) {
	if game == nil {
		return nil, errors.New("game is nil")
	}
	if game.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", game.Capacity)
	}

	n := len(game.Constraints)
	stats := &Statistics{
		capacity:   game.Capacity,
		attributes: make([]string, 0, n),
		positions:  make(map[string]int, n),
		minCount:   make([]int, 0, n),
		frequency:  make([]float64, 0, n),
		rare:       make([]bool, 0, n),
	}

	for _, constraint := range game.Constraints {
		if constraint.Attribute == "" {
			return nil, errors.New("constraint attribute is empty")
		}
		if _, dup := stats.positions[constraint.Attribute]; dup {
			return nil, fmt.Errorf("duplicate constraint for attribute %q", constraint.Attribute)
		}
		if constraint.MinCount < 0 {
			return nil, fmt.Errorf("constraint %q has negative min count %d", constraint.Attribute, constraint.MinCount)
		}
		p := game.Frequencies[constraint.Attribute]
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("frequency of %q must be in [0, 1], got %v", constraint.Attribute, p)
		}

		stats.positions[constraint.Attribute] = len(stats.attributes)
		stats.attributes = append(stats.attributes, constraint.Attribute)
		stats.minCount = append(stats.minCount, constraint.MinCount)
		stats.frequency = append(stats.frequency, p)
		stats.rare = append(stats.rare, classifyRare(p, constraint.MinCount, game.Capacity, params))
	}

	return stats, nil
}

// classifyRare marks attributes with little population slack: either
// uncommon outright, or demanded at nearly their whole expected supply.
func classifyRare(p float64, minCount, capacity int, params Params) bool {
	if p <= params.RareFrequency {
		return true
	}
	required := float64(minCount) / float64(capacity)
	return required >= params.RareDemandRatio*p
}

func (s *Statistics) Capacity() int { return s.capacity }

func (s *Statistics) Len() int { return len(s.attributes) }

func (s *Statistics) Attribute(i int) string { return s.attributes[i] }

func (s *Statistics) Attributes() []string {
	out := make([]string, len(s.attributes))
	copy(out, s.attributes)
	return out
}

func (s *Statistics) MinCount(i int) int { return s.minCount[i] }

func (s *Statistics) Frequency(i int) float64 { return s.frequency[i] }

func (s *Statistics) Rare(i int) bool { return s.rare[i] }

func (s *Statistics) RareAttributes() []string {
	var out []string
	for i, rare := range s.rare {
		if rare {
			out = append(out, s.attributes[i])
		}
	}
	return out
}

func (s *Statistics) IndexOf(attribute string) (int, error) {
	i, ok := s.positions[attribute]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownAttribute, attribute)
	}
	return i, nil
}

// Traits projects a candidate onto the constrained attributes. Keys outside
// the constraint set are ignored and missing keys read as false.
func (s *Statistics) Traits(c *model.Candidate) []bool {
	traits := make([]bool, len(s.attributes))
	for i, attribute := range s.attributes {
		traits[i] = c.Has(attribute)
	}
	return traits
}
