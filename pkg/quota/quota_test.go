package quota

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightgate/nightgate/pkg/model"
)

func newGame(capacity int, constraints map[string]int, freqs map[string]float64) *model.Game {
	game := &model.Game{ID: "test", Capacity: capacity, Frequencies: freqs}
	// deterministic order for the tests that care
	for _, name := range []string{"A", "B", "C", "D"} {
		if minCount, ok := constraints[name]; ok {
			game.Constraints = append(game.Constraints, model.Constraint{Attribute: name, MinCount: minCount})
		}
	}
	return game
}

func mustStats(t *testing.T, game *model.Game) *Statistics {
	t.Helper()
	stats, err := NewStatistics(game, DefaultParams())
	require.NoError(t, err)
	return stats
}

func TestNewStatisticsValidation(t *testing.T) {
	tests := []struct {
		name string
		game *model.Game
	}{
		{name: "nil game", game: nil},
		{name: "zero capacity", game: newGame(0, map[string]int{"A": 1}, nil)},
		{name: "negative min count", game: newGame(10, map[string]int{"A": -1}, nil)},
		{name: "frequency above one", game: newGame(10, map[string]int{"A": 1}, map[string]float64{"A": 1.5})},
		{
			name: "duplicate attribute",
			game: &model.Game{Capacity: 10, Constraints: []model.Constraint{{Attribute: "A"}, {Attribute: "A"}}},
		},
		{name: "empty attribute", game: &model.Game{Capacity: 10, Constraints: []model.Constraint{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatistics(tt.game, DefaultParams())
			assert.Error(t, err)
		})
	}
}

func TestRarityClassification(t *testing.T) {
	game := newGame(1000,
		map[string]int{"A": 10, "B": 300, "C": 600, "D": 100},
		map[string]float64{"A": 0.05, "B": 0.6, "C": 0.65, "D": 0.10},
	)
	stats := mustStats(t, game)

	// A: p <= 0.10. B: 0.3 < 0.54. C: 0.6 >= 0.585. D: boundary p == 0.10.
	assert.Equal(t, []string{"A", "C", "D"}, stats.RareAttributes())
	assert.True(t, stats.Rare(0))
	assert.False(t, stats.Rare(1))
}

func TestRarityScenarioLoneRareAttribute(t *testing.T) {
	stats := mustStats(t, newGame(100, map[string]int{"C": 1}, map[string]float64{"C": 0.05}))
	assert.True(t, stats.Rare(0))
}

func TestTraitsIgnoresUnknownAndMissingKeys(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 1, "B": 1}, map[string]float64{"A": 0.5, "B": 0.5}))

	traits := stats.Traits(&model.Candidate{Attributes: map[string]bool{"A": true, "Z": true}})
	assert.Equal(t, []bool{true, false}, traits)

	_, err := stats.IndexOf("Z")
	assert.True(t, errors.Is(err, ErrUnknownAttribute))
}

func TestStateObserveAndAdmit(t *testing.T) {
	stats := mustStats(t, newGame(2, map[string]int{"A": 1, "B": 2}, map[string]float64{"A": 0.5, "B": 0.5}))
	state := NewState(stats)

	both := []bool{true, true}
	state.Observe(both)
	require.NoError(t, state.Admit(both))
	assert.Equal(t, 0, state.NeedRemaining(0))
	assert.Equal(t, 1, state.NeedRemaining(1))
	assert.Equal(t, 1, state.TotalNeed())

	state.Observe(both)
	require.NoError(t, state.Admit(both))
	assert.Equal(t, 0, state.NeedRemaining(0), "need is clamped at zero")
	assert.Equal(t, 2, state.AdmitTrue(0))
	assert.True(t, state.Full())
	assert.Equal(t, 0, state.SlotsLeft())

	state.Observe(both)
	assert.ErrorIs(t, state.Admit(both), ErrCapacityExhausted)
	assert.Equal(t, 1, state.Rejected())
	require.NoError(t, state.Check())
}

func TestUnobserveWithdrawsPendingArrival(t *testing.T) {
	stats := mustStats(t, newGame(4, map[string]int{"A": 2}, map[string]float64{"A": 0.5}))
	state := NewState(stats)

	withA := []bool{true}
	state.Observe(withA)
	require.NoError(t, state.Admit(withA))

	state.Observe(withA)
	assert.Equal(t, 2, state.Processed())
	assert.Equal(t, 2, state.SeenTrue(0))

	state.Unobserve(withA)
	assert.Equal(t, 1, state.Processed())
	assert.Equal(t, 1, state.SeenTrue(0))
	assert.Equal(t, 0, state.Rejected())
	require.NoError(t, state.Check())

	state.Unobserve(withA)
	assert.Equal(t, 1, state.Processed(), "admitted arrivals cannot be withdrawn")
	assert.Equal(t, 1, state.SeenTrue(0))
}

func TestHits(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 1, "B": 1, "C": 0}, map[string]float64{"A": 0.5, "B": 0.5, "C": 0.5}))
	state := NewState(stats)

	assert.Equal(t, []int{0, 1}, state.Hits([]bool{true, true, true}))
	assert.Empty(t, state.Hits([]bool{false, false, true}))
}

func TestProjectAndAtRisk(t *testing.T) {
	stats := mustStats(t, newGame(100, map[string]int{"A": 50, "B": 10}, map[string]float64{"A": 0.2, "B": 0.5}))
	state := NewState(stats)

	deltas := Project(state, 100)
	assert.InDelta(t, -30.0, deltas[0], 1e-9)
	assert.InDelta(t, 40.0, deltas[1], 1e-9)
	assert.Equal(t, []int{0}, AtRisk(state, 100, 5))

	// exactly -tolerance is not at risk
	stats = mustStats(t, newGame(100, map[string]int{"A": 25}, map[string]float64{"A": 0.2}))
	assert.Empty(t, AtRisk(NewState(stats), 100, 5))
}

func TestPaceAndNeedsRescue(t *testing.T) {
	stats := mustStats(t, newGame(100, map[string]int{"A": 40}, map[string]float64{"A": 0.5}))
	snap := Snapshot{
		Admitted:      10,
		Processed:     20,
		NeedRemaining: map[string]int{"A": 30},
		SeenTrue:      map[string]int{"A": 14},
		AdmitTrue:     map[string]int{"A": 10},
	}
	state, err := Restore(stats, snap)
	require.NoError(t, err)

	observed, target := Pace(state, 0)
	assert.InDelta(t, 10.0/14.0, observed, 1e-9)
	assert.InDelta(t, 0.8, target, 1e-9)
	// 0.714 < 0.72
	assert.True(t, NeedsRescue(state, 0, 0.9))
	assert.False(t, NeedsRescue(state, 0, 0.85))
}

func TestNeedsRescueFalseWhenMet(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 0}, map[string]float64{"A": 0.5}))
	assert.False(t, NeedsRescue(NewState(stats), 0, 0.9))
}

func TestPaceWithZeroFrequency(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 2}, map[string]float64{}))
	_, target := Pace(NewState(stats), 0)
	assert.InDelta(t, 2.0, target, 1e-9, "expected total is floored at one")
}

func TestOverfilled(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 2, "B": 0}, map[string]float64{"A": 0.5, "B": 0.5}))
	state, err := Restore(stats, Snapshot{
		Admitted:      3,
		Processed:     5,
		NeedRemaining: map[string]int{"A": 1},
		SeenTrue:      map[string]int{"A": 5, "B": 5},
		AdmitTrue:     map[string]int{"A": 3, "B": 3},
	})
	require.NoError(t, err)

	assert.True(t, Overfilled(state, 0, 1.02))
	assert.False(t, Overfilled(state, 1, 1.02), "zero quotas never overfill")
}

func TestRestoreRejectsInvariantViolations(t *testing.T) {
	stats := mustStats(t, newGame(10, map[string]int{"A": 2}, map[string]float64{"A": 0.5}))

	tests := []struct {
		name string
		snap Snapshot
	}{
		{name: "negative need", snap: Snapshot{NeedRemaining: map[string]int{"A": -1}}},
		{name: "need above quota", snap: Snapshot{NeedRemaining: map[string]int{"A": 3}}},
		{name: "admits exceed seen", snap: Snapshot{Admitted: 1, Processed: 1, AdmitTrue: map[string]int{"A": 1}}},
		{name: "admitted above capacity", snap: Snapshot{Admitted: 11, Processed: 11}},
		{name: "admitted above processed", snap: Snapshot{Admitted: 2, Processed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(stats, tt.snap)
			var invariant *InvariantError
			assert.ErrorAs(t, err, &invariant)
		})
	}

	_, err := Restore(stats, Snapshot{SeenTrue: map[string]int{"Z": 1}})
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestSnapshotRoundTrip(t *testing.T) {
	stats := mustStats(t, newGame(5, map[string]int{"A": 2, "B": 1}, map[string]float64{"A": 0.5, "B": 0.2}))
	state := NewState(stats)
	state.Observe([]bool{true, false})
	require.NoError(t, state.Admit([]bool{true, false}))
	state.Observe([]bool{false, true})

	restored, err := Restore(stats, state.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, state.Snapshot(), restored.Snapshot())
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.OverfillFactor = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.RescueRatio = 0
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.Tolerance = -1
	assert.Error(t, bad.Validate())
}
