package quota

// Project estimates, per attribute, the opportunities seen so far plus those
// expected in the remaining slots, minus what is still required. A negative
// delta means the quota is on course to be missed.
func Project(s *State, slotsLeft int) []float64 {
	deltas := make([]float64, s.stats.Len())
	for i := range deltas {
		deltas[i] = float64(s.seenTrue[i]) + float64(slotsLeft)*s.stats.frequency[i] - float64(s.needRemaining[i])
	}
	return deltas
}

// AtRisk returns the attributes whose projected delta is below -tolerance.
func AtRisk(s *State, slotsLeft int, tolerance float64) []int {
	var risky []int
	for i, delta := range Project(s, slotsLeft) {
		if delta < -tolerance {
			risky = append(risky, i)
		}
	}
	return risky
}
