package quota

// Pace compares the fraction of an attribute's opportunities admitted so far
// with the fraction needed, over the whole run, to meet its quota exactly.
func Pace(s *State, i int) (observed, target float64) {
	observed = float64(s.admitTrue[i]) / float64(max(1, s.seenTrue[i]))
	expectedTotal := max(1.0, float64(s.stats.capacity)*s.stats.frequency[i])
	target = float64(s.stats.minCount[i]) / expectedTotal
	return observed, target
}

// NeedsRescue reports whether attribute i still has unmet need and is being
// admitted slower than ratio times the required pace.
func NeedsRescue(s *State, i int, ratio float64) bool {
	if s.needRemaining[i] <= 0 {
		return false
	}
	observed, target := Pace(s, i)
	return observed < ratio*target
}

// Overfilled reports whether attribute i has already been admitted at least
// factor times its quota.
func Overfilled(s *State, i int, factor float64) bool {
	minCount := s.stats.minCount[i]
	if minCount <= 0 {
		return false
	}
	return float64(s.admitTrue[i]) >= factor*float64(minCount)
}
