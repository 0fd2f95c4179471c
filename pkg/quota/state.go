package quota

import (
	"errors"
	"fmt"
)

var ErrCapacityExhausted = errors.New("capacity exhausted")

// InvariantError reports a counter combination the admission loop can never
// legitimately produce. It signals a logic error, not a runtime condition.
type InvariantError struct {
	Attribute string
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.Attribute == "" {
		return "quota invariant violated: " + e.Detail
	}
	return fmt.Sprintf("quota invariant violated for %q: %s", e.Attribute, e.Detail)
}

// State is the mutable counter set for one run. It is owned by a single
// goroutine; the evaluators in this package only read it.
type State struct {
	stats         *Statistics
	needRemaining []int
	seenTrue      []int
	admitTrue     []int
	admitted      int
	processed     int
}

func NewState(stats *Statistics) *State {
	n := stats.Len()
	s := &State{
		stats:         stats,
		needRemaining: make([]int, n),
		seenTrue:      make([]int, n),
		admitTrue:     make([]int, n),
	}
	copy(s.needRemaining, stats.minCount)
	return s
}

func (s *State) Statistics() *Statistics { return s.stats }

func (s *State) NeedRemaining(i int) int { return s.needRemaining[i] }

func (s *State) SeenTrue(i int) int { return s.seenTrue[i] }

func (s *State) AdmitTrue(i int) int { return s.admitTrue[i] }

func (s *State) Admitted() int { return s.admitted }

func (s *State) Processed() int { return s.processed }

func (s *State) Rejected() int { return s.processed - s.admitted }

func (s *State) SlotsLeft() int { return s.stats.capacity - s.admitted }

func (s *State) Full() bool { return s.admitted >= s.stats.capacity }

func (s *State) TotalNeed() int {
	total := 0
	for _, need := range s.needRemaining {
		total += need
	}
	return total
}

// Observe records an arrival before it is decided on.
func (s *State) Observe(traits []bool) {
	s.processed++
	for i, has := range traits {
		if has {
			s.seenTrue[i]++
		}
	}
}

// Unobserve withdraws an arrival recorded by Observe whose verdict was never
// acknowledged. It must not follow an Admit for the same arrival.
func (s *State) Unobserve(traits []bool) {
	if s.processed <= s.admitted {
		return
	}
	s.processed--
	for i, has := range traits {
		if has && s.seenTrue[i] > s.admitTrue[i] {
			s.seenTrue[i]--
		}
	}
}

// Admit applies an accepted verdict for an arrival already passed to Observe.
func (s *State) Admit(traits []bool) error {
	if s.Full() {
		return ErrCapacityExhausted
	}
	s.admitted++
	for i, has := range traits {
		if !has {
			continue
		}
		s.admitTrue[i]++
		if s.needRemaining[i] > 0 {
			s.needRemaining[i]--
		}
	}
	return nil
}

// Hits returns the indexes of carried attributes whose quota is still unmet.
func (s *State) Hits(traits []bool) []int {
	var hits []int
	for i, has := range traits {
		if has && s.needRemaining[i] > 0 {
			hits = append(hits, i)
		}
	}
	return hits
}

func (s *State) Check() error {
	if s.admitted < 0 || s.admitted > s.stats.capacity {
		return &InvariantError{Detail: fmt.Sprintf("admitted %d outside [0, %d]", s.admitted, s.stats.capacity)}
	}
	if s.admitted > s.processed {
		return &InvariantError{Detail: fmt.Sprintf("admitted %d exceeds processed %d", s.admitted, s.processed)}
	}
	for i, attribute := range s.stats.attributes {
		if s.needRemaining[i] < 0 || s.needRemaining[i] > s.stats.minCount[i] {
			return &InvariantError{
				Attribute: attribute,
				Detail:    fmt.Sprintf("need remaining %d outside [0, %d]", s.needRemaining[i], s.stats.minCount[i]),
			}
		}
		if s.admitTrue[i] > s.seenTrue[i] {
			return &InvariantError{
				Attribute: attribute,
				Detail:    fmt.Sprintf("admitted %d exceeds seen %d", s.admitTrue[i], s.seenTrue[i]),
			}
		}
	}
	return nil
}

// Snapshot is a detached copy of the counters keyed by attribute name.
type Snapshot struct {
	Admitted      int            `json:"admitted"`
	Processed     int            `json:"processed"`
	NeedRemaining map[string]int `json:"need_remaining"`
	SeenTrue      map[string]int `json:"seen_true"`
	AdmitTrue     map[string]int `json:"admit_true"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Admitted:      s.admitted,
		Processed:     s.processed,
		NeedRemaining: make(map[string]int, len(s.stats.attributes)),
		SeenTrue:      make(map[string]int, len(s.stats.attributes)),
		AdmitTrue:     make(map[string]int, len(s.stats.attributes)),
	}
	for i, attribute := range s.stats.attributes {
		snap.NeedRemaining[attribute] = s.needRemaining[i]
		snap.SeenTrue[attribute] = s.seenTrue[i]
		snap.AdmitTrue[attribute] = s.admitTrue[i]
	}
	return snap
}

// Restore rebuilds a State from a snapshot, e.g. to resume a run. Attributes
// missing from the snapshot keep their initial values. The result must pass
// Check.
func Restore(stats *Statistics, snap Snapshot) (*State, error) {
	s := NewState(stats)
	s.admitted = snap.Admitted
	s.processed = snap.Processed
	for attribute, v := range snap.NeedRemaining {
		i, err := stats.IndexOf(attribute)
		if err != nil {
			return nil, err
		}
		s.needRemaining[i] = v
	}
	for attribute, v := range snap.SeenTrue {
		i, err := stats.IndexOf(attribute)
		if err != nil {
			return nil, err
		}
		s.seenTrue[i] = v
	}
	for attribute, v := range snap.AdmitTrue {
		i, err := stats.IndexOf(attribute)
		if err != nil {
			return nil, err
		}
		s.admitTrue[i] = v
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}
