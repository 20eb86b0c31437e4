// internal/candidates/candidates.go
//
// The session-scoped set of answer words still consistent with all feedback.
//
// Members are indices into the answer vocabulary, kept sorted. The set only
// shrinks through Retain; Reset and Replace are the explicit ways back up.
//
// State machine:
//   Initialized -> Narrowed -> Solved (1 word) / Empty (0 words, inconsistent feedback)
//   Reset() returns to Initialized from anywhere.
package candidates

import (
	"errors"
	"sort"
)

// State is the coarse lifecycle position of a Set.
type State int

const (
	Initialized State = iota // full answer vocabulary, no feedback applied
	Narrowed                 // feedback applied, more than one word left
	Solved                   // exactly one word left
	Empty                    // feedback contradicts every word
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Narrowed:
		return "narrowed"
	case Solved:
		return "solved"
	default:
		return "empty"
	}
}

var ErrIndexOutOfRange = errors.New("candidates: index outside the answer vocabulary")

// Set is owned by exactly one session and is not safe for concurrent use.
type Set struct {
	universe int
	members  []int32
	touched  bool
}

// New returns the full set over an answer vocabulary of the given size.
func New(universe int) *Set {
	s := &Set{universe: universe}
	s.Reset()
	return s
}

// Reset restores the full answer vocabulary.
func (s *Set) Reset() {
	s.members = make([]int32, s.universe)
	for i := range s.members {
		s.members[i] = int32(i)
	}
	s.touched = false
}

// Replace installs an externally supplied restriction. Duplicates collapse.
func (s *Set) Replace(indices []int32) error {
	seen := make(map[int32]struct{}, len(indices))
	out := make([]int32, 0, len(indices))
	for _, i := range indices {
		if i < 0 || int(i) >= s.universe {
			return ErrIndexOutOfRange
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	s.members = out
	s.touched = len(out) != s.universe
	return nil
}

// Retain keeps the members for which keep returns true, in place.
// It returns the number of members removed.
func (s *Set) Retain(keep func(idx int32) bool) int {
	kept := s.members[:0]
	for _, i := range s.members {
		if keep(i) {
			kept = append(kept, i)
		}
	}
	removed := len(s.members) - len(kept)
	s.members = kept
	s.touched = true
	return removed
}

// Len is the number of remaining candidates.
func (s *Set) Len() int { return len(s.members) }

// Indices returns the sorted members. Callers must not modify it.
func (s *Set) Indices() []int32 { return s.members }

// Contains reports whether answer index i is a candidate.
func (s *Set) Contains(i int32) bool {
	k := sort.Search(len(s.members), func(k int) bool { return s.members[k] >= i })
	return k < len(s.members) && s.members[k] == i
}

// Mask returns a membership bitmap over the answer vocabulary.
func (s *Set) Mask() []bool {
	m := make([]bool, s.universe)
	for _, i := range s.members {
		m[i] = true
	}
	return m
}

// State reports the lifecycle position.
func (s *Set) State() State {
	switch n := len(s.members); {
	case n == 0:
		return Empty
	case n == 1:
		return Solved
	case !s.touched:
		return Initialized
	default:
		return Narrowed
	}
}
