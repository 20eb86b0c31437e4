// internal/judge/judge.go
//
// Per-letter feedback for a (guess, target) pair.
// Responsibilities:
//   - Symbol: per-letter outcome (no match / partial / exact).
//   - Judgement: the ordered sequence of symbols for one pair.
//   - Compute / Scorer: the classic two-pass scoring algorithm.
//
// Notes:
//   - Words are compared by code point, so non-ASCII vocabularies work.
//   - Equal length is assumed (the vocabulary guarantees it); no check is made
//     here because this is the hot path of every build and evaluation.
package judge

import "strings"

// Symbol is the feedback for a single letter position.
type Symbol uint8

const (
	NoMatch Symbol = iota // letter not in the target (or all copies used up)
	Partial               // letter in the target at another position
	Exact                 // letter in the target at this position
)

// Judgement is the feedback for a whole guess, first letter first.
type Judgement []Symbol

// String renders the judgement as the digit string used on the wire ("21002").
func (j Judgement) String() string {
	var b strings.Builder
	b.Grow(len(j))
	for _, s := range j {
		b.WriteByte('0' + byte(s))
	}
	return b.String()
}

// Solved reports whether every position is Exact.
func (j Judgement) Solved() bool {
	for _, s := range j {
		if s != Exact {
			return false
		}
	}
	return true
}

// Compute scores guess against target.
//
// Pass 1:
//   - Mark exact matches.
//   - Count the remaining (non-exact) target letters.
//
// Pass 2, left to right over non-exact positions:
//   - If the guess letter still has remaining count, mark Partial and decrement;
//     otherwise NoMatch.
//
// Repeated letters are attributed to the leftmost non-exact guess positions first.
func Compute(guess, target string) Judgement {
	g, t := []rune(guess), []rune(target)
	out := make(Judgement, len(g))
	var s Scorer
	s.fill(g, t, out)
	return out
}

// Scorer computes judgements without allocating once its buffers have grown.
// A Scorer is not safe for concurrent use; give each worker its own.
type Scorer struct {
	exact   []bool
	letters []rune
	counts  []int
	buf     Judgement
}

// Code returns the canonical encoding of Compute(guess, target).
func (s *Scorer) Code(guess, target []rune) Code {
	if cap(s.buf) < len(guess) {
		s.buf = make(Judgement, len(guess))
	}
	j := s.buf[:len(guess)]
	s.fill(guess, target, j)
	return Encode(j)
}

func (s *Scorer) fill(guess, target []rune, out Judgement) {
	n := len(guess)
	if cap(s.exact) < n {
		s.exact = make([]bool, n)
		s.letters = make([]rune, 0, n)
		s.counts = make([]int, 0, n)
	}
	exact := s.exact[:n]
	s.letters = s.letters[:0]
	s.counts = s.counts[:0]

	// First pass: exact hits and the multiset of leftover target letters.
	for i := 0; i < n; i++ {
		exact[i] = guess[i] == target[i]
		if exact[i] {
			continue
		}
		if k := s.find(target[i]); k >= 0 {
			s.counts[k]++
		} else {
			s.letters = append(s.letters, target[i])
			s.counts = append(s.counts, 1)
		}
	}

	// Second pass: partial matches, leftmost first.
	for i := 0; i < n; i++ {
		switch {
		case exact[i]:
			out[i] = Exact
		default:
			if k := s.find(guess[i]); k >= 0 && s.counts[k] > 0 {
				s.counts[k]--
				out[i] = Partial
			} else {
				out[i] = NoMatch
			}
		}
	}
}

// find is a linear scan; the multiset never holds more than len(word) letters.
func (s *Scorer) find(r rune) int {
	for k, l := range s.letters {
		if l == r {
			return k
		}
	}
	return -1
}
