// internal/ranking/ranking.go
//
// Turning per-guess bucket statistics into ranked recommendations.
// Responsibilities:
//   - Criterion: which metric to minimize (max_n, mean_n, mean_entropy).
//   - Evaluation: the summary row for one guess word.
//   - Buckets: judgement -> count accumulator with O(touched) reset.
//   - Rank: deterministic ordering + top-k truncation.
//
// Ordering (all ascending unless noted):
//   1. evaluated rows before unevaluated placeholders
//   2. criterion value
//   3. candidate words before non-candidates
//   4. word, for a stable total order
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/robalobadob/wordleai/internal/judge"
)

// Criterion selects the metric guesses are ranked by. Lower is better for all.
type Criterion int

const (
	MeanEntropy Criterion = iota
	MeanN
	MaxN
)

var ErrUnknownCriterion = errors.New("ranking: unknown criterion")

// ParseCriterion maps "max_n" | "mean_n" | "mean_entropy" (or "") to a Criterion.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "", "mean_entropy":
		return MeanEntropy, nil
	case "mean_n":
		return MeanN, nil
	case "max_n":
		return MaxN, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, s)
}

func (c Criterion) String() string {
	switch c {
	case MaxN:
		return "max_n"
	case MeanN:
		return "mean_n"
	default:
		return "mean_entropy"
	}
}

// Evaluation summarizes the candidate-set sizes one guess would leave behind.
type Evaluation struct {
	Word        string  `json:"input_word"`
	MaxN        int     `json:"max_n"`
	MeanN       float64 `json:"mean_n"`
	MeanEntropy float64 `json:"mean_entropy"`
	IsCandidate bool    `json:"is_candidate"`
	// Evaluated is false for sampling placeholders with no computed metrics.
	Evaluated bool `json:"evaluated"`
}

// Value returns the metric selected by c.
func (e Evaluation) Value(c Criterion) float64 {
	switch c {
	case MaxN:
		return float64(e.MaxN)
	case MeanN:
		return e.MeanN
	default:
		return e.MeanEntropy
	}
}

// Placeholder is an unevaluated row used to pad sampled results.
func Placeholder(word string, isCandidate bool) Evaluation {
	return Evaluation{Word: word, IsCandidate: isCandidate}
}

// denseCodeLimit is the largest code space kept in a flat slice. Longer words
// count into a map keyed by the codes actually seen.
const denseCodeLimit = 1 << 16

// Buckets counts targets per judgement code for one guess at a time.
// Not safe for concurrent use; each worker owns one.
type Buckets struct {
	counts  []int32
	sparse  map[judge.Code]int32
	touched []judge.Code
}

// NewBuckets sizes the accumulator for words of the given length.
func NewBuckets(length int) *Buckets {
	if n := judge.CodeSpace(length); n <= denseCodeLimit {
		return &Buckets{counts: make([]int32, n)}
	}
	return &Buckets{sparse: make(map[judge.Code]int32)}
}

// Add records one target landing in bucket c.
func (b *Buckets) Add(c judge.Code) {
	if b.sparse != nil {
		if b.sparse[c] == 0 {
			b.touched = append(b.touched, c)
		}
		b.sparse[c]++
		return
	}
	if b.counts[c] == 0 {
		b.touched = append(b.touched, c)
	}
	b.counts[c]++
}

// take returns the count for c and zeroes it.
func (b *Buckets) take(c judge.Code) int64 {
	if b.sparse != nil {
		n := b.sparse[c]
		delete(b.sparse, c)
		return int64(n)
	}
	n := b.counts[c]
	b.counts[c] = 0
	return int64(n)
}

// Summarize computes the metrics for the accumulated buckets and resets them.
//
//	max_n        = largest bucket
//	mean_n       = Σ n² / Σ n
//	mean_entropy = Σ n·log2(n) / Σ n
//
// An empty accumulator yields zeros.
func (b *Buckets) Summarize(word string, isCandidate bool) Evaluation {
	e := Evaluation{Word: word, IsCandidate: isCandidate, Evaluated: true}
	var total, sq int64
	var ent float64
	for _, c := range b.touched {
		n := b.take(c)
		total += n
		sq += n * n
		ent += float64(n) * math.Log2(float64(n))
		if int(n) > e.MaxN {
			e.MaxN = int(n)
		}
	}
	b.touched = b.touched[:0]
	if total > 0 {
		e.MeanN = float64(sq) / float64(total)
		e.MeanEntropy = ent / float64(total)
	}
	return e
}

// Rank sorts evals in place by c and returns the first topK (all if topK <= 0).
func Rank(evals []Evaluation, c Criterion, topK int) []Evaluation {
	sort.Slice(evals, func(i, j int) bool {
		return Less(evals[i], evals[j], c)
	})
	if topK > 0 && len(evals) > topK {
		evals = evals[:topK]
	}
	return evals
}

// Less is the ranking order described in the package comment.
func Less(a, b Evaluation, c Criterion) bool {
	if a.Evaluated != b.Evaluated {
		return a.Evaluated
	}
	if r := compare(a.Value(c), b.Value(c)); r != 0 {
		return r < 0
	}
	if a.IsCandidate != b.IsCandidate {
		return a.IsCandidate
	}
	return compare(a.Word, b.Word) < 0
}

func compare[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
