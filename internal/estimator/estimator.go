// internal/estimator/estimator.go
//
// Approximate evaluation for vocabularies too large to materialize.
//
// Responsibilities:
//   - Bound each evaluation to roughly Budget judged (guess, target) pairs.
//   - Sample guesses uniformly without replacement from a caller-owned source.
//   - Judge sampled guesses against the current candidates on the fly.
//   - Pad unsampled guesses as unevaluated placeholders up to top_k.
//   - Narrow candidates by recomputation (there is no table to look up).
//
// An Estimator holds only immutable data; concurrent calls are safe as long
// as each caller brings its own *rand.Rand.

package estimator

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/metrics"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

// DefaultBudget is the pair budget used when Options.Budget is unset.
const DefaultBudget = 1_000_000

var ErrNoRandomSource = errors.New("estimator: sampling requires a random source")

// Options configures an Estimator.
type Options struct {
	// Budget is the maximum guess-count x target-count examined per call.
	Budget int64
	// Workers bounds evaluation parallelism; <= 0 means GOMAXPROCS.
	Workers int
}

// Estimator evaluates guesses by sampling.
type Estimator struct {
	vocab   *words.Vocabulary
	budget  int64
	workers int

	guessRunes    [][]rune
	answerRunes   [][]rune
	answerOfGuess []int32
}

// New prepares an estimator over v.
func New(v *words.Vocabulary, opts Options) *Estimator {
	e := &Estimator{
		vocab:         v,
		budget:        opts.Budget,
		workers:       opts.Workers,
		guessRunes:    make([][]rune, len(v.Guesses())),
		answerRunes:   make([][]rune, len(v.Answers())),
		answerOfGuess: make([]int32, len(v.Guesses())),
	}
	if e.budget <= 0 {
		e.budget = DefaultBudget
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	for i, w := range v.Guesses() {
		e.guessRunes[i] = []rune(w)
		e.answerOfGuess[i] = -1
		if j, ok := v.AnswerIndex(w); ok {
			e.answerOfGuess[i] = int32(j)
		}
	}
	for i, w := range v.Answers() {
		e.answerRunes[i] = []rune(w)
	}
	return e
}

// Vocabulary returns the vocabulary the estimator judges.
func (e *Estimator) Vocabulary() *words.Vocabulary { return e.vocab }

// Budget returns the configured pair budget.
func (e *Estimator) Budget() int64 { return e.budget }

// SampleSize is how many guesses a call against n candidates examines:
// max(1, floor(budget / n)), capped at the guess vocabulary size.
func (e *Estimator) SampleSize(n int) int {
	total := len(e.guessRunes)
	if n <= 0 {
		return total
	}
	k := e.budget / int64(n)
	if k < 1 {
		k = 1
	}
	if k >= int64(total) {
		return total
	}
	return int(k)
}

// Sample returns the sorted guess indices examined against n candidates.
// rng is only consulted when sampling is actually needed.
func (e *Estimator) Sample(n int, rng *rand.Rand) ([]int, error) {
	total := len(e.guessRunes)
	k := e.SampleSize(n)
	if k >= total {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	if rng == nil {
		return nil, ErrNoRandomSource
	}
	idx := rng.Perm(total)[:k]
	sort.Ints(idx)
	return idx, nil
}

// Evaluate ranks a sample of guesses by c against the candidates in set and
// pads with unevaluated placeholders (vocabulary order) until topK rows exist.
// topK <= 0 returns every evaluated row and no placeholders.
func (e *Estimator) Evaluate(ctx context.Context, set *candidates.Set, c ranking.Criterion, topK int, rng *rand.Rand) ([]ranking.Evaluation, error) {
	sample, err := e.Sample(set.Len(), rng)
	if err != nil {
		return nil, err
	}
	metrics.Sampled(len(sample))

	members := set.Indices()
	mask := set.Mask()
	guesses := e.vocab.Guesses()
	evals := make([]ranking.Evaluation, len(sample))

	if len(sample) > 0 {
		chunk := (len(sample) + e.workers - 1) / e.workers
		eg, ctx := errgroup.WithContext(ctx)
		for lo := 0; lo < len(sample); lo += chunk {
			lo, hi := lo, min(lo+chunk, len(sample))
			eg.Go(func() error {
				var sc judge.Scorer
				b := ranking.NewBuckets(e.vocab.Length())
				for i := lo; i < hi; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					g := sample[i]
					gr := e.guessRunes[g]
					for _, a := range members {
						b.Add(sc.Code(gr, e.answerRunes[a]))
					}
					ans := e.answerOfGuess[g]
					evals[i] = b.Summarize(guesses[g], ans >= 0 && mask[ans])
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	// placeholders only ever fill empty top_k slots
	if need := topK - len(evals); need > 0 {
		sampled := make(map[int]struct{}, len(sample))
		for _, g := range sample {
			sampled[g] = struct{}{}
		}
		for g := 0; g < len(guesses) && need > 0; g++ {
			if _, ok := sampled[g]; ok {
				continue
			}
			ans := e.answerOfGuess[g]
			evals = append(evals, ranking.Placeholder(guesses[g], ans >= 0 && mask[ans]))
			need--
		}
	}
	return ranking.Rank(evals, c, topK), nil
}

// Narrow keeps the candidates whose freshly computed judgement for guess
// equals code.
func (e *Estimator) Narrow(set *candidates.Set, guess string, code judge.Code) int {
	var sc judge.Scorer
	gr := []rune(guess)
	return set.Retain(func(a int32) bool { return sc.Code(gr, e.answerRunes[a]) == code })
}
