package estimator

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

func fixture(t *testing.T) *words.Vocabulary {
	t.Helper()
	v, err := words.FromWords("fixture", []string{"sheep", "shoes", "stage", "store", "style"})
	require.NoError(t, err)
	return v
}

func defaultVocab(t *testing.T) *words.Vocabulary {
	t.Helper()
	v, err := words.Default("default")
	require.NoError(t, err)
	return v
}

func TestSampleSize(t *testing.T) {
	e := New(fixture(t), Options{Budget: 10})
	assert.Equal(t, 2, e.SampleSize(5))
	assert.Equal(t, 1, e.SampleSize(100)) // never below one
	assert.Equal(t, 5, e.SampleSize(1))   // capped at the vocabulary
	assert.Equal(t, 5, e.SampleSize(0))

	assert.Equal(t, int64(DefaultBudget), New(fixture(t), Options{}).Budget())
}

func TestFullCoverageMatchesExactMetrics(t *testing.T) {
	v := fixture(t)
	e := New(v, Options{Budget: 1000})
	set := candidates.New(len(v.Answers()))

	// no sampling needed, so no random source either
	got, err := e.Evaluate(context.Background(), set, ranking.MaxN, 0, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "shoes", got[0].Word)
	assert.Equal(t, "sheep", got[4].Word)
	assert.Equal(t, 3, got[4].MaxN)
	assert.InDelta(t, 2.2, got[4].MeanN, 1e-9)
	assert.InDelta(t, 0.951, got[4].MeanEntropy, 1e-3)
	for _, ev := range got {
		assert.True(t, ev.Evaluated)
	}
}

func TestLongWordsMatchBruteForce(t *testing.T) {
	list := []string{"characterization", "incomprehensible", "internationalize", "misunderstanding"}
	v, err := words.FromWords("long", list)
	require.NoError(t, err)
	require.Equal(t, 16, v.Length())

	e := New(v, Options{Budget: 1000})
	got, err := e.Evaluate(context.Background(), candidates.New(len(list)), ranking.MaxN, 0, nil)
	require.NoError(t, err)
	require.Len(t, got, len(list))

	for _, ev := range got {
		sizes := map[judge.Code]int{}
		for _, target := range list {
			sizes[judge.Encode(judge.Compute(ev.Word, target))]++
		}
		maxN := 0
		for _, n := range sizes {
			if n > maxN {
				maxN = n
			}
		}
		assert.True(t, ev.Evaluated, ev.Word)
		assert.Equal(t, maxN, ev.MaxN, ev.Word)
	}
}

func TestSamplingIsDeterministicPerSeed(t *testing.T) {
	v := defaultVocab(t)
	n := len(v.Answers())
	e := New(v, Options{Budget: int64(10 * n), Workers: 3})
	set := candidates.New(n)

	run := func(seed int64) []ranking.Evaluation {
		got, err := e.Evaluate(context.Background(), set, ranking.MeanEntropy, 0, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		return got
	}
	a, b := run(42), run(42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 10)

	s1, err := e.Sample(n, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	s2, err := e.Sample(n, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.IsIncreasing(t, s1)
}

func TestPaddingFillsTopK(t *testing.T) {
	v := defaultVocab(t)
	n := len(v.Answers())
	e := New(v, Options{Budget: int64(3 * n)})
	set := candidates.New(n)

	got, err := e.Evaluate(context.Background(), set, ranking.MaxN, 8, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, got, 8)

	sample, err := e.Sample(n, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, sample, 3)
	sampled := map[string]bool{}
	for _, g := range sample {
		sampled[v.Guesses()[g]] = true
	}

	for i, ev := range got[:3] {
		assert.True(t, ev.Evaluated, i)
		assert.True(t, sampled[ev.Word])
	}
	for _, ev := range got[3:] {
		assert.False(t, ev.Evaluated)
		assert.False(t, sampled[ev.Word])
		assert.Zero(t, ev.MaxN)
	}

	// fewer slots than samples: no placeholders at all
	got, err = e.Evaluate(context.Background(), set, ranking.MaxN, 2, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.True(t, ev.Evaluated)
	}
}

func TestSamplingNeedsRandomSource(t *testing.T) {
	v := defaultVocab(t)
	e := New(v, Options{Budget: 1})
	_, err := e.Evaluate(context.Background(), candidates.New(len(v.Answers())), ranking.MaxN, 5, nil)
	assert.ErrorIs(t, err, ErrNoRandomSource)
}

func TestNarrowRecomputes(t *testing.T) {
	v := fixture(t)
	e := New(v, Options{})
	set := candidates.New(len(v.Answers()))

	code, err := judge.ParseFeedback("20100", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Narrow(set, "sheep", code))

	var left []string
	for _, i := range set.Indices() {
		left = append(left, v.Answers()[i])
	}
	assert.Equal(t, []string{"stage", "store", "style"}, left)
	assert.Equal(t, candidates.Narrowed, set.State())

	// contradictory feedback empties the set without failing
	e.Narrow(set, "sheep", judge.AllExact(5))
	assert.Equal(t, candidates.Empty, set.State())
}

func TestEvaluateCancelled(t *testing.T) {
	v := defaultVocab(t)
	e := New(v, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evaluate(ctx, candidates.New(len(v.Answers())), ranking.MaxN, 5, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
