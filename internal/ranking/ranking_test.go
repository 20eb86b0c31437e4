package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordleai/internal/judge"
)

func TestParseCriterion(t *testing.T) {
	for _, s := range []string{"max_n", "mean_n", "mean_entropy"} {
		c, err := ParseCriterion(s)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}
	c, err := ParseCriterion("")
	require.NoError(t, err)
	assert.Equal(t, MeanEntropy, c)

	_, err = ParseCriterion("median")
	assert.ErrorIs(t, err, ErrUnknownCriterion)
}

func TestBucketsSummarize(t *testing.T) {
	b := NewBuckets(5)
	// buckets of sizes 1, 1, 3 (the "sheep" row of the five-word fixture)
	for _, c := range []judge.Code{10, 20, 30, 30, 30} {
		b.Add(c)
	}
	e := b.Summarize("sheep", true)
	assert.True(t, e.Evaluated)
	assert.Equal(t, 3, e.MaxN)
	assert.InDelta(t, 2.2, e.MeanN, 1e-9)
	assert.InDelta(t, 3*math.Log2(3)/5, e.MeanEntropy, 1e-9)

	// accumulator resets after Summarize
	b.Add(7)
	e = b.Summarize("x", false)
	assert.Equal(t, 1, e.MaxN)
	assert.Equal(t, 1.0, e.MeanN)
	assert.Equal(t, 0.0, e.MeanEntropy)

	e = b.Summarize("empty", false)
	assert.Equal(t, 0, e.MaxN)
	assert.Equal(t, 0.0, e.MeanN)
}

func TestBucketsLongWords(t *testing.T) {
	b := NewBuckets(16)
	assert.Nil(t, b.counts)

	top := judge.Code(judge.CodeSpace(16) - 1)
	for _, c := range []judge.Code{top, top, 0, 12345678} {
		b.Add(c)
	}
	e := b.Summarize("w", false)
	assert.Equal(t, 2, e.MaxN)
	assert.InDelta(t, 1.5, e.MeanN, 1e-9)
	assert.Empty(t, b.sparse)

	b.Add(top)
	e = b.Summarize("w", false)
	assert.Equal(t, 1, e.MaxN)
}

func TestEntropyBound(t *testing.T) {
	b := NewBuckets(3)
	const n = 9

	// one bucket: no information, mean_entropy == log2(n)
	for i := 0; i < n; i++ {
		b.Add(4)
	}
	e := b.Summarize("w", false)
	assert.InDelta(t, math.Log2(n), e.MeanEntropy, 1e-12)

	// perfect discriminator: every bucket size 1
	for i := 0; i < n; i++ {
		b.Add(judge.Code(i))
	}
	e = b.Summarize("w", false)
	assert.Equal(t, 0.0, e.MeanEntropy)
	assert.Equal(t, 1.0, e.MeanN)

	// anything in between stays within the bound
	for _, c := range []judge.Code{0, 0, 1, 1, 1, 2, 3, 3, 3} {
		b.Add(c)
	}
	e = b.Summarize("w", false)
	assert.LessOrEqual(t, e.MeanEntropy, math.Log2(n))
}

func TestRankOrder(t *testing.T) {
	evals := []Evaluation{
		{Word: "sheep", MaxN: 3, MeanN: 2.2, MeanEntropy: 0.951, IsCandidate: true, Evaluated: true},
		{Word: "store", MaxN: 2, MeanN: 1.4, MeanEntropy: 0.4, IsCandidate: true, Evaluated: true},
		{Word: "zzzzz", MaxN: 2, MeanN: 1.4, MeanEntropy: 0.4, IsCandidate: false, Evaluated: true},
		{Word: "shoes", MaxN: 2, MeanN: 1.4, MeanEntropy: 0.4, IsCandidate: true, Evaluated: true},
		Placeholder("aaaaa", true),
		{Word: "stage", MaxN: 2, MeanN: 1.8, MeanEntropy: 0.8, IsCandidate: true, Evaluated: true},
	}

	got := Rank(append([]Evaluation(nil), evals...), MaxN, 0)
	words := make([]string, len(got))
	for i, e := range got {
		words[i] = e.Word
	}
	// ties on max_n=2 break by candidate first, then word
	assert.Equal(t, []string{"shoes", "stage", "store", "zzzzz", "sheep", "aaaaa"}, words)

	got = Rank(append([]Evaluation(nil), evals...), MeanEntropy, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "shoes", got[0].Word)
	assert.Equal(t, "store", got[1].Word)
	assert.Equal(t, "zzzzz", got[2].Word)
}

func TestPlaceholderNeverDisplacesEvaluated(t *testing.T) {
	evals := []Evaluation{
		Placeholder("aaaaa", true), // zero metrics would otherwise win
		{Word: "worst", MaxN: 100, MeanN: 100, MeanEntropy: 9, Evaluated: true},
	}
	for _, c := range []Criterion{MaxN, MeanN, MeanEntropy} {
		got := Rank(append([]Evaluation(nil), evals...), c, 1)
		assert.Equal(t, "worst", got[0].Word, c.String())
	}
}
