package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

const helperEnv = "WORDLEAI_ALLPAIRS_HELPER"

// TestMain lets the test binary act as an external all-pairs builder.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		if err := ServeAllPairs(context.Background(), os.Stdin, os.Stdout, 2); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func fixture(t *testing.T) *words.Vocabulary {
	t.Helper()
	v, err := words.FromWords("fixture", []string{"sheep", "shoes", "stage", "store", "style"})
	require.NoError(t, err)
	return v
}

func mustCode(t *testing.T, s string) judge.Code {
	t.Helper()
	c, err := judge.ParseFeedback(s, 5)
	require.NoError(t, err)
	return c
}

func lookup(tbl *Table, guess, target string) (judge.Code, bool) {
	g, ok := tbl.vocab.GuessIndex(guess)
	if !ok {
		return 0, false
	}
	a, ok := tbl.vocab.AnswerIndex(target)
	if !ok {
		return 0, false
	}
	return judge.Code(tbl.Row(g)[a]), true
}

func TestBuildMatchesJudge(t *testing.T) {
	v := fixture(t)
	tbl, err := Build(context.Background(), v, BuildOptions{Workers: 3})
	require.NoError(t, err)

	for _, g := range v.Guesses() {
		for _, a := range v.Answers() {
			c, ok := lookup(tbl, g, a)
			require.True(t, ok)
			assert.Equal(t, judge.Encode(judge.Compute(g, a)), c, "%s/%s", g, a)
		}
	}
	_, ok := lookup(tbl, "crane", "sheep")
	assert.False(t, ok)
}

func TestTargetsIndex(t *testing.T) {
	tbl, err := Build(context.Background(), fixture(t), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stage", "store", "style"}, tbl.Targets("sheep", mustCode(t, "20100")))
	assert.Equal(t, []string{"sheep"}, tbl.Targets("sheep", judge.AllExact(5)))
	assert.Nil(t, tbl.Targets("sheep", mustCode(t, "00000")))
}

func TestEvaluateFixture(t *testing.T) {
	v := fixture(t)
	tbl, err := Build(context.Background(), v, BuildOptions{})
	require.NoError(t, err)
	set := candidates.New(len(v.Answers()))

	got, err := tbl.Evaluate(context.Background(), set, ranking.MaxN, 0)
	require.NoError(t, err)
	require.Len(t, got, 5)

	order := make([]string, len(got))
	for i, e := range got {
		order[i] = e.Word
	}
	assert.Equal(t, []string{"shoes", "stage", "store", "style", "sheep"}, order)

	byWord := map[string]ranking.Evaluation{}
	for _, e := range got {
		byWord[e.Word] = e
		assert.True(t, e.IsCandidate)
		assert.True(t, e.Evaluated)
	}
	for _, w := range []string{"shoes", "store"} {
		assert.Equal(t, 2, byWord[w].MaxN)
		assert.InDelta(t, 1.4, byWord[w].MeanN, 1e-9)
		assert.InDelta(t, 0.400, byWord[w].MeanEntropy, 1e-3)
	}
	for _, w := range []string{"stage", "style"} {
		assert.Equal(t, 2, byWord[w].MaxN)
		assert.InDelta(t, 1.8, byWord[w].MeanN, 1e-9)
		assert.InDelta(t, 0.800, byWord[w].MeanEntropy, 1e-3)
	}
	assert.Equal(t, 3, byWord["sheep"].MaxN)
	assert.InDelta(t, 2.2, byWord["sheep"].MeanN, 1e-9)
	assert.InDelta(t, 0.951, byWord["sheep"].MeanEntropy, 1e-3)

	top, err := tbl.Evaluate(context.Background(), set, ranking.MaxN, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestNarrowThenEvaluate(t *testing.T) {
	v := fixture(t)
	tbl, err := Build(context.Background(), v, BuildOptions{})
	require.NoError(t, err)
	set := candidates.New(len(v.Answers()))

	removed := tbl.Narrow(set, "sheep", mustCode(t, "20100"))
	assert.Equal(t, 2, removed)
	var left []string
	for _, i := range set.Indices() {
		left = append(left, v.Answers()[i])
	}
	assert.Equal(t, []string{"stage", "store", "style"}, left)

	// re-applying consistent feedback is a no-op
	assert.Equal(t, 0, tbl.Narrow(set, "sheep", mustCode(t, "20100")))

	got, err := tbl.Evaluate(context.Background(), set, ranking.MeanEntropy, 0)
	require.NoError(t, err)
	assert.Equal(t, "sheep", got[4].Word)
	assert.InDelta(t, 1.585, got[4].MeanEntropy, 1e-3)
	assert.False(t, got[4].IsCandidate)
	assert.Equal(t, "shoes", got[3].Word)
	assert.False(t, got[3].IsCandidate)
	for _, e := range got[:3] {
		assert.True(t, e.IsCandidate, e.Word)
		assert.InDelta(t, 0.667, e.MeanEntropy, 1e-3)
		assert.InDelta(t, 1.667, e.MeanN, 1e-3)
	}
}

func TestNarrowUnknownGuessRecomputes(t *testing.T) {
	v := fixture(t)
	tbl, err := Build(context.Background(), v, BuildOptions{})
	require.NoError(t, err)
	set := candidates.New(len(v.Answers()))

	code := judge.Encode(judge.Compute("stars", "store"))
	tbl.Narrow(set, "stars", code)
	for _, i := range set.Indices() {
		assert.Equal(t, code, judge.Encode(judge.Compute("stars", v.Answers()[i])))
	}
	assert.True(t, set.Contains(int32(mustIndex(t, v, "store"))))
}

func mustIndex(t *testing.T, v *words.Vocabulary, w string) int {
	t.Helper()
	i, ok := v.AnswerIndex(w)
	require.True(t, ok)
	return i
}

func TestEvaluateCancelled(t *testing.T) {
	v, err := words.Default("default")
	require.NoError(t, err)
	tbl, err := Build(context.Background(), v, BuildOptions{Workers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tbl.Evaluate(ctx, candidates.New(len(v.Answers())), ranking.MaxN, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsupportedLength(t *testing.T) {
	v, err := words.FromWords("long", []string{"abcdefghijk", "bcdefghijkl"})
	require.NoError(t, err)
	_, err = Build(context.Background(), v, BuildOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedLength)
}

func TestNewTableShape(t *testing.T) {
	_, err := NewTable(fixture(t), make([]uint16, 3), 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

type countingProgress struct {
	mu sync.Mutex
	n  int
}

func (c *countingProgress) Add(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += n
	return nil
}

func TestReferenceBackendReportsProgress(t *testing.T) {
	v := fixture(t)
	prog := &countingProgress{}
	job := &Job{Guesses: v.Guesses(), Answers: v.Answers(),
		Cells: make([]uint16, v.Pairs()), Progress: prog}
	require.NoError(t, ReferenceBackend{Workers: 2}.Fill(context.Background(), job))
	assert.Equal(t, int(v.Pairs()), prog.n)

	var buf bytes.Buffer
	_, err := Build(context.Background(), v, BuildOptions{Progress: &buf})
	require.NoError(t, err)
}

func TestExecBackend(t *testing.T) {
	t.Setenv(helperEnv, "1")
	v := fixture(t)

	viaExec, err := Build(context.Background(), v, BuildOptions{
		Backend: ExecBackend{Path: os.Args[0]},
	})
	require.NoError(t, err)
	ref, err := Build(context.Background(), v, BuildOptions{})
	require.NoError(t, err)

	for g := 0; g < ref.Rows(); g++ {
		assert.Equal(t, ref.Row(g), viaExec.Row(g))
	}
}

func TestServeAllPairsProtocol(t *testing.T) {
	in := strings.NewReader("2 2\nsheep\nstore\nsheep\nstore\n")
	var out bytes.Buffer
	require.NoError(t, ServeAllPairs(context.Background(), in, &out, 1))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, fmt.Sprintf("sheep,sheep,%d", judge.AllExact(5)), lines[0])
	assert.Equal(t, fmt.Sprintf("sheep,store,%d", mustCode(t, "20100")), lines[1])

	err := ServeAllPairs(context.Background(), strings.NewReader("2 2\nsheep\n"), &out, 1)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestReadPairsRejectsBadOutput(t *testing.T) {
	v := fixture(t)
	newJob := func() *Job {
		return &Job{Guesses: v.Guesses(), Answers: v.Answers(),
			Cells: make([]uint16, v.Pairs()), Progress: noProgress{}}
	}
	cases := map[string]string{
		"short":     "sheep,sheep,242\n",
		"fields":    "sheep,sheep\n",
		"guess":     "crane,sheep,0\n",
		"code":      "sheep,sheep,243\n",
		"duplicate": "sheep,sheep,242\nsheep,sheep,242\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, readPairs(strings.NewReader(body), newJob()), ErrProtocol)
		})
	}
}

func TestSelectBackendFallsBack(t *testing.T) {
	assert.Equal(t, "reference", SelectBackend("", 2).Name())
	assert.Equal(t, "reference", SelectBackend("/definitely/not/a/builder", 2).Name())
	b := SelectBackend(os.Args[0]+" allpairs", 2)
	require.Equal(t, "exec", b.Name())
	assert.Equal(t, []string{"allpairs"}, b.(ExecBackend).Args)
}

func TestCacheSharesOneBuild(t *testing.T) {
	p := NewMemoryPersister()
	c := NewCache(p, BuildOptions{})
	v := fixture(t)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	releases := make([]func(), 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, release, err := c.Acquire(context.Background(), v)
			assert.NoError(t, err)
			tables[i], releases[i] = tbl, release
		}(i)
	}
	wg.Wait()

	for _, tbl := range tables[1:] {
		assert.Same(t, tables[0], tbl)
	}
	assert.Equal(t, 8, c.Refs("fixture"))

	st, err := p.TableStatus(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, Ready, st)

	assert.Equal(t, 0, c.Prune())
	for _, r := range releases {
		r()
		r() // second call is ignored
	}
	assert.Equal(t, 0, c.Refs("fixture"))
	assert.Equal(t, 1, c.Prune())
}

func TestCacheLoadsPersistedTable(t *testing.T) {
	p := NewMemoryPersister()
	v := fixture(t)
	built, release, err := NewCache(p, BuildOptions{}).Acquire(context.Background(), v)
	require.NoError(t, err)
	release()

	// a fresh cache must load, not rebuild: a failing backend proves it
	c := NewCache(p, BuildOptions{Backend: ExecBackend{Path: "/nonexistent"}})
	loaded, release, err := c.Acquire(context.Background(), v)
	require.NoError(t, err)
	defer release()
	for g := 0; g < built.Rows(); g++ {
		assert.Equal(t, built.Row(g), loaded.Row(g))
	}
}

func TestMemoryPersisterStatus(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	v := fixture(t)

	st, err := p.TableStatus(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, Missing, st)

	_, err = p.LoadVocabulary(ctx, "fixture")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, p.SaveVocabulary(ctx, v))
	names, err := p.Vocabularies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixture"}, names)

	tbl, err := Build(ctx, v, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, p.SaveTable(ctx, tbl))

	changed, err := words.FromWords("fixture", []string{"sheep", "shoes", "stage"})
	require.NoError(t, err)
	st, err = p.TableStatus(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, Stale, st)

	// re-setup drops the table
	require.NoError(t, p.SaveVocabulary(ctx, changed))
	st, err = p.TableStatus(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, Missing, st)
}
