// internal/store/table.go
//
// The exact response table: one judgement cell per (guess, answer) pair.
//
// Responsibilities:
//   - Hold the guess x answer matrix of canonical judgement codes.
//   - Narrow a candidate set by row lookup (no re-judging).
//   - Evaluate every guess against the current candidates in parallel.
//
// Layout: cells is row-major, one row per guess (vocabulary order), one
// column per answer. A Table is immutable after construction and may be read
// by any number of sessions concurrently.

package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

// MaxWordLength is the longest word a Table can hold: 3^10 fits a uint16 cell.
const MaxWordLength = 10

var (
	ErrNotFound          = errors.New("store: not found")
	ErrUnsupportedLength = fmt.Errorf("store: exact tables support words of at most %d letters", MaxWordLength)
	ErrShapeMismatch     = errors.New("store: cell count does not match vocabulary")
)

// Table is a fully materialized response table for one vocabulary.
type Table struct {
	vocab   *words.Vocabulary
	cells   []uint16
	width   int
	workers int

	// answerOfGuess maps guess row -> answer column, -1 when the guess
	// is not an answer word.
	answerOfGuess []int32
	answerRunes   [][]rune
}

// NewTable wraps precomputed cells. workers <= 0 means GOMAXPROCS.
func NewTable(v *words.Vocabulary, cells []uint16, workers int) (*Table, error) {
	if v.Length() > MaxWordLength {
		return nil, ErrUnsupportedLength
	}
	g, a := len(v.Guesses()), len(v.Answers())
	if len(cells) != g*a {
		return nil, fmt.Errorf("%w: have %d cells, want %d", ErrShapeMismatch, len(cells), g*a)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	t := &Table{
		vocab:         v,
		cells:         cells,
		width:         a,
		workers:       workers,
		answerOfGuess: make([]int32, g),
		answerRunes:   make([][]rune, a),
	}
	for i, w := range v.Guesses() {
		t.answerOfGuess[i] = -1
		if j, ok := v.AnswerIndex(w); ok {
			t.answerOfGuess[i] = int32(j)
		}
	}
	for j, w := range v.Answers() {
		t.answerRunes[j] = []rune(w)
	}
	return t, nil
}

// Vocabulary returns the vocabulary the table was built from.
func (t *Table) Vocabulary() *words.Vocabulary { return t.vocab }

// Row returns the judgement codes of guess row g, one per answer.
// Callers must not modify it.
func (t *Table) Row(g int) []uint16 { return t.cells[g*t.width : (g+1)*t.width] }

// Rows is the number of guess rows.
func (t *Table) Rows() int { return len(t.answerOfGuess) }

// Targets returns the answer words that would produce code for guess.
func (t *Table) Targets(guess string, code judge.Code) []string {
	g, ok := t.vocab.GuessIndex(guess)
	if !ok {
		return nil
	}
	var out []string
	for a, c := range t.Row(g) {
		if judge.Code(c) == code {
			out = append(out, t.vocab.Answers()[a])
		}
	}
	return out
}

// Narrow keeps the candidates whose stored judgement for guess equals code.
// A guess outside the guess vocabulary has no row and is judged on the fly.
func (t *Table) Narrow(set *candidates.Set, guess string, code judge.Code) int {
	if g, ok := t.vocab.GuessIndex(guess); ok {
		row := t.Row(g)
		return set.Retain(func(a int32) bool { return judge.Code(row[a]) == code })
	}
	var sc judge.Scorer
	gr := []rune(guess)
	return set.Retain(func(a int32) bool { return sc.Code(gr, t.answerRunes[a]) == code })
}

// Evaluate computes bucket statistics for every guess row restricted to the
// candidates in set, ranks them by c and returns the first topK.
func (t *Table) Evaluate(ctx context.Context, set *candidates.Set, c ranking.Criterion, topK int) ([]ranking.Evaluation, error) {
	rows := t.Rows()
	evals := make([]ranking.Evaluation, rows)
	if rows == 0 {
		return evals, nil
	}
	members := set.Indices()
	mask := set.Mask()
	guesses := t.vocab.Guesses()

	chunk := (rows + t.workers - 1) / t.workers
	eg, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < rows; lo += chunk {
		lo, hi := lo, min(lo+chunk, rows)
		eg.Go(func() error {
			b := ranking.NewBuckets(t.vocab.Length())
			for g := lo; g < hi; g++ {
				if (g-lo)&255 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				row := t.Row(g)
				for _, a := range members {
					b.Add(judge.Code(row[a]))
				}
				ans := t.answerOfGuess[g]
				evals[g] = b.Summarize(guesses[g], ans >= 0 && mask[ans])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return ranking.Rank(evals, c, topK), nil
}
