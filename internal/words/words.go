// internal/words/words.go
//
// Vocabulary management for the solver.
//
// Responsibilities:
//   - Normalize (trim + lowercase) and deduplicate words.
//   - Enforce the equal-length invariant (measured in code points).
//   - Keep the guess vocabulary and the answer vocabulary (answers ⊆ guesses).
//   - Carry per-word selection weights used only for random answer picks.
//   - Fingerprint the word lists so persisted response tables can be checked
//     for staleness.
//
// Word Lists:
//   - "guesses": every word that may be submitted.
//   - "answers": words that may be the hidden target (defaults to guesses).
//
// A Vocabulary is immutable once built; re-setup replaces it wholesale.

package words

import (
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/robalobadob/wordleai/internal/judge"
)

// --- embedded tiny default (ensures the CLI runs even with no vocabulary file) ---

//go:embed default_small.txt
var embeddedDefault string

var (
	ErrEmptyVocabulary  = errors.New("words: vocabulary is empty")
	ErrLengthMismatch   = errors.New("words: words have different lengths")
	ErrNegativeWeight   = errors.New("words: negative selection weight")
	ErrInvalidWeight    = errors.New("words: selection weight is not a finite number")
	ErrNoSelectableWord = errors.New("words: no word has a positive weight")
)

// fingerprintVersion changes whenever the judgement codec changes meaning,
// invalidating every persisted table.
const fingerprintVersion = "judge/v1"

// LengthMismatchError reports the first word whose length differs.
type LengthMismatchError struct {
	Word string
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("words: %q has %d letters, want %d", e.Word, e.Got, e.Want)
}

func (e *LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

// Entry is one vocabulary line: a word and its selection weight.
type Entry struct {
	Word   string  `json:"word" yaml:"word"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// WeightPolicy decides what happens to negative weights.
type WeightPolicy int

const (
	// RejectNegative fails setup on any negative weight.
	RejectNegative WeightPolicy = iota
	// FloorAtZero clamps negative weights to 0 (guessable, never picked).
	FloorAtZero
)

// Options tunes New.
type Options struct {
	// Answers restricts the answer vocabulary. Nil means "same as guesses".
	Answers []string
	Policy  WeightPolicy
}

// Vocabulary is an immutable, normalized word list.
type Vocabulary struct {
	name        string
	length      int
	guesses     []string  // sorted
	weights     []float64 // aligned with guesses
	answers     []string  // sorted
	guessIndex  map[string]int
	answerIndex map[string]int
}

// Normalize trims and lowercases a word.
func Normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// FromWords builds a vocabulary where every word has weight 1.
func FromWords(name string, list []string) (*Vocabulary, error) {
	entries := make([]Entry, len(list))
	for i, w := range list {
		entries[i] = Entry{Word: w, Weight: 1}
	}
	return New(name, entries, Options{})
}

// Default returns the embedded fallback vocabulary.
func Default(name string) (*Vocabulary, error) {
	return FromWords(name, normalizeLines(embeddedDefault))
}

// New validates and normalizes entries into a Vocabulary.
//
// Duplicates collapse silently (first weight wins). Answers missing from the
// guess list are added to it with weight 1.
func New(name string, entries []Entry, opts Options) (*Vocabulary, error) {
	v := &Vocabulary{
		name:        name,
		guessIndex:  make(map[string]int, len(entries)),
		answerIndex: make(map[string]int),
	}

	weightOf := make(map[string]float64, len(entries))
	order := make([]string, 0, len(entries))
	dups := 0
	add := func(w string, weight float64) error {
		w = Normalize(w)
		if w == "" {
			return nil
		}
		if _, ok := weightOf[w]; ok {
			dups++
			return nil
		}
		if err := v.checkLength(w); err != nil {
			return err
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("%w: %q has weight %g", ErrInvalidWeight, w, weight)
		}
		if weight < 0 {
			if opts.Policy != FloorAtZero {
				return fmt.Errorf("%w: %q has weight %g", ErrNegativeWeight, w, weight)
			}
			weight = 0
		}
		weightOf[w] = weight
		order = append(order, w)
		return nil
	}

	for _, e := range entries {
		if err := add(e.Word, e.Weight); err != nil {
			return nil, err
		}
	}

	answerSet := make(map[string]struct{})
	if opts.Answers == nil {
		for _, w := range order {
			answerSet[w] = struct{}{}
		}
	} else {
		for _, a := range opts.Answers {
			a = Normalize(a)
			if a == "" {
				continue
			}
			// Ensure all answers are also allowed as guesses.
			if _, ok := weightOf[a]; !ok {
				if err := add(a, 1); err != nil {
					return nil, err
				}
			}
			answerSet[a] = struct{}{}
		}
	}

	if len(order) == 0 || len(answerSet) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if dups > 0 {
		log.Debug().Str("vocab", name).Int("collapsed", dups).Msg("duplicate words collapsed")
	}

	sort.Strings(order)
	v.guesses = order
	v.weights = make([]float64, len(order))
	for i, w := range order {
		v.guessIndex[w] = i
		v.weights[i] = weightOf[w]
	}

	v.answers = make([]string, 0, len(answerSet))
	for w := range answerSet {
		v.answers = append(v.answers, w)
	}
	sort.Strings(v.answers)
	for i, w := range v.answers {
		v.answerIndex[w] = i
	}
	return v, nil
}

// checkLength fixes the word length on the first word and enforces it after.
func (v *Vocabulary) checkLength(w string) error {
	n := utf8.RuneCountInString(w)
	if v.length == 0 {
		if n > judge.MaxWordLength {
			return fmt.Errorf("%w: %q", judge.ErrWordTooLong, w)
		}
		v.length = n
		return nil
	}
	if n != v.length {
		return &LengthMismatchError{Word: w, Want: v.length, Got: n}
	}
	return nil
}

// Name is the vocabulary's registry name.
func (v *Vocabulary) Name() string { return v.name }

// Length is the shared word length in code points.
func (v *Vocabulary) Length() int { return v.length }

// Guesses returns the sorted guess vocabulary. Callers must not modify it.
func (v *Vocabulary) Guesses() []string { return v.guesses }

// Answers returns the sorted answer vocabulary. Callers must not modify it.
func (v *Vocabulary) Answers() []string { return v.answers }

// GuessIndex returns the position of w in Guesses.
func (v *Vocabulary) GuessIndex(w string) (int, bool) {
	i, ok := v.guessIndex[w]
	return i, ok
}

// AnswerIndex returns the position of w in Answers.
func (v *Vocabulary) AnswerIndex(w string) (int, bool) {
	i, ok := v.answerIndex[w]
	return i, ok
}

// IsGuess reports whether w may be submitted.
func (v *Vocabulary) IsGuess(w string) bool {
	_, ok := v.guessIndex[w]
	return ok
}

// IsAnswer reports whether w may be the hidden target.
func (v *Vocabulary) IsAnswer(w string) bool {
	_, ok := v.answerIndex[w]
	return ok
}

// Weight returns the selection weight of a guess word (0 if unknown).
func (v *Vocabulary) Weight(w string) float64 {
	if i, ok := v.guessIndex[w]; ok {
		return v.weights[i]
	}
	return 0
}

// Entries returns the guess vocabulary with weights, in sorted order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, len(v.guesses))
	for i, w := range v.guesses {
		out[i] = Entry{Word: w, Weight: v.weights[i]}
	}
	return out
}

// Pairs is the number of (guess, answer) pairs a full table would hold.
func (v *Vocabulary) Pairs() int64 {
	return int64(len(v.guesses)) * int64(len(v.answers))
}

// Stats returns counts of loaded words: (answers, guesses).
func (v *Vocabulary) Stats() (answersCount int, guessesCount int) {
	return len(v.answers), len(v.guesses)
}

// Fingerprint identifies the word lists and codec version. Weights are not
// part of it: they never affect a response table.
func (v *Vocabulary) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\n%d\n", fingerprintVersion, v.length)
	for _, w := range v.guesses {
		h.Write([]byte(w))
		h.Write([]byte{'\n'})
	}
	h.Write([]byte{0})
	for _, w := range v.answers {
		h.Write([]byte(w))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Picker returns a weighted sampler over the guess vocabulary.
func (v *Vocabulary) Picker() *Picker {
	return NewPicker(v.guesses, v.weights)
}

// AnswerPicker returns a weighted sampler over the answer vocabulary.
func (v *Vocabulary) AnswerPicker() *Picker {
	ws := make([]float64, len(v.answers))
	for i, a := range v.answers {
		ws[i] = v.Weight(a)
	}
	return NewPicker(v.answers, ws)
}

// normalizeLines turns an embedded multiline string into words.
func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if w := Normalize(line); w != "" && !strings.HasPrefix(w, "#") {
			out = append(out, w)
		}
	}
	return out
}
