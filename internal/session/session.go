// internal/session/session.go
//
// One solver session: a candidate set, an engine, and a random source.
// Responsibilities:
//   - Evaluate / rank next guesses against the current candidates.
//   - Validate literal feedback at the boundary, then narrow.
//   - Pick a word (top-ranked, or weighted-random when feedback was inconsistent).
//     A pick right after an evaluation under the same criterion returns that
//     evaluation's top row, so sampled rankings and picks agree.
//   - Replace or reset the candidate restriction.
//   - Choose a hidden answer by weight (zero-weight words never drawn).
//
// The candidate set is owned by exactly one session. The mutex only
// serializes concurrent requests that target the same session id.

package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/metrics"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

var (
	ErrGuessLength       = errors.New("session: guess length differs from vocabulary word length")
	ErrUnknownWord       = errors.New("session: word is not in the answer vocabulary")
	ErrMissingVocabulary = errors.New("session: no words given and no vocabulary of that name exists")
	ErrNotFound          = errors.New("session: not found")
	ErrClosed            = errors.New("session: closed")
)

// Step is one applied update.
type Step struct {
	Guess     string `json:"guess"`
	Feedback  string `json:"feedback"`
	Remaining int    `json:"remaining"`
}

// Info is a read-only snapshot for callers outside the package.
type Info struct {
	ID         string `json:"id"`
	Vocabulary string `json:"vocabulary"`
	Engine     string `json:"engine"`
	State      string `json:"state"`
	Remaining  int    `json:"remaining"`
	History    []Step `json:"history"`
}

// Session is safe for concurrent use; calls are serialized.
type Session struct {
	mu      sync.Mutex
	id      string
	vocab   *words.Vocabulary
	engine  Engine
	set     *candidates.Set
	rng     *rand.Rand
	history []Step
	closed  bool

	// top row of the last evaluation since the candidates last changed
	last     *ranking.Evaluation
	lastCrit ranking.Criterion
}

// New starts a session over engine's vocabulary with the full candidate set.
func New(id string, engine Engine, seed int64) *Session {
	v := engine.Vocabulary()
	return &Session{
		id:     id,
		vocab:  v,
		engine: engine,
		set:    candidates.New(len(v.Answers())),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// ID returns the registry key.
func (s *Session) ID() string { return s.id }

// Vocabulary returns the session's vocabulary.
func (s *Session) Vocabulary() *words.Vocabulary { return s.vocab }

// Evaluate ranks guesses by c and returns the first topK (all if topK <= 0).
func (s *Session) Evaluate(ctx context.Context, topK int, c ranking.Criterion) ([]ranking.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.evaluate(ctx, topK, c)
}

func (s *Session) evaluate(ctx context.Context, topK int, c ranking.Criterion) ([]ranking.Evaluation, error) {
	start := time.Now()
	evals, err := s.engine.Evaluate(ctx, s.set, c, topK, s.rng)
	metrics.ObserveEvaluate(s.engine.Name(), c.String(), time.Since(start).Seconds())
	if err == nil && len(evals) > 0 {
		top := evals[0]
		s.last, s.lastCrit = &top, c
	}
	return evals, err
}

// Update applies literal feedback (rendered digits, e.g. "20100") for guess
// and returns the resulting state. Empty is a state, not an error.
func (s *Session) Update(guess, feedback string) (candidates.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return candidates.Empty, ErrClosed
	}

	guess = words.Normalize(guess)
	if n := utf8.RuneCountInString(guess); n != s.vocab.Length() {
		return s.set.State(), fmt.Errorf("%w: %q has %d letters, want %d", ErrGuessLength, guess, n, s.vocab.Length())
	}
	code, err := judge.ParseFeedback(feedback, s.vocab.Length())
	if err != nil {
		return s.set.State(), err
	}

	removed := s.engine.Narrow(s.set, guess, code)
	s.last = nil
	metrics.Narrowed(s.engine.Name())
	s.history = append(s.history, Step{Guess: guess, Feedback: feedback, Remaining: s.set.Len()})

	st := s.set.State()
	log.Debug().
		Str("session", s.id).
		Str("guess", guess).
		Str("feedback", feedback).
		Int("removed", removed).
		Int("remaining", s.set.Len()).
		Stringer("state", st).
		Msg("candidates narrowed")
	if st == candidates.Empty {
		log.Info().Str("session", s.id).Msg("feedback is inconsistent with every answer word")
	}
	return st, nil
}

// PickWord returns the top-ranked guess under c. When the candidate set is
// Empty it falls back to a weighted-random guess word and reports degraded.
func (s *Session) PickWord(ctx context.Context, c ranking.Criterion) (word string, degraded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}

	if s.set.State() == candidates.Empty {
		w, err := s.vocab.Picker().Pick(s.rng)
		return w, true, err
	}
	if s.last != nil && s.lastCrit == c {
		return s.last.Word, false, nil
	}
	evals, err := s.evaluate(ctx, 1, c)
	if err != nil {
		return "", false, err
	}
	if len(evals) == 0 {
		w, err := s.vocab.Picker().Pick(s.rng)
		return w, true, err
	}
	return evals[0].Word, false, nil
}

// SetCandidates restricts the candidates to list; nil resets to the full
// answer vocabulary and clears the history.
func (s *Session) SetCandidates(list []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.last = nil
	if list == nil {
		s.set.Reset()
		s.history = nil
		return nil
	}
	idx := make([]int32, 0, len(list))
	for _, w := range list {
		i, ok := s.vocab.AnswerIndex(words.Normalize(w))
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownWord, w)
		}
		idx = append(idx, int32(i))
	}
	return s.set.Replace(idx)
}

// ChooseAnswer draws a hidden answer word by selection weight.
func (s *Session) ChooseAnswer() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vocab.AnswerPicker().Pick(s.rng)
}

// Candidates returns the remaining answer words in vocabulary order.
func (s *Session) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := s.vocab.Answers()
	out := make([]string, 0, s.set.Len())
	for _, i := range s.set.Indices() {
		out = append(out, answers[i])
	}
	return out
}

// State reports the candidate-set lifecycle position.
func (s *Session) State() candidates.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.State()
}

// History returns a copy of the applied updates.
func (s *Session) History() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Step(nil), s.history...)
}

// Info snapshots the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:         s.id,
		Vocabulary: s.vocab.Name(),
		Engine:     s.engine.Name(),
		State:      s.set.State().String(),
		Remaining:  s.set.Len(),
		History:    append([]Step{}, s.history...),
	}
}

// Close releases the engine. Later calls return ErrClosed; Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.engine.Release()
}
