// internal/session/engine.go
//
// The two interchangeable ways a session gets judgements: a shared exact
// table or an on-the-fly sampling estimator.

package session

import (
	"context"
	"math/rand"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/estimator"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

// Engine evaluates guesses and narrows candidate sets for one vocabulary.
// Engines never mutate shared state; the set passed in belongs to the caller.
type Engine interface {
	Name() string
	Vocabulary() *words.Vocabulary
	Evaluate(ctx context.Context, set *candidates.Set, c ranking.Criterion, topK int, rng *rand.Rand) ([]ranking.Evaluation, error)
	Narrow(set *candidates.Set, guess string, code judge.Code) int
	// Release gives up any shared resource the engine holds.
	Release()
}

// Engine names as reported in session info and metrics.
const (
	EngineExact  = "exact"
	EngineApprox = "approx"
)

type exactEngine struct {
	table   *store.Table
	release func()
}

// NewExactEngine wraps a shared table; release is called once by Release.
func NewExactEngine(t *store.Table, release func()) Engine {
	if release == nil {
		release = func() {}
	}
	return &exactEngine{table: t, release: release}
}

func (e *exactEngine) Name() string                  { return EngineExact }
func (e *exactEngine) Vocabulary() *words.Vocabulary { return e.table.Vocabulary() }
func (e *exactEngine) Release()                      { e.release() }

func (e *exactEngine) Evaluate(ctx context.Context, set *candidates.Set, c ranking.Criterion, topK int, _ *rand.Rand) ([]ranking.Evaluation, error) {
	return e.table.Evaluate(ctx, set, c, topK)
}

func (e *exactEngine) Narrow(set *candidates.Set, guess string, code judge.Code) int {
	return e.table.Narrow(set, guess, code)
}

type approxEngine struct {
	est *estimator.Estimator
}

// NewApproxEngine wraps an estimator.
func NewApproxEngine(est *estimator.Estimator) Engine { return &approxEngine{est: est} }

func (e *approxEngine) Name() string                  { return EngineApprox }
func (e *approxEngine) Vocabulary() *words.Vocabulary { return e.est.Vocabulary() }
func (e *approxEngine) Release()                      {}

func (e *approxEngine) Evaluate(ctx context.Context, set *candidates.Set, c ranking.Criterion, topK int, rng *rand.Rand) ([]ranking.Evaluation, error) {
	return e.est.Evaluate(ctx, set, c, topK, rng)
}

func (e *approxEngine) Narrow(set *candidates.Set, guess string, code judge.Code) int {
	return e.est.Narrow(set, guess, code)
}
