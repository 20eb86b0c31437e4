// internal/game/engine.go
//
// Referee for a single game against a hidden answer.
// Responsibilities:
//   - Create games with a weighted-random (or fixed) answer.
//   - Validate and apply guesses (length, guess vocabulary).
//   - Score guesses with the shared judge.
//   - Track state transitions: playing → won/lost.
//   - Autoplay: let a Player (the solver session) play a game to the end.

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/words"
)

// DefaultMaxRounds is the classic six-guess limit.
const DefaultMaxRounds = 6

var (
	ErrFinished     = errors.New("game: finished")
	ErrInvalidGuess = errors.New("game: invalid guess")
	ErrNotInList    = errors.New("game: not in word list")
)

// New constructs a game over v. If answer is empty, one is drawn from the
// answer vocabulary by weight using rng.
func New(v *words.Vocabulary, answer string, maxRounds int, rng *rand.Rand) (*Game, error) {
	ans := words.Normalize(answer)
	if ans == "" {
		var err error
		if ans, err = v.AnswerPicker().Pick(rng); err != nil {
			return nil, err
		}
	} else if !v.IsAnswer(ans) {
		return nil, fmt.Errorf("%w: %q", ErrNotInList, answer)
	}
	return &Game{
		ID:         uuid.NewString(),
		Vocabulary: v.Name(),
		Answer:     ans,
		MaxRounds:  maxRounds,
	}, nil
}

// ApplyGuess validates and scores a guess, mutating the game state.
//
// Validation rules:
//   - Game must not be finished.
//   - Guess must have the vocabulary's word length.
//   - Guess must be present in the guess vocabulary.
//
// State transitions:
//   - All Exact → Finished, Won.
//   - Else if MaxRounds is reached → Finished (loss).
func (g *Game) ApplyGuess(v *words.Vocabulary, guess string) (Round, State, error) {
	if g.Finished {
		return Round{}, g.State(), ErrFinished
	}
	guess = words.Normalize(guess)
	if utf8.RuneCountInString(guess) != v.Length() {
		return Round{}, g.State(), fmt.Errorf("%w: %q", ErrInvalidGuess, guess)
	}
	if !v.IsGuess(guess) {
		return Round{}, g.State(), fmt.Errorf("%w: %q", ErrNotInList, guess)
	}

	marks := judge.Compute(guess, g.Answer)
	r := Round{Guess: guess, Feedback: marks.String(), Marks: marks}
	g.Rounds = append(g.Rounds, r)

	if marks.Solved() {
		g.Finished, g.Won = true, true
	} else if g.MaxRounds > 0 && len(g.Rounds) >= g.MaxRounds {
		g.Finished = true
	}
	return r, g.State(), nil
}

// State reports the coarse game position.
func (g *Game) State() State {
	if g.Finished {
		if g.Won {
			return StateWon
		}
		return StateLost
	}
	return StatePlaying
}

// Player is anything that can pick guesses and learn from feedback.
type Player interface {
	PickWord(ctx context.Context, c ranking.Criterion) (string, bool, error)
	Update(guess, feedback string) (candidates.State, error)
}

// Autoplay lets p play g to the end. Unlimited games stop after limit
// rounds so a degraded player cannot loop forever.
func Autoplay(ctx context.Context, p Player, v *words.Vocabulary, g *Game, c ranking.Criterion, limit int) error {
	for round := 0; !g.Finished; round++ {
		if limit > 0 && round >= limit {
			g.Finished = true
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		w, degraded, err := p.PickWord(ctx, c)
		if err != nil {
			return err
		}
		if degraded {
			log.Warn().Str("game", g.ID).Msg("player has no consistent candidates, guessing at random")
		}
		r, _, err := g.ApplyGuess(v, w)
		if err != nil {
			return err
		}
		if _, err := p.Update(r.Guess, r.Feedback); err != nil {
			return err
		}
	}
	return nil
}
