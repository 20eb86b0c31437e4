// internal/game/types.go
//
// Core type definitions for refereed games.
// Defines:
//   - State: coarse game position (playing/won/lost).
//   - Round: one guess and the feedback it earned.
//   - Game: a hidden answer plus the rounds played against it.

package game

import "github.com/robalobadob/wordleai/internal/judge"

// State is the coarse position of a game.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// Round is one scored guess.
type Round struct {
	Guess    string          `json:"guess"`
	Feedback string          `json:"feedback"` // rendered digits, e.g. "20100"
	Marks    judge.Judgement `json:"-"`
}

// Game holds the state of a single refereed game.
type Game struct {
	ID         string  // Unique game identifier.
	Vocabulary string  // Name of the vocabulary the answer came from.
	Answer     string  // The hidden word (normalized).
	MaxRounds  int     // Guesses allowed; 0 means unlimited.
	Rounds     []Round // Guesses made so far.
	Finished   bool    // True once the game is over (won or lost).
	Won        bool    // True if the game was finished with a win.
}
