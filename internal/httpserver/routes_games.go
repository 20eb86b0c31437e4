// internal/httpserver/routes_games.go
//
// Refereed game routes:
//   - POST /games               → start a game (fixed, weighted-random, or daily answer)
//   - GET  /games/{id}          → game view (answer revealed once finished)
//   - POST /games/{id}/guess    → submit a guess, returns feedback and state
//   - POST /games/{id}/autoplay → let a fresh solver session finish the game
//
// Games live in the game Store; the answer never leaves the server while
// the game is still being played.

package httpserver

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/daily"
	"github.com/robalobadob/wordleai/internal/game"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/session"
)

func (s *Server) mountGames(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.Post("/", s.handleNewGame)
		r.Get("/{id}", s.handleGetGame)
		r.Post("/{id}/guess", s.handleGameGuess)
		r.Post("/{id}/autoplay", s.handleAutoplay)
	})
}

// newGameReq is the POST /games payload. MaxRounds nil means the classic
// six; 0 means unlimited.
type newGameReq struct {
	Vocabulary string `json:"vocabulary"`
	Answer     string `json:"answer"` // optional fixed answer (testing)
	Daily      bool   `json:"daily"`
	MaxRounds  *int   `json:"max_rounds"`
}

type gameView struct {
	ID         string       `json:"id"`
	Vocabulary string       `json:"vocabulary"`
	State      game.State   `json:"state"`
	MaxRounds  int          `json:"max_rounds"`
	Rounds     []game.Round `json:"rounds"`
	Answer     string       `json:"answer,omitempty"`
	Date       string       `json:"date,omitempty"`
}

func viewOf(g *game.Game) gameView {
	v := gameView{
		ID:         g.ID,
		Vocabulary: g.Vocabulary,
		State:      g.State(),
		MaxRounds:  g.MaxRounds,
		Rounds:     append([]game.Round{}, g.Rounds...),
	}
	if g.Finished {
		v.Answer = g.Answer
	}
	return v
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	v, err := s.mgr.Vocabulary(r.Context(), req.Vocabulary)
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxRounds := game.DefaultMaxRounds
	if req.MaxRounds != nil && *req.MaxRounds >= 0 {
		maxRounds = *req.MaxRounds
	}

	answer, date := req.Answer, ""
	if req.Daily {
		now := time.Now()
		if answer, err = daily.Answer(v, now, s.opts.SeedSalt); err != nil {
			writeError(w, r, err)
			return
		}
		date = daily.DateKey(now)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g, err := game.New(v, answer, maxRounds, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, r, err)
		return
	}
	view := viewOf(g)
	view.Date = date
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.gameMu.Lock()
	view := viewOf(g)
	s.gameMu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

type gameGuessReq struct {
	Guess string `json:"guess"`
}

type gameGuessRes struct {
	Guess    string     `json:"guess"`
	Feedback string     `json:"feedback"`
	State    game.State `json:"state"`
	Answer   string     `json:"answer,omitempty"`
}

// handleGameGuess applies a guess to a stored game and saves the result.
func (s *Server) handleGameGuess(w http.ResponseWriter, r *http.Request) {
	var req gameGuessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	g, err := s.games.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.mgr.Vocabulary(r.Context(), g.Vocabulary)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.gameMu.Lock()
	defer s.gameMu.Unlock()
	round, state, err := g.ApplyGuess(v, req.Guess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.Save(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	res := gameGuessRes{Guess: round.Guess, Feedback: round.Feedback, State: state}
	if g.Finished {
		res.Answer = g.Answer
	}
	writeJSON(w, http.StatusOK, res)
}

type autoplayReq struct {
	Criterion string `json:"criterion"`
}

// handleAutoplay opens a throwaway solver session and plays the game out.
func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var req autoplayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	c, err := ranking.ParseCriterion(req.Criterion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.games.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.mgr.Vocabulary(r.Context(), g.Vocabulary)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.mgr.Open(r.Context(), session.OpenRequest{Vocabulary: g.Vocabulary})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = s.mgr.Close(sess.ID()) }()

	s.gameMu.Lock()
	defer s.gameMu.Unlock()
	// replay rounds already played so the solver starts from the same knowledge
	for _, rd := range g.Rounds {
		if _, err := sess.Update(rd.Guess, rd.Feedback); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := game.Autoplay(r.Context(), sess, v, g, c, len(v.Guesses())); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.games.Save(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(g))
}
