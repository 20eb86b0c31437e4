// internal/httpserver/routes_sessions.go
//
// Solver session routes. Creating a session returns a token; every other
// route requires "Authorization: Bearer <token>" for that session id.
//   - POST   /sessions                 → open a session on a vocabulary
//   - GET    /sessions/{id}            → snapshot (state, remaining, history)
//   - GET    /sessions/{id}/evaluate   → ranked guesses (?top_k=&criterion=)
//   - POST   /sessions/{id}/update     → apply literal feedback for a guess
//   - GET    /sessions/{id}/pick       → best guess (?criterion=)
//   - GET    /sessions/{id}/candidates → remaining answer words
//   - PUT    /sessions/{id}/candidates → restrict (or reset with null) candidates
//   - POST   /sessions/{id}/answer     → draw a hidden answer by weight
//   - DELETE /sessions/{id}            → close the session

package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/session"
)

// DefaultTopK bounds evaluate responses when top_k is not given.
const DefaultTopK = 10

func (s *Server) mountSessions(r chi.Router) {
	r.Post("/sessions", s.handleOpenSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.requireSessionToken)
		r.Get("/", s.handleSessionInfo)
		r.Delete("/", s.handleCloseSession)
		r.Get("/evaluate", s.handleEvaluate)
		r.Post("/update", s.handleUpdate)
		r.Get("/pick", s.handlePick)
		r.Get("/candidates", s.handleCandidates)
		r.Put("/candidates", s.handleSetCandidates)
		r.Post("/answer", s.handleChooseAnswer)
	})
}

type openReq struct {
	Vocabulary string `json:"vocabulary"`
	Seed       *int64 `json:"seed"`
}

type openRes struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Engine    string    `json:"engine"`
	Remaining int       `json:"remaining"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	sess, err := s.mgr.Open(r.Context(), session.OpenRequest{Vocabulary: req.Vocabulary, Seed: req.Seed})
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, exp, err := s.tokens.sign(sess.ID())
	if err != nil {
		_ = s.mgr.Close(sess.ID())
		writeError(w, r, err)
		return
	}
	info := sess.Info()
	writeJSON(w, http.StatusCreated, openRes{
		ID:        info.ID,
		Token:     tok,
		ExpiresAt: exp.UTC(),
		Engine:    info.Engine,
		Remaining: info.Remaining,
	})
}

// session resolves the path's session; the token middleware already matched it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func criterionParam(r *http.Request) (ranking.Criterion, error) {
	return ranking.ParseCriterion(r.URL.Query().Get("criterion"))
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// evaluationRes is one ranked row; is_candidate is 0 or 1 on the wire.
type evaluationRes struct {
	Word        string  `json:"input_word"`
	MaxN        int     `json:"max_n"`
	MeanN       float64 `json:"mean_n"`
	MeanEntropy float64 `json:"mean_entropy"`
	IsCandidate int     `json:"is_candidate"`
	Evaluated   bool    `json:"evaluated"`
}

type evaluateRes struct {
	Criterion   string          `json:"criterion"`
	Evaluations []evaluationRes `json:"evaluations"`
}

func toEvaluationRes(evals []ranking.Evaluation) []evaluationRes {
	out := make([]evaluationRes, len(evals))
	for i, e := range evals {
		out[i] = evaluationRes{
			Word:        e.Word,
			MaxN:        e.MaxN,
			MeanN:       e.MeanN,
			MeanEntropy: e.MeanEntropy,
			Evaluated:   e.Evaluated,
		}
		if e.IsCandidate {
			out[i].IsCandidate = 1
		}
	}
	return out
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := criterionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	topK := DefaultTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		if topK, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid", Detail: fmt.Sprintf("top_k: %v", err)})
			return
		}
	}
	evals, err := sess.Evaluate(r.Context(), topK, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateRes{Criterion: c.String(), Evaluations: toEvaluationRes(evals)})
}

type updateReq struct {
	Guess    string `json:"guess"`
	Feedback string `json:"feedback"`
}

type stateRes struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	st, err := sess.Update(req.Guess, req.Feedback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateRes{State: st.String(), Remaining: len(sess.Candidates())})
}

type pickRes struct {
	Word     string `json:"word"`
	Degraded bool   `json:"degraded"`
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := criterionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	word, degraded, err := sess.PickWord(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickRes{Word: word, Degraded: degraded})
}

type candidatesBody struct {
	Words []string `json:"words"`
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, candidatesBody{Words: sess.Candidates()})
}

func (s *Server) handleSetCandidates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req candidatesBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}
	if err := sess.SetCandidates(req.Words); err != nil {
		writeError(w, r, err)
		return
	}
	info := sess.Info()
	writeJSON(w, http.StatusOK, stateRes{State: info.State, Remaining: info.Remaining})
}

func (s *Server) handleChooseAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	word, err := sess.ChooseAnswer()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"word": word})
}
