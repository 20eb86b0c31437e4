// internal/httpserver/routes_vocabs.go
//
// Vocabulary routes:
//   - POST /vocabs               → set up (or reuse / replace) a named vocabulary
//   - GET  /vocabs               → list stored vocabulary names
//   - GET  /vocabs/{name}        → summary of one vocabulary
//   - GET  /vocabs/{name}/status → response table status and serving engine

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordleai/internal/session"
	"github.com/robalobadob/wordleai/internal/words"
)

func (s *Server) mountVocabs(r chi.Router) {
	r.Get("/vocabs", s.handleListVocabs)
	r.Get("/vocabs/{name}", s.handleGetVocab)
	r.Get("/vocabs/{name}/status", s.handleVocabStatus)
}

// setupReq is the POST /vocabs payload. Words carry weight 1; Entries carry
// explicit weights. Both empty means "reuse the stored vocabulary".
type setupReq struct {
	Name                 string        `json:"name"`
	Words                []string      `json:"words"`
	Entries              []words.Entry `json:"entries"`
	Answers              []string      `json:"answers"`
	UseDefault           bool          `json:"use_default"`
	Resetup              bool          `json:"resetup"`
	FloorNegativeWeights bool          `json:"floor_negative_weights"`
}

type vocabRes struct {
	Name    string `json:"name"`
	Length  int    `json:"length"`
	Guesses int    `json:"guesses"`
	Answers int    `json:"answers"`
	Engine  string `json:"engine"`
	Status  string `json:"status,omitempty"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w, err)
		return
	}

	var entries []words.Entry
	for _, wd := range req.Words {
		entries = append(entries, words.Entry{Word: wd, Weight: 1})
	}
	entries = append(entries, req.Entries...)
	if len(entries) == 0 && req.UseDefault {
		def, err := words.Default(req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries = def.Entries()
	}

	opts := words.Options{Answers: req.Answers}
	if req.FloorNegativeWeights {
		opts.Policy = words.FloorAtZero
	}
	v, err := s.mgr.Setup(r.Context(), session.SetupRequest{
		Name:    req.Name,
		Entries: entries,
		Options: opts,
		Resetup: req.Resetup,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.describe(r, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListVocabs(w http.ResponseWriter, r *http.Request) {
	names, err := s.mgr.Vocabularies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"vocabularies": names})
}

func (s *Server) handleGetVocab(w http.ResponseWriter, r *http.Request) {
	v, err := s.mgr.Vocabulary(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.describe(r, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVocabStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := s.mgr.Status(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.mgr.Vocabulary(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	engine, err := s.mgr.EngineFor(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": st.String(), "engine": engine})
}

func (s *Server) describe(r *http.Request, v *words.Vocabulary) (vocabRes, error) {
	engine, err := s.mgr.EngineFor(v)
	if err != nil {
		return vocabRes{}, err
	}
	st, err := s.mgr.Status(r.Context(), v.Name())
	if err != nil {
		return vocabRes{}, err
	}
	answers, guesses := v.Stats()
	return vocabRes{
		Name:    v.Name(),
		Length:  v.Length(),
		Guesses: guesses,
		Answers: answers,
		Engine:  engine,
		Status:  st.String(),
	}, nil
}
