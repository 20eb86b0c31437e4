package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordleai/internal/game"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/session"
	"github.com/robalobadob/wordleai/internal/store"
)

var fixtureWords = []string{"sheep", "shoes", "stage", "store", "style"}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := store.NewMemoryPersister()
	cache := store.NewCache(p, store.BuildOptions{})
	mgr, err := session.NewManager(p, cache, session.Config{SeedSalt: "test"})
	require.NoError(t, err)
	t.Cleanup(mgr.Shutdown)
	return New(mgr, game.NewMemoryStore(), Options{TokenSecret: "test-secret"})
}

func call(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func setupFixture(t *testing.T, s *Server) {
	t.Helper()
	rec := call(t, s, http.MethodPost, "/vocabs", "", map[string]any{"name": "fixture", "words": fixtureWords})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func openSession(t *testing.T, s *Server) openRes {
	t.Helper()
	rec := call(t, s, http.MethodPost, "/sessions", "", map[string]any{"vocabulary": "fixture", "seed": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[openRes](t, rec)
}

func TestDiagnostics(t *testing.T) {
	s := newTestServer(t)

	rec := call(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = call(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wordleai_sessions_active")

	rec = call(t, s, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	rec = call(t, s, http.MethodOptions, "/sessions", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestVocabularyRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := call(t, s, http.MethodPost, "/vocabs", "", map[string]any{"name": "fixture"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodPost, "/vocabs", "", map[string]any{"name": "mixed", "words": []string{"sheep", "tea"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodPost, "/vocabs", "", map[string]any{"name": "fixture", "words": fixtureWords})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[vocabRes](t, rec)
	assert.Equal(t, vocabRes{Name: "fixture", Length: 5, Guesses: 5, Answers: 5, Engine: session.EngineExact, Status: "ready"}, res)

	rec = call(t, s, http.MethodGet, "/vocabs", "", nil)
	assert.JSONEq(t, `{"vocabularies":["fixture"]}`, rec.Body.String())

	rec = call(t, s, http.MethodGet, "/vocabs/fixture/status", "", nil)
	assert.JSONEq(t, `{"name":"fixture","status":"ready","engine":"exact"}`, rec.Body.String())

	rec = call(t, s, http.MethodGet, "/vocabs/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)
	open := openSession(t, s)
	assert.Equal(t, session.EngineExact, open.Engine)
	assert.Equal(t, 5, open.Remaining)
	base := "/sessions/" + open.ID

	rec := call(t, s, http.MethodGet, base+"/evaluate?top_k=0&criterion=max_n", open.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ev := decode[evaluateRes](t, rec)
	assert.Equal(t, "max_n", ev.Criterion)
	var got []string
	for _, e := range ev.Evaluations {
		got = append(got, e.Word)
	}
	assert.Equal(t, []string{"shoes", "stage", "store", "style", "sheep"}, got)
	assert.Contains(t, rec.Body.String(), `"is_candidate":1`)
	assert.Equal(t, 1, ev.Evaluations[0].IsCandidate)

	rec = call(t, s, http.MethodPost, base+"/update", open.Token, updateReq{Guess: "sheep", Feedback: "20100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, stateRes{State: "narrowed", Remaining: 3}, decode[stateRes](t, rec))

	rec = call(t, s, http.MethodGet, base+"/pick?criterion=mean_entropy", open.Token, nil)
	assert.Equal(t, pickRes{Word: "stage"}, decode[pickRes](t, rec))

	rec = call(t, s, http.MethodGet, base+"/candidates", open.Token, nil)
	assert.Equal(t, []string{"stage", "store", "style"}, decode[candidatesBody](t, rec).Words)

	rec = call(t, s, http.MethodPut, base+"/candidates", open.Token, map[string]any{"words": nil})
	assert.Equal(t, stateRes{State: "initialized", Remaining: 5}, decode[stateRes](t, rec))

	rec = call(t, s, http.MethodGet, base, open.Token, nil)
	info := decode[session.Info](t, rec)
	assert.Equal(t, open.ID, info.ID)
	assert.Empty(t, info.History)

	rec = call(t, s, http.MethodDelete, base, open.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, s, http.MethodGet, base, open.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionTokenRequired(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)
	a := openSession(t, s)
	b := openSession(t, s)

	rec := call(t, s, http.MethodGet, "/sessions/"+a.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, s, http.MethodGet, "/sessions/"+a.ID, b.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, s, http.MethodGet, "/sessions/"+a.ID, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := tokens{secret: []byte("other"), ttl: 0}
	forged, _, err := other.sign(a.ID)
	require.NoError(t, err)
	rec = call(t, s, http.MethodGet, "/sessions/"+a.ID, forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionBadInput(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)
	open := openSession(t, s)
	base := "/sessions/" + open.ID

	rec := call(t, s, http.MethodPost, base+"/update", open.Token, updateReq{Guess: "sheep", Feedback: "20130"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodPost, base+"/update", open.Token, updateReq{Guess: "sheeps", Feedback: "201000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodGet, base+"/evaluate?criterion=vibes", open.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodGet, base+"/evaluate?top_k=lots", open.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodPut, base+"/candidates", open.Token, map[string]any{"words": []string{"crane"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/update", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+open.Token)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad_json", decode[errorBody](t, rr).Error)

	rec = call(t, s, http.MethodPost, "/sessions", "", map[string]any{"vocabulary": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameFlow(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)

	rec := call(t, s, http.MethodPost, "/games", "", map[string]any{"vocabulary": "fixture", "answer": "store"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g := decode[gameView](t, rec)
	assert.Equal(t, game.StatePlaying, g.State)
	assert.Equal(t, game.DefaultMaxRounds, g.MaxRounds)
	assert.Empty(t, g.Answer)
	base := "/games/" + g.ID

	rec = call(t, s, http.MethodPost, base+"/guess", "", gameGuessReq{Guess: "crane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, s, http.MethodPost, base+"/guess", "", gameGuessReq{Guess: "STAGE"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, gameGuessRes{Guess: "stage", Feedback: "22002", State: game.StatePlaying}, decode[gameGuessRes](t, rec))

	rec = call(t, s, http.MethodPost, base+"/guess", "", gameGuessReq{Guess: "store"})
	assert.Equal(t, gameGuessRes{Guess: "store", Feedback: "22222", State: game.StateWon, Answer: "store"}, decode[gameGuessRes](t, rec))

	rec = call(t, s, http.MethodPost, base+"/guess", "", gameGuessReq{Guess: "store"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, s, http.MethodGet, base, "", nil)
	g = decode[gameView](t, rec)
	assert.Len(t, g.Rounds, 2)
	assert.Equal(t, "store", g.Answer)

	rec = call(t, s, http.MethodGet, "/games/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameAutoplay(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)

	for _, answer := range fixtureWords {
		rec := call(t, s, http.MethodPost, "/games", "", map[string]any{"vocabulary": "fixture", "answer": answer})
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decode[gameView](t, rec).ID

		// one manual round first; autoplay picks up from it
		rec = call(t, s, http.MethodPost, "/games/"+id+"/guess", "", gameGuessReq{Guess: "sheep"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = call(t, s, http.MethodPost, "/games/"+id+"/autoplay", "", autoplayReq{Criterion: ranking.MaxN.String()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		g := decode[gameView](t, rec)
		assert.Equal(t, game.StateWon, g.State, answer)
		assert.Equal(t, answer, g.Answer)
		assert.LessOrEqual(t, len(g.Rounds), 4)
	}
	assert.Equal(t, 0, s.mgr.Registry().Len())
}

func TestDailyGame(t *testing.T) {
	s := newTestServer(t)
	setupFixture(t, s)

	first := decode[gameView](t, call(t, s, http.MethodPost, "/games", "", map[string]any{"vocabulary": "fixture", "daily": true}))
	second := decode[gameView](t, call(t, s, http.MethodPost, "/games", "", map[string]any{"vocabulary": "fixture", "daily": true}))
	assert.NotEmpty(t, first.Date)
	assert.NotEqual(t, first.ID, second.ID)

	// both games share the daily answer: solving one with autoplay reveals it
	a := decode[gameView](t, call(t, s, http.MethodPost, "/games/"+first.ID+"/autoplay", "", autoplayReq{}))
	b := decode[gameView](t, call(t, s, http.MethodPost, "/games/"+second.ID+"/autoplay", "", autoplayReq{}))
	assert.Equal(t, a.Answer, b.Answer)
	assert.Contains(t, fixtureWords, a.Answer)
}
