// internal/httpserver/server.go
//
// HTTP server wiring for the Wordle AI.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Vocabulary endpoints: mounted under /vocabs.
//   - Solver session endpoints: mounted under /sessions (token required after create).
//   - Refereed game endpoints: mounted under /games (optionally the daily answer).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Setup of a large vocabulary builds a response table, so POST /vocabs
//     runs under SetupTimeout instead of the default request timeout.
//   - Errors are JSON objects: {"error": <code>, "detail": <message>}.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/config"
	"github.com/robalobadob/wordleai/internal/game"
	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/session"
	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

// Options configures the HTTP layer.
type Options struct {
	ClientOrigin   string
	TokenSecret    string
	TokenTTL       time.Duration
	SeedSalt       string
	RequestTimeout time.Duration
	SetupTimeout   time.Duration
}

// Server bundles the router, the session manager, and the game store.
type Server struct {
	r      *chi.Mux
	mgr    *session.Manager
	games  game.Store
	tokens tokens
	opts   Options

	gameMu sync.Mutex // serializes guesses against stored games
}

// New constructs a Server, installs middleware, and registers routes.
func New(mgr *session.Manager, games game.Store, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.TokenSecret == "" {
		opts.TokenSecret = config.DefaultDevSecret
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.SetupTimeout <= 0 {
		opts.SetupTimeout = 10 * time.Minute
	}
	s := &Server{
		r:      chi.NewRouter(),
		mgr:    mgr,
		games:  games,
		tokens: tokens{secret: []byte(opts.TokenSecret), ttl: opts.TokenTTL},
		opts:   opts,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)            // add X-Request-ID
	s.r.Use(chimw.RealIP)               // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)            // recover from panics
	s.r.Use(jsonContentType)            // default JSON responses
	s.r.Use(corsFor(opts.ClientOrigin)) // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordleai","endpoints":["/health","/metrics","/vocabs","/sessions","/games"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Setup may build a response table; give it its own deadline.
	s.r.With(chimw.Timeout(opts.SetupTimeout)).Post("/vocabs", s.handleSetup)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout)) // bound handler time
		s.mountVocabs(r)
		s.mountSessions(r)
		s.mountGames(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: r.URL.Path})
	})

	return s
}

// Start serves HTTP on addr until ctx is done, then drains in-flight
// requests for up to five seconds.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- replies -----------------------------------

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func badJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_json", Detail: err.Error()})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, game.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrClosed):
		status, code = http.StatusGone, "closed"
	case errors.Is(err, game.ErrFinished):
		status, code = http.StatusConflict, "finished"
	case errors.Is(err, session.ErrMissingVocabulary),
		errors.Is(err, session.ErrInvalidName),
		errors.Is(err, session.ErrGuessLength),
		errors.Is(err, session.ErrUnknownWord),
		errors.Is(err, judge.ErrInvalidFeedbackSymbol),
		errors.Is(err, judge.ErrFeedbackLengthMismatch),
		errors.Is(err, judge.ErrWordTooLong),
		errors.Is(err, words.ErrEmptyVocabulary),
		errors.Is(err, words.ErrLengthMismatch),
		errors.Is(err, words.ErrNegativeWeight),
		errors.Is(err, words.ErrInvalidWeight),
		errors.Is(err, words.ErrNoSelectableWord),
		errors.Is(err, ranking.ErrUnknownCriterion),
		errors.Is(err, candidates.ErrIndexOutOfRange),
		errors.Is(err, store.ErrUnsupportedLength),
		errors.Is(err, game.ErrInvalidGuess),
		errors.Is(err, game.ErrNotInList):
		status, code = http.StatusBadRequest, "invalid"
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", chimw.GetReqID(r.Context())).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: code, Detail: err.Error()})
}
