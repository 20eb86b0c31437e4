// internal/httpserver/tokens.go
//
// Session tokens.
// Responsibilities:
//   - Sign an HS256 JWT bound to one session id (claim "sid").
//   - Verify bearer tokens and reject any token for a different session.

package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid session token")

type tokens struct {
	secret []byte
	ttl    time.Duration
}

// sign creates a token for sid that expires after the configured TTL.
func (t tokens) sign(sid string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	})
	ss, err := tok.SignedString(t.secret)
	return ss, exp, err
}

// verify returns the session id a valid token was issued for.
func (t tokens) verify(raw string) (string, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", errInvalidToken
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", errInvalidToken
	}
	return sid, nil
}

// bearer extracts a token from "Authorization: Bearer <token>".
func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// requireSessionToken enforces a valid token for the {id} in the path.
func (s *Server) requireSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		sid, err := s.tokens.verify(raw)
		if err != nil || sid != chi.URLParam(r, "id") {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Detail: errInvalidToken.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}
