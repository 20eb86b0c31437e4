// internal/session/seed.go
//
// Seeds for per-session random sources, derived from a salt and a key
// (the session id, or a date for daily answers).

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// DeriveSeed returns a deterministic seed using HMAC(salt, key).
// The same (salt, key) always reproduces the same sampling and answer picks.
func DeriveSeed(salt, key string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(key))
	sum := h.Sum(nil)
	// take first 8 bytes, clear the sign bit
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}
