// internal/daily/daily.go
//
// Daily answers: one deterministic hidden word per UTC date.
// Responsibilities:
//   - DateKey: canonical YYYY-MM-DD key in UTC.
//   - Seed: HMAC(salt, date) seed, so every process picks the same word.
//   - Answer: weighted draw from a vocabulary's answer picker under that seed.

package daily

import (
	"math/rand"
	"time"

	"github.com/robalobadob/wordleai/internal/session"
	"github.com/robalobadob/wordleai/internal/words"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the random seed for the date of t.
func Seed(t time.Time, salt string) int64 {
	return session.DeriveSeed(salt, DateKey(t))
}

// Answer picks the daily answer for t from v. Zero-weight words are never
// chosen; the same (vocabulary, date, salt) always yields the same word.
func Answer(v *words.Vocabulary, t time.Time, salt string) (string, error) {
	rng := rand.New(rand.NewSource(Seed(t, salt)))
	return v.AnswerPicker().Pick(rng)
}
