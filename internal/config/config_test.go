package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5175", cfg.Server.Addr)
	assert.Equal(t, int64(200_000_000), cfg.Engine.ExactPairLimit)
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordleai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
store:
  driver: badger
  path: /var/lib/wordleai
engine:
  mode: approx
  approx_pair_budget: 5000
tokens:
  ttl: 2h
`), 0o644))

	t.Setenv("WORDLEAI_APPROX_BUDGET", "7000")
	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "approx", cfg.Engine.Mode)
	assert.Equal(t, int64(7000), cfg.Engine.ApproxPairBudget)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Tokens.TTL)
	assert.Equal(t, DefaultDevSecret, cfg.Tokens.Secret)
}

func TestInvalid(t *testing.T) {
	t.Setenv("WORDLEAI_STORE_DRIVER", "postgres")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("WORDLEAI_STORE_DRIVER", "memory")
	t.Setenv("WORDLEAI_EXACT_PAIR_LIMIT", "lots")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("WORDLEAI_EXACT_PAIR_LIMIT", "10")
	t.Setenv("WORDLEAI_ENGINE_MODE", "psychic")
	_, err = Load("")
	assert.Error(t, err)
}
