// internal/config/config.go
//
// Runtime configuration.
// Responsibilities:
//   - Defaults for every knob.
//   - Optional YAML file (missing file = defaults).
//   - Environment overrides (after .env has been loaded by main).
//   - Validation of the combined result.
//
// Precedence: defaults < file < environment < command-line flags (applied by main).

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDevSecret signs session tokens when JWT_SECRET is unset.
const DefaultDevSecret = "dev_secret_change_me"

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Server struct {
	Addr         string `yaml:"addr"`
	ClientOrigin string `yaml:"client_origin"`
}

type Store struct {
	Driver string `yaml:"driver"` // sqlite | badger | memory
	Path   string `yaml:"path"`
}

type Engine struct {
	Mode             string `yaml:"mode"` // auto | exact | approx
	ExactPairLimit   int64  `yaml:"exact_pair_limit"`
	ApproxPairBudget int64  `yaml:"approx_pair_budget"`
	Workers          int    `yaml:"workers"`
	NativeBuilder    string `yaml:"native_builder"`
}

type Tokens struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// Config is the full application configuration.
type Config struct {
	Log      Log    `yaml:"log"`
	Server   Server `yaml:"server"`
	Store    Store  `yaml:"store"`
	Engine   Engine `yaml:"engine"`
	Tokens   Tokens `yaml:"tokens"`
	SeedSalt string `yaml:"seed_salt"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:    Log{Level: "info"},
		Server: Server{Addr: ":5175", ClientOrigin: "http://localhost:5173"},
		Store:  Store{Driver: "sqlite", Path: "./wordleai.db"},
		Engine: Engine{
			Mode:             "auto",
			ExactPairLimit:   200_000_000,
			ApproxPairBudget: 1_000_000,
		},
		Tokens:   Tokens{Secret: DefaultDevSecret, TTL: 24 * time.Hour},
		SeedSalt: "local_dev_salt",
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	i64 := func(k string, dst *int64) error {
		if v := os.Getenv(k); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = n
		}
		return nil
	}

	str("LOG_LEVEL", &c.Log.Level)
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	str("CLIENT_ORIGIN", &c.Server.ClientOrigin)
	str("WORDLEAI_STORE_DRIVER", &c.Store.Driver)
	str("WORDLEAI_DBFILE", &c.Store.Path)
	str("WORDLEAI_ENGINE_MODE", &c.Engine.Mode)
	str("WORDLEAI_NATIVE_BUILDER", &c.Engine.NativeBuilder)
	str("JWT_SECRET", &c.Tokens.Secret)
	str("WORDLEAI_SEED_SALT", &c.SeedSalt)
	if err := i64("WORDLEAI_EXACT_PAIR_LIMIT", &c.Engine.ExactPairLimit); err != nil {
		return err
	}
	if err := i64("WORDLEAI_APPROX_BUDGET", &c.Engine.ApproxPairBudget); err != nil {
		return err
	}
	if v := os.Getenv("WORDLEAI_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORDLEAI_WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	return nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("config: store.driver %q (want sqlite, badger or memory)", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.Path == "" {
		return errors.New("config: store.path is required")
	}
	switch c.Engine.Mode {
	case "auto", "exact", "approx":
	default:
		return fmt.Errorf("config: engine.mode %q (want auto, exact or approx)", c.Engine.Mode)
	}
	if c.Engine.ExactPairLimit <= 0 || c.Engine.ApproxPairBudget <= 0 {
		return errors.New("config: engine pair limits must be positive")
	}
	if c.Tokens.TTL <= 0 {
		return errors.New("config: tokens.ttl must be positive")
	}
	return nil
}
