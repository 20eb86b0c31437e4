// internal/session/manager.go
//
// Vocabulary setup and session lifecycle.
// Responsibilities:
//   - Setup: validate, persist, and (for exact engines) prebuild a named vocabulary.
//   - Engine selection: exact table vs sampling estimator by pair count.
//   - Open / Get / Close sessions through the Registry.

package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/estimator"
	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

// Engine modes.
const (
	ModeAuto   = "auto"
	ModeExact  = "exact"
	ModeApprox = "approx"
)

// DefaultExactPairLimit is the largest guess x answer count auto mode
// materializes.
const DefaultExactPairLimit = 200_000_000

var (
	ErrInvalidName = errors.New("session: vocabulary names use letters, digits, '.', '_' and '-'")
	ErrUnknownMode = errors.New("session: unknown engine mode")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Config tunes engine selection and seeding.
type Config struct {
	Mode           string
	ExactPairLimit int64
	ApproxBudget   int64
	Workers        int
	SeedSalt       string
}

// Manager owns the persister, the shared table cache and the registry.
type Manager struct {
	cfg       Config
	persister store.Persister
	cache     *store.Cache
	registry  *Registry
}

// NewManager wires a manager. cache must share p.
func NewManager(p store.Persister, cache *store.Cache, cfg Config) (*Manager, error) {
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeAuto
	case ModeAuto, ModeExact, ModeApprox:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	if cfg.ExactPairLimit <= 0 {
		cfg.ExactPairLimit = DefaultExactPairLimit
	}
	return &Manager{cfg: cfg, persister: p, cache: cache, registry: NewRegistry()}, nil
}

// Registry exposes the live sessions.
func (m *Manager) Registry() *Registry { return m.registry }

// SetupRequest describes a vocabulary to install.
type SetupRequest struct {
	Name string
	// Entries nil means "reuse the stored vocabulary of this name".
	Entries []words.Entry
	Options words.Options
	// Resetup replaces an existing vocabulary instead of keeping it.
	Resetup bool
}

// Setup installs (or reuses) a named vocabulary and, when the exact engine
// would serve it, makes sure its response table exists.
func (m *Manager) Setup(ctx context.Context, req SetupRequest) (*words.Vocabulary, error) {
	if !validName.MatchString(req.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, req.Name)
	}

	existing, err := m.persister.LoadVocabulary(ctx, req.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var v *words.Vocabulary
	switch {
	case req.Entries == nil && existing == nil:
		return nil, fmt.Errorf("%w: %q", ErrMissingVocabulary, req.Name)
	case existing != nil && (req.Entries == nil || !req.Resetup):
		if req.Entries != nil {
			log.Info().Str("vocab", req.Name).Msg("vocabulary exists, keeping it (use resetup to replace)")
		}
		v = existing
	default:
		v, err = words.New(req.Name, req.Entries, req.Options)
		if err != nil {
			return nil, err
		}
		if err := m.persister.SaveVocabulary(ctx, v); err != nil {
			return nil, fmt.Errorf("save vocabulary %s: %w", req.Name, err)
		}
		m.cache.Invalidate(req.Name)
		answers, guesses := v.Stats()
		log.Info().Str("vocab", v.Name()).Int("guesses", guesses).Int("answers", answers).Msg("vocabulary stored")
	}

	useExact, err := m.exact(v)
	if err != nil {
		return nil, err
	}
	if useExact {
		_, release, err := m.cache.Acquire(ctx, v)
		if err != nil {
			return nil, err
		}
		release()
	}
	return v, nil
}

// Vocabularies lists stored vocabulary names.
func (m *Manager) Vocabularies(ctx context.Context) ([]string, error) {
	return m.persister.Vocabularies(ctx)
}

// Vocabulary loads a stored vocabulary.
func (m *Manager) Vocabulary(ctx context.Context, name string) (*words.Vocabulary, error) {
	v, err := m.persister.LoadVocabulary(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("vocabulary %q: %w", name, store.ErrNotFound)
	}
	return v, err
}

// Status reports whether the named vocabulary's table exists, is stale or
// must be built.
func (m *Manager) Status(ctx context.Context, name string) (store.Status, error) {
	v, err := m.Vocabulary(ctx, name)
	if err != nil {
		return store.Missing, err
	}
	return m.persister.TableStatus(ctx, v)
}

// EngineFor reports which engine would serve v.
func (m *Manager) EngineFor(v *words.Vocabulary) (string, error) {
	exact, err := m.exact(v)
	if err != nil {
		return "", err
	}
	if exact {
		return EngineExact, nil
	}
	return EngineApprox, nil
}

func (m *Manager) exact(v *words.Vocabulary) (bool, error) {
	fits := v.Length() <= store.MaxWordLength
	switch m.cfg.Mode {
	case ModeExact:
		if !fits {
			return false, store.ErrUnsupportedLength
		}
		return true, nil
	case ModeApprox:
		return false, nil
	}
	return fits && v.Pairs() <= m.cfg.ExactPairLimit, nil
}

func (m *Manager) engine(ctx context.Context, v *words.Vocabulary) (Engine, error) {
	exact, err := m.exact(v)
	if err != nil {
		return nil, err
	}
	if !exact {
		est := estimator.New(v, estimator.Options{
			Budget:  m.cfg.ApproxBudget,
			Workers: m.cfg.Workers,
		})
		log.Debug().Str("vocab", v.Name()).Int64("budget", est.Budget()).Msg("sampling engine selected")
		return NewApproxEngine(est), nil
	}
	t, release, err := m.cache.Acquire(ctx, v)
	if err != nil {
		return nil, err
	}
	return NewExactEngine(t, release), nil
}

// OpenRequest describes a new session.
type OpenRequest struct {
	Vocabulary string
	// Seed fixes the random source; nil derives one from the session id.
	Seed *int64
}

// Open starts and registers a session.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	v, err := m.Vocabulary(ctx, req.Vocabulary)
	if err != nil {
		return nil, err
	}
	eng, err := m.engine(ctx, v)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	seed := DeriveSeed(m.cfg.SeedSalt, id)
	if req.Seed != nil {
		seed = *req.Seed
	}
	s := New(id, eng, seed)
	m.registry.Add(s)
	log.Info().Str("session", id).Str("vocab", v.Name()).Str("engine", eng.Name()).Msg("session opened")
	return s, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, error) { return m.registry.Get(id) }

// Close ends a session and releases its engine.
func (m *Manager) Close(id string) error {
	if err := m.registry.Remove(id); err != nil {
		return err
	}
	log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Shutdown closes every session and drops unreferenced tables.
func (m *Manager) Shutdown() {
	m.registry.Close()
	m.cache.Prune()
}
