// internal/store/memory.go
//
// Persistence contract for vocabularies and response tables, plus an
// in-memory implementation.
//
// Characteristics of the memory persister:
//   - Vocabularies and table cells keyed by vocabulary name in maps.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//
// Durable implementations live in internal/persist (SQLite, Badger).

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/robalobadob/wordleai/internal/words"
)

// Status answers "exists / is stale / needs rebuild" for a vocabulary's table.
type Status int

const (
	Missing Status = iota // no table stored under this name
	Stale                 // a table exists but was built from different word lists
	Ready                 // stored table matches the vocabulary fingerprint
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	default:
		return "missing"
	}
}

// Persister stores named vocabularies and their response tables.
// Implementations may be backed by memory (this package), SQLite, Badger, etc.
type Persister interface {
	// Vocabularies lists stored vocabulary names, sorted.
	Vocabularies(ctx context.Context) ([]string, error)

	// LoadVocabulary returns ErrNotFound when the name is unknown.
	LoadVocabulary(ctx context.Context, name string) (*words.Vocabulary, error)

	// SaveVocabulary replaces the named vocabulary wholesale and drops its table.
	SaveVocabulary(ctx context.Context, v *words.Vocabulary) error

	// TableStatus compares the stored table against v's fingerprint.
	TableStatus(ctx context.Context, v *words.Vocabulary) (Status, error)

	// LoadTable returns the row-major cells of a Ready table.
	LoadTable(ctx context.Context, v *words.Vocabulary) ([]uint16, error)

	// SaveTable stores t under its vocabulary's name and fingerprint.
	SaveTable(ctx context.Context, t *Table) error

	Close() error
}

type storedTable struct {
	fingerprint string
	cells       []uint16
}

// memory is an in-memory map-based Persister implementation.
type memory struct {
	mu     sync.RWMutex // guards both maps
	vocabs map[string]*words.Vocabulary
	tables map[string]storedTable
}

// NewMemoryPersister constructs a new in-memory Persister.
func NewMemoryPersister() Persister {
	return &memory{
		vocabs: make(map[string]*words.Vocabulary),
		tables: make(map[string]storedTable),
	}
}

func (m *memory) Vocabularies(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vocabs))
	for n := range m.vocabs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memory) LoadVocabulary(ctx context.Context, name string) (*words.Vocabulary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vocabs[name]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (m *memory) SaveVocabulary(ctx context.Context, v *words.Vocabulary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vocabs[v.Name()] = v
	delete(m.tables, v.Name())
	return nil
}

func (m *memory) TableStatus(ctx context.Context, v *words.Vocabulary) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.tables[v.Name()]
	switch {
	case !ok:
		return Missing, nil
	case st.fingerprint != v.Fingerprint():
		return Stale, nil
	}
	return Ready, nil
}

func (m *memory) LoadTable(ctx context.Context, v *words.Vocabulary) ([]uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.tables[v.Name()]
	if !ok || st.fingerprint != v.Fingerprint() {
		return nil, ErrNotFound
	}
	return st.cells, nil
}

func (m *memory) SaveTable(ctx context.Context, t *Table) error {
	v := t.Vocabulary()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[v.Name()] = storedTable{fingerprint: v.Fingerprint(), cells: t.cells}
	return nil
}

func (m *memory) Close() error { return nil }
