// internal/store/cache.go
//
// Process-wide table ownership.
//
// A Cache hands out shared read-only *Table references. Acquire resolves a
// table from memory, then from the Persister, then by building it; concurrent
// callers for the same vocabulary share one build via singleflight. Each
// Acquire returns a release func; Prune drops tables nobody holds.

package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/robalobadob/wordleai/internal/metrics"
	"github.com/robalobadob/wordleai/internal/words"
)

type cacheEntry struct {
	table       *Table
	fingerprint string
	refs        int
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	flight    singleflight.Group
	persister Persister
	opts      BuildOptions
}

// NewCache returns a cache backed by p (nil = build only, never persist).
func NewCache(p Persister, opts BuildOptions) *Cache {
	return &Cache{
		entries:   make(map[string]*cacheEntry),
		persister: p,
		opts:      opts,
	}
}

// Acquire returns the table for v and a release func that must be called
// exactly once when the holder is done.
func (c *Cache) Acquire(ctx context.Context, v *words.Vocabulary) (*Table, func(), error) {
	name, fp := v.Name(), v.Fingerprint()

	c.mu.Lock()
	if e, ok := c.entries[name]; ok && e.fingerprint == fp {
		e.refs++
		c.mu.Unlock()
		metrics.TableAcquired("memory")
		return e.table, c.releaser(name, e), nil
	}
	c.mu.Unlock()

	res, err, _ := c.flight.Do(name+"@"+fp, func() (interface{}, error) {
		return c.loadOrBuild(ctx, v)
	})
	if err != nil {
		return nil, nil, err
	}
	t := res.(*Table)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok || e.fingerprint != fp {
		e = &cacheEntry{table: t, fingerprint: fp}
		c.entries[name] = e
	}
	e.refs++
	return e.table, c.releaser(name, e), nil
}

func (c *Cache) releaser(name string, e *cacheEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			e.refs--
		})
	}
}

func (c *Cache) loadOrBuild(ctx context.Context, v *words.Vocabulary) (*Table, error) {
	if c.persister != nil {
		st, err := c.persister.TableStatus(ctx, v)
		if err != nil {
			return nil, err
		}
		if st == Ready {
			cells, err := c.persister.LoadTable(ctx, v)
			if err != nil {
				return nil, err
			}
			metrics.TableAcquired("persisted")
			log.Debug().Str("vocab", v.Name()).Msg("response table loaded")
			return NewTable(v, cells, c.opts.Workers)
		}
		log.Info().Str("vocab", v.Name()).Stringer("status", st).Msg("response table needs build")
	}

	t, err := Build(ctx, v, c.opts)
	if err != nil {
		return nil, err
	}
	metrics.TableAcquired("built")
	if c.persister != nil {
		if err := c.persister.SaveTable(ctx, t); err != nil {
			log.Warn().Err(err).Str("vocab", v.Name()).Msg("response table not persisted")
		}
	}
	return t, nil
}

// Refs reports how many holders the cached table for name has.
func (c *Cache) Refs(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok {
		return e.refs
	}
	return 0
}

// Invalidate forgets the table for name. Current holders keep their reference.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Prune drops every table with no holders and returns how many were dropped.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for name, e := range c.entries {
		if e.refs <= 0 {
			delete(c.entries, name)
			n++
		}
	}
	return n
}
