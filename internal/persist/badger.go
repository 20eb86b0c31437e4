// internal/persist/badger.go
//
// BadgerDB-backed store.Persister.
//
// Key layout:
//
//	vocab/<name>               JSON record (length, entries, answers)
//	table/<name>/meta          JSON tableMeta (fingerprint, shape)
//	table/<name>/row/<%08d>    little-endian uint16 cells for one guess row
//
// Vocabulary names never contain '/', so per-name prefixes do not overlap.

package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

// BadgerConfig holds configuration for a Badger persister.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM (tests).
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Badger implements store.Persister on an embedded BadgerDB.
type Badger struct {
	db *badger.DB
}

type tableMeta struct {
	Fingerprint string `json:"fingerprint"`
	Guesses     int    `json:"guesses"`
	Answers     int    `json:"answers"`
}

// badgerLogger adapts zerolog to Badger's Logger interface.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

// OpenBadger opens (creating if needed) a Badger persister.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("persist: badger path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: log.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

func vocabKey(name string) []byte      { return []byte("vocab/" + name) }
func tablePrefix(name string) []byte   { return []byte("table/" + name + "/") }
func metaKey(name string) []byte       { return []byte("table/" + name + "/meta") }
func rowKey(name string, g int) []byte { return []byte(fmt.Sprintf("table/%s/row/%08d", name, g)) }

func (b *Badger) Vocabularies(ctx context.Context) ([]string, error) {
	var out []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("vocab/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().Key()[len(opts.Prefix):]))
		}
		return nil
	})
	return out, err
}

func (b *Badger) LoadVocabulary(ctx context.Context, name string) (*words.Vocabulary, error) {
	var rec record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(vocabKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.vocabulary(name)
}

func (b *Badger) SaveVocabulary(ctx context.Context, v *words.Vocabulary) error {
	val, err := json.Marshal(newRecord(v))
	if err != nil {
		return err
	}
	if err := b.db.DropPrefix(tablePrefix(v.Name())); err != nil {
		return fmt.Errorf("drop table %s: %w", v.Name(), err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vocabKey(v.Name()), val)
	})
}

func (b *Badger) meta(name string) (tableMeta, bool, error) {
	var m tableMeta
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &m) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return m, false, nil
	}
	return m, err == nil, err
}

func (b *Badger) TableStatus(ctx context.Context, v *words.Vocabulary) (store.Status, error) {
	m, ok, err := b.meta(v.Name())
	switch {
	case err != nil:
		return store.Missing, err
	case !ok:
		return store.Missing, nil
	case m.Fingerprint != v.Fingerprint():
		return store.Stale, nil
	}
	return store.Ready, nil
}

func (b *Badger) LoadTable(ctx context.Context, v *words.Vocabulary) ([]uint16, error) {
	m, ok, err := b.meta(v.Name())
	if err != nil {
		return nil, err
	}
	if !ok || m.Fingerprint != v.Fingerprint() {
		return nil, store.ErrNotFound
	}

	cells := make([]uint16, m.Guesses*m.Answers)
	err = b.db.View(func(txn *badger.Txn) error {
		for g := 0; g < m.Guesses; g++ {
			item, err := txn.Get(rowKey(v.Name(), g))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: missing row %d", errCorrupt, g)
			}
			if err != nil {
				return err
			}
			dst := cells[g*m.Answers : (g+1)*m.Answers]
			if err := item.Value(func(val []byte) error { return decodeRow(val, dst) }); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cells, nil
}

// SaveTable writes rows through a WriteBatch, then the meta key last, so a
// crash mid-write leaves the table Missing rather than Ready.
func (b *Badger) SaveTable(ctx context.Context, t *store.Table) error {
	v := t.Vocabulary()
	if err := b.db.DropPrefix(tablePrefix(v.Name())); err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	for g := 0; g < t.Rows(); g++ {
		if err := ctx.Err(); err != nil {
			wb.Cancel()
			return err
		}
		if err := wb.Set(rowKey(v.Name(), g), encodeRow(t.Row(g))); err != nil {
			wb.Cancel()
			return fmt.Errorf("row %d: %w", g, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	val, err := json.Marshal(tableMeta{
		Fingerprint: v.Fingerprint(),
		Guesses:     len(v.Guesses()),
		Answers:     len(v.Answers()),
	})
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Set(metaKey(v.Name()), val) }); err != nil {
		return err
	}
	log.Info().Str("vocab", v.Name()).Int("rows", t.Rows()).Msg("response table persisted")
	return nil
}

func (b *Badger) Close() error { return b.db.Close() }
