// internal/persist/sqlite.go
//
// SQLite-backed store.Persister.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Reading/writing named vocabularies and their response rows.
//
// Response rows are stored one blob per guess so a table streams in and out
// without holding a second full copy in SQLite's page cache.

package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordleai/assets"
	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

// SQLite implements store.Persister on a single database file.
type SQLite struct {
	db *sql.DB
}

/**
 * OpenSQLite opens (and creates if missing) a SQLite database file and
 * applies migrations.
 *
 * - Ensures parent directory exists for relative DSNs (e.g. ./data/wordleai.db).
 * - Configures busy timeout and WAL journaling mode.
 * - Enforces foreign keys (table rows cascade with their vocabulary).
 */
func OpenSQLite(dsn string) (*SQLite, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// foreign_keys is per connection; a single writer keeps the pragma in force.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

/**
 * migrate applies the embedded SQL migrations.
 *
 * - Uses a _migrations table to track applied files.
 * - Executes each file in lexical order inside its own transaction.
 * - Skips files already applied.
 */
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := assets.FS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

func (s *SQLite) Vocabularies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM vocabularies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) LoadVocabulary(ctx context.Context, name string) (*words.Vocabulary, error) {
	var length int
	err := s.db.QueryRowContext(ctx, `SELECT word_length FROM vocabularies WHERE name=?`, name).Scan(&length)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT word, weight, is_answer FROM vocabulary_words WHERE vocab=? ORDER BY word`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rec record
	for rows.Next() {
		var e words.Entry
		var isAnswer bool
		if err := rows.Scan(&e.Word, &e.Weight, &isAnswer); err != nil {
			return nil, err
		}
		rec.Entries = append(rec.Entries, e)
		if isAnswer {
			rec.Answers = append(rec.Answers, e.Word)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec.vocabulary(name)
}

func (s *SQLite) SaveVocabulary(ctx context.Context, v *words.Vocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// cascades to vocabulary_words, response_tables and response_rows
	if _, err := tx.ExecContext(ctx, `DELETE FROM vocabularies WHERE name=?`, v.Name()); err != nil {
		return fmt.Errorf("drop %s: %w", v.Name(), err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vocabularies(name, word_length) VALUES (?, ?)`, v.Name(), v.Length()); err != nil {
		return fmt.Errorf("insert %s: %w", v.Name(), err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vocabulary_words(vocab, word, weight, is_answer) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range v.Entries() {
		if _, err := stmt.ExecContext(ctx, v.Name(), e.Word, e.Weight, v.IsAnswer(e.Word)); err != nil {
			return fmt.Errorf("insert %q: %w", e.Word, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) TableStatus(ctx context.Context, v *words.Vocabulary) (store.Status, error) {
	var fp string
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM response_tables WHERE vocab=?`, v.Name()).Scan(&fp)
	switch {
	case err == sql.ErrNoRows:
		return store.Missing, nil
	case err != nil:
		return store.Missing, err
	case fp != v.Fingerprint():
		return store.Stale, nil
	}
	return store.Ready, nil
}

func (s *SQLite) LoadTable(ctx context.Context, v *words.Vocabulary) ([]uint16, error) {
	var fp string
	var ng, na int
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, guesses, answers FROM response_tables WHERE vocab=?`, v.Name()).
		Scan(&fp, &ng, &na)
	if err == sql.ErrNoRows || (err == nil && fp != v.Fingerprint()) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT guess_idx, cells FROM response_rows WHERE vocab=? ORDER BY guess_idx`, v.Name())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make([]uint16, ng*na)
	n := 0
	for rows.Next() {
		var g int
		var blob []byte
		if err := rows.Scan(&g, &blob); err != nil {
			return nil, err
		}
		if g < 0 || g >= ng {
			return nil, fmt.Errorf("%w: row %d", errCorrupt, g)
		}
		if err := decodeRow(blob, cells[g*na:(g+1)*na]); err != nil {
			return nil, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n != ng {
		return nil, fmt.Errorf("%w: %d of %d rows", errCorrupt, n, ng)
	}
	return cells, nil
}

func (s *SQLite) SaveTable(ctx context.Context, t *store.Table) error {
	v := t.Vocabulary()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM response_tables WHERE vocab=?`, v.Name()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO response_tables(vocab, fingerprint, guesses, answers) VALUES (?, ?, ?, ?)`,
		v.Name(), v.Fingerprint(), len(v.Guesses()), len(v.Answers())); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("save table %s: vocabulary not stored: %w", v.Name(), store.ErrNotFound)
		}
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO response_rows(vocab, guess_idx, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for g := 0; g < t.Rows(); g++ {
		if _, err := stmt.ExecContext(ctx, v.Name(), g, encodeRow(t.Row(g))); err != nil {
			return fmt.Errorf("row %d: %w", g, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Str("vocab", v.Name()).Int("rows", t.Rows()).Msg("response table persisted")
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
