// internal/persist/record.go
//
// Shared encodings for persisters.

package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

var errCorrupt = errors.New("persist: corrupt response table")

// record is the stored form of a vocabulary.
type record struct {
	Length  int           `json:"length"`
	Entries []words.Entry `json:"entries"`
	Answers []string      `json:"answers"`
}

func newRecord(v *words.Vocabulary) record {
	return record{Length: v.Length(), Entries: v.Entries(), Answers: v.Answers()}
}

// vocabulary rebuilds the Vocabulary. Weights were validated on save, so a
// floor policy cannot change them.
func (r record) vocabulary(name string) (*words.Vocabulary, error) {
	return words.New(name, r.Entries, words.Options{Answers: r.Answers, Policy: words.FloorAtZero})
}

func encodeRow(row []uint16) []byte {
	b := make([]byte, 2*len(row))
	for i, c := range row {
		binary.LittleEndian.PutUint16(b[2*i:], c)
	}
	return b
}

func decodeRow(b []byte, dst []uint16) error {
	if len(b) != 2*len(dst) {
		return fmt.Errorf("%w: row has %d bytes, want %d", errCorrupt, len(b), 2*len(dst))
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return nil
}

// Open returns the persister selected by driver: "sqlite", "badger" or "memory".
func Open(driver, path string) (store.Persister, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return OpenSQLite(path)
	case "badger":
		return OpenBadger(BadgerConfig{Path: path, SyncWrites: true})
	case "memory":
		return store.NewMemoryPersister(), nil
	}
	return nil, fmt.Errorf("persist: unknown driver %q", driver)
}
