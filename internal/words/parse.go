// internal/words/parse.go
//
// Reading vocabulary files.
//
// Format (one entry per line):
//   word            -> weight 1
//   word  weight    -> explicit non-negative weight (0 = guess only)
//
// Blank lines and lines starting with '#' are skipped. Whether negative
// weights are acceptable is decided later by New's WeightPolicy.

package words

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadFile loads entries from a vocabulary file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEntries(f)
}

// ReadEntries parses vocabulary lines from r.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		e := Entry{Word: fields[0], Weight: 1}
		switch len(fields) {
		case 1:
		case 2:
			w, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("words: line %d: bad weight %q: %w", line, fields[1], err)
			}
			e.Weight = w
		default:
			return nil, fmt.Errorf("words: line %d: expected \"word [weight]\", got %q", line, s)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// ReadWordFile loads a plain word list (weights ignored), e.g. an answers file.
func ReadWordFile(path string) ([]string, error) {
	entries, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Word
	}
	return out, nil
}
