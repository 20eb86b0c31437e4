// internal/words/picker.go
//
// Weighted random word selection (answers for games and sessions).

package words

import (
	"math/rand"
	"sort"
)

// Picker draws words with probability proportional to their weight using a
// cumulative-weight table. Zero-weight words are never drawn.
type Picker struct {
	words []string
	cum   []float64
}

// NewPicker builds a sampler; weights align with words.
func NewPicker(words []string, weights []float64) *Picker {
	p := &Picker{}
	total := 0.0
	for i, w := range words {
		if weights[i] <= 0 {
			continue
		}
		total += weights[i]
		p.words = append(p.words, w)
		p.cum = append(p.cum, total)
	}
	return p
}

// Len is the number of selectable words.
func (p *Picker) Len() int { return len(p.words) }

// Pick draws one word using rng.
func (p *Picker) Pick(rng *rand.Rand) (string, error) {
	if len(p.words) == 0 {
		return "", ErrNoSelectableWord
	}
	total := p.cum[len(p.cum)-1]
	x := rng.Float64() * total
	i := sort.Search(len(p.cum), func(i int) bool { return p.cum[i] > x })
	if i == len(p.cum) {
		i--
	}
	return p.words[i], nil
}
