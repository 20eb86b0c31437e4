// internal/judge/codec.go
//
// Integer encodings of a Judgement.
//
// Two domains exist and must not be mixed:
//   - Code:     canonical base-3 magnitude (Exact=2, Partial=1, NoMatch=0,
//               first letter most significant). Used for every internal index.
//   - Rendered: the same digits read as a base-10 number ("21002" -> 21002).
//               Used only for human-facing strings and the feedback wire format.
//
// Conversion between the two always passes through the integer domain
// (Render / Parse), never through the string form.
package judge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxWordLength is the longest word whose rendered form fits a uint64.
const MaxWordLength = 19

var (
	ErrInvalidFeedbackSymbol  = errors.New("judge: feedback contains a symbol outside {0,1,2}")
	ErrFeedbackLengthMismatch = errors.New("judge: feedback length differs from word length")
	ErrWordTooLong            = fmt.Errorf("judge: words longer than %d letters are not supported", MaxWordLength)
)

// Code is the canonical ternary encoding of a judgement.
type Code uint32

// Rendered is the digit-for-digit decimal reading of a Code.
type Rendered uint64

// CodeSpace returns 3^length, the number of distinct codes for a word length.
func CodeSpace(length int) int {
	n := 1
	for i := 0; i < length; i++ {
		n *= 3
	}
	return n
}

// AllExact returns the code of a fully solved judgement.
func AllExact(length int) Code {
	return Code(CodeSpace(length) - 1)
}

// Encode packs a judgement into its canonical code.
func Encode(j Judgement) Code {
	var c Code
	for _, s := range j {
		c = c*3 + Code(s)
	}
	return c
}

// Decode unpacks a code into a judgement of the given length.
// Leading NoMatch positions are restored from the length.
func Decode(c Code, length int) Judgement {
	out := make(Judgement, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = Symbol(c % 3)
		c /= 3
	}
	return out
}

// Render reinterprets the base-3 digits of c as base-10 digits.
func Render(c Code) Rendered {
	var out Rendered
	power := Rendered(1)
	for c > 0 {
		out += power * Rendered(c%3)
		c /= 3
		power *= 10
	}
	return out
}

// Parse is the inverse of Render. Decimal digits above 2 are not validated
// here; use ParseFeedback for untrusted input.
func Parse(r Rendered) Code {
	var out Code
	power := Code(1)
	for r > 0 {
		out += power * Code(r%10)
		r /= 10
		power *= 3
	}
	return out
}

// Rendered returns the human-facing form of c.
func (c Code) Rendered() Rendered { return Render(c) }

// Code returns the canonical form of r.
func (r Rendered) Code() Code { return Parse(r) }

// Format writes r as a zero-padded digit string of the given width.
func (r Rendered) Format(width int) string {
	s := strconv.FormatUint(uint64(r), 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Digits formats c as its rendered digit string for a word of the given length.
func (c Code) Digits(length int) string {
	return c.Rendered().Format(length)
}

// ParseFeedback validates a wire-format feedback string and returns its code.
// The string must be exactly length characters over {0,1,2}.
func ParseFeedback(s string, length int) (Code, error) {
	for _, r := range s {
		if r < '0' || r > '2' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFeedbackSymbol, s)
		}
	}
	if n := utf8.RuneCountInString(s); n != length {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeedbackLengthMismatch, n, length)
	}
	r, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFeedbackSymbol, s)
	}
	return Rendered(r).Code(), nil
}
