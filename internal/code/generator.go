// Package code generates the access codes handed out to employees.
// Codes are long-lived bearer credentials, so the random source is
// crypto/rand, never math/rand.
package code

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// Alphabet is uppercase letters and digits with visually ambiguous glyphs
// removed: no 0/O, no 1/I, no L.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultLength is the length of permanent identity codes.
const DefaultLength = 8

// Generator draws fixed-length codes from Alphabet.
type Generator struct {
	length int
}

// NewGenerator returns a Generator producing codes of the given length.
// Lengths outside 6..8 fall back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length < 6 || length > 8 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length reports the length of codes this generator produces.
func (g *Generator) Length() int { return g.length }

// Generate returns one code. Bytes from crypto/rand are rejection-sampled so
// every alphabet symbol is equally likely.
func (g *Generator) Generate() (string, error) {
	// Largest multiple of len(Alphabet) that fits in a byte.
	max := byte(256 / len(Alphabet) * len(Alphabet))

	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("code: read random: %w", err)
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}

// Equal performs a constant-time comparison of two codes.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
