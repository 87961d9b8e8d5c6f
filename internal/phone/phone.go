// Package phone canonicalizes raw phone number input into the 11-digit
// domestic form used as the identity key everywhere else in the system.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when the input cannot be reduced to an
// 11-digit number starting with 7.
var ErrInvalidPhone = errors.New("invalid phone number")

// Normalize strips every non-digit character (so "+7 999 123-45-67" and
// "79991234567" are equivalent), rewrites a leading 8 of an 11-digit number
// to 7, and returns the canonical form. Normalize is pure and idempotent:
// feeding its output back in returns the same string.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 11 && digits[0] == '8' {
		digits = "7" + digits[1:]
	}
	if len(digits) != 11 || digits[0] != '7' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
