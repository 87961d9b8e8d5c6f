package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalidName is returned when a display name fails validation.
var ErrInvalidName = errors.New("display name must be at least two words of two or more characters each")

// Identity binds a canonical phone number to a person's name and their
// permanent access code. The phone is the only key; the code is assigned at
// registration and never changes afterwards.
type Identity struct {
	Phone        string
	DisplayName  string
	Code         string
	CreatedAt    time.Time
	LastAccessAt time.Time
}

// ValidateDisplayName checks the registration name rule: at least two
// whitespace-separated words, each at least two characters long. Lengths are
// counted in runes so Cyrillic names validate the same as Latin ones.
func ValidateDisplayName(name string) error {
	words := strings.Fields(name)
	if len(words) < 2 {
		return ErrInvalidName
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			return ErrInvalidName
		}
	}
	return nil
}

// Validate validates the identity for persistence.
func (i *Identity) Validate() error {
	if i.Phone == "" {
		return errors.New("phone is required")
	}
	if i.Code == "" {
		return errors.New("code is required")
	}
	return ValidateDisplayName(i.DisplayName)
}
