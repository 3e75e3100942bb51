// Package validate checks user-supplied patient identifiers before any
// document is touched.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyInput        = errors.New("hospital number is required")
	ErrTooLong           = errors.New("hospital number cannot exceed 20 characters")
	ErrInvalidCharacters = errors.New("hospital number can only contain letters, numbers, and hyphens")
)

// MaxHospitalNumberLen is the maximum accepted length after trimming,
// counted in characters, not bytes.
const MaxHospitalNumberLen = 20

var hospitalNumberRE = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// HospitalNumber validates a hospital number and returns the trimmed value.
// It is pure and side-effect free, so callers may invoke it on every
// keystroke and again as the final gate before processing.
func HospitalNumber(s string) (string, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(s) > MaxHospitalNumberLen {
		return "", ErrTooLong
	}
	if !hospitalNumberRE.MatchString(s) {
		return "", ErrInvalidCharacters
	}
	return s, nil
}
