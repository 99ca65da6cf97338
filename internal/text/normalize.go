// Package text prepares user input for speech synthesis.
package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares raw input text for synthesis.
// It normalizes line endings to \n, re-joins words hyphenated across a line
// break, trims surrounding whitespace and rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	// CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	// "exam-\nple" was typed as one word.
	s = strings.ReplaceAll(s, "-\n", "")

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// IsBlank reports whether s has no speakable content after normalization.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
