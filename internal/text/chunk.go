package text

import (
	"strings"
	"unicode"
)

// MaxCloudChars is the longest text the Google Translate speech endpoint
// accepts in a single request.
const MaxCloudChars = 100

// SplitForSpeech breaks text into pieces of at most maxChars runes, suitable
// for sending one by one to a length-limited speech endpoint.
//
// Text is first split after clause punctuation (. ! ? ; : , and their
// full-width forms) when followed by whitespace, and at line breaks. Pieces
// still longer than maxChars are cut at the last space that fits, or hard-cut
// when there is none. Pieces with nothing but punctuation and spaces are
// dropped. If maxChars is 0, only the clause split is applied.
func SplitForSpeech(text string, maxChars int) []string {
	var out []string
	for _, clause := range splitClauses(text) {
		for _, piece := range minimize(clause, maxChars) {
			if speakable(piece) {
				out = append(out, piece)
			}
		}
	}
	return out
}

func splitClauses(text string) []string {
	runes := []rune(text)

	var clauses []string
	start := 0
	for i, r := range runes {
		cut := false
		switch {
		case r == '\n':
			cut = true
		case isFullWidthBreak(r):
			cut = true
		case isClauseBreak(r):
			// "3.14" and "10:30" are not clause ends.
			cut = i+1 == len(runes) || unicode.IsSpace(runes[i+1])
		}
		if !cut {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			clauses = append(clauses, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			clauses = append(clauses, s)
		}
	}

	return clauses
}

// minimize cuts s into pieces no longer than maxChars runes, preferring
// to cut at a space.
func minimize(s string, maxChars int) []string {
	runes := []rune(s)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{s}
	}

	var pieces []string
	for len(runes) > maxChars {
		cut := lastSpace(runes[:maxChars+1])
		if cut <= 0 {
			cut = maxChars
		}
		if p := strings.TrimSpace(string(runes[:cut])); p != "" {
			pieces = append(pieces, p)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if p := strings.TrimSpace(string(runes)); p != "" {
		pieces = append(pieces, p)
	}

	return pieces
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func isClauseBreak(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ',', '…':
		return true
	}
	return false
}

func isFullWidthBreak(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '：', '，', '、':
		return true
	}
	return false
}

func speakable(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}
