// Package matcher tokenizes OCR output and fuzzily matches it against the
// registry name.
package matcher

import (
	"strings"
	"unicode"
)

const (
	minTokenRunes = 3
	ngramRunes    = 3
)

// Tokenize lowercases text, splits on anything that is not a letter and keeps
// tokens longer than two letters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

// ExpectedTokens splits each name on hyphens and spaces and normalizes the
// parts the same way as Tokenize.
func ExpectedTokens(names ...string) []string {
	var out []string
	for _, name := range names {
		for part := range strings.FieldsFuncSeq(name, func(r rune) bool {
			return r == '-' || unicode.IsSpace(r)
		}) {
			out = append(out, Tokenize(part)...)
		}
	}
	return out
}

// Match reports whether any expected token contains or is contained in an
// extracted token, or whether any three-letter run of an extracted token
// appears inside an expected token.
func Match(extracted, expected []string) bool {
	for _, e := range expected {
		for _, x := range extracted {
			if strings.Contains(x, e) || strings.Contains(e, x) {
				return true
			}
			if sharesNgram(x, e) {
				return true
			}
		}
	}
	return false
}

func sharesNgram(extracted, expected string) bool {
	runes := []rune(extracted)
	for i := 0; i+ngramRunes <= len(runes); i++ {
		if strings.Contains(expected, string(runes[i:i+ngramRunes])) {
			return true
		}
	}
	return false
}
