// Package strings normalizes free text scraped from external documents.
package strings

import (
	"strings"
)

// CollapseSpace trims s and folds every internal whitespace run to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeFold collapses whitespace in each value, drops blanks and removes
// case-insensitive duplicates. The first spelling seen wins and order is kept.
func DedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = CollapseSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
