// Package normalize canonicalizes user-supplied strings before they are
// stored or used in lookups.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims surrounding whitespace. Case is preserved; uniqueness is
// on the stored value.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Title trims and collapses runs of internal whitespace to one space.
func Title(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tags folds each tag (lowercase, diacritics removed), trims it, drops empty
// ones and removes duplicates while keeping first-seen order. A nil or
// all-empty input returns nil.
func Tags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, t := range in {
		f := strings.TrimSpace(text.Fold(t))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
