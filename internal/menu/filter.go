package menu

import (
	"strings"
	"unicode/utf8"
)

// minNameLength is counted in runes.
const minNameLength = 2

// NameFilter cleans product names and rejects the ones that look like
// operational notes instead of dishes. It is a heuristic: both false
// positives and false negatives are expected.
type NameFilter struct {
	denied []string
}

// NewNameFilter builds a filter from a deny-list.
func NewNameFilter(dl *DenyList) *NameFilter {
	return &NameFilter{denied: dl.Words()}
}

// Filter returns the cleaned name and true, or "" and false when the name is
// rejected.
func (f *NameFilter) Filter(raw string) (string, bool) {
	name := strings.TrimSpace(stripPrintableASCII(raw))

	if utf8.RuneCountInString(name) < minNameLength {
		return "", false
	}
	for _, word := range f.denied {
		if strings.Contains(name, word) {
			return "", false
		}
	}
	return name, true
}

// stripPrintableASCII drops every rune in 0x20..0x7E: latin text, digits,
// ASCII punctuation and the plain space.
func stripPrintableASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x20 && r <= 0x7e {
			return -1
		}
		return r
	}, s)
}
