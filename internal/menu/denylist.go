package menu

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/titanous/json5"
)

//go:embed denylist.json5
var defaultDenyList []byte

// DenyList is the data asset behind the name filter and the restaurant
// exclusion check. It is loaded from JSON5 so entries can be grouped and
// commented without touching the filtering code.
type DenyList struct {
	// Denied groups product-name substrings by category. Categories are
	// informational only; every entry is applied.
	Denied map[string][]string `json:"denied"`
	// Exclusions lists restaurant-name keywords per platform.
	Exclusions map[Platform][]string `json:"exclusions"`
	// Replace makes an override file replace the embedded list instead of
	// extending it.
	Replace bool `json:"replace"`
}

// DefaultDenyList parses the embedded deny-list.
func DefaultDenyList() (*DenyList, error) {
	return parseDenyList(defaultDenyList)
}

// LoadDenyList returns the embedded deny-list, extended (or replaced) by the
// file at path when path is not empty.
func LoadDenyList(path string) (*DenyList, error) {
	base, err := DefaultDenyList()
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded deny-list: %w", err)
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deny-list %s: %w", path, err)
	}
	override, err := parseDenyList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deny-list %s: %w", path, err)
	}
	if override.Replace {
		return override, nil
	}
	return base.union(override), nil
}

func parseDenyList(data []byte) (*DenyList, error) {
	var dl DenyList
	if err := json5.Unmarshal(data, &dl); err != nil {
		return nil, err
	}
	if dl.Denied == nil {
		dl.Denied = map[string][]string{}
	}
	if dl.Exclusions == nil {
		dl.Exclusions = map[Platform][]string{}
	}
	return &dl, nil
}

func (d *DenyList) union(o *DenyList) *DenyList {
	out := &DenyList{
		Denied:     make(map[string][]string, len(d.Denied)),
		Exclusions: make(map[Platform][]string, len(d.Exclusions)),
	}
	for group, words := range d.Denied {
		out.Denied[group] = appendUnique(nil, words...)
	}
	for group, words := range o.Denied {
		out.Denied[group] = appendUnique(out.Denied[group], words...)
	}
	for p, words := range d.Exclusions {
		out.Exclusions[p] = appendUnique(nil, words...)
	}
	for p, words := range o.Exclusions {
		out.Exclusions[p] = appendUnique(out.Exclusions[p], words...)
	}
	return out
}

func appendUnique(dst []string, words ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(words))
	for _, w := range dst {
		seen[w] = struct{}{}
	}
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		dst = append(dst, w)
	}
	return dst
}

// Words returns every denied substring across all groups, deduplicated and
// sorted.
func (d *DenyList) Words() []string {
	var words []string
	for _, group := range d.Denied {
		words = appendUnique(words, group...)
	}
	sort.Strings(words)
	return words
}

// Excluded reports whether a restaurant name contains one of the platform's
// exclusion keywords. Matching ignores ASCII case.
func (d *DenyList) Excluded(p Platform, name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range d.Exclusions[p] {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
