package plan

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// DefaultExclude keeps the pressure-level axis out of a single-level mirror
var DefaultExclude = []string{"pressure-level"}

// 🚫 Filter decides which relative paths never enter a batch.
//
// Substrings are matched case-sensitively anywhere in the relative path, so
// both a marker in the file name and a marker in the directory name exclude
// the entry. Globs use doublestar syntax against the whole relative path.
type Filter struct {
	Substrings []string
	Globs      []string
}

// NewFilter validates the glob patterns up front
func NewFilter(substrings, globs []string) (Filter, error) {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return Filter{}, errors.Errorf("invalid exclude glob %q", g)
		}
	}
	return Filter{Substrings: substrings, Globs: globs}, nil
}

// Excluded returns the rule that excludes relPath, if any
func (f Filter) Excluded(relPath string) (string, bool) {
	for _, s := range f.Substrings {
		if s != "" && strings.Contains(relPath, s) {
			return s, true
		}
	}
	for _, g := range f.Globs {
		if ok, err := doublestar.Match(g, relPath); err == nil && ok {
			return g, true
		}
	}
	return "", false
}
