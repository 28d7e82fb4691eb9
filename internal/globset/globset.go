// Package globset compiles CLI include/exclude glob pattern lists into a Set
// that can be queried against scanned paths. It is the only place doublestar
// is used; gitignore-file syntax (with its negation/anchor semantics) is
// handled separately by internal/ignore.
package globset

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Set holds compiled exclude and include glob patterns. Include overrides
// exclude for a path that matches both; include alone never promotes a path
// that wasn't excluded in the first place.
type Set struct {
	exclude []string
	include []string
}

// New validates and compiles exclude/include glob pattern lists. It returns
// an error naming the first pattern that fails to parse, per spec's
// configuration-validation requirement that every glob pattern must parse.
func New(excludePatterns, includePatterns []string) (*Set, error) {
	for _, p := range excludePatterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", p)
		}
	}
	for _, p := range includePatterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern: %q", p)
		}
	}
	return &Set{exclude: excludePatterns, include: includePatterns}, nil
}

// Excluded reports whether relPath should be rejected by the CLI glob
// filters: matched by an exclude pattern and not rescued by an include
// pattern.
func (s *Set) Excluded(relPath string) bool {
	if s == nil {
		return false
	}
	if !matchesAny(s.exclude, relPath) {
		return false
	}
	return !matchesAny(s.include, relPath)
}

func matchesAny(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}
