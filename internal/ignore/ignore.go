// Package ignore provides gitignore-style pattern matching for files
// discovered while scanning a tree. Patterns are gathered from the tree
// itself: .gitignore and .git/info/exclude at the scan root and every
// descendant directory, plus the user's global git ignore file and an
// optional custom ignore filename (e.g. .kopyignore) with identical syntax.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimblefs/kopy/internal/logger"
)

const globDoubleStar = "**"

// Matcher decides whether a root-relative path should be excluded.
type Matcher interface {
	Match(relPath string, isDir bool) bool
}

// PatternMatcher matches root-relative paths against a flat list of
// gitignore-style patterns: exact segment matches, directory-only
// (trailing "/"), globs ("*", "?", "**"), and negation ("!").
type PatternMatcher struct {
	patterns []pattern
}

type pattern struct {
	isDirOnly  bool
	isNegation bool
	segments   []string
	hasGlob    bool
}

// NewPatternMatcher compiles patterns, skipping blank lines and comments.
func NewPatternMatcher(patterns []string) *PatternMatcher {
	pm := &PatternMatcher{patterns: make([]pattern, 0, len(patterns))}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}

		pat := pattern{}
		if strings.HasPrefix(p, "!") {
			pat.isNegation = true
			p = strings.TrimPrefix(p, "!")
		}
		if strings.HasSuffix(p, "/") {
			pat.isDirOnly = true
			p = strings.TrimSuffix(p, "/")
		}

		p = filepath.ToSlash(p)
		pat.segments = strings.Split(p, "/")
		pat.hasGlob = strings.Contains(p, "*") || strings.Contains(p, "?")

		pm.patterns = append(pm.patterns, pat)
	}

	return pm
}

// Match reports whether path (relative to this matcher's base directory)
// should be excluded, after applying negation overrides.
func (pm *PatternMatcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	segments := strings.Split(path, "/")

	matched := false
	negated := false
	for _, pat := range pm.patterns {
		if pat.match(segments, isDir) {
			if pat.isNegation {
				negated = true
			} else {
				matched = true
			}
		}
	}
	if negated {
		return false
	}
	return matched
}

func (p *pattern) match(pathSegments []string, isDir bool) bool {
	if p.isDirOnly && !isDir {
		return false
	}

	if !p.hasGlob && len(p.segments) == 1 {
		for _, seg := range pathSegments {
			if seg == p.segments[0] {
				return true
			}
		}
		return false
	}

	return p.matchSegments(pathSegments)
}

func (p *pattern) matchSegments(pathSegments []string) bool {
	patSegs := p.segments

	if len(patSegs) > 0 && patSegs[0] == globDoubleStar {
		if len(patSegs) == 1 {
			return true
		}
		remaining := patSegs[1:]
		for i := 0; i <= len(pathSegments); i++ {
			if matchSegmentsAt(pathSegments[i:], remaining) {
				return true
			}
		}
		return false
	}

	if len(patSegs) > 0 && patSegs[len(patSegs)-1] == globDoubleStar {
		return matchSegmentsAt(pathSegments, patSegs[:len(patSegs)-1])
	}

	return matchSegmentsAt(pathSegments, patSegs)
}

func matchSegmentsAt(pathSegs, patSegs []string) bool {
	if len(patSegs) == 0 {
		return true
	}
	if len(pathSegs) == 0 {
		return false
	}

	for i := 0; i <= len(pathSegs)-len(patSegs); i++ {
		ok := true
		for j := 0; j < len(patSegs); j++ {
			if !matchSegment(pathSegs[i+j], patSegs[j]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func matchSegment(pathSeg, patSeg string) bool {
	if patSeg == pathSeg {
		return true
	}
	if strings.Contains(patSeg, "*") || strings.Contains(patSeg, "?") {
		return matchGlob(pathSeg, patSeg)
	}
	return false
}

func matchGlob(s, pattern string) bool {
	patternIdx, strIdx := 0, 0

	for patternIdx < len(pattern) && strIdx < len(s) {
		switch {
		case pattern[patternIdx] == '*':
			if patternIdx == len(pattern)-1 {
				return true
			}
			for i := strIdx; i <= len(s); i++ {
				if matchGlob(s[i:], pattern[patternIdx+1:]) {
					return true
				}
			}
			return false
		case pattern[patternIdx] == '?':
			patternIdx++
			strIdx++
		case pattern[patternIdx] == s[strIdx]:
			patternIdx++
			strIdx++
		default:
			return false
		}
	}

	for patternIdx < len(pattern) && pattern[patternIdx] == '*' {
		patternIdx++
	}

	return patternIdx == len(pattern) && strIdx == len(s)
}

// readPatternFile reads newline-delimited patterns from path, skipping blank
// lines and comments. A missing file yields (nil, nil).
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close ignore file", "path", path, "error", err)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

// LoadCustomIgnoreFile reads a user-specified ignore file. Unlike the
// automatic discovery in NewTreeMatcher, a missing file is an error here
// since the user explicitly named it.
func LoadCustomIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("failed to close ignore file", "path", path, "error", cerr)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
