package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimblefs/kopy/internal/logger"
)

// gitignoreFilenames are the per-directory ignore file names consulted at
// the scan root and every descendant directory.
var gitignoreFilenames = []string{".gitignore", ".ignore"}

// layer holds the patterns declared by one ignore file, scoped to the
// root-relative directory that contains it.
type layer struct {
	baseDir string // root-relative; "" for the scan root itself
	matcher *PatternMatcher
}

// TreeMatcher composes every ignore file found within a scanned tree (root
// and each descendant directory) plus the global git ignore file and an
// optional custom-named ignore file (e.g. .kopyignore), applying each
// file's patterns only to paths beneath its own directory.
type TreeMatcher struct {
	layers []layer
}

// NewTreeMatcher walks root once, collecting every .gitignore, .ignore,
// .git/info/exclude, and (if customFilename is non-empty) custom-named
// ignore file it finds, then returns a Matcher combining them with the
// user's global git ignore file. A missing individual ignore file is never
// an error; only a failure to walk the root itself is fatal.
func NewTreeMatcher(root, customFilename string) (Matcher, error) {
	tm := &TreeMatcher{}

	if global, err := loadGlobalGitIgnore(); err == nil && len(global) > 0 {
		tm.layers = append(tm.layers, layer{baseDir: "", matcher: NewPatternMatcher(global)})
	}

	names := gitignoreFilenames
	if customFilename != "" {
		names = append(append([]string{}, names...), customFilename)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		relDir, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		if relDir == "." {
			relDir = ""
		}
		relDir = filepath.ToSlash(relDir)

		for _, name := range names {
			patterns, lerr := readPatternFile(filepath.Join(path, name))
			if lerr != nil {
				logger.Warn("failed to read ignore file", "path", path, "file", name, "error", lerr)
				continue
			}
			if len(patterns) > 0 {
				tm.layers = append(tm.layers, layer{baseDir: relDir, matcher: NewPatternMatcher(patterns)})
			}
		}

		if patterns, lerr := readPatternFile(filepath.Join(path, ".git", "info", "exclude")); lerr == nil && len(patterns) > 0 {
			tm.layers = append(tm.layers, layer{baseDir: relDir, matcher: NewPatternMatcher(patterns)})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(tm.layers) == 0 {
		return noOpMatcher{}, nil
	}
	return tm, nil
}

// Match reports whether relPath (relative to the scan root) is excluded by
// any applicable layer, honoring negation within and across layers.
func (tm *TreeMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	matched := false
	negated := false
	for _, l := range tm.layers {
		sub, ok := relativeTo(relPath, l.baseDir)
		if !ok || sub == "" {
			continue
		}
		segments := strings.Split(sub, "/")
		for _, pat := range l.matcher.patterns {
			if !pat.match(segments, isDir) {
				continue
			}
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

// relativeTo reports the path of relPath relative to baseDir (root-relative,
// "" meaning the scan root) and whether relPath lies at or beneath baseDir.
func relativeTo(relPath, baseDir string) (string, bool) {
	if baseDir == "" {
		return relPath, true
	}
	if relPath == baseDir {
		return "", true
	}
	prefix := baseDir + "/"
	if strings.HasPrefix(relPath, prefix) {
		return relPath[len(prefix):], true
	}
	return "", false
}

// loadGlobalGitIgnore reads the user's global git ignore file, consulting
// core.excludesfile in ~/.gitconfig and falling back to the conventional
// $XDG_CONFIG_HOME/git/ignore (or ~/.config/git/ignore) location.
func loadGlobalGitIgnore() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}

	if path := excludesFileFromGitconfig(filepath.Join(home, ".gitconfig")); path != "" {
		if patterns, err := readPatternFile(expandHome(path, home)); err == nil && patterns != nil {
			return patterns, nil
		}
	}

	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	return readPatternFile(filepath.Join(xdg, "git", "ignore"))
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~") {
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// excludesFileFromGitconfig does a minimal scan for "excludesfile = <path>"
// under a gitconfig file; it is not a full gitconfig parser.
func excludesFileFromGitconfig(path string) string {
	lines, err := readPatternFile(path)
	if err != nil || lines == nil {
		return ""
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "excludesfile")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("excludesfile"):]
		eq := strings.Index(rest, "=")
		if eq < 0 {
			continue
		}
		return strings.TrimSpace(rest[eq+1:])
	}
	return ""
}

// noOpMatcher matches nothing; used when no ignore patterns were found.
type noOpMatcher struct{}

func (noOpMatcher) Match(string, bool) bool { return false }
