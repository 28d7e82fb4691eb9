package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimblefs/kopy/internal/globset"
)

// ScanMode selects the scanner's traversal strategy.
type ScanMode int

const (
	// ScanAuto probes the tree shape and picks Sequential or Parallel.
	ScanAuto ScanMode = iota
	ScanSequential
	ScanParallel
)

// String renders the scan mode for flag help text and logging.
func (m ScanMode) String() string {
	switch m {
	case ScanSequential:
		return "sequential"
	case ScanParallel:
		return "parallel"
	default:
		return "auto"
	}
}

// ParseScanMode parses a CLI flag value into a ScanMode.
func ParseScanMode(s string) (ScanMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ScanAuto, nil
	case "sequential":
		return ScanSequential, nil
	case "parallel":
		return ScanParallel, nil
	default:
		return ScanAuto, fmt.Errorf("unknown scan mode: %q", s)
	}
}

// Config is the full set of recognized run options.
type Config struct {
	Source      string
	Destination string

	DryRun       bool
	ChecksumMode bool
	DeleteMode   DeleteMode

	ExcludePatterns []string
	IncludePatterns []string

	Threads  int
	ScanMode ScanMode

	// Reserved: accepted and ignored by the core until those features are
	// specified (spec.md §9).
	BandwidthLimit int64 // bytes/sec, 0 means unset
	BackupDir      string
	Watch          bool
	WatchSettle    int // seconds
}

// DefaultConfig returns a Config with the documented defaults: four worker
// threads and Auto scan mode.
func DefaultConfig(source, destination string) Config {
	return Config{
		Source:      source,
		Destination: destination,
		Threads:     4,
		ScanMode:    ScanAuto,
	}
}

// Globs compiles the configuration's exclude/include glob patterns.
func (c Config) Globs() (*globset.Set, error) {
	return globset.New(c.ExcludePatterns, c.IncludePatterns)
}

// Validate runs the configuration-validation checks of spec.md §4.1, in
// order, before any filesystem mutation is attempted. It returns a
// descriptive error on the first violation found.
func (c Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source path is required")
	}
	if c.Destination == "" {
		return fmt.Errorf("destination path is required")
	}

	srcInfo, err := os.Stat(c.Source)
	if err != nil {
		return fmt.Errorf("source does not exist: %s", c.Source)
	}
	if !srcInfo.Mode().IsRegular() && !srcInfo.IsDir() {
		return fmt.Errorf("source must be a regular file or directory: %s", c.Source)
	}

	if srcInfo.IsDir() {
		if destInfo, err := os.Stat(c.Destination); err == nil && !destInfo.IsDir() {
			return fmt.Errorf("destination exists and is not a directory: %s", c.Destination)
		}
	}

	cleanSrc := filepath.Clean(c.Source)
	cleanDst := filepath.Clean(c.Destination)
	if cleanSrc == cleanDst {
		return fmt.Errorf("source and destination must not be identical: %s", cleanSrc)
	}

	canonSrc, err := canonicalize(c.Source)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	canonDst, err := canonicalize(c.Destination)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}
	if canonSrc == canonDst {
		return fmt.Errorf("source and destination resolve to the same location: %s", canonSrc)
	}

	if srcInfo.IsDir() {
		if isStrictDescendant(canonDst, canonSrc) || isStrictDescendant(canonSrc, canonDst) {
			return fmt.Errorf("source and destination must not be nested within each other")
		}
	}

	if _, err := c.Globs(); err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	return nil
}

// canonicalize resolves path to an absolute, symlink-free form. When path
// (or a suffix of it) does not yet exist, it canonicalizes the nearest
// existing ancestor and re-appends the missing suffix lexically, falling
// back to pure lexical normalization when no ancestor exists.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	var missing []string
	current := abs
	for {
		parent := filepath.Dir(current)
		if parent == current {
			// Reached the filesystem root without finding an existing ancestor.
			return filepath.Clean(abs), nil
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent

		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
}

// isStrictDescendant reports whether p is strictly nested under ancestor.
func isStrictDescendant(p, ancestor string) bool {
	if p == ancestor {
		return false
	}
	rel, err := filepath.Rel(ancestor, p)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
