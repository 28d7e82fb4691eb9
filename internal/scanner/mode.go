package scanner

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nimblefs/kopy/internal/model"
)

// ResolvedMode is the traversal strategy actually used for a scan, after
// Auto has been resolved one way or the other.
type ResolvedMode int

const (
	ResolvedSequential ResolvedMode = iota
	ResolvedParallel
)

// probeEntryLimit and probeTimeBudget bound the cost of the Auto-mode probe:
// it stops after visiting this many entries or running this long, whichever
// comes first.
const (
	probeEntryLimit = 512
	probeTimeBudget = 8 * time.Millisecond
)

// scanShape summarizes what a bounded probe observed about a tree, enough
// to pick a traversal strategy without fully walking it.
type scanShape struct {
	probedEntries   int
	selectedEntries int
	sampledFiles    int
	sampledDirs     int
	maxDepth        int
}

// ResolveScanMode turns the configured ScanMode into a concrete traversal
// strategy. Sequential and Parallel pass straight through; Auto probes the
// tree shape unless threads <= 1, in which case probing would be pointless
// and it collapses to Sequential directly.
func ResolveScanMode(root string, cfg model.Config, fctx *filterCtx) (ResolvedMode, error) {
	switch cfg.ScanMode {
	case model.ScanSequential:
		return ResolvedSequential, nil
	case model.ScanParallel:
		return ResolvedParallel, nil
	}

	if cfg.Threads <= 1 {
		return ResolvedSequential, nil
	}

	shape, err := sampleScanShape(root, fctx)
	if err != nil {
		return ResolvedSequential, err
	}
	return selectModeFromShape(shape), nil
}

// selectModeFromShape applies the heuristic: small trees (fewer than 200
// probed entries) aren't worth parallelizing, and a deep, directory-heavy tree with few
// files doesn't parallelize well either (too little file-level work per
// directory to amortize goroutine overhead). Everything else runs Parallel.
func selectModeFromShape(s scanShape) ResolvedMode {
	if s.probedEntries < 200 {
		return ResolvedSequential
	}

	deepAndNarrow := s.maxDepth >= 64 && s.sampledFiles <= 1200 && s.sampledDirs > s.sampledFiles
	if deepAndNarrow {
		return ResolvedSequential
	}

	return ResolvedParallel
}

// sampleScanShape walks root depth-first in lexical order via filepath.WalkDir, up to
// probeEntryLimit entries or probeTimeBudget of wall time, recording the
// shape of what it saw. It never mutates any tree state and applies the
// same filters Scan itself would, so the probe's notion of "selected"
// entries matches what a real scan would keep.
func sampleScanShape(root string, fctx *filterCtx) (scanShape, error) {
	var s scanShape
	deadline := time.Now().Add(probeTimeBudget)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}

		s.probedEntries++

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = d.Name()
		}

		if sep := countSeparators(relPath); sep+1 > s.maxDepth {
			s.maxDepth = sep + 1
		}

		if d.IsDir() {
			s.sampledDirs++
		} else {
			s.sampledFiles++
		}

		if fctx.included(filepath.ToSlash(relPath), d.IsDir()) {
			s.selectedEntries++
		}

		if s.probedEntries >= probeEntryLimit || time.Now().After(deadline) {
			return errProbeBudgetExhausted
		}
		return nil
	})
	if err != nil && err != errProbeBudgetExhausted {
		return s, err
	}
	return s, nil
}

func countSeparators(relPath string) int {
	n := 0
	for _, c := range filepath.ToSlash(relPath) {
		if c == '/' {
			n++
		}
	}
	return n
}

// errProbeBudgetExhausted is a sentinel used only to unwind WalkDir early;
// it is never returned to a caller of sampleScanShape.
var errProbeBudgetExhausted = &probeBudgetError{}

type probeBudgetError struct{}

func (*probeBudgetError) Error() string { return "scan probe budget exhausted" }
