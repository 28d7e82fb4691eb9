// Package scanner walks a root directory into a canonical model.FileTree,
// filtering entries through ignore files and CLI glob patterns, with
// sequential, parallel, and auto-selecting traversal strategies.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimblefs/kopy/internal/globset"
	"github.com/nimblefs/kopy/internal/ignore"
	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/logger"
	"github.com/nimblefs/kopy/internal/model"
)

// ProgressFunc is invoked after each entry is accepted into the tree, with
// cumulative (files, bytes) observed so far. When the parallel strategy is
// in use, invocations are serialized under a mutex, so implementations need
// not be concurrency-safe themselves.
type ProgressFunc func(cumulativeFiles int, cumulativeBytes int64)

// kopyTrashDir is the name of the executor's own trash directory, rejected
// as a source path when scanning the destination tree.
const kopyTrashDir = ".kopy_trash"

// filterCtx bundles the filters applied to every candidate entry, in the
// precedence order spec.md §4.3 requires: ignore files, then CLI globs
// (include overrides exclude), then the destination-internal-trash guard.
type filterCtx struct {
	ignoreMatcher     ignore.Matcher
	globs             *globset.Set
	isDestinationScan bool
}

func (f *filterCtx) included(relPath string, isDir bool) bool {
	if f.ignoreMatcher != nil && f.ignoreMatcher.Match(relPath, isDir) {
		return false
	}
	if f.globs.Excluded(relPath) {
		return false
	}
	if f.isDestinationScan && isWithinTrash(relPath) {
		return false
	}
	return true
}

func isWithinTrash(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	return relPath == kopyTrashDir || strings.HasPrefix(relPath, kopyTrashDir+"/")
}

// Scan builds a filterCtx from cfg (ignore files are collected by a separate
// walk of root before the traversal, and Auto mode adds a bounded probe
// walk, so root is read more than once), resolves the
// traversal strategy (respecting cfg.ScanMode), and returns the resulting
// FileTree. isDestinationScan should be true only when root is the
// configured destination, to enable the trash-directory guard.
func Scan(root string, cfg model.Config, isDestinationScan bool, progress ProgressFunc) (*model.FileTree, error) {
	log := logger.With("component", "scanner", "root", root)

	globs, err := cfg.Globs()
	if err != nil {
		return nil, kopyerr.Config(fmt.Sprintf("invalid glob pattern: %v", err))
	}

	matcher, err := ignore.NewTreeMatcher(root, ".kopyignore")
	if err != nil {
		return nil, kopyerr.IO(fmt.Errorf("failed to build ignore matcher: %w", err))
	}

	fctx := &filterCtx{ignoreMatcher: matcher, globs: globs, isDestinationScan: isDestinationScan}

	mode, err := ResolveScanMode(root, cfg, fctx)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved scan mode", "mode", modeName(mode))

	start := time.Now()
	tree := model.NewFileTree(root)

	switch mode {
	case ResolvedSequential:
		err = scanSequential(root, fctx, tree, progress)
	case ResolvedParallel:
		err = scanParallel(root, fctx, tree, max(cfg.Threads, 1), progress)
	}
	if err != nil {
		return nil, err
	}

	tree.SetScanDuration(time.Since(start))
	log.Info("scan complete",
		"files", tree.TotalFiles, "dirs", tree.TotalDirs,
		"bytes", tree.TotalSize, "duration", tree.ScanDuration)

	return tree, nil
}

func modeName(m ResolvedMode) string {
	if m == ResolvedSequential {
		return "sequential"
	}
	return "parallel"
}

// buildEntry l-stats absPath (never following the symlink) and constructs
// the corresponding model.FileEntry. ok is false when the entry should be
// silently skipped (special file) or warned-and-skipped (unreadable
// metadata or link target); err is non-nil only for a fatal condition.
func buildEntry(absPath, relPath string) (entry model.FileEntry, ok bool, err error) {
	info, statErr := os.Lstat(absPath)
	if statErr != nil {
		logger.Warn("failed to stat entry, skipping", "path", absPath, "error", statErr)
		return model.FileEntry{}, false, nil
	}

	mode := info.Mode()

	if mode&os.ModeSymlink != 0 {
		target, linkErr := os.Readlink(absPath)
		if linkErr != nil {
			logger.Warn("failed to read symlink target, skipping", "path", absPath, "error", linkErr)
			return model.FileEntry{}, false, nil
		}
		return model.NewSymlinkEntry(relPath, info.Size(), info.ModTime(), permBits(mode), target), true, nil
	}

	if mode&(os.ModeNamedPipe|os.ModeSocket|os.ModeDevice|os.ModeCharDevice) != 0 {
		return model.FileEntry{}, false, nil
	}

	if !mode.IsRegular() {
		return model.FileEntry{}, false, nil
	}

	return model.NewFileEntry(relPath, info.Size(), info.ModTime(), permBits(mode)), true, nil
}

func permBits(mode os.FileMode) uint32 {
	return uint32(mode.Perm())
}

// wrapReadDirErr classifies a failure to list a directory's contents into
// kopy's error taxonomy.
func wrapReadDirErr(path string, err error) error {
	return kopyerr.ClassifyIOError(path, err)
}
