// Package diff compares two file trees and produces an ordered plan of
// actions that would bring the destination in line with the source.
package diff

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/nimblefs/kopy/internal/hashsum"
	"github.com/nimblefs/kopy/internal/model"
)

// CompareFiles runs the per-file cascade: symlink mismatch, symlink target
// equality, size, optional checksum comparison, then mtime. src and dst
// must share the same relative path; srcAbs/dstAbs are the absolute
// filesystem locations used to compute a side's digest on demand when that
// side has none cached.
func CompareFiles(src, dst model.FileEntry, srcAbs, dstAbs string, cfg model.Config) model.SyncAction {
	if src.IsSymlink != dst.IsSymlink {
		return model.NewOverwrite(src)
	}

	if src.IsSymlink {
		if src.SymlinkTarget == dst.SymlinkTarget {
			return model.NewSkip(src.Path)
		}
		return model.NewOverwrite(src)
	}

	if src.Size != dst.Size {
		return model.NewOverwrite(src)
	}

	if cfg.ChecksumMode {
		srcHash, err := digestOf(src, srcAbs)
		if err != nil {
			return model.NewOverwrite(src)
		}
		dstHash, err := digestOf(dst, dstAbs)
		if err != nil {
			return model.NewOverwrite(src)
		}
		if *srcHash == *dstHash {
			return model.NewSkip(src.Path)
		}
		return model.NewOverwrite(src)
	}

	if src.ModTime.After(dst.ModTime) {
		return model.NewOverwrite(src)
	}
	return model.NewSkip(src.Path)
}

// digestOf returns entry's cached hash if present, else computes it from
// absPath on demand.
func digestOf(entry model.FileEntry, absPath string) (*[32]byte, error) {
	if entry.Hash != nil {
		return entry.Hash, nil
	}
	h, err := hashsum.Hash(absPath)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GeneratePlan builds the full ordered action list for copying srcTree onto
// dstTree under cfg: new files are copied, existing files are compared,
// directory/file conflicts are resolved with deletes ahead of the copy that
// needs them, and (when cfg.DeleteMode is not DeleteNone) destination-only
// paths are removed. The returned plan is sorted by path.
func GeneratePlan(srcTree, dstTree *model.FileTree, srcRoot, dstRoot string, cfg model.Config) *model.Plan {
	plan := model.NewPlan()
	plannedDeletes := make(map[string]bool)

	if cfg.DeleteMode != model.DeleteNone {
		addConflictDeletes(srcTree, dstTree, plan, plannedDeletes)
	}

	for _, path := range sortedPaths(srcTree) {
		srcEntry, _ := srcTree.Get(path)

		if dstEntry, ok := dstTree.Get(path); ok {
			action := CompareFiles(srcEntry, dstEntry,
				filepath.Join(srcRoot, filepath.FromSlash(path)),
				filepath.Join(dstRoot, filepath.FromSlash(path)),
				cfg)
			plan.AddAction(action)
			continue
		}

		plan.AddAction(model.NewCopyNew(srcEntry))
	}

	if cfg.DeleteMode != model.DeleteNone {
		for _, path := range sortedPaths(dstTree) {
			if srcTree.Contains(path) {
				continue
			}
			if isCoveredByPlannedDelete(path, plannedDeletes) {
				continue
			}
			plan.AddAction(model.NewDelete(path))
		}
	}

	plan.SortByPath()
	return plan
}

// addConflictDeletes emits deletes for directory/file conflicts: a source
// path whose destination-side ancestor is a file, and a source file whose
// destination-side path is occupied by a directory. Every emitted path is
// recorded in planned so later orphan-delete and coverage checks can
// de-duplicate against it.
func addConflictDeletes(srcTree, dstTree *model.FileTree, plan *model.Plan, planned map[string]bool) {
	for _, path := range sortedPaths(srcTree) {
		for _, ancestor := range ancestorsOf(path) {
			if dstTree.Contains(ancestor) && !planned[ancestor] {
				planned[ancestor] = true
				plan.AddAction(model.NewDelete(ancestor))
			}
		}

		if dstTree.Contains(path) {
			continue
		}
		if hasDescendant(dstTree, path) && !planned[path] {
			planned[path] = true
			plan.AddAction(model.NewDelete(path))
		}
	}
}

// hasDescendant reports whether tree contains any entry strictly beneath
// path, meaning path itself is occupied by a directory in that tree.
func hasDescendant(tree *model.FileTree, path string) bool {
	prefix := path + "/"
	for _, p := range tree.Paths() {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// isCoveredByPlannedDelete reports whether path is itself, or lies beneath,
// an already-planned delete.
func isCoveredByPlannedDelete(path string, planned map[string]bool) bool {
	if planned[path] {
		return true
	}
	for _, ancestor := range ancestorsOf(path) {
		if planned[ancestor] {
			return true
		}
	}
	return false
}

// ancestorsOf returns every proper ancestor directory of a slash-separated
// relative path, root-most first.
func ancestorsOf(path string) []string {
	segments := strings.Split(path, "/")
	if len(segments) <= 1 {
		return nil
	}
	ancestors := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		ancestors = append(ancestors, strings.Join(segments[:i], "/"))
	}
	return ancestors
}

// sortedPaths returns tree's paths in a deterministic order. The final plan
// is re-sorted by model.Plan.SortByPath regardless, but a stable
// intermediate order keeps conflict-delete emission reproducible.
func sortedPaths(tree *model.FileTree) []string {
	paths := tree.Paths()
	sort.Strings(paths)
	return paths
}
