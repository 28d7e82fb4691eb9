package scanner

import (
	"os"
	"path/filepath"

	"github.com/nimblefs/kopy/internal/model"
)

// scanSequential walks root depth-first on a single goroutine, in
// lexical order, applying fctx's filters and inserting accepted entries
// into tree as it goes.
func scanSequential(root string, fctx *filterCtx, tree *model.FileTree, progress ProgressFunc) error {
	var cumFiles int
	var cumBytes int64

	return walkDirSequential(root, root, "", fctx, tree, &cumFiles, &cumBytes, progress)
}

func walkDirSequential(root, dirAbs, dirRel string, fctx *filterCtx, tree *model.FileTree, cumFiles *int, cumBytes *int64, progress ProgressFunc) error {
	entries, err := os.ReadDir(dirAbs)
	if err != nil {
		return wrapReadDirErr(dirAbs, err)
	}

	for _, de := range entries {
		childAbs := filepath.Join(dirAbs, de.Name())
		childRel := joinRel(dirRel, de.Name())

		isDir := de.IsDir()
		if !isDir && de.Type()&os.ModeSymlink != 0 {
			// Symlinks are leaves regardless of what they point to.
			isDir = false
		}

		if !fctx.included(childRel, isDir) {
			continue
		}

		if isDir {
			tree.IncrementDirs()
			if err := walkDirSequential(root, childAbs, childRel, fctx, tree, cumFiles, cumBytes, progress); err != nil {
				return err
			}
			continue
		}

		entry, ok, err := buildEntry(childAbs, childRel)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		tree.Insert(childRel, entry)
		*cumFiles++
		*cumBytes += entry.Size
		if progress != nil {
			progress(*cumFiles, *cumBytes)
		}
	}

	return nil
}

func joinRel(dirRel, name string) string {
	if dirRel == "" {
		return name
	}
	return dirRel + "/" + name
}
