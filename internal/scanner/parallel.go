package scanner

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/nimblefs/kopy/internal/model"
)

// scanParallel walks root with a bounded pool of worker goroutines, one
// spawned per subdirectory and gated by a semaphore sized to maxWorkers.
// tree insertion and progress callbacks are serialized under a single
// mutex, matching the teacher's mutex-serialized-callback idiom.
func scanParallel(root string, fctx *filterCtx, tree *model.FileTree, maxWorkers int, progress ProgressFunc) error {
	pw := &parallelWalker{
		sem:      make(chan struct{}, maxWorkers),
		tree:     tree,
		fctx:     fctx,
		progress: progress,
	}

	pw.wg.Add(1)
	pw.walkDir(root, root, "")
	pw.wg.Wait()

	return pw.firstErr
}

type parallelWalker struct {
	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	tree     *model.FileTree
	fctx     *filterCtx
	progress ProgressFunc
	cumFiles int
	cumBytes int64

	errOnce  sync.Once
	firstErr error
}

func (pw *parallelWalker) fail(err error) {
	pw.errOnce.Do(func() { pw.firstErr = err })
}

// walkDir lists dirAbs and dispatches each child: subdirectories are handed
// to a new goroutine bounded by pw.sem, files are recorded inline. The
// caller must have already called pw.wg.Add(1) for this invocation; walkDir
// calls pw.wg.Done() before returning.
func (pw *parallelWalker) walkDir(root, dirAbs, dirRel string) {
	defer pw.wg.Done()

	entries, err := os.ReadDir(dirAbs)
	if err != nil {
		pw.fail(wrapReadDirErr(dirAbs, err))
		return
	}

	for _, de := range entries {
		childAbs := filepath.Join(dirAbs, de.Name())
		childRel := joinRel(dirRel, de.Name())
		isDir := de.IsDir()

		if !pw.fctx.included(childRel, isDir) {
			continue
		}

		if isDir {
			pw.mu.Lock()
			pw.tree.IncrementDirs()
			pw.mu.Unlock()

			pw.wg.Add(1)
			go func(abs, rel string) {
				pw.sem <- struct{}{}
				defer func() { <-pw.sem }()
				pw.walkDir(root, abs, rel)
			}(childAbs, childRel)
			continue
		}

		entry, ok, err := buildEntry(childAbs, childRel)
		if err != nil {
			pw.fail(err)
			continue
		}
		if !ok {
			continue
		}

		pw.mu.Lock()
		pw.tree.Insert(childRel, entry)
		pw.cumFiles++
		pw.cumBytes += entry.Size
		if pw.progress != nil {
			pw.progress(pw.cumFiles, pw.cumBytes)
		}
		pw.mu.Unlock()
	}
}
