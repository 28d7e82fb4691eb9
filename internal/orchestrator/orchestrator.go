// Package orchestrator composes scanning, diffing, and execution into the
// two sync pipelines: a full scan-diff-execute cycle for a directory source,
// and a degenerate one-entry comparison for a single-file source.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nimblefs/kopy/internal/diff"
	"github.com/nimblefs/kopy/internal/executor"
	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/logger"
	"github.com/nimblefs/kopy/internal/model"
	"github.com/nimblefs/kopy/internal/scanner"
)

// ScanProgressFunc reports incremental scan progress for one side of the
// sync ("source" or "destination").
type ScanProgressFunc func(side string, cumulativeFiles int, cumulativeBytes int64)

// Hooks lets a caller (typically a cobra command) observe a run without the
// orchestrator importing any presentation library itself.
type Hooks struct {
	// ScanProgress is invoked periodically while each side is scanned.
	ScanProgress ScanProgressFunc

	// PlanReady is invoked once the diff plan has been generated, before any
	// dry-run or execution decision is made.
	PlanReady func(plan *model.Plan)

	// ExecutionEvent is invoked for every executor.Event during a real run.
	// It is never invoked for a dry run, since nothing executes.
	ExecutionEvent func(evt executor.Event)
}

// Result summarizes a completed Run: the generated plan, whether anything
// was actually executed (false for dry runs and no-op plans), and — when
// execution happened — the resulting stats.
type Result struct {
	Plan     *model.Plan
	DryRun   bool
	Executed bool
	Stats    executor.Stats
	Errors   []string // the executor's aggregated error text from a failed run, as a single element
}

// Run executes one full sync cycle for cfg: validates it, scans both sides,
// builds a diff plan, and — unless cfg.DryRun or the plan has nothing to
// do — executes it. When cfg.Source is a regular file, it delegates to
// runSingleFile instead of scanning a tree.
func Run(cfg model.Config, hooks Hooks) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, kopyerr.Config(err.Error())
	}

	srcInfo, err := os.Stat(cfg.Source)
	if err != nil {
		return Result{}, kopyerr.ClassifyIOError(cfg.Source, err)
	}
	if !srcInfo.IsDir() {
		return runSingleFile(cfg, hooks)
	}

	return runDirectory(cfg, hooks)
}

func runDirectory(cfg model.Config, hooks Hooks) (Result, error) {
	log := logger.With("source", cfg.Source, "destination", cfg.Destination, "operation", "sync")

	start := time.Now()
	srcTree, err := scanner.Scan(cfg.Source, cfg, false, adaptProgress("source", hooks.ScanProgress))
	if err != nil {
		log.Error("source scan failed", "error", err)
		return Result{}, err
	}
	log.Info("source scan complete", "files", srcTree.TotalFiles, "bytes", srcTree.TotalSize, "duration", time.Since(start))

	var destTree *model.FileTree
	if _, err := os.Stat(cfg.Destination); err == nil {
		destStart := time.Now()
		destTree, err = scanner.Scan(cfg.Destination, cfg, true, adaptProgress("destination", hooks.ScanProgress))
		if err != nil {
			log.Error("destination scan failed", "error", err)
			return Result{}, err
		}
		log.Info("destination scan complete", "files", destTree.TotalFiles, "bytes", destTree.TotalSize, "duration", time.Since(destStart))
	} else {
		destTree = model.NewFileTree(cfg.Destination)
	}

	plan := diff.GeneratePlan(srcTree, destTree, cfg.Source, cfg.Destination, cfg)
	if hooks.PlanReady != nil {
		hooks.PlanReady(plan)
	}

	if cfg.DryRun {
		return Result{Plan: plan, DryRun: true}, nil
	}
	if !plan.HasExecutableActions() {
		return Result{Plan: plan}, nil
	}

	return executePlan(plan, cfg, cfg.Source, cfg.Destination, hooks)
}

// runSingleFile handles a source that is a regular file or symlink rather
// than a directory: it builds one-entry source/destination trees, compares
// them directly, and forces DeleteMode to None (an orphan-delete policy has
// no meaning when there is nothing to enumerate).
func runSingleFile(cfg model.Config, hooks Hooks) (Result, error) {
	if cfg.DeleteMode != model.DeleteNone {
		logger.Warn("delete flags are ignored when source is a single file")
		cfg.DeleteMode = model.DeleteNone
	}

	srcEntry, err := buildFileEntry(cfg.Source, "")
	if err != nil {
		return Result{}, err
	}

	destPath, err := resolveSingleFileDestination(cfg)
	if err != nil {
		return Result{}, err
	}
	cfg.Destination = destPath

	destEntry, destExists, err := statOptionalEntry(destPath)
	if err != nil {
		return Result{}, err
	}

	plan := model.NewPlan()
	if !destExists {
		plan.AddAction(model.NewCopyNew(srcEntry))
	} else {
		srcAbs := cfg.Source
		plan.AddAction(diff.CompareFiles(srcEntry, destEntry, srcAbs, destPath, cfg))
	}
	plan.SortByPath()

	if hooks.PlanReady != nil {
		hooks.PlanReady(plan)
	}

	if cfg.DryRun {
		return Result{Plan: plan, DryRun: true}, nil
	}
	if !plan.HasExecutableActions() {
		return Result{Plan: plan}, nil
	}

	srcRoot := filepath.Dir(cfg.Source)
	destRoot := filepath.Dir(destPath)
	return executeSingleFilePlan(plan, cfg, srcRoot, destRoot, filepath.Base(cfg.Source), hooks)
}

// executeSingleFilePlan rewrites the single action's path to its basename
// so it can run through the ordinary executor against the parent
// directories of source and destination. The returned Result's plan carries
// the basename as each action's path.
func executeSingleFilePlan(plan *model.Plan, cfg model.Config, srcRoot, destRoot, base string, hooks Hooks) (Result, error) {
	rebased := model.NewPlan()
	for _, a := range plan.Actions {
		a.Path = base
		a.Entry.Path = base
		rebased.AddAction(a)
	}

	return executePlan(rebased, cfg, srcRoot, destRoot, hooks)
}

func executePlan(plan *model.Plan, cfg model.Config, srcRoot, destRoot string, hooks Hooks) (Result, error) {
	sink := func(evt executor.Event) {
		if hooks.ExecutionEvent != nil {
			hooks.ExecutionEvent(evt)
		}
	}

	var stats executor.Stats
	var err error
	if cfg.Threads > 1 {
		stats, err = executor.ExecuteParallel(plan, cfg, srcRoot, destRoot, sink)
	} else {
		stats, err = executor.Execute(plan, cfg, srcRoot, destRoot, sink)
	}

	result := Result{Plan: plan, Executed: true, Stats: stats}
	if err != nil {
		result.Errors = []string{err.Error()}
	}
	return result, err
}

func adaptProgress(side string, fn ScanProgressFunc) scanner.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(cumulativeFiles int, cumulativeBytes int64) {
		fn(side, cumulativeFiles, cumulativeBytes)
	}
}

func buildFileEntry(path, relPath string) (model.FileEntry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return model.FileEntry{}, kopyerr.ClassifyIOError(path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return model.FileEntry{}, kopyerr.ClassifyIOError(path, err)
		}
		return model.NewSymlinkEntry(relPath, info.Size(), info.ModTime(), uint32(info.Mode().Perm()), target), nil
	}
	return model.NewFileEntry(relPath, info.Size(), info.ModTime(), uint32(info.Mode().Perm())), nil
}

// statOptionalEntry stats path and reports whether it exists. A missing
// path is not an error: it just means there is nothing to compare against.
func statOptionalEntry(path string) (model.FileEntry, bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.FileEntry{}, false, nil
		}
		return model.FileEntry{}, false, kopyerr.ClassifyIOError(path, err)
	}
	if info.IsDir() {
		return model.FileEntry{}, false, kopyerr.Config(fmt.Sprintf("destination resolves to a directory, expected a file path: %s", path))
	}

	entry, err := buildFileEntry(path, "")
	return entry, err == nil, err
}

// resolveSingleFileDestination appends the source's basename to the
// destination when the destination is an existing directory, and otherwise
// uses the destination path verbatim.
func resolveSingleFileDestination(cfg model.Config) (string, error) {
	info, err := os.Stat(cfg.Destination)
	if err == nil && info.IsDir() {
		base := filepath.Base(cfg.Source)
		if base == "." || base == string(filepath.Separator) {
			return "", kopyerr.Config("invalid source file name")
		}
		return filepath.Join(cfg.Destination, base), nil
	}
	return cfg.Destination, nil
}
