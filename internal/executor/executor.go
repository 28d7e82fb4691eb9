// Package executor carries out a diff plan against the filesystem: copies,
// overwrites, and deletes (permanent or trashed), reporting progress
// through an event stream and aggregating failures into one summary error.
package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/model"
	"github.com/nimblefs/kopy/internal/trash"
)

const maxSummaryExamples = 3

// Execute runs plan's actions in order against srcRoot/destRoot, honoring
// cfg.DeleteMode for Delete actions, emitting an event per action plus a
// terminal Complete event. It returns Stats on full success; if any action
// failed, it returns a Validation error summarizing up to three failures
// (the returned Stats still reflects what happened and is available via the
// Complete event).
func Execute(plan *model.Plan, cfg model.Config, srcRoot, destRoot string, sink EventSink) (Stats, error) {
	var stats Stats
	var failures []string

	stats.TotalActions = len(plan.Actions)

	for i, action := range plan.Actions {
		index := i + 1
		emit(sink, Event{Kind: EventActionStart, Index: index, Total: stats.TotalActions, ActionName: action.ActionName(), Path: action.PathKey()})

		bytesCopied, err := applyAction(action, cfg, srcRoot, destRoot)
		finish(&stats, &failures, sink, index, stats.TotalActions, action, bytesCopied, err)
	}

	emit(sink, Event{Kind: EventComplete, Total: stats.TotalActions, Stats: stats})

	if stats.FailedActions > 0 {
		return stats, kopyerr.Validation(strings.Join(failures, "; "))
	}
	return stats, nil
}

// applyAction performs one action and returns the number of bytes
// transferred (0 for anything but a successful CopyNew/Overwrite of
// non-symlink content).
func applyAction(action model.SyncAction, cfg model.Config, srcRoot, destRoot string) (int64, error) {
	switch action.Kind {
	case model.ActionSkip:
		return 0, nil

	case model.ActionCopyNew, model.ActionOverwrite:
		destAbs := filepath.Join(destRoot, filepath.FromSlash(action.Path))
		if action.Entry.IsSymlink {
			return 0, copySymlink(destAbs, action.Entry.SymlinkTarget)
		}
		srcAbs := filepath.Join(srcRoot, filepath.FromSlash(action.Path))
		return copyFileAtomic(srcAbs, destAbs)

	case model.ActionDelete:
		return 0, applyDelete(action.Path, destRoot, cfg.DeleteMode)

	case model.ActionMove:
		return 0, kopyerr.Validation("move actions are reserved and not supported")

	default:
		return 0, kopyerr.Validation(fmt.Sprintf("unknown action kind: %v", action.Kind))
	}
}

// applyDelete dispatches a Delete action per mode. A missing destination
// entry is always a success: there is nothing left to do.
func applyDelete(relPath, destRoot string, mode model.DeleteMode) error {
	destAbs := filepath.Join(destRoot, filepath.FromSlash(relPath))

	info, err := os.Lstat(destAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return kopyerr.ClassifyIOError(destAbs, err)
	}

	switch mode {
	case model.DeleteNone:
		return nil

	case model.DeletePermanent:
		if info.IsDir() {
			if err := os.RemoveAll(destAbs); err != nil {
				return kopyerr.ClassifyIOError(destAbs, err)
			}
			return nil
		}
		if err := os.Remove(destAbs); err != nil {
			return kopyerr.ClassifyIOError(destAbs, err)
		}
		return nil

	case model.DeleteTrash:
		return trash.MoveToTrash(destAbs, destRoot, relPath, trashCopyAdapter)

	default:
		return kopyerr.Validation(fmt.Sprintf("unknown delete mode: %v", mode))
	}
}

// trashCopyAdapter bridges the executor's byte-count-returning atomic copy
// to the trash package's simpler error-only CopyFunc signature, used only
// for the trash subsystem's cross-device rename fallback.
func trashCopyAdapter(srcAbs, dstAbs string) error {
	_, err := copyFileAtomic(srcAbs, dstAbs)
	return err
}
