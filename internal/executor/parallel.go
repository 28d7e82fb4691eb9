package executor

import (
	"fmt"
	"strings"

	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/model"
)

// smallTransferLimit is the entry size at or below which a CopyNew/Overwrite
// is eligible for dispatch to a worker goroutine in ExecuteParallel.
const smallTransferLimit = 16 * 1024 * 1024

type actionResult struct {
	index  int
	action model.SyncAction
	bytes  int64
	err    error
}

// applyActionFn indirects applyAction so tests can substitute a stand-in
// that panics, exercising the worker-panic-recovery path below.
var applyActionFn = applyAction

// ExecuteParallel runs plan like Execute, but dispatches small transfers
// (CopyNew/Overwrite of non-symlink entries at or under smallTransferLimit)
// to a pool of max(cfg.Threads, 1) worker goroutines. Every other action —
// large transfers, deletes, symlink copies — acts as a barrier: all
// previously dispatched small transfers are drained (results collected,
// events emitted) before it runs on the calling goroutine. ActionStart for
// a small transfer is emitted at submission time, in plan order; its
// ActionSuccess/ActionError is emitted in join-completion order, which may
// differ from submission order.
func ExecuteParallel(plan *model.Plan, cfg model.Config, srcRoot, destRoot string, sink EventSink) (Stats, error) {
	var stats Stats
	var failures []string
	stats.TotalActions = len(plan.Actions)

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	sem := make(chan struct{}, threads)
	results := make(chan actionResult, len(plan.Actions))
	pending := 0

	drain := func(n int) {
		for i := 0; i < n; i++ {
			r := <-results
			finish(&stats, &failures, sink, r.index, stats.TotalActions, r.action, r.bytes, r.err)
		}
	}

	for i, action := range plan.Actions {
		index := i + 1

		if isSmallTransfer(action) {
			emit(sink, Event{Kind: EventActionStart, Index: index, Total: stats.TotalActions, ActionName: action.ActionName(), Path: action.PathKey()})
			pending++
			go func(idx int, a model.SyncAction) {
				sem <- struct{}{}
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						results <- actionResult{index: idx, action: a, err: kopyerr.Validation("parallel worker thread panicked")}
					}
				}()
				bytes, err := applyActionFn(a, cfg, srcRoot, destRoot)
				results <- actionResult{index: idx, action: a, bytes: bytes, err: err}
			}(index, action)
			continue
		}

		drain(pending)
		pending = 0

		emit(sink, Event{Kind: EventActionStart, Index: index, Total: stats.TotalActions, ActionName: action.ActionName(), Path: action.PathKey()})
		bytes, err := applyAction(action, cfg, srcRoot, destRoot)
		finish(&stats, &failures, sink, index, stats.TotalActions, action, bytes, err)
	}

	drain(pending)

	emit(sink, Event{Kind: EventComplete, Total: stats.TotalActions, Stats: stats})

	if stats.FailedActions > 0 {
		return stats, kopyerr.Validation(strings.Join(failures, "; "))
	}
	return stats, nil
}

func isSmallTransfer(action model.SyncAction) bool {
	if !action.RequiresTransfer() || action.Entry.IsSymlink {
		return false
	}
	return action.Entry.Size <= smallTransferLimit
}

func finish(stats *Stats, failures *[]string, sink EventSink, index, total int, action model.SyncAction, bytes int64, err error) {
	if err != nil {
		stats.FailedActions++
		emit(sink, Event{Kind: EventActionError, Index: index, Total: total, ActionName: action.ActionName(), Path: action.PathKey(), Err: err})
		if len(*failures) < maxSummaryExamples {
			*failures = append(*failures, fmt.Sprintf("%s: %v", action.PathKey(), err))
		}
		return
	}
	stats.CompletedActions++
	stats.BytesCopied += bytes
	emit(sink, Event{Kind: EventActionSuccess, Index: index, Total: total, ActionName: action.ActionName(), Path: action.PathKey(), BytesCopied: bytes})
}
