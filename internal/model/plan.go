package model

import (
	"fmt"
	"sort"
)

// PlanStats are the aggregate counters maintained incrementally as actions
// are appended to a Plan.
type PlanStats struct {
	TotalFiles     int   // CopyNew + Overwrite
	TotalBytes     int64 // sum of sizes of CopyNew + Overwrite entries
	CopyCount      int
	OverwriteCount int
	DeleteCount    int
	SkipCount      int
}

// EstimateDuration gives a rough ETA in seconds for transferring TotalBytes
// at bytesPerSecond, plus an assumed 10ms-per-file filesystem overhead. It
// never accounts for network latency or contention; it is a coarse planning
// aid, not a guarantee. FormatPlanPreview does not include it.
func (s PlanStats) EstimateDuration(bytesPerSecond int64) int64 {
	if bytesPerSecond <= 0 || s.TotalBytes <= 0 {
		return 0
	}
	baseSeconds := s.TotalBytes / bytesPerSecond
	overheadMillis := int64(s.TotalFiles) * 10
	return baseSeconds + overheadMillis/1000
}

// EstimateDurationHuman formats EstimateDuration as "Xh Ym", "Xm Ys", "Xs",
// or "0s".
func (s PlanStats) EstimateDurationHuman(bytesPerSecond int64) string {
	total := s.EstimateDuration(bytesPerSecond)
	if total == 0 {
		return "0s"
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Plan is an ordered sequence of SyncAction plus aggregate counters. The
// counters always agree with the action list; they are updated as actions
// are appended via AddAction, never recomputed from scratch.
type Plan struct {
	Actions []SyncAction
	Stats   PlanStats
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{}
}

// AddAction appends action to the plan and updates Stats accordingly. Move
// actions are appended but not counted in Stats (reserved, never emitted by
// the planner).
func (p *Plan) AddAction(action SyncAction) {
	switch action.Kind {
	case ActionCopyNew:
		p.Stats.CopyCount++
		p.Stats.TotalFiles++
		p.Stats.TotalBytes += action.Entry.Size
	case ActionOverwrite:
		p.Stats.OverwriteCount++
		p.Stats.TotalFiles++
		p.Stats.TotalBytes += action.Entry.Size
	case ActionDelete:
		p.Stats.DeleteCount++
	case ActionSkip:
		p.Stats.SkipCount++
	}
	p.Actions = append(p.Actions, action)
}

// SortByPath orders actions by their displayable path key; actions with no
// path sort after those with a path (this model only produces Skip actions
// with a path, so in practice every action sorts by PathKey).
func (p *Plan) SortByPath() {
	sort.SliceStable(p.Actions, func(i, j int) bool {
		a, b := p.Actions[i].PathKey(), p.Actions[j].PathKey()
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
}

// HasExecutableActions reports whether the plan contains at least one
// non-Skip action.
func (p *Plan) HasExecutableActions() bool {
	for _, a := range p.Actions {
		if !a.IsSkip() {
			return true
		}
	}
	return false
}
