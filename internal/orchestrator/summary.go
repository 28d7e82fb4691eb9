package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nimblefs/kopy/internal/model"
)

// FormatPlanPreview renders the summary printed before any dry-run listing
// or real execution: one line with the counts of each action kind, then a
// line with the total bytes that would be transferred.
func FormatPlanPreview(plan *model.Plan) string {
	stats := plan.Stats
	return fmt.Sprintf(
		"Plan:\n  Copy: %s  Update: %s  Delete: %s  Skip: %s\n  Total bytes to transfer: %s",
		color.GreenString("%d", stats.CopyCount),
		color.YellowString("%d", stats.OverwriteCount),
		color.RedString("%d", stats.DeleteCount),
		fmt.Sprintf("%d", stats.SkipCount),
		humanize.Bytes(uint64(stats.TotalBytes)),
	)
}

// FormatDryRunActions renders the full per-action listing shown when
// cfg.DryRun is set, in the plan's sorted order. Skip actions are counted
// but not listed individually.
func FormatDryRunActions(plan *model.Plan) string {
	if len(plan.Actions) == 0 {
		return "Dry-run actions:\n  (no planned actions)"
	}

	lines := make([]string, 0, len(plan.Actions)+1)
	lines = append(lines, "Dry-run actions:")

	skipped := 0
	for _, action := range plan.Actions {
		switch action.Kind {
		case model.ActionCopyNew:
			lines = append(lines, fmt.Sprintf("  %s      %s", color.GreenString("COPY"), action.Path))
		case model.ActionOverwrite:
			lines = append(lines, fmt.Sprintf("  %s    %s", color.YellowString("UPDATE"), action.Path))
		case model.ActionDelete:
			lines = append(lines, fmt.Sprintf("  %s    %s", color.RedString("DELETE"), action.Path))
		case model.ActionMove:
			lines = append(lines, fmt.Sprintf("  MOVE      %s -> %s", action.MoveFrom, action.MoveTo))
		case model.ActionSkip:
			skipped++
		}
	}

	if skipped > 0 {
		lines = append(lines, fmt.Sprintf("  (%d unchanged file(s) omitted)", skipped))
	}

	return strings.Join(lines, "\n")
}

// FormatErrorSummary groups failure messages by kopy error kind and renders
// up to three examples per group, matching the aggregation the executor
// itself performs for its own Validation error but at the orchestrator
// level where kind labels are available.
func FormatErrorSummary(errorsByKind map[string][]string) string {
	if len(errorsByKind) == 0 {
		return ""
	}

	kinds := make([]string, 0, len(errorsByKind))
	for k := range errorsByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	lines := []string{"Error summary:"}
	for _, kind := range kinds {
		items := errorsByKind[kind]
		lines = append(lines, fmt.Sprintf("  %s (%d):", kind, len(items)))
		shown := items
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, msg := range shown {
			lines = append(lines, fmt.Sprintf("    - %s", msg))
		}
		if len(items) > 3 {
			lines = append(lines, fmt.Sprintf("    - ... %d more", len(items)-3))
		}
	}
	return strings.Join(lines, "\n")
}
