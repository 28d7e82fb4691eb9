package model

import (
	"testing"
	"time"
)

func TestPlanAddActionUpdatesStats(t *testing.T) {
	p := NewPlan()

	p.AddAction(NewCopyNew(NewFileEntry("a.txt", 100, time.Now(), 0o644)))
	p.AddAction(NewOverwrite(NewFileEntry("b.txt", 50, time.Now(), 0o644)))
	p.AddAction(NewDelete("c.txt"))
	p.AddAction(NewSkip("d.txt"))

	if p.Stats.CopyCount != 1 {
		t.Errorf("CopyCount = %d, want 1", p.Stats.CopyCount)
	}
	if p.Stats.OverwriteCount != 1 {
		t.Errorf("OverwriteCount = %d, want 1", p.Stats.OverwriteCount)
	}
	if p.Stats.DeleteCount != 1 {
		t.Errorf("DeleteCount = %d, want 1", p.Stats.DeleteCount)
	}
	if p.Stats.SkipCount != 1 {
		t.Errorf("SkipCount = %d, want 1", p.Stats.SkipCount)
	}
	if p.Stats.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", p.Stats.TotalFiles)
	}
	if p.Stats.TotalBytes != 150 {
		t.Errorf("TotalBytes = %d, want 150", p.Stats.TotalBytes)
	}
	if len(p.Actions) != 4 {
		t.Errorf("len(Actions) = %d, want 4", len(p.Actions))
	}
}

func TestPlanSortByPath(t *testing.T) {
	p := NewPlan()
	p.AddAction(NewDelete("z.txt"))
	p.AddAction(NewDelete("a.txt"))
	p.AddAction(NewDelete("m.txt"))

	p.SortByPath()

	want := []string{"a.txt", "m.txt", "z.txt"}
	for i, w := range want {
		if p.Actions[i].Path != w {
			t.Errorf("Actions[%d].Path = %q, want %q", i, p.Actions[i].Path, w)
		}
	}
}

func TestPlanHasExecutableActions(t *testing.T) {
	p := NewPlan()
	p.AddAction(NewSkip("a.txt"))
	if p.HasExecutableActions() {
		t.Error("a plan with only Skip actions should report no executable actions")
	}

	p.AddAction(NewDelete("b.txt"))
	if !p.HasExecutableActions() {
		t.Error("a plan with a Delete action should report an executable action")
	}
}

func TestEstimateDuration(t *testing.T) {
	stats := PlanStats{TotalBytes: 1000, TotalFiles: 2}

	if got := stats.EstimateDuration(0); got != 0 {
		t.Errorf("EstimateDuration(0) = %d, want 0", got)
	}

	stats2 := PlanStats{TotalBytes: 0, TotalFiles: 0}
	if got := stats2.EstimateDuration(100); got != 0 {
		t.Errorf("EstimateDuration() with zero bytes = %d, want 0", got)
	}

	stats3 := PlanStats{TotalBytes: 10000, TotalFiles: 5}
	if got := stats3.EstimateDuration(1000); got != 10 {
		t.Errorf("EstimateDuration() = %d, want 10", got)
	}
}

func TestEstimateDurationHuman(t *testing.T) {
	tests := []struct {
		name  string
		stats PlanStats
		bps   int64
		want  string
	}{
		{"zero", PlanStats{}, 1000, "0s"},
		{"seconds only", PlanStats{TotalBytes: 5000}, 1000, "5s"},
		{"minutes and seconds", PlanStats{TotalBytes: 65000}, 1000, "1m 5s"},
		{"minutes only", PlanStats{TotalBytes: 60000}, 1000, "1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.EstimateDurationHuman(tt.bps); got != tt.want {
				t.Errorf("EstimateDurationHuman() = %q, want %q", got, tt.want)
			}
		})
	}
}
