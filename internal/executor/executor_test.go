package executor

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/logger"
	"github.com/nimblefs/kopy/internal/model"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scenario A — basic sync to an empty destination.
func TestExecuteScenarioA(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	writeFile(t, filepath.Join(srcRoot, "root.txt"), "root-content")
	writeFile(t, filepath.Join(srcRoot, "nested", "inner.txt"), "inner-content")

	plan := model.NewPlan()
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("root.txt", 12, time.Now(), 0o644)))
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("nested/inner.txt", 13, time.Now(), 0o644)))

	stats, err := Execute(plan, model.Config{}, srcRoot, destRoot, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stats.FailedActions != 0 {
		t.Errorf("FailedActions = %d, want 0", stats.FailedActions)
	}
	if stats.BytesCopied != 25 {
		t.Errorf("BytesCopied = %d, want 25", stats.BytesCopied)
	}

	data, err := os.ReadFile(filepath.Join(destRoot, "root.txt"))
	if err != nil || string(data) != "root-content" {
		t.Errorf("root.txt = %q, %v, want root-content", data, err)
	}
	data2, err := os.ReadFile(filepath.Join(destRoot, "nested", "inner.txt"))
	if err != nil || string(data2) != "inner-content" {
		t.Errorf("nested/inner.txt = %q, %v, want inner-content", data2, err)
	}
}

// Scenario B — update-in-place, no leftover temp file.
func TestExecuteScenarioB(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	writeFile(t, filepath.Join(srcRoot, "same.txt"), "new-data")
	writeFile(t, filepath.Join(destRoot, "same.txt"), "old")

	plan := model.NewPlan()
	plan.AddAction(model.NewOverwrite(model.NewFileEntry("same.txt", 8, time.Now(), 0o644)))

	_, err := Execute(plan, model.Config{}, srcRoot, destRoot, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destRoot, "same.txt"))
	if err != nil || string(data) != "new-data" {
		t.Errorf("same.txt = %q, %v, want new-data", data, err)
	}

	entries, err := os.ReadDir(destRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".kopy.part.") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

// Scenario C — trash delete.
func TestExecuteScenarioC(t *testing.T) {
	destRoot := t.TempDir()
	writeFile(t, filepath.Join(destRoot, "old.txt"), "to-delete")

	plan := model.NewPlan()
	plan.AddAction(model.NewDelete("old.txt"))

	cfg := model.Config{DeleteMode: model.DeleteTrash}
	_, err := Execute(plan, cfg, t.TempDir(), destRoot, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(destRoot, "old.txt")); !os.IsNotExist(err) {
		t.Errorf("expected old.txt gone, err = %v", err)
	}

	trashEntries, err := os.ReadDir(filepath.Join(destRoot, ".kopy_trash"))
	if err != nil {
		t.Fatalf("ReadDir(.kopy_trash) error = %v", err)
	}
	if len(trashEntries) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(trashEntries))
	}
	data, err := os.ReadFile(filepath.Join(destRoot, ".kopy_trash", trashEntries[0].Name(), "old.txt"))
	if err != nil || string(data) != "to-delete" {
		t.Errorf("trashed old.txt = %q, %v, want to-delete", data, err)
	}
}

// Scenario D — symlink preservation.
func TestExecuteScenarioD(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	writeFile(t, filepath.Join(srcRoot, "target.txt"), "hello")
	if err := os.Symlink("target.txt", filepath.Join(srcRoot, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	plan := model.NewPlan()
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("target.txt", 5, time.Now(), 0o644)))
	plan.AddAction(model.NewCopyNew(model.NewSymlinkEntry("link.txt", 0, time.Now(), 0o644, "target.txt")))

	_, err := Execute(plan, model.Config{}, srcRoot, destRoot, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	linkPath := filepath.Join(destRoot, "link.txt")
	info, err := os.Lstat(linkPath)
	if err != nil {
		t.Fatalf("Lstat(link.txt) error = %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected link.txt to remain a symlink")
	}
	target, err := os.Readlink(linkPath)
	if err != nil || target != "target.txt" {
		t.Errorf("Readlink = %q, %v, want target.txt", target, err)
	}
}

func TestExecuteContinuesAfterFailureAndReportsValidation(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	writeFile(t, filepath.Join(srcRoot, "ok.txt"), "fine")

	plan := model.NewPlan()
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("missing.txt", 4, time.Now(), 0o644)))
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("ok.txt", 4, time.Now(), 0o644)))

	stats, err := Execute(plan, model.Config{}, srcRoot, destRoot, nil)
	if err == nil {
		t.Fatal("expected a Validation error summarizing the failed action")
	}
	if stats.FailedActions != 1 {
		t.Errorf("FailedActions = %d, want 1", stats.FailedActions)
	}
	if stats.CompletedActions != 1 {
		t.Errorf("CompletedActions = %d, want 1", stats.CompletedActions)
	}
	if _, statErr := os.Stat(filepath.Join(destRoot, "ok.txt")); statErr != nil {
		t.Errorf("expected ok.txt to still be copied despite the earlier failure: %v", statErr)
	}
}

func TestExecuteParallelScenarioF(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()

	smallContent := strings.Repeat("a", 1024)
	largeContent := strings.Repeat("b", 17*1024*1024)
	writeFile(t, filepath.Join(srcRoot, "small.bin"), smallContent)
	writeFile(t, filepath.Join(srcRoot, "large.bin"), largeContent)
	writeFile(t, filepath.Join(destRoot, "orphan.txt"), "stale")

	plan := model.NewPlan()
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("small.bin", int64(len(smallContent)), time.Now(), 0o644)))
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("large.bin", int64(len(largeContent)), time.Now(), 0o644)))
	plan.AddAction(model.NewDelete("orphan.txt"))

	cfg := model.Config{Threads: 4, DeleteMode: model.DeletePermanent}
	stats, err := ExecuteParallel(plan, cfg, srcRoot, destRoot, nil)
	if err != nil {
		t.Fatalf("ExecuteParallel() error = %v", err)
	}
	if stats.FailedActions != 0 {
		t.Errorf("FailedActions = %d, want 0", stats.FailedActions)
	}
	if stats.CompletedActions != 3 {
		t.Errorf("CompletedActions = %d, want 3", stats.CompletedActions)
	}

	smallInfo, err := os.Stat(filepath.Join(destRoot, "small.bin"))
	if err != nil || smallInfo.Size() != int64(len(smallContent)) {
		t.Errorf("small.bin size mismatch: %v, %v", smallInfo, err)
	}
	largeInfo, err := os.Stat(filepath.Join(destRoot, "large.bin"))
	if err != nil || largeInfo.Size() != int64(len(largeContent)) {
		t.Errorf("large.bin size mismatch: %v, %v", largeInfo, err)
	}
	if _, err := os.Stat(filepath.Join(destRoot, "orphan.txt")); !os.IsNotExist(err) {
		t.Errorf("expected orphan.txt removed, err = %v", err)
	}
}

func TestExecuteParallelWorkerPanicRecovers(t *testing.T) {
	srcRoot := t.TempDir()
	destRoot := t.TempDir()

	writeFile(t, filepath.Join(srcRoot, "panics.bin"), "x")
	writeFile(t, filepath.Join(srcRoot, "ok.bin"), "y")

	plan := model.NewPlan()
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("panics.bin", 1, time.Now(), 0o644)))
	plan.AddAction(model.NewCopyNew(model.NewFileEntry("ok.bin", 1, time.Now(), 0o644)))

	prev := applyActionFn
	applyActionFn = func(action model.SyncAction, cfg model.Config, srcRoot, destRoot string) (int64, error) {
		if action.Path == "panics.bin" {
			panic("simulated worker failure")
		}
		return prev(action, cfg, srcRoot, destRoot)
	}
	defer func() { applyActionFn = prev }()

	cfg := model.Config{Threads: 2}
	stats, err := ExecuteParallel(plan, cfg, srcRoot, destRoot, nil)
	if err == nil {
		t.Fatal("expected a Validation error summarizing the panicked action")
	}
	if !kopyerr.IsValidationError(err) {
		t.Errorf("error = %v, want a Validation-kind error", err)
	}
	if !strings.Contains(err.Error(), "parallel worker thread panicked") {
		t.Errorf("error = %v, want it to mention the panic", err)
	}
	if stats.FailedActions != 1 {
		t.Errorf("FailedActions = %d, want 1", stats.FailedActions)
	}
	if stats.CompletedActions != 1 {
		t.Errorf("CompletedActions = %d, want 1", stats.CompletedActions)
	}
}

func TestIsSmallTransfer(t *testing.T) {
	small := model.NewCopyNew(model.NewFileEntry("a", smallTransferLimit, time.Now(), 0o644))
	if !isSmallTransfer(small) {
		t.Error("expected exactly-at-limit entry to count as small")
	}

	large := model.NewCopyNew(model.NewFileEntry("a", smallTransferLimit+1, time.Now(), 0o644))
	if isSmallTransfer(large) {
		t.Error("expected over-limit entry to not count as small")
	}

	symlink := model.NewCopyNew(model.NewSymlinkEntry("a", 0, time.Now(), 0o644, "b"))
	if isSmallTransfer(symlink) {
		t.Error("expected symlink copy to never count as a small transfer")
	}

	del := model.NewDelete("a")
	if isSmallTransfer(del) {
		t.Error("expected Delete to never count as a small transfer")
	}
}
