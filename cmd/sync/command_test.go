package sync

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nimblefs/kopy/cmd"
	"github.com/nimblefs/kopy/internal/logger"
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

func TestSyncCmdBasic(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), "hello")

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"sync", srcDir, destDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil || string(data) != "hello" {
		t.Errorf("a.txt = %q, %v, want hello", data, err)
	}

	output := buf.String()
	if !strings.Contains(output, "Plan:") {
		t.Errorf("expected plan preview in output, got: %q", output)
	}
}

func TestSyncCmdDryRunMakesNoChanges(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), "hello")

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"sync", srcDir, destDir, "--dry-run"})
	// Flag values persist on the shared command across Execute calls.
	t.Cleanup(func() { _ = syncCmd.Flags().Set("dry-run", "false") })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("expected no file copied during dry run, err = %v", err)
	}
	if !strings.Contains(buf.String(), "Dry-run mode") {
		t.Errorf("expected dry-run notice in output, got: %q", buf.String())
	}
}

func TestSyncCmdNothingToSync(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"sync", srcDir, destDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to sync") {
		t.Errorf("expected 'Nothing to sync' notice, got: %q", buf.String())
	}
}

func TestSyncCmdInvalidDeleteMode(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"sync", srcDir, destDir, "--delete", "bogus"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an error for an unknown --delete value")
	}
}

func TestSyncCmdPermanentDeleteRemovesOrphans(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	writeFile(t, filepath.Join(destDir, "orphan.txt"), "stale")

	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"sync", srcDir, destDir, "--delete", "permanent"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "orphan.txt")); !os.IsNotExist(err) {
		t.Errorf("expected orphan.txt removed, err = %v", err)
	}
}

func TestSyncCmdInvalidArgs(t *testing.T) {
	if syncCmd.Args == nil {
		t.Fatal("syncCmd should have Args validator set")
	}
	if err := syncCmd.Args(syncCmd, []string{"only-one"}); err == nil {
		t.Error("expected error for too few args")
	}
	if err := syncCmd.Args(syncCmd, []string{"a", "b", "c"}); err == nil {
		t.Error("expected error for too many args")
	}
	if err := syncCmd.Args(syncCmd, []string{"a", "b"}); err != nil {
		t.Errorf("unexpected error for valid args: %v", err)
	}
}
