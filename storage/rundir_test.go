// ABOUTME: Tests for RunDir creation and path layout.
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRunDir_CreatesDirectory(t *testing.T) {
	root := t.TempDir()

	rd, err := NewRunDir(root, "20250601_120000")
	if err != nil {
		t.Fatalf("NewRunDir failed: %v", err)
	}

	want := filepath.Join(root, "run_20250601_120000")
	if rd.BaseDir != want {
		t.Errorf("BaseDir = %q, want %q", rd.BaseDir, want)
	}

	info, err := os.Stat(rd.BaseDir)
	if err != nil {
		t.Fatalf("run directory does not exist: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("run directory is not a directory")
	}

	if got := rd.IndexPath(); got != filepath.Join(want, "index.db") {
		t.Errorf("IndexPath = %q", got)
	}
}

func TestNewRunDir_EmptyArgs(t *testing.T) {
	if _, err := NewRunDir("", "id"); err == nil {
		t.Error("expected error for empty root")
	}
	if _, err := NewRunDir(t.TempDir(), ""); err == nil {
		t.Error("expected error for empty runID")
	}
}

func TestRunDir_DiscoverableByRegistry(t *testing.T) {
	root := t.TempDir()
	if _, err := NewRunDir(root, "20250601_120000"); err != nil {
		t.Fatal(err)
	}

	runs := NewRegistry(root, "20250601_120000").Runs()
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if !runs[0].IsCurrent {
		t.Error("created run should be current")
	}
}
