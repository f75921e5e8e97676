// ABOUTME: Tests for CLI mode plumbing: cleaner wiring, storage modes, and help output.
// ABOUTME: Uses temp data directories; no network or API keys involved.
package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tubular-ai/tubular/config"
	"github.com/tubular-ai/tubular/internal/logger"
	"github.com/tubular-ai/tubular/storage"
)

func testLogger(t *testing.T) (*slog.Logger, func() error) {
	t.Helper()
	return logger.Setup(logger.Config{Level: slog.LevelError, NoColor: true})
}

// testConfig builds a Config rooted in a temp dir without touching the
// process environment beyond what t.Setenv cleans up.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("TUBULAR_CONFIG", "")
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func mkOldRun(t *testing.T, cfg *config.Config, age time.Duration, payload int) string {
	t.Helper()
	id := config.NewRunID(time.Now().Add(-age))
	dir := filepath.Join(cfg.RunsRoot(), "run_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.db"), bytes.Repeat([]byte("x"), payload), 0o644); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestNewCleanerAppliesPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.RetentionMode = "days"
	cfg.Cleanup.RetentionDays = 7
	cfg.Cleanup.Enabled = true

	old := mkOldRun(t, cfg, 30*24*time.Hour, 100)
	fresh := mkOldRun(t, cfg, time.Hour, 100)

	result := newCleaner(cfg).Cleanup(true)
	if result.DeletedCount != 1 {
		t.Fatalf("deleted count = %d, want 1", result.DeletedCount)
	}
	if result.DeletedRuns[0] != old {
		t.Errorf("deleted %q, want %q", result.DeletedRuns[0], old)
	}
	if _, err := os.Stat(filepath.Join(cfg.RunsRoot(), "run_"+fresh)); err != nil {
		t.Errorf("fresh run missing: %v", err)
	}
}

func TestNewCleanerDisabledPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.Enabled = false
	mkOldRun(t, cfg, 365*24*time.Hour, 10)

	if got := newCleaner(cfg).Cleanup(false); got.DeletedCount != 0 {
		t.Errorf("disabled cleanup deleted %d runs", got.DeletedCount)
	}
}

func TestNewCleanerProtectsCurrentRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.RetentionMode = "days"
	cfg.Cleanup.RetentionDays = 0
	cfg.Cleanup.RetentionCount = 0
	cfg.Cleanup.Enabled = true

	// The process's own run directory, even when older than the window.
	if _, err := storage.NewRunDir(cfg.RunsRoot(), cfg.RunID); err != nil {
		t.Fatal(err)
	}

	result := newCleaner(cfg).Cleanup(false)
	for _, id := range result.DeletedRuns {
		if id == cfg.RunID {
			t.Fatal("current run was deleted")
		}
	}
	if _, err := os.Stat(cfg.RunDir()); err != nil {
		t.Errorf("current run dir missing: %v", err)
	}
}

func TestRunCleanupDryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.RetentionMode = "days"
	cfg.Cleanup.RetentionDays = 1
	cfg.Cleanup.Enabled = true
	old := mkOldRun(t, cfg, 10*24*time.Hour, 100)

	log, closeLog := testLogger(t)
	defer closeLog()

	if code := runCleanup(cfg, true, false, log); code != 0 {
		t.Fatalf("runCleanup dry run exit = %d", code)
	}
	if _, err := os.Stat(filepath.Join(cfg.RunsRoot(), "run_"+old)); err != nil {
		t.Errorf("dry run deleted the directory: %v", err)
	}
}

func TestRunCleanupExecutesWithYes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.RetentionMode = "days"
	cfg.Cleanup.RetentionDays = 1
	cfg.Cleanup.Enabled = true
	old := mkOldRun(t, cfg, 10*24*time.Hour, 100)

	log, closeLog := testLogger(t)
	defer closeLog()

	if code := runCleanup(cfg, false, true, log); code != 0 {
		t.Fatalf("runCleanup exit = %d", code)
	}
	if _, err := os.Stat(filepath.Join(cfg.RunsRoot(), "run_"+old)); !os.IsNotExist(err) {
		t.Errorf("expected run deleted, stat err = %v", err)
	}
}

func TestShowStorage(t *testing.T) {
	cfg := testConfig(t)
	mkOldRun(t, cfg, time.Hour, 2048)

	if code := showStorage(cfg); code != 0 {
		t.Errorf("showStorage exit = %d", code)
	}
}

func TestShowStatsEmptyIndex(t *testing.T) {
	cfg := testConfig(t)
	if code := showStats(cfg); code != 0 {
		t.Errorf("showStats exit = %d", code)
	}
}

func TestPrintHelpMentionsAllModes(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf, "test")

	out := buf.String()
	for _, want := range []string{"-add", "-chat", "-tui", "-stats", "-storage", "-cleanup", "-dry-run", "-server", "-version", "GROQ_API_KEY"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}
