// ABOUTME: Tests for the run registry: discovery, ordering, foreign-entry tolerance,
// ABOUTME: and best-effort subtree size computation including symlink exclusion.
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// mkRun creates an empty run directory under root and returns its path.
func mkRun(t *testing.T, root, id string) string {
	t.Helper()
	path := filepath.Join(root, "run_"+id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("creating run dir %s: %v", id, err)
	}
	return path
}

func TestRuns_DiscoversAndSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "20240101_000000")
	mkRun(t, root, "20250601_120000")
	mkRun(t, root, "20240915_080030")

	reg := NewRegistry(root, "20250601_120000")
	runs := reg.Runs()

	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	wantOrder := []string{"20250601_120000", "20240915_080030", "20240101_000000"}
	for i, want := range wantOrder {
		if runs[i].ID != want {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, want)
		}
	}

	if !runs[0].IsCurrent {
		t.Error("newest run should be marked current")
	}
	if runs[1].IsCurrent || runs[2].IsCurrent {
		t.Error("only one run may be current")
	}
}

func TestRuns_SkipsForeignAndMalformedEntries(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "20240101_000000")

	// Foreign noise: a plain file, a non-prefixed dir, and bad timestamps.
	if err := os.WriteFile(filepath.Join(root, "run_20240202_000000"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"transcripts", "run_not-a-timestamp", "run_2024", "run_20241301_000000"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	runs := NewRegistry(root, "").Runs()
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1 (foreign entries must be skipped)", len(runs))
	}
	if runs[0].ID != "20240101_000000" {
		t.Errorf("runs[0].ID = %q", runs[0].ID)
	}
}

func TestRuns_MissingRootReturnsEmpty(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "does-not-exist"), "x")
	if runs := reg.Runs(); len(runs) != 0 {
		t.Fatalf("got %d runs from missing root, want 0", len(runs))
	}
}

func TestRuns_AgeComputation(t *testing.T) {
	root := t.TempDir()
	mkRun(t, root, "20240101_000000")

	reg := NewRegistry(root, "")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	reg.now = func() time.Time { return created.Add(36 * time.Hour) }

	runs := reg.Runs()
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if got := runs[0].AgeDays; got < 1.49 || got > 1.51 {
		t.Errorf("AgeDays = %v, want 1.5", got)
	}
	if !runs[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", runs[0].CreatedAt, created)
	}
}

func TestSubtreeSize_SumsRegularFiles(t *testing.T) {
	root := t.TempDir()
	run := mkRun(t, root, "20240101_000000")

	if err := os.WriteFile(filepath.Join(run, "a.bin"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(run, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 250), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(root, "")
	if got := reg.SubtreeSize(run); got != 350 {
		t.Errorf("SubtreeSize = %d, want 350", got)
	}
}

func TestSubtreeSize_ExcludesSymlinks(t *testing.T) {
	root := t.TempDir()
	run := mkRun(t, root, "20240101_000000")

	if err := os.WriteFile(filepath.Join(run, "real.bin"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	// A large file elsewhere, reachable only via symlink. It must not count.
	outside := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(outside, make([]byte, 1<<20), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(run, "link.bin")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	reg := NewRegistry(root, "")
	if got := reg.SubtreeSize(run); got != 100 {
		t.Errorf("SubtreeSize = %d, want 100 (symlink target must be excluded)", got)
	}
}

func TestSubtreeSize_MissingPathReturnsZero(t *testing.T) {
	reg := NewRegistry(t.TempDir(), "")
	if got := reg.SubtreeSize(filepath.Join(t.TempDir(), "gone")); got != 0 {
		t.Errorf("SubtreeSize = %d, want 0", got)
	}
}
