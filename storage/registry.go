// ABOUTME: Run registry that discovers and classifies run directories under the storage root.
// ABOUTME: Produces newest-first run snapshots and computes best-effort subtree sizes.
package storage

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tubular-ai/tubular/config"
)

// runPrefix is the directory-name prefix for every run directory.
const runPrefix = "run_"

// Run is one program execution's isolated storage area, discovered on disk.
type Run struct {
	ID        string    `json:"run_id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	AgeDays   float64   `json:"age_days"`
	IsCurrent bool      `json:"is_current"`
}

// Registry discovers runs under a storage root. It holds no state beyond its
// configuration; every call re-reads the filesystem as ground truth.
type Registry struct {
	root         string
	currentRunID string
	log          *slog.Logger

	// now is swappable for deterministic age computation in tests.
	now func() time.Time
}

// NewRegistry creates a Registry over root. currentRunID identifies the run
// belonging to this process; it is exempt from deletion downstream.
func NewRegistry(root, currentRunID string) *Registry {
	return &Registry{
		root:         root,
		currentRunID: currentRunID,
		log:          slog.Default().With("component", "storage.registry"),
		now:          time.Now,
	}
}

// Root returns the storage root this registry scans.
func (r *Registry) Root() string { return r.root }

// CurrentRunID returns the protected run identifier.
func (r *Registry) CurrentRunID() string { return r.currentRunID }

// Runs returns a snapshot of all runs under the root, sorted by creation time
// descending (newest first). The ordering is load-bearing: count-based
// retention keeps the first N entries of this slice.
//
// Entries that are not directories, lack the run_ prefix, or carry an
// unparseable timestamp are skipped silently; the storage root is shared and
// foreign artifacts are expected noise. A missing or unreadable root degrades
// to an empty snapshot rather than an error.
func (r *Registry) Runs() []Run {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("scanning runs root failed", "root", r.root, "error", err)
		}
		return nil
	}

	now := r.now()
	var runs []Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := strings.CutPrefix(entry.Name(), runPrefix)
		if !ok {
			continue
		}
		created, err := time.ParseInLocation(config.RunIDLayout, id, time.Local)
		if err != nil {
			continue
		}

		runs = append(runs, Run{
			ID:        id,
			Path:      filepath.Join(r.root, entry.Name()),
			CreatedAt: created,
			AgeDays:   now.Sub(created).Hours() / 24,
			IsCurrent: id == r.currentRunID,
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// SubtreeSize returns the total byte size of regular files under path.
// Symlinks are never followed or counted, so a link cannot double-count data
// or escape the subtree. Individual stat failures are skipped; a top-level
// failure returns 0. The result is best-effort accounting, not an audit.
func (r *Registry) SubtreeSize(path string) int64 {
	var total int64

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			return nil // unreadable entry, keep walking
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // vanished mid-walk
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		r.log.Warn("sizing run directory failed", "path", path, "error", err)
		return 0
	}
	return total
}
