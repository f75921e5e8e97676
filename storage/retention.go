// ABOUTME: Retention policy evaluation and cleanup execution over discovered runs.
// ABOUTME: Supports days/count/hybrid modes with per-run error isolation and dry-run preview.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Mode selects which retention predicate governs deletion eligibility.
type Mode int

const (
	// ModeUnknown is the fail-safe arm: nothing is ever deleted under it.
	ModeUnknown Mode = iota
	// ModeDays keeps runs whose age is within the retention window.
	ModeDays
	// ModeCount keeps the N most recent runs.
	ModeCount
	// ModeHybrid keeps a run if either the days or the count rule would keep
	// it. Union of keep-sets, the most permissive mode.
	ModeHybrid
)

// ParseMode maps a configuration string to a Mode. Unrecognized strings map
// to ModeUnknown, which deletes nothing.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "days":
		return ModeDays
	case "count":
		return ModeCount
	case "hybrid":
		return ModeHybrid
	default:
		return ModeUnknown
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDays:
		return "days"
	case ModeCount:
		return "count"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Policy is the immutable retention configuration loaded once per process.
type Policy struct {
	Enabled bool
	Days    int
	Count   int
	Mode    Mode
}

// RunError records one failed deletion inside a cleanup batch.
type RunError struct {
	RunID   string `json:"run_id"`
	Message string `json:"error"`
}

// CleanupResult is the outcome of one cleanup pass. DeletedCount and
// SpaceFreedBytes cover only runs actually removed (or, in dry-run, runs that
// would be removed); failed deletions appear solely in Errors.
type CleanupResult struct {
	DeletedCount    int        `json:"deleted_count"`
	SpaceFreedBytes int64      `json:"space_freed_bytes"`
	SpaceFreedHuman string     `json:"space_freed_human"`
	DeletedRuns     []string   `json:"deleted_runs"`
	Errors          []RunError `json:"errors"`
}

// RunStat is a Run annotated with its computed size.
type RunStat struct {
	Run
	SizeBytes int64  `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
}

// StorageStats is the aggregate storage view across all runs.
type StorageStats struct {
	TotalRuns      int       `json:"total_runs"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	TotalSizeHuman string    `json:"total_size_human"`
	Runs           []RunStat `json:"runs"`
	CurrentRun     string    `json:"current_run"`
}

// Cleaner applies a retention policy to the runs a Registry discovers.
// Stateless across calls; each pass re-enumerates the filesystem.
type Cleaner struct {
	registry *Registry
	policy   Policy
	log      *slog.Logger

	// removeAll performs the actual subtree deletion. Swappable in tests to
	// inject per-run failures.
	removeAll func(path string) error
}

// NewCleaner creates a Cleaner over the registry with the given policy.
func NewCleaner(registry *Registry, policy Policy) *Cleaner {
	return &Cleaner{
		registry:  registry,
		policy:    policy,
		log:       slog.Default().With("component", "storage.cleaner"),
		removeAll: os.RemoveAll,
	}
}

// Policy returns the cleaner's retention policy.
func (c *Cleaner) Policy() Policy { return c.policy }

// keepByCount returns the IDs of the policy.Count most recent runs. runs must
// already be sorted newest first. When fewer runs exist than the retention
// count, every run is kept by count.
func (c *Cleaner) keepByCount(runs []Run) map[string]bool {
	keep := make(map[string]bool, c.policy.Count)
	for i, run := range runs {
		if i >= c.policy.Count {
			break
		}
		keep[run.ID] = true
	}
	return keep
}

// shouldDelete evaluates the retention predicate for one run. The current run
// is never deletable, regardless of mode. keptByCount must be the set computed
// once for the whole pass, so membership cannot flip between evaluations.
func (c *Cleaner) shouldDelete(run Run, keptByCount map[string]bool) bool {
	if run.IsCurrent {
		return false
	}

	keepByDays := run.AgeDays <= float64(c.policy.Days)
	keepByCount := keptByCount[run.ID]

	switch c.policy.Mode {
	case ModeDays:
		return !keepByDays
	case ModeCount:
		return !keepByCount
	case ModeHybrid:
		return !(keepByDays || keepByCount)
	default:
		return false
	}
}

// Cleanup deletes (or, with dryRun, merely reports) every run the retention
// policy marks as expired. A deletion failure for one run is recorded and the
// batch continues; one locked directory never aborts the pass.
func (c *Cleaner) Cleanup(dryRun bool) CleanupResult {
	result := CleanupResult{
		DeletedRuns: []string{},
		Errors:      []RunError{},
	}

	if !c.policy.Enabled {
		c.log.Debug("cleanup disabled by policy, skipping pass")
		result.SpaceFreedHuman = HumanBytes(0)
		return result
	}

	// Warned once per pass, not per run.
	switch c.policy.Mode {
	case ModeDays, ModeCount, ModeHybrid:
	default:
		c.log.Warn("unknown retention mode, deleting nothing", "mode", c.policy.Mode)
	}

	runs := c.registry.Runs()
	if len(runs) == 0 {
		result.SpaceFreedHuman = HumanBytes(0)
		return result
	}

	// Computed once per pass and shared across every predicate evaluation.
	keptByCount := c.keepByCount(runs)

	for _, run := range runs {
		if !c.shouldDelete(run, keptByCount) {
			continue
		}

		// Size must be taken before the subtree goes away.
		size := c.registry.SubtreeSize(run.Path)

		if dryRun {
			result.DeletedCount++
			result.SpaceFreedBytes += size
			result.DeletedRuns = append(result.DeletedRuns, run.ID)
			continue
		}

		if err := c.removeAll(run.Path); err != nil {
			c.log.Warn("failed to delete run", "run_id", run.ID, "error", err)
			result.Errors = append(result.Errors, RunError{RunID: run.ID, Message: err.Error()})
			continue
		}

		result.DeletedCount++
		result.SpaceFreedBytes += size
		result.DeletedRuns = append(result.DeletedRuns, run.ID)
		c.log.Info("deleted run", "run_id", run.ID, "size", HumanBytes(size))
	}

	result.SpaceFreedHuman = HumanBytes(result.SpaceFreedBytes)
	return result
}

// StorageStats computes the aggregate storage view. Read-only: listing and
// size computation only, no deletion side effects.
func (c *Cleaner) StorageStats() StorageStats {
	stats := StorageStats{
		Runs:       []RunStat{},
		CurrentRun: c.registry.CurrentRunID(),
	}

	runs := c.registry.Runs()
	if len(runs) == 0 {
		stats.TotalSizeHuman = HumanBytes(0)
		return stats
	}

	for _, run := range runs {
		size := c.registry.SubtreeSize(run.Path)
		stats.Runs = append(stats.Runs, RunStat{
			Run:       run,
			SizeBytes: size,
			SizeHuman: HumanBytes(size),
		})
		stats.TotalSizeBytes += size
	}

	stats.TotalRuns = len(runs)
	stats.TotalSizeHuman = HumanBytes(stats.TotalSizeBytes)
	return stats
}

// HumanBytes renders a byte count in a human-readable form, e.g. "15.5 MB".
func HumanBytes(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", size)
}
