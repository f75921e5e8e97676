// ABOUTME: RunDir manages the on-disk layout of the current process's run directory.
// ABOUTME: The run directory owns the vector index database and any run-scoped scratch files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunDir is the directory structure for a single chatbot run.
type RunDir struct {
	BaseDir string
	RunID   string
}

// NewRunDir creates the run directory at root/run_<runID> and returns it.
func NewRunDir(root, runID string) (*RunDir, error) {
	if root == "" {
		return nil, fmt.Errorf("root must not be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID must not be empty")
	}

	rd := &RunDir{
		BaseDir: filepath.Join(root, runPrefix+runID),
		RunID:   runID,
	}

	if err := os.MkdirAll(rd.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return rd, nil
}

// IndexPath returns the path of the vector index database inside the run.
func (rd *RunDir) IndexPath() string {
	return filepath.Join(rd.BaseDir, "index.db")
}

// ScratchDir returns the path for transient files, creating it on demand.
func (rd *RunDir) ScratchDir() (string, error) {
	dir := filepath.Join(rd.BaseDir, "scratch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return dir, nil
}
