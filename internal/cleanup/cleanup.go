package cleanup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// EnsureTempDirExists creates the scratch root if it doesn't exist.
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp directory %s: %w", tempDir, err)
	}
	return nil
}

// SweepStale removes per-video scratch directories older than maxAge from
// the scratch root. Each item reclaims its own directory when it finishes;
// this sweep only catches leftovers from crashed runs, so it runs once at
// startup rather than on a timer.
func SweepStale(tempDir string, maxAge time.Duration, logger *slog.Logger) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		logger.Warn("could not read scratch root for sweep", "dir", tempDir, "error", err)
		return
	}

	now := time.Now()
	var removed int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove stale scratch directory", "dir", path, "error", err)
			continue
		}
		removed++
		logger.Info("removed stale scratch directory", "dir", entry.Name(), "age", age.Round(time.Minute))
	}

	if removed > 0 {
		logger.Info("scratch sweep complete", "removed", removed)
	}
}
