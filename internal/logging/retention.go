package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a directory of rotated logs and the filename pattern
// that identifies them. Paths in Exclude survive pruning regardless of age,
// so the file the daemon is currently writing never disappears under it.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes files matching the targets whose modification time
// is older than retentionDays. Zero or negative retention disables pruning.
// Failures are logged and skipped; retention must never take the daemon down.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, target := range targets {
		target.prune(logger, cutoff)
	}
}

func (t RetentionTarget) prune(logger *slog.Logger, cutoff time.Time) {
	dir := strings.TrimSpace(t.Dir)
	if dir == "" {
		return
	}
	pattern := strings.TrimSpace(t.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}

	keep := t.keepSet()
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, excluded := keep[path]; excluded {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("log retention remove failed; file remains",
				String("path", path),
				Error(err),
			)
			continue
		}
		logger.Debug("log pruned", String("path", path))
	}
}

func (t RetentionTarget) keepSet() map[string]struct{} {
	keep := make(map[string]struct{}, len(t.Exclude))
	for _, path := range t.Exclude {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if abs, err := filepath.Abs(trimmed); err == nil {
			trimmed = abs
		}
		keep[trimmed] = struct{}{}
	}
	return keep
}
