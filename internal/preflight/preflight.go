package preflight

import (
	"context"

	"facegate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll evaluates the kiosk's environment before the daemon starts serving.
// Failing checks are advisory: the daemon logs them and keeps going, because
// the kiosk must record attendance locally even when the backend is down.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return append(results, CheckBackend(ctx, cfg))
}
