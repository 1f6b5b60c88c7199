package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"facegate/internal/api"
	"facegate/internal/config"
	"facegate/internal/eventstore"
	"facegate/internal/ipc"
	"facegate/internal/preflight"
)

// BuildStatusSnapshot returns the daemon's status response when one is
// serving, and otherwise assembles an offline snapshot from config and a
// direct read of the event store so `facegate status` stays useful.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	snapshot := &ipc.StatusResponse{}
	if status, err := fetchStatus(socketPath); err == nil {
		snapshot = status
	}

	if !snapshot.Running {
		fillOfflineSnapshot(ctx, snapshot, cfg)
	}
	if len(snapshot.Dependencies) == 0 {
		snapshot.Dependencies = api.FromDependencies(preflight.CheckSystemDeps(cfg))
	}

	snapshot.SystemChecks = systemCheckLines(cfg, snapshot.Running, snapshot.Connectivity)
	snapshot.PathChecks = pathCheckLines(cfg)
	snapshot.DependencySummary = BuildDependencySummary(snapshot.Dependencies)
	return snapshot, nil
}

// fillOfflineSnapshot populates the identity, path, and queue fields the
// daemon would normally report, reading the event store directly.
func fillOfflineSnapshot(ctx context.Context, snapshot *ipc.StatusResponse, cfg *config.Config) {
	snapshot.DeviceID = cfg.Device.ID
	snapshot.Site = cfg.Device.Site
	snapshot.DatabasePath = cfg.DatabasePath()
	snapshot.LockPath = cfg.LockPath()

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := eventstore.Open(cfg)
	if err != nil {
		return
	}
	if stats, statsErr := store.Stats(queryCtx); statsErr == nil {
		snapshot.QueueStats = api.MergeEventStats(stats)
	}
	if counts, countsErr := store.TodayCounts(queryCtx, startOfDay(time.Now())); countsErr == nil {
		snapshot.Today = api.FromKindCounts(counts)
	}
	_ = store.Close()
}

// systemCheckLines resolves the status lines that mix runtime state with
// config-level probes.
func systemCheckLines(cfg *config.Config, running bool, connectivity ipc.ConnectivityStatus) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 4)
	if running {
		lines = append(lines, api.StatusLine{Label: "Facegate", Severity: "ok", Detail: "Running"})
		lines = append(lines, backendLine(connectivity))
	} else {
		lines = append(lines, api.StatusLine{Label: "Facegate", Severity: "warn", Detail: "Not running (run `facegate start`)"})
		backend := preflight.CheckBackendFromConfig(cfg)
		severity := "warn"
		if backend.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{Label: "Backend", Severity: severity, Detail: backend.Detail})
	}

	probe := preflight.ProbeCamera()
	cameraSeverity := "warn"
	if probe.Detected {
		cameraSeverity = "ok"
	}
	lines = append(lines, api.StatusLine{Label: "Camera", Severity: cameraSeverity, Detail: probe.CameraDetail()})

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}
	return lines
}

// backendLine maps the daemon's live connectivity state onto a status line.
func backendLine(connectivity ipc.ConnectivityStatus) api.StatusLine {
	switch connectivity.State {
	case "online":
		return api.StatusLine{Label: "Backend", Severity: "ok", Detail: "Online"}
	case "offline":
		detail := "Offline"
		if strings.TrimSpace(connectivity.LastError) != "" {
			detail = "Offline: " + connectivity.LastError
		}
		return api.StatusLine{Label: "Backend", Severity: "warn", Detail: detail}
	default:
		return api.StatusLine{Label: "Backend", Severity: "info", Detail: "Probing"}
	}
}

// pathCheckLines reports write access for the configured data and log dirs.
func pathCheckLines(cfg *config.Config) []api.StatusLine {
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Data", cfg.Paths.DataDir),
		preflight.CheckDirectoryAccess("Logs", cfg.Paths.LogDir),
	}
	lines := make([]api.StatusLine, 0, len(checks))
	for _, check := range checks {
		severity := "error"
		if check.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{Label: check.Name, Severity: severity, Detail: check.Detail})
	}
	return lines
}

// BuildDependencySummary aggregates dependency readiness into one line.
func BuildDependencySummary(deps []ipc.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	summary := api.DependencySummary{Total: len(deps), Severity: "ok"}
	for _, dep := range deps {
		switch {
		case dep.Available:
			summary.Available++
		case dep.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}

	if summary.MissingRequired > 0 {
		summary.Severity = "error"
	} else if summary.MissingOptional > 0 {
		summary.Severity = "warn"
	}
	if summary.Available == summary.Total {
		summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	} else {
		summary.Detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)",
			summary.Available, summary.Total, summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
