package preflight

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"facegate/internal/config"
)

// CheckBackendFromConfig evaluates backend status from config alone, for
// status UIs that may run without a loaded daemon.
func CheckBackendFromConfig(cfg *config.Config) Result {
	const name = "Backend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Backend.URL) == "" {
		return Result{Name: name, Detail: "Missing URL"}
	}
	if strings.TrimSpace(cfg.Device.ID) == "" {
		return Result{Name: name, Detail: "Missing device id"}
	}
	check := CheckBackend(context.Background(), cfg)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CameraProbe reports the current video-device snapshot.
type CameraProbe struct {
	Detected bool
	Devices  []string
}

// ProbeCamera scans for video4linux capture nodes. The vision worker owns
// the camera; this only answers "is anything plugged in" for status UIs.
func ProbeCamera() CameraProbe {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil || len(matches) == 0 {
		return CameraProbe{}
	}
	sort.Strings(matches)
	return CameraProbe{Detected: true, Devices: matches}
}

// CameraDetail renders a display-friendly summary for status UIs.
func (p CameraProbe) CameraDetail() string {
	if !p.Detected {
		return "No video device detected"
	}
	return strings.Join(p.Devices, ", ")
}
