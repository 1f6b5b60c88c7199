package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateDevice,
		c.validateBackend,
		c.validateVision,
		c.validateTracker,
		c.validateAttendance,
		c.validateSync,
		c.validateConnectivity,
		c.validateAPI,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDevice() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/facegate/config.toml"
	}
	if c.Device.ID == "" {
		return fmt.Errorf("device.id is required. Set FACEGATE_DEVICE_ID env var or edit %s (create with 'facegate config init')", defaultPath)
	}
	if c.Device.Token == "" {
		return fmt.Errorf("device.token is required. Set FACEGATE_DEVICE_TOKEN env var or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url is required. Set FACEGATE_BACKEND_URL env var or edit the config file")
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("backend.url %q must be an http(s) URL", c.Backend.URL)
	}
	return nil
}

func (c *Config) validateVision() error {
	if strings.TrimSpace(c.Vision.Command) == "" {
		return errors.New("vision.command must be set")
	}
	if c.Vision.MaxFaces < 1 {
		return errors.New("vision.max_faces must be >= 1")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.VerifyWindow < 1 {
		return errors.New("tracker.verify_window must be >= 1")
	}
	if c.Tracker.VerifyQuorum < 1 {
		return errors.New("tracker.verify_quorum must be >= 1")
	}
	if c.Tracker.VerifyQuorum > c.Tracker.VerifyWindow {
		return errors.New("tracker.verify_quorum must not exceed tracker.verify_window")
	}
	if c.Tracker.RecognitionThreshold <= 0 || c.Tracker.RecognitionThreshold > 1 {
		return errors.New("tracker.recognition_threshold must be between 0 and 1")
	}
	if c.Tracker.VerifyTimeoutSeconds <= 0 {
		return errors.New("tracker.verify_timeout_seconds must be positive")
	}
	if c.Tracker.TrackExpirySeconds <= 0 {
		return errors.New("tracker.track_expiry_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAttendance() error {
	if _, err := ParseClock(c.Attendance.InUntil); err != nil {
		return fmt.Errorf("attendance.in_until: %w", err)
	}
	if c.Attendance.CooldownSeconds <= 0 {
		return errors.New("attendance.cooldown_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositive(
		positiveField{"sync.interval_seconds", c.Sync.IntervalSeconds},
		positiveField{"sync.max_attempts", c.Sync.MaxAttempts},
		positiveField{"sync.backoff_base_seconds", c.Sync.BackoffBaseSeconds},
		positiveField{"sync.backoff_cap_seconds", c.Sync.BackoffCapSeconds},
	); err != nil {
		return err
	}
	if c.Sync.BackoffBaseSeconds > c.Sync.BackoffCapSeconds {
		return errors.New("sync.backoff_base_seconds must not exceed sync.backoff_cap_seconds")
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	return ensurePositive(
		positiveField{"connectivity.online_probe_seconds", c.Connectivity.OnlineProbeSeconds},
		positiveField{"connectivity.offline_probe_seconds", c.Connectivity.OfflineProbeSeconds},
		positiveField{"connectivity.probe_timeout_seconds", c.Connectivity.ProbeTimeoutSeconds},
	)
}

func (c *Config) validateAPI() error {
	if !c.API.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q must be host:port", c.API.Bind)
	}
	return nil
}

// ParseClock parses an HH:MM wall-clock value into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q must be HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%q has invalid hour", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%q has invalid minute", value)
	}
	return hour*60 + minute, nil
}

type positiveField struct {
	name  string
	value int
}

// ensurePositive reports the first listed field that is zero or negative,
// keeping error output deterministic.
func ensurePositive(fields ...positiveField) error {
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	return nil
}
