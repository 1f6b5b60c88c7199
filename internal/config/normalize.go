package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDevice()
	c.normalizeBackend()
	c.normalizeVision()
	c.normalizeAttendance()
	c.normalizeSync()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDevice() {
	c.Device.ID = strings.TrimSpace(c.Device.ID)
	if c.Device.ID == "" {
		if value, ok := os.LookupEnv("FACEGATE_DEVICE_ID"); ok {
			c.Device.ID = strings.TrimSpace(value)
		}
	}
	c.Device.Token = strings.TrimSpace(c.Device.Token)
	if c.Device.Token == "" {
		if value, ok := os.LookupEnv("FACEGATE_DEVICE_TOKEN"); ok {
			c.Device.Token = strings.TrimSpace(value)
		}
	}
	c.Device.Site = strings.TrimSpace(c.Device.Site)
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.URL == "" {
		if value, ok := os.LookupEnv("FACEGATE_BACKEND_URL"); ok {
			c.Backend.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		c.Backend.RequestTimeoutSeconds = defaultBackendRequestTimeout
	}
	if c.Backend.HealthTimeoutSeconds <= 0 {
		c.Backend.HealthTimeoutSeconds = defaultBackendHealthTimeout
	}
}

func (c *Config) normalizeVision() {
	c.Vision.Command = strings.TrimSpace(c.Vision.Command)
	if c.Vision.Command == "" {
		c.Vision.Command = defaultVisionCommand
	}
	if c.Vision.MaxFaces <= 0 {
		c.Vision.MaxFaces = defaultVisionMaxFaces
	}
	if c.Vision.RestartPauseSeconds <= 0 {
		c.Vision.RestartPauseSeconds = defaultVisionRestartPause
	}
}

func (c *Config) normalizeAttendance() {
	c.Attendance.InUntil = strings.TrimSpace(c.Attendance.InUntil)
	if c.Attendance.InUntil == "" {
		c.Attendance.InUntil = defaultInUntil
	}
	if c.Attendance.CooldownSeconds <= 0 {
		c.Attendance.CooldownSeconds = defaultCooldownSeconds
	}
	if strings.TrimSpace(c.Attendance.GreetingIn) == "" {
		c.Attendance.GreetingIn = defaultGreetingIn
	}
	if strings.TrimSpace(c.Attendance.GreetingOut) == "" {
		c.Attendance.GreetingOut = defaultGreetingOut
	}
	if strings.TrimSpace(c.Attendance.UnknownText) == "" {
		c.Attendance.UnknownText = defaultUnknownText
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.IntervalSeconds <= 0 {
		c.Sync.IntervalSeconds = defaultSyncInterval
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = defaultSyncMaxAttempts
	}
	if c.Sync.BackoffBaseSeconds <= 0 {
		c.Sync.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
	if c.Sync.BackoffCapSeconds <= 0 {
		c.Sync.BackoffCapSeconds = defaultBackoffCapSeconds
	}
	if c.Sync.RetentionDays < 0 {
		c.Sync.RetentionDays = 0
	}
	if c.Sync.StallThreshold <= 0 {
		c.Sync.StallThreshold = defaultStallThreshold
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("FACEGATE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	// Unknown formats fall back to console rather than erroring.
	if format := strings.ToLower(strings.TrimSpace(c.Logging.Format)); format == "json" {
		c.Logging.Format = format
	} else {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.RetentionDays = max(c.Logging.RetentionDays, 0)
}
