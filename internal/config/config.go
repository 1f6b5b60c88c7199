package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Device identifies this kiosk to the backend.
type Device struct {
	ID    string `toml:"id"`
	Token string `toml:"token"`
	Site  string `toml:"site"`
}

// Backend contains the attendance backend connection settings.
type Backend struct {
	URL                   string `toml:"url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	HealthTimeoutSeconds  int    `toml:"health_timeout_seconds"`
}

// Vision configures the external face-recognition provider process.
type Vision struct {
	Command             string   `toml:"command"`
	Args                []string `toml:"args"`
	MaxFaces            int      `toml:"max_faces"`
	RestartPauseSeconds int      `toml:"restart_pause_seconds"`
}

// Tracker configures the per-face debouncing state machine.
type Tracker struct {
	VerifyWindow         int     `toml:"verify_window"`
	VerifyQuorum         int     `toml:"verify_quorum"`
	RecognitionThreshold float64 `toml:"recognition_threshold"`
	VerifyTimeoutSeconds float64 `toml:"verify_timeout_seconds"`
	TrackExpirySeconds   float64 `toml:"track_expiry_seconds"`
}

// Attendance configures window derivation, cooldown, and greeting text.
type Attendance struct {
	InUntil         string `toml:"in_until"`
	CooldownSeconds int    `toml:"cooldown_seconds"`
	GreetingIn      string `toml:"greeting_in"`
	GreetingOut     string `toml:"greeting_out"`
	UnknownText     string `toml:"unknown_text"`
}

// Sync configures the background delivery loop.
type Sync struct {
	IntervalSeconds    int `toml:"interval_seconds"`
	MaxAttempts        int `toml:"max_attempts"`
	BackoffBaseSeconds int `toml:"backoff_base_seconds"`
	BackoffCapSeconds  int `toml:"backoff_cap_seconds"`
	RetentionDays      int `toml:"retention_days"`
	StallThreshold     int `toml:"stall_threshold"`
}

// Connectivity configures the backend reachability probes.
type Connectivity struct {
	OnlineProbeSeconds  int `toml:"online_probe_seconds"`
	OfflineProbeSeconds int `toml:"offline_probe_seconds"`
	ProbeTimeoutSeconds int `toml:"probe_timeout_seconds"`
}

// API configures the local status/feed HTTP server.
type API struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Lifecycle      bool   `toml:"lifecycle"`
	Rejections     bool   `toml:"rejections"`
	SyncStalled    bool   `toml:"sync_stalled"`
	Camera         bool   `toml:"camera"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for facegate.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Device: kiosk identity and backend credentials
//   - Backend: attendance backend URL and timeouts
//   - Vision: external recognition provider process
//   - Tracker: debounce parameters for the face track state machine
//   - Attendance: window cutover, cooldown, greeting templates
//   - Sync: delivery intervals, retry ceiling, backoff, retention
//   - Connectivity: probe intervals and timeout
//   - API: local status/feed HTTP server
//   - Notifications: ntfy admin alerts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Device        Device        `toml:"device"`
	Backend       Backend       `toml:"backend"`
	Vision        Vision        `toml:"vision"`
	Tracker       Tracker       `toml:"tracker"`
	Attendance    Attendance    `toml:"attendance"`
	Sync          Sync          `toml:"sync"`
	Connectivity  Connectivity  `toml:"connectivity"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/facegate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(&cfg, resolvedPath); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// resolveConfigPath decides which file Load should read. An explicit path
// wins even when the file does not exist yet; otherwise the XDG location is
// preferred over a facegate.toml in the working directory.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("facegate.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the event store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "facegate.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "facegate.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "facegate.lock")
}

func (c *Config) BackendRequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

func (c *Config) BackendHealthTimeout() time.Duration {
	return time.Duration(c.Backend.HealthTimeoutSeconds) * time.Second
}

func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.Tracker.VerifyTimeoutSeconds * float64(time.Second))
}

func (c *Config) TrackExpiry() time.Duration {
	return time.Duration(c.Tracker.TrackExpirySeconds * float64(time.Second))
}

func (c *Config) CooldownTTL() time.Duration {
	return time.Duration(c.Attendance.CooldownSeconds) * time.Second
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Sync.BackoffBaseSeconds) * time.Second
}

func (c *Config) BackoffCap() time.Duration {
	return time.Duration(c.Sync.BackoffCapSeconds) * time.Second
}

func (c *Config) OnlineProbeInterval() time.Duration {
	return time.Duration(c.Connectivity.OnlineProbeSeconds) * time.Second
}

func (c *Config) OfflineProbeInterval() time.Duration {
	return time.Duration(c.Connectivity.OfflineProbeSeconds) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Connectivity.ProbeTimeoutSeconds) * time.Second
}

func (c *Config) VisionRestartPause() time.Duration {
	return time.Duration(c.Vision.RestartPauseSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := expandHome(pathValue)
	if err != nil {
		return "", err
	}
	absolute, err := filepath.Abs(filepath.Clean(expanded))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", expanded, err)
	}
	return absolute, nil
}

// expandHome resolves a leading ~ against the current user's home directory.
// A ~otheruser form is passed through untouched.
func expandHome(pathValue string) (string, error) {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	switch {
	case pathValue == "~":
		return home, nil
	case pathValue[1] == '/' || pathValue[1] == '\\':
		return filepath.Join(home, pathValue[2:]), nil
	}
	return pathValue, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ResolvePath reports which configuration file Load would read for the given
// argument and whether it exists, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
