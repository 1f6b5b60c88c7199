package testsupport

import (
	"path/filepath"
	"testing"

	"facegate/internal/config"
)

// ConfigOption mutates the generated test config before it is returned.
type ConfigOption func(*config.Config)

// NewConfig returns a config rooted in per-test temp directories, with the
// kiosk identity and an unroutable backend URL filled in so tests never talk
// to a real server by accident.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Device.ID = "kiosk-test"
	cfg.Device.Token = "token-test"
	cfg.Backend.URL = "http://127.0.0.1:1"
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBackendURL points the test config at the provided backend base URL.
func WithBackendURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.URL = url
	}
}

// WithDevice overrides the kiosk identity on the test config.
func WithDevice(id, token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Device.ID = id
		cfg.Device.Token = token
	}
}
