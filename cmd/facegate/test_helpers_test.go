package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"facegate/internal/config"
	"facegate/internal/daemon"
	"facegate/internal/eventstore"
	"facegate/internal/ipc"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/testsupport"
	"facegate/internal/vision"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *eventstore.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "facegate", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger,
		daemon.WithProvider(vision.NewStaticProvider(2)),
		daemon.WithNotifier(notifications.Noop()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger, nil)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[device]\nid = %q\ntoken = %q\n\n[backend]\nurl = %q\n\n[api]\nbind = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Device.ID,
		cfg.Device.Token,
		cfg.Backend.URL,
		cfg.API.Bind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedQueueEvents inserts one pending, one failed, and one synced event and
// returns their person ids in that order.
func seedQueueEvents(t *testing.T, store *eventstore.Store) []string {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	testsupport.AppendEvent(t, store, "P-100", "in", base)

	failed := testsupport.AppendEvent(t, store, "P-200", "in", base.Add(time.Minute))
	if err := store.MarkSyncing(ctx, failed.EventID); err != nil {
		t.Fatalf("MarkSyncing: %v", err)
	}
	if err := store.MarkFailed(ctx, failed.EventID, "connection refused", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	synced := testsupport.AppendEvent(t, store, "P-300", "out", base.Add(2*time.Minute))
	if err := store.MarkSyncing(ctx, synced.EventID); err != nil {
		t.Fatalf("MarkSyncing synced: %v", err)
	}
	if err := store.MarkSynced(ctx, synced.EventID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	return []string{"P-100", "P-200", "P-300"}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q to not contain %q", output, substr)
	}
}
