// Package daemonrun hosts the daemon process lifecycle shared by facegated
// and `facegate run`: logging and pid bookkeeping, the event store, the
// daemon itself, and the IPC socket, torn down in reverse order on signal.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"facegate/internal/config"
	"facegate/internal/daemon"
	"facegate/internal/eventstore"
	"facegate/internal/ipc"
	"facegate/internal/logging"
	"facegate/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the facegate daemon runtime loop. It blocks until the process
// receives SIGINT/SIGTERM or a stop request arrives over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := openRunLogger(cfg, opts.LogLevel)
	if err != nil {
		return err
	}
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "facegated.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := eventstore.Open(cfg)
	if err != nil {
		logger.Error("open event store", logging.Error(err))
		return err
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// Take the instance lock before publishing the socket so a second launch
	// fails without disturbing the socket of the daemon that owns the lock.
	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("facegate daemon shutting down")
	return nil
}

// openRunLogger creates this run's timestamped log file, repoints the stable
// facegated.log name at it, and prunes files left over from earlier runs.
func openRunLogger(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	runStamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, "facegated-"+runStamp+".log")

	level := strings.TrimSpace(levelOverride)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := pointCurrentLog(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update facegated.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "facegated-*.log", Exclude: []string{logPath}},
	)
	return logger, nil
}

// pointCurrentLog repoints the stable facegated.log name at this run's file.
// A hard link covers filesystems without symlink support.
func pointCurrentLog(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	pointer := filepath.Join(logDir, "facegated.log")
	if err := os.Remove(pointer); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace log pointer: %w", err)
	}
	if err := os.Symlink(target, pointer); err == nil {
		return nil
	}
	if err := os.Link(target, pointer); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

// writePIDFile records this process id for the CLI's force-kill path.
func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// logDependencySnapshot records tool availability once at startup. Missing
// optional tooling is logged rather than fatal; the daemon can run without
// camera diagnostics.
func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		logger.Info("dependency snapshot",
			logging.String("name", dep.Name),
			logging.String("command", dep.Command),
			logging.Bool("available", dep.Available),
			logging.Bool("optional", dep.Optional))
	}
}
