// Package daemonctl drives the facegate daemon from the CLI process:
// spawning it, waiting for its socket, stopping it, and assembling status
// snapshots that work whether or not a daemon is running.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"facegate/internal/config"
	"facegate/internal/ipc"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

const pollInterval = 200 * time.Millisecond

// LaunchOptions carries CLI flag overrides through to the spawned daemon.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
}

// StartState classifies what EnsureStarted had to do.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult reports how EnsureStarted left the daemon.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// StopResult reports how StopAndTerminate brought the daemon down.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult combines the stop and start halves of a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// fetchStatus dials the daemon socket, reads one status snapshot, and closes
// the connection.
func fetchStatus(socketPath string) (*ipc.StatusResponse, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, errors.New("daemon returned empty status")
	}
	return status, nil
}

// socketGone reports whether a dial error means no daemon is serving, as
// opposed to a daemon that answered badly.
func socketGone(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// poll invokes fn every pollInterval until it reports done or the timeout
// elapses. On timeout it returns the last error fn produced.
func poll(timeout time.Duration, fn func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		done, err := fn()
		if done {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = errors.New("timed out")
	}
	return lastErr
}

// spawnDaemon forks a detached `facegate run` process, forwarding CLI
// overrides as flags.
func spawnDaemon(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}

	cmd := exec.Command(executablePath, args...)
	// New session: terminal signals aimed at the CLI must not reach the
	// daemon while start is still polling.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return cmd.Process.Release()
}

// EnsureStarted launches the daemon unless one is already serving the socket,
// then waits for the new process to report running. The daemon publishes its
// socket only after its components are up, so a healthy status means the
// pipeline is live.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	status, err := fetchStatus(socketPath)
	switch {
	case err == nil && status.Running:
		return StartResult{State: StartStateAlreadyRunning}, nil
	case err == nil || !socketGone(err):
		// A socket answered but the daemon is unhealthy or mid-shutdown.
		// Let it clear before spawning a replacement.
		_ = awaitShutdown(socketPath, 5*time.Second)
	}

	if err := spawnDaemon(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	socketSeen := false
	waitErr := poll(waitTimeout, func() (bool, error) {
		status, err := fetchStatus(socketPath)
		if err != nil {
			return false, err
		}
		socketSeen = true
		return status.Running, nil
	})
	if waitErr == nil {
		return StartResult{State: StartStateStarted, Launched: true}, nil
	}
	if socketSeen {
		return StartResult{
			State:    StartStateRequested,
			Launched: true,
			Message:  "daemon launched, start still settling",
		}, nil
	}
	return StartResult{}, fmt.Errorf("daemon failed to start: %w", waitErr)
}

// awaitShutdown waits for the daemon socket to disappear or its status to
// report not-running.
func awaitShutdown(socketPath string, timeout time.Duration) error {
	err := poll(timeout, func() (bool, error) {
		status, err := fetchStatus(socketPath)
		if err != nil {
			if socketGone(err) {
				return true, nil
			}
			return false, err
		}
		if !status.Running {
			return true, nil
		}
		return false, errors.New("daemon still running")
	})
	if err != nil {
		return fmt.Errorf("daemon did not stop: %w", err)
	}
	return nil
}

// processAlive reports whether a daemon still answers on the socket, and the
// PID it claims.
func processAlive(socketPath string) (bool, int) {
	status, err := fetchStatus(socketPath)
	if err != nil {
		return false, 0
	}
	return true, status.PID
}

// StopAndTerminate asks the daemon to stop over IPC, waits out the grace
// period, and force-kills the process if its socket is still answering.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if socketGone(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	var result StopResult
	var lockPath string
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockPath = status.LockPath
		result.PID = status.PID
	}
	stopResp, stopErr := client.Stop()
	_ = client.Close()
	if stopErr != nil {
		return StopResult{}, stopErr
	}
	if stopResp != nil {
		result.StopAcknowledged = stopResp.Stopped
	}

	_ = awaitShutdown(socketPath, gracePeriod)
	alive, livePID := processAlive(socketPath)
	if !alive {
		return result, nil
	}

	fallbackPID := livePID
	if fallbackPID == 0 {
		fallbackPID = result.PID
	}
	logDir := DeriveLogDir(lockPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	killedPID, killErr := killDaemonProcess(
		filepath.Join(logDir, "facegated.pid"),
		filepath.Join(logDir, "facegate.lock"),
		fallbackPID,
	)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if it is running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stop, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	start, startErr := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if startErr != nil {
		return RestartResult{}, startErr
	}

	return RestartResult{WasRunning: stopErr == nil, Stop: stop, Start: start}, nil
}

// DeriveLogDir determines the daemon runtime directory from status and
// config hints. The lock file lives next to the pid file, so its directory
// wins when known.
func DeriveLogDir(lockPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	return ""
}

// readPIDFile parses the daemon pid file. Missing or malformed files yield
// zero rather than an error so callers can fall back to the IPC-reported pid.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// killDaemonProcess sends SIGKILL to the recorded daemon process and removes
// its pid and lock files. It refuses to kill the calling process.
func killDaemonProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}
