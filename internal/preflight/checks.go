package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"facegate/internal/config"
	"facegate/internal/deps"
	"facegate/internal/services/backend"
)

// CheckBackend verifies that the attendance backend is reachable with the
// configured device identity. One attempt, five-second ceiling.
func CheckBackend(ctx context.Context, cfg *config.Config) Result {
	const name = "Backend"

	client, err := backend.NewClient(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that path exists, is a directory, and grants
// this process read, write, and traverse permission.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(problem string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, problem)}
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fail("does not exist")
	case err != nil:
		return fail(fmt.Sprintf("stat: %v", err))
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(fmt.Sprintf("insufficient permissions: %v", err))
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckSystemDeps evaluates the external binaries the kiosk depends on.
// Both the daemon startup log and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{
		deps.CheckVisionWorker(cfg.Vision.Command),
	}
	return append(statuses, deps.Diagnostics()...)
}

// summarizeBackendError produces a human-readable summary for health failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	return err.Error()
}
