package main

import (
	"context"
	"path/filepath"
	"testing"

	"facegate/internal/eventstore"
)

func TestQueueStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueueEvents(t, env.store)

	stdout, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status failed: %v", err)
	}
	requireContains(t, stdout, "Pending")
	requireContains(t, stdout, "Failed")
	requireContains(t, stdout, "Synced")
}

func TestQueueStatusEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status failed: %v", err)
	}
	requireContains(t, stdout, "Queue is empty")
}

func TestQueueListCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	persons := seedQueueEvents(t, env.store)

	stdout, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	for _, person := range persons {
		requireContains(t, stdout, person)
	}
	requireContains(t, stdout, "connection refused")
}

func TestQueueListStatusFilter(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueueEvents(t, env.store)

	stdout, _, err := runCLI(t, []string{"queue", "list", "--status", "failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status failed: %v", err)
	}
	requireContains(t, stdout, "P-200")
	requireNotContains(t, stdout, "P-100")
	requireNotContains(t, stdout, "P-300")
}

func TestQueueRetryAllCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueueEvents(t, env.store)

	stdout, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry failed: %v", err)
	}
	requireContains(t, stdout, "Retried 1 failed events")

	stats, err := env.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[eventstore.StatusFailed] != 0 {
		t.Fatalf("expected no failed events after retry, got %d", stats[eventstore.StatusFailed])
	}
	if stats[eventstore.StatusPending] != 2 {
		t.Fatalf("expected 2 pending events after retry, got %d", stats[eventstore.StatusPending])
	}
}

func TestQueueRetryRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "retry", "abc"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected an error for a non-numeric event id")
	}
	requireContains(t, err.Error(), "invalid event id")
}

func TestQueueClearCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueueEvents(t, env.store)

	stdout, _, err := runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear failed: %v", err)
	}
	requireContains(t, stdout, "Cleared 1 synced events")

	stats, err := env.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[eventstore.StatusSynced] != 0 {
		t.Fatalf("expected synced events removed, got %d", stats[eventstore.StatusSynced])
	}
}

// The queue commands fall back to the event database when the daemon socket
// is unreachable, so maintenance works while the kiosk is stopped.
func TestQueueStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueueEvents(t, env.store)

	deadSocket := filepath.Join(env.baseDir, "missing.sock")
	stdout, _, err := runCLI(t, []string{"queue", "status"}, deadSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue status without daemon failed: %v", err)
	}
	requireContains(t, stdout, "Pending")
}
