package main

import (
	"testing"
	"time"

	"facegate/internal/testsupport"
)

func TestSyncNowEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"sync-now"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("sync-now failed: %v", err)
	}
	requireContains(t, stdout, "Queue is empty; nothing to sync")
}

func TestSyncNowReportsFailedDelivery(t *testing.T) {
	env := setupCLITestEnv(t)
	// The test backend URL points at a closed port, so delivery fails fast.
	testsupport.AppendEvent(t, env.store, "P-100", "in", time.Now())

	stdout, _, err := runCLI(t, []string{"sync-now"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("sync-now failed: %v", err)
	}
	requireContains(t, stdout, "Synced 0 of 1 events (rejected 0, failed 1); 1 still queued")
}
