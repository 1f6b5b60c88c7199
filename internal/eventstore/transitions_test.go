package eventstore_test

import (
	"context"
	"testing"
	"time"

	"facegate/internal/eventstore"
	"facegate/internal/testsupport"
)

func TestMarkSyncingClaimsPendingEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	event := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, time.Now())

	if err := store.MarkSyncing(ctx, event.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	fetched, err := store.GetByEventID(ctx, event.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.SyncStatus != eventstore.StatusSyncing {
		t.Fatalf("expected syncing, got %s", fetched.SyncStatus)
	}

	// Repeating the claim is a no-op, not an error.
	if err := store.MarkSyncing(ctx, event.EventID); err != nil {
		t.Fatalf("repeat MarkSyncing failed: %v", err)
	}
}

func TestMarkSyncedIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	event := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, time.Now())

	if err := store.MarkSyncing(ctx, event.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkSynced(ctx, event.EventID); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	if err := store.MarkFailed(ctx, event.EventID, "late failure", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if err := store.MarkSyncing(ctx, event.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}

	fetched, err := store.GetByEventID(ctx, event.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.SyncStatus != eventstore.StatusSynced {
		t.Fatalf("expected synced to stay terminal, got %s", fetched.SyncStatus)
	}
	if fetched.Attempts != 0 || fetched.NextAttemptAt != nil || fetched.LastError != "" {
		t.Fatalf("expected delivery bookkeeping untouched after synced, got %#v", fetched)
	}
}

func TestMarkFailedCountsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	event := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, time.Now())
	next := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if err := store.MarkSyncing(ctx, event.EventID); err != nil {
			t.Fatalf("MarkSyncing failed: %v", err)
		}
		if err := store.MarkFailed(ctx, event.EventID, "connection refused", next); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	fetched, err := store.GetByEventID(ctx, event.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.SyncStatus != eventstore.StatusFailed {
		t.Fatalf("expected failed, got %s", fetched.SyncStatus)
	}
	if fetched.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", fetched.Attempts)
	}
	if fetched.NextAttemptAt == nil || !fetched.NextAttemptAt.Equal(next) {
		t.Fatalf("expected next attempt at %s, got %v", next, fetched.NextAttemptAt)
	}
	if fetched.LastError != "connection refused" {
		t.Fatalf("expected last error recorded, got %q", fetched.LastError)
	}
	if fetched.Permanent {
		t.Fatal("transient failure must not be permanent")
	}
}

func TestMarkRejectedIsPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	event := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, time.Now())

	if err := store.MarkSyncing(ctx, event.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkRejected(ctx, event.EventID, "person not enrolled"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}

	fetched, err := store.GetByEventID(ctx, event.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.SyncStatus != eventstore.StatusFailed || !fetched.Permanent {
		t.Fatalf("expected permanent failure, got %#v", fetched)
	}
	if fetched.Attempts != 1 {
		t.Fatalf("expected a single recorded attempt, got %d", fetched.Attempts)
	}
	if fetched.LastError != "person not enrolled" {
		t.Fatalf("expected rejection reason recorded, got %q", fetched.LastError)
	}

	pending, err := store.ListPending(ctx, 8)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("rejected event must not be deliverable, got %d events", len(pending))
	}
}

func TestResetStuckSyncing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	stuckA := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, base)
	stuckB := testsupport.AppendEvent(t, store, "p-2", eventstore.KindIn, base.Add(time.Minute))
	testsupport.AppendEvent(t, store, "p-3", eventstore.KindIn, base.Add(2*time.Minute))

	for _, eventID := range []string{stuckA.EventID, stuckB.EventID} {
		if err := store.MarkSyncing(ctx, eventID); err != nil {
			t.Fatalf("MarkSyncing failed: %v", err)
		}
	}

	reset, err := store.ResetStuckSyncing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckSyncing failed: %v", err)
	}
	if reset != 2 {
		t.Fatalf("expected 2 events reset, got %d", reset)
	}

	pending, err := store.List(ctx, eventstore.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected all events pending after reset, got %d", len(pending))
	}
}

func TestClearBackoffSkipsPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	delayed := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, base)
	rejected := testsupport.AppendEvent(t, store, "p-2", eventstore.KindIn, base.Add(time.Minute))

	if err := store.MarkSyncing(ctx, delayed.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkFailed(ctx, delayed.EventID, "timeout", base.Add(time.Hour)); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if err := store.MarkSyncing(ctx, rejected.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkRejected(ctx, rejected.EventID, "bad payload"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}

	cleared, err := store.ClearBackoff(ctx)
	if err != nil {
		t.Fatalf("ClearBackoff failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 backoff cleared, got %d", cleared)
	}

	fetched, err := store.GetByEventID(ctx, delayed.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.NextAttemptAt != nil {
		t.Fatalf("expected backoff cleared, got %v", fetched.NextAttemptAt)
	}
	if fetched.Attempts != 1 {
		t.Fatalf("expected attempt count preserved, got %d", fetched.Attempts)
	}
}

func TestRetryFailedRestoresPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	rejected := testsupport.AppendEvent(t, store, "p-1", eventstore.KindIn, base)
	failed := testsupport.AppendEvent(t, store, "p-2", eventstore.KindIn, base.Add(time.Minute))
	untouched := testsupport.AppendEvent(t, store, "p-3", eventstore.KindIn, base.Add(2*time.Minute))

	if err := store.MarkSyncing(ctx, rejected.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkRejected(ctx, rejected.EventID, "bad payload"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}
	if err := store.MarkSyncing(ctx, failed.EventID); err != nil {
		t.Fatalf("MarkSyncing failed: %v", err)
	}
	if err := store.MarkFailed(ctx, failed.EventID, "timeout", base.Add(time.Hour)); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, rejected.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event retried, got %d", count)
	}

	fetched, err := store.GetByEventID(ctx, rejected.EventID)
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if fetched.SyncStatus != eventstore.StatusPending || fetched.Permanent || fetched.Attempts != 0 {
		t.Fatalf("expected clean pending event after retry, got %#v", fetched)
	}
	if fetched.LastError != "" || fetched.NextAttemptAt != nil {
		t.Fatalf("expected retry to clear delivery bookkeeping, got %#v", fetched)
	}

	// Retrying the untouched pending event is a no-op.
	count, err = store.RetryFailed(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows for pending event, got %d", count)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed (all) failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining failed event retried, got %d", count)
	}
}
