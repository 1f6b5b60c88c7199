package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"facegate/internal/config"
	"facegate/internal/eventstore"
)

// MustOpenStore opens an eventstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *eventstore.Store {
	t.Helper()

	store, err := eventstore.Open(cfg)
	if err != nil {
		t.Fatalf("eventstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AppendEvent inserts an attendance event for tests using the provided store.
func AppendEvent(t testing.TB, store *eventstore.Store, personID, kind string, occurredAt time.Time) *eventstore.Event {
	t.Helper()

	event := &eventstore.Event{
		EventID:    uuid.NewString(),
		PersonID:   personID,
		DeviceID:   "kiosk-test",
		Kind:       kind,
		Window:     occurredAt.Format("2006-01-02") + "/morning-in",
		OccurredAt: occurredAt,
	}
	if err := store.Append(context.Background(), event); err != nil {
		t.Fatalf("store.Append: %v", err)
	}
	return event
}
