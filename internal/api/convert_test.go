package api_test

import (
	"context"
	"testing"
	"time"

	"facegate/internal/api"
	"facegate/internal/eventstore"
)

func sampleEvent(id int64, personID string, occurredAt time.Time, status eventstore.SyncStatus) *eventstore.Event {
	return &eventstore.Event{
		ID:         id,
		EventID:    "evt-" + personID,
		PersonID:   personID,
		PersonName: "Ada Lovelace",
		DeviceID:   "kiosk-1",
		Kind:       eventstore.KindIn,
		Window:     "2026-08-25/morning-in",
		OccurredAt: occurredAt,
		SyncStatus: status,
		Attempts:   2,
		LastError:  "connection refused",
		CreatedAt:  occurredAt,
		UpdatedAt:  occurredAt.Add(time.Minute),
	}
}

func TestFromEventFormatsTimestamps(t *testing.T) {
	occurred := time.Date(2026, time.August, 25, 8, 15, 30, 250_000_000, time.UTC)
	next := occurred.Add(30 * time.Second)
	event := sampleEvent(7, "P-100", occurred, eventstore.StatusFailed)
	event.NextAttemptAt = &next

	dto := api.FromEvent(event)
	if dto.OccurredAt != "2026-08-25T08:15:30.250Z" {
		t.Fatalf("unexpected occurredAt: %q", dto.OccurredAt)
	}
	if dto.NextAttemptAt != "2026-08-25T08:16:00.250Z" {
		t.Fatalf("unexpected nextAttemptAt: %q", dto.NextAttemptAt)
	}
	if dto.SyncStatus != "failed" {
		t.Fatalf("unexpected syncStatus: %q", dto.SyncStatus)
	}
	if dto.EventID != "evt-P-100" || dto.Window != "2026-08-25/morning-in" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
}

func TestFromEventNilIsZero(t *testing.T) {
	dto := api.FromEvent(nil)
	if dto.EventID != "" || dto.OccurredAt != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
}

func TestMergeEventStatsFillsMissingStatuses(t *testing.T) {
	merged := api.MergeEventStats(map[eventstore.SyncStatus]int{
		eventstore.StatusPending: 3,
	})
	if merged["pending"] != 3 {
		t.Fatalf("pending = %d, want 3", merged["pending"])
	}
	for _, status := range []string{"syncing", "synced", "failed"} {
		count, ok := merged[status]
		if !ok {
			t.Fatalf("missing status %q in merged stats", status)
		}
		if count != 0 {
			t.Fatalf("status %q = %d, want 0", status, count)
		}
	}
}

type readerStub struct {
	events []*eventstore.Event
}

func (s *readerStub) List(_ context.Context, statuses ...eventstore.SyncStatus) ([]*eventstore.Event, error) {
	var out []*eventstore.Event
	for _, event := range s.events {
		for _, status := range statuses {
			if event.SyncStatus == status {
				out = append(out, event)
			}
		}
	}
	return out, nil
}

func (s *readerStub) Recent(_ context.Context, limit int) ([]*eventstore.Event, error) {
	out := make([]*eventstore.Event, len(s.events))
	copy(out, s.events)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *readerStub) Stats(context.Context) (map[eventstore.SyncStatus]int, error) {
	return map[eventstore.SyncStatus]int{eventstore.StatusPending: len(s.events)}, nil
}

func TestEventServiceListNewestFirst(t *testing.T) {
	base := time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)
	stub := &readerStub{events: []*eventstore.Event{
		sampleEvent(1, "P-1", base, eventstore.StatusPending),
		sampleEvent(2, "P-2", base.Add(time.Minute), eventstore.StatusPending),
		sampleEvent(3, "P-3", base.Add(2*time.Minute), eventstore.StatusPending),
	}}
	svc := api.NewEventService(stub)

	events, err := svc.List(context.Background(), []eventstore.SyncStatus{eventstore.StatusPending}, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PersonID != "P-3" || events[1].PersonID != "P-2" {
		t.Fatalf("expected newest first, got %q then %q", events[0].PersonID, events[1].PersonID)
	}
}

func TestEventServiceListWithoutFilterUsesRecent(t *testing.T) {
	base := time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)
	stub := &readerStub{events: []*eventstore.Event{
		sampleEvent(1, "P-1", base, eventstore.StatusSynced),
		sampleEvent(2, "P-2", base.Add(time.Minute), eventstore.StatusPending),
	}}
	svc := api.NewEventService(stub)

	events, err := svc.List(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PersonID != "P-2" {
		t.Fatalf("expected newest first, got %q", events[0].PersonID)
	}
}

func TestNewEventServiceNilStore(t *testing.T) {
	if svc := api.NewEventService(nil); svc != nil {
		t.Fatal("expected nil service for nil store")
	}
	var svc *api.EventService
	events, err := svc.Recent(context.Background(), 5)
	if err != nil || events != nil {
		t.Fatalf("nil service should be inert, got %v %v", events, err)
	}
}
