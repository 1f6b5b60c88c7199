package api

import (
	"time"

	"facegate/internal/connectivity"
	"facegate/internal/deps"
	"facegate/internal/eventstore"
)

// FromEvent converts a stored attendance event to its API representation.
func FromEvent(event *eventstore.Event) Event {
	if event == nil {
		return Event{}
	}

	dto := Event{
		ID:         event.ID,
		EventID:    event.EventID,
		PersonID:   event.PersonID,
		PersonName: event.PersonName,
		DeviceID:   event.DeviceID,
		Kind:       event.Kind,
		Window:     event.Window,
		OccurredAt: formatTimestamp(event.OccurredAt),
		SyncStatus: string(event.SyncStatus),
		Attempts:   event.Attempts,
		Permanent:  event.Permanent,
		LastError:  event.LastError,
	}
	if event.NextAttemptAt != nil {
		dto.NextAttemptAt = formatTimestamp(*event.NextAttemptAt)
	}
	if !event.CreatedAt.IsZero() {
		dto.CreatedAt = formatTimestamp(event.CreatedAt)
	}
	if !event.UpdatedAt.IsZero() {
		dto.UpdatedAt = formatTimestamp(event.UpdatedAt)
	}
	return dto
}

// FromEvents converts a slice of stored events into API DTOs.
func FromEvents(events []*eventstore.Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(events))
	for _, event := range events {
		out = append(out, FromEvent(event))
	}
	return out
}

// MergeEventStats normalizes queue counts to string keys with every known
// status present, so consumers can index without existence checks.
func MergeEventStats(stats map[eventstore.SyncStatus]int) map[string]int {
	out := make(map[string]int, len(eventstore.AllSyncStatuses()))
	for _, status := range eventstore.AllSyncStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromKindCounts converts per-kind totals into the API shape.
func FromKindCounts(counts eventstore.KindCounts) TodayCounts {
	return TodayCounts{
		In:      counts.In,
		Out:     counts.Out,
		Unknown: counts.Unknown,
	}
}

// FromConnectivity converts a monitor snapshot into the API shape.
func FromConnectivity(status connectivity.Status) ConnectivityStatus {
	dto := ConnectivityStatus{
		State:     string(status.State),
		Settled:   string(status.Settled),
		LastError: status.LastError,
	}
	if !status.LastChange.IsZero() {
		dto.LastChange = formatTimestamp(status.LastChange)
	}
	return dto
}

// FromDependencies converts dependency check results into API DTOs.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
