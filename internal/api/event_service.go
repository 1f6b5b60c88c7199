package api

import (
	"context"
	"slices"

	"facegate/internal/eventstore"
)

// EventReader abstracts event persistence interactions needed for API queries.
type EventReader interface {
	List(ctx context.Context, statuses ...eventstore.SyncStatus) ([]*eventstore.Event, error)
	Recent(ctx context.Context, limit int) ([]*eventstore.Event, error)
	Stats(ctx context.Context) (map[eventstore.SyncStatus]int, error)
}

// EventService exposes read-only event operations returning API DTOs.
type EventService struct {
	store EventReader
}

// NewEventService constructs an EventService around the provided reader.
func NewEventService(store EventReader) *EventService {
	if store == nil {
		return nil
	}
	return &EventService{store: store}
}

// List returns events filtered by status, newest first, capped at limit.
// Without status filters it falls back to the recent listing.
func (s *EventService) List(ctx context.Context, statuses []eventstore.SyncStatus, limit int) ([]Event, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	if len(statuses) == 0 {
		return s.Recent(ctx, limit)
	}
	events, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	// The store lists chronologically; flip so every path is newest first.
	slices.Reverse(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return FromEvents(events), nil
}

// Recent returns the most recent events regardless of status.
func (s *EventService) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	events, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromEvents(events), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *EventService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeEventStats(stats), nil
}
