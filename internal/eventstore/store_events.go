package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Append inserts a new attendance event in the pending state.
//
// The caller provides EventID, DeviceID, Kind, Window, and OccurredAt;
// Append assigns the rowid and bookkeeping fields on the passed event.
// Reusing an existing event id reports ErrDuplicateEvent.
func (s *Store) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event is nil")
	}
	if event.EventID == "" {
		return errors.New("event id is required")
	}

	now := time.Now().UTC()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}
	event.SyncStatus = StatusPending
	event.Attempts = 0
	event.NextAttemptAt = nil
	event.Permanent = false
	event.LastError = ""
	event.CreatedAt = now
	event.UpdatedAt = now

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO attendance_events (
            event_id, person_id, person_name, device_id, kind, window_label,
            occurred_at, sync_status, attempts, permanent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID,
		nullableString(event.PersonID),
		nullableString(event.PersonName),
		event.DeviceID,
		event.Kind,
		event.Window,
		formatTime(event.OccurredAt),
		event.SyncStatus,
		event.Attempts,
		boolToInt(event.Permanent),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, event.EventID)
		}
		return fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	event.ID = id
	return nil
}

// GetByID fetches an event by rowid.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM attendance_events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// GetByEventID fetches an event by its idempotency key.
func (s *Store) GetByEventID(ctx context.Context, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM attendance_events WHERE event_id = ?`, eventID)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event by event id: %w", err)
	}
	return event, nil
}

// ListPending returns the events still owed to the backend in chronological
// order: everything pending, plus retryable failures below the attempt
// ceiling. Backoff eligibility (next_attempt_at) is checked by the syncer
// on the head event only; filtering it here would let a younger event
// overtake a delayed head.
func (s *Store) ListPending(ctx context.Context, maxAttempts int) ([]*Event, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM attendance_events
         WHERE sync_status = ?
            OR (sync_status = ? AND permanent = 0 AND attempts < ?)
         ORDER BY occurred_at, id`,
		StatusPending,
		StatusFailed,
		maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// List returns events filtered by status set (or all events when no status
// is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...SyncStatus) ([]*Event, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + eventColumns + ` FROM attendance_events`
	orderClause := ` ORDER BY occurred_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE sync_status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Recent returns the newest events first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM attendance_events ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
