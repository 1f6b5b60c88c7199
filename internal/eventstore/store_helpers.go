package eventstore

import (
	"database/sql"
	"errors"
	"time"
)

const eventColumns = "id, event_id, person_id, person_name, device_id, kind, window_label, occurred_at, sync_status, attempts, next_attempt_at, permanent, last_error, created_at, updated_at"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		id             int64
		eventID        string
		personID       sql.NullString
		personName     sql.NullString
		deviceID       string
		kind           string
		windowLabel    string
		occurredRaw    string
		statusStr      string
		attempts       int
		nextAttemptRaw sql.NullString
		permanent      sql.NullInt64
		lastError      sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&eventID,
		&personID,
		&personName,
		&deviceID,
		&kind,
		&windowLabel,
		&occurredRaw,
		&statusStr,
		&attempts,
		&nextAttemptRaw,
		&permanent,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	event := &Event{
		ID:         id,
		EventID:    eventID,
		PersonID:   personID.String,
		PersonName: personName.String,
		DeviceID:   deviceID,
		Kind:       kind,
		Window:     windowLabel,
		SyncStatus: SyncStatus(statusStr),
		Attempts:   attempts,
		LastError:  lastError.String,
	}
	if permanent.Valid {
		event.Permanent = permanent.Int64 != 0
	}

	if occurred, err := parseTimeString(occurredRaw); err == nil {
		event.OccurredAt = occurred
	}
	if nextAttemptRaw.Valid {
		if next, err := parseTimeString(nextAttemptRaw.String); err == nil {
			event.NextAttemptAt = &next
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		event.UpdatedAt = updated
	}
	return event, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
