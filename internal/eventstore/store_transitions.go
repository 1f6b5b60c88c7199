package eventstore

import (
	"context"
	"fmt"
	"time"
)

// MarkSyncing claims an event for an in-flight delivery attempt. Only
// pending and retryable failed events move; repeating the call or racing a
// completed delivery is a no-op, never an error.
func (s *Store) MarkSyncing(ctx context.Context, eventID string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attendance_events SET sync_status = ?, updated_at = ?
         WHERE event_id = ? AND sync_status IN (?, ?)`,
		StatusSyncing,
		time.Now().UTC().Format(time.RFC3339Nano),
		eventID,
		StatusPending,
		StatusFailed,
	); err != nil {
		return fmt.Errorf("mark syncing: %w", err)
	}
	return nil
}

// MarkSynced records a confirmed delivery and clears retry bookkeeping.
// Synced is terminal; later transition calls leave the row untouched.
func (s *Store) MarkSynced(ctx context.Context, eventID string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attendance_events
         SET sync_status = ?, next_attempt_at = NULL, last_error = NULL, updated_at = ?
         WHERE event_id = ? AND sync_status != ?`,
		StatusSynced,
		time.Now().UTC().Format(time.RFC3339Nano),
		eventID,
		StatusSynced,
	); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure, counts the attempt, and schedules
// the next eligibility time.
func (s *Store) MarkFailed(ctx context.Context, eventID, lastErr string, nextAttemptAt time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attendance_events
         SET sync_status = ?, attempts = attempts + 1, next_attempt_at = ?,
             last_error = ?, updated_at = ?
         WHERE event_id = ? AND sync_status != ?`,
		StatusFailed,
		formatTime(nextAttemptAt),
		nullableString(lastErr),
		time.Now().UTC().Format(time.RFC3339Nano),
		eventID,
		StatusSynced,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkRejected records a permanent backend rejection. The event keeps its
// row for inspection but is excluded from delivery until an operator
// explicitly retries it.
func (s *Store) MarkRejected(ctx context.Context, eventID, lastErr string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attendance_events
         SET sync_status = ?, permanent = 1,
             attempts = CASE WHEN attempts < 1 THEN 1 ELSE attempts END,
             next_attempt_at = NULL, last_error = ?, updated_at = ?
         WHERE event_id = ? AND sync_status != ?`,
		StatusFailed,
		nullableString(lastErr),
		time.Now().UTC().Format(time.RFC3339Nano),
		eventID,
		StatusSynced,
	); err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	return nil
}

// ResetStuckSyncing returns events left in-flight by a crash to pending.
// Delivery may repeat as a result; the backend deduplicates on event id.
func (s *Store) ResetStuckSyncing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE attendance_events SET sync_status = ?, updated_at = ? WHERE sync_status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusSyncing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck syncing: %w", err)
	}
	return res.RowsAffected()
}

// ClearBackoff wipes retry delays on retryable failures so the next flush
// tries them immediately. Called when connectivity returns after an outage.
func (s *Store) ClearBackoff(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE attendance_events
         SET next_attempt_at = NULL, updated_at = ?
         WHERE sync_status = ? AND permanent = 0 AND next_attempt_at IS NOT NULL`,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("clear backoff: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed returns failed events to pending for another delivery pass.
// Permanent rejections are included; retrying one is an explicit operator
// decision. With no ids every failed event is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE attendance_events
            SET sync_status = ?, attempts = 0, permanent = 0, next_attempt_at = NULL,
                last_error = NULL, updated_at = ?
            WHERE sync_status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed events: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE attendance_events
        SET sync_status = ?, attempts = 0, permanent = 0, next_attempt_at = NULL,
            last_error = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND sync_status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected events: %w", err)
	}
	return res.RowsAffected()
}
