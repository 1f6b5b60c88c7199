package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of events grouped by sync status.
func (s *Store) Stats(ctx context.Context) (map[SyncStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sync_status, COUNT(1) FROM attendance_events GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[SyncStatus]int)
	for rows.Next() {
		var status SyncStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// PendingCount returns the number of events not yet confirmed by the backend.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM attendance_events WHERE sync_status IN (?, ?, ?)`,
		StatusPending,
		StatusSyncing,
		StatusFailed,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return count, nil
}

// TodayCounts aggregates decisions by kind at or after the supplied local
// day start.
func (s *Store) TodayCounts(ctx context.Context, dayStart time.Time) (KindCounts, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT kind, COUNT(1) FROM attendance_events WHERE occurred_at >= ? GROUP BY kind`,
		formatTime(dayStart),
	)
	if err != nil {
		return KindCounts{}, fmt.Errorf("today counts: %w", err)
	}
	defer rows.Close()

	var counts KindCounts
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return KindCounts{}, err
		}
		switch kind {
		case KindIn:
			counts.In = count
		case KindOut:
			counts.Out = count
		case KindUnknown:
			counts.Unknown = count
		}
	}
	return counts, rows.Err()
}

// ClearSynced removes delivered events from the queue.
func (s *Store) ClearSynced(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM attendance_events WHERE sync_status = ?`, StatusSynced)
	if err != nil {
		return 0, fmt.Errorf("clear synced: %w", err)
	}
	return res.RowsAffected()
}

// PurgeSyncedBefore removes delivered events older than the cutoff. The
// syncer runs this on the retention schedule so the database stays bounded.
func (s *Store) PurgeSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM attendance_events WHERE sync_status = ? AND occurred_at < ?`,
		StatusSynced,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge synced: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusSyncing:
			health.Syncing += count
		case StatusSynced:
			health.Synced += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the event database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath: s.path,
	}

	if s.path == "" {
		return health, errors.New("event database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat event database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("event database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("event database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping event database: %w", err)
	}
	health.DatabaseReadable = true

	row := s.db.QueryRowContext(connCtx, "PRAGMA journal_mode")
	if err := row.Scan(&health.JournalMode); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read journal mode: %w", err)
	}

	var tableName string
	row = s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'attendance_events'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(attendance_events)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}
		health.ColumnsPresent = append(health.ColumnsPresent, columns...)

		expected := []string{
			"id",
			"event_id",
			"person_id",
			"person_name",
			"device_id",
			"kind",
			"window_label",
			"occurred_at",
			"sync_status",
			"attempts",
			"next_attempt_at",
			"permanent",
			"last_error",
			"created_at",
			"updated_at",
		}
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM attendance_events")
		if err := row.Scan(&health.TotalEvents); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count events: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
