package eventstore

import (
	"strings"
	"time"
)

// SyncStatus represents the delivery lifecycle of an attendance event.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
)

var allSyncStatuses = []SyncStatus{
	StatusPending,
	StatusSyncing,
	StatusSynced,
	StatusFailed,
}

var syncStatusSet = func() map[SyncStatus]struct{} {
	set := make(map[SyncStatus]struct{}, len(allSyncStatuses))
	for _, status := range allSyncStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Kind values carried by attendance events.
const (
	KindIn      = "in"
	KindOut     = "out"
	KindUnknown = "unknown"
)

// Event represents one attendance decision persisted in SQLite.
//
// EventID is the client-generated idempotency key: assigned once at append
// time and reused verbatim on every delivery attempt. OccurredAt is the
// device-local decision instant, set once at creation; sync retries update
// only the delivery bookkeeping fields.
type Event struct {
	ID            int64
	EventID       string
	PersonID      string
	PersonName    string
	DeviceID      string
	Kind          string
	Window        string
	OccurredAt    time.Time
	SyncStatus    SyncStatus
	Attempts      int
	NextAttemptAt *time.Time
	Permanent     bool
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllSyncStatuses returns the ordered list of known statuses.
func AllSyncStatuses() []SyncStatus {
	cp := make([]SyncStatus, len(allSyncStatuses))
	copy(cp, allSyncStatuses)
	return cp
}

// ParseSyncStatus converts a string into a known SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, bool) {
	normalized := SyncStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := syncStatusSet[normalized]
	return normalized, ok
}

// ValidKind reports whether a kind string is one of the known values.
func ValidKind(kind string) bool {
	switch kind {
	case KindIn, KindOut, KindUnknown:
		return true
	default:
		return false
	}
}

// Deliverable reports whether the event may still be handed to the backend:
// pending, or failed without a permanent rejection and attempts below the
// ceiling.
func (e Event) Deliverable(maxAttempts int) bool {
	switch e.SyncStatus {
	case StatusPending:
		return true
	case StatusFailed:
		return !e.Permanent && e.Attempts < maxAttempts
	default:
		return false
	}
}

// InBackoff reports whether the event is still waiting out its retry delay
// at the supplied instant.
func (e Event) InBackoff(now time.Time) bool {
	return e.NextAttemptAt != nil && now.Before(*e.NextAttemptAt)
}

// DatabaseHealth captures diagnostic information about the event database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	JournalMode      string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalEvents      int
	Error            string
}

// HealthSummary describes aggregated queue counts per delivery state.
type HealthSummary struct {
	Total   int
	Pending int
	Syncing int
	Synced  int
	Failed  int
}

// KindCounts aggregates decisions per attendance kind.
type KindCounts struct {
	In      int
	Out     int
	Unknown int
}
