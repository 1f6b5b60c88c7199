package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Event describes an attendance event in a transport-friendly format.
type Event struct {
	ID            int64  `json:"id"`
	EventID       string `json:"eventId"`
	PersonID      string `json:"personId,omitempty"`
	PersonName    string `json:"personName,omitempty"`
	DeviceID      string `json:"deviceId"`
	Kind          string `json:"kind"`
	Window        string `json:"window"`
	OccurredAt    string `json:"occurredAt"`
	SyncStatus    string `json:"syncStatus"`
	Attempts      int    `json:"attempts"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
	Permanent     bool   `json:"permanent"`
	LastError     string `json:"lastError,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// ConnectivityStatus mirrors the connectivity monitor snapshot.
type ConnectivityStatus struct {
	State      string `json:"state"`
	Settled    string `json:"settled"`
	LastChange string `json:"lastChange,omitempty"`
	LastError  string `json:"lastError,omitempty"`
}

// SyncSummary reports delivery loop progress.
type SyncSummary struct {
	LastError   string `json:"lastError,omitempty"`
	LastFlushAt string `json:"lastFlushAt,omitempty"`
}

// TodayCounts aggregates decisions recorded since local midnight.
type TodayCounts struct {
	In      int `json:"in"`
	Out     int `json:"out"`
	Unknown int `json:"unknown"`
}

// DependencyStatus reports whether one external tool the kiosk shells out
// to is present.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus is the full runtime picture served by /api/status and the
// status IPC call.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DeviceID     string             `json:"deviceId"`
	Site         string             `json:"site,omitempty"`
	Connectivity ConnectivityStatus `json:"connectivity"`
	Queue        map[string]int     `json:"queue"`
	Today        TodayCounts        `json:"today"`
	Sync         SyncSummary        `json:"sync"`
	FeedClients  int                `json:"feedClients"`
	ActiveTracks int                `json:"activeTracks"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// StatusLine is a labeled check result rendered by status consumers.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// EventListResponse wraps a collection of events for API responses.
type EventListResponse struct {
	Events []Event `json:"events"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}
