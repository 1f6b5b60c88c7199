package ipc

import "facegate/internal/api"

// PingRequest checks that the daemon answers on the socket.
type PingRequest struct{}

// PingResponse reports the daemon process id.
type PingResponse struct {
	PID int `json:"pid"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest asks for the full runtime snapshot.
type StatusRequest struct{}

// Event mirrors the HTTP API event DTO for internal IPC callers.
type Event = api.Event

// ConnectivityStatus mirrors the HTTP API connectivity DTO.
type ConnectivityStatus = api.ConnectivityStatus

// TodayCounts mirrors the HTTP API per-kind counts DTO.
type TodayCounts = api.TodayCounts

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StatusLine mirrors the HTTP API check-line DTO.
type StatusLine = api.StatusLine

// DependencySummary mirrors the HTTP API dependency rollup DTO.
type DependencySummary = api.DependencySummary

// StatusResponse represents combined daemon/pipeline status information.
// The daemon fills the runtime fields; daemonctl.BuildStatusSnapshot adds
// the check sections and offline fallbacks before the CLI renders it.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	DeviceID      string             `json:"device_id"`
	Site          string             `json:"site"`
	Connectivity  ConnectivityStatus `json:"connectivity"`
	QueueStats    map[string]int     `json:"queue_stats"`
	Today         TodayCounts        `json:"today"`
	LastSyncError string             `json:"last_sync_error"`
	LastFlushAt   string             `json:"last_flush_at"`
	FeedClients   int                `json:"feed_clients"`
	ActiveTracks  int                `json:"active_tracks"`
	DatabasePath  string             `json:"database_path"`
	LockPath      string             `json:"lock_path"`
	Dependencies  []DependencyStatus `json:"dependencies"`

	SystemChecks      []StatusLine      `json:"system_checks,omitempty"`
	PathChecks        []StatusLine      `json:"path_checks,omitempty"`
	DependencySummary DependencySummary `json:"dependency_summary"`
}

// QueueListRequest filters event listing by delivery status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
	Limit    int      `json:"limit"`
}

// QueueListResponse contains queued events, newest first.
type QueueListResponse struct {
	Events []Event `json:"events"`
}

// QueueStatsRequest fetches per-status queue counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports per-status queue counts.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// QueueRetryRequest retries specific failed events by id.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried events.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryAllRequest retries every failed event.
type QueueRetryAllRequest struct{}

// QueueRetryAllResponse reports number of retried events.
type QueueRetryAllResponse struct {
	Updated int64 `json:"updated"`
}

// QueueClearSyncedRequest removes delivered events.
type QueueClearSyncedRequest struct{}

// QueueClearSyncedResponse reports number of removed events.
type QueueClearSyncedResponse struct {
	Removed int64 `json:"removed"`
}

// EventsRecentRequest fetches the newest events regardless of status.
type EventsRecentRequest struct {
	Limit int `json:"limit"`
}

// EventsRecentResponse contains recent events, newest first.
type EventsRecentResponse struct {
	Events []Event `json:"events"`
}

// SyncNowRequest forces an immediate queue flush.
type SyncNowRequest struct{}

// SyncNowResponse reports the outcome of a forced flush.
type SyncNowResponse struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// TestNotifyRequest triggers a notification test.
type TestNotifyRequest struct{}

// TestNotifyResponse reports notification test outcome.
type TestNotifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
