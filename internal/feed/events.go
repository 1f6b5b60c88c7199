package feed

import "time"

// Event types carried in the envelope.
const (
	TypeDecision        = "decision"
	TypeDecisionNotSave = "decision_not_saved"
	TypeSyncStatus      = "sync_status"
	TypeConnectivity    = "connectivity"
	TypeCamera          = "camera"
)

// Envelope is the wire frame for every feed event.
type Envelope struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// DecisionEmitted announces one tracker decision, suppressed or not.
type DecisionEmitted struct {
	TrackID    string `json:"trackId"`
	Outcome    string `json:"outcome"`
	PersonID   string `json:"personId,omitempty"`
	PersonName string `json:"personName,omitempty"`
	Kind       string `json:"kind"`
	Window     string `json:"window"`
	Greeting   string `json:"greeting,omitempty"`
	Suppressed bool   `json:"suppressed"`
	EventID    string `json:"eventId,omitempty"`
}

// DecisionNotSaved reports a decision that could not be persisted. The UI
// shows it so a dropped punch is never silent.
type DecisionNotSaved struct {
	TrackID  string `json:"trackId"`
	PersonID string `json:"personId,omitempty"`
	Error    string `json:"error"`
}

// SyncStatusChanged reports outbox progress after a flush or transition.
type SyncStatusChanged struct {
	PendingCount int    `json:"pendingCount"`
	LastError    string `json:"lastError,omitempty"`
	Connectivity string `json:"connectivity"`
}

// ConnectivityChanged mirrors settled monitor transitions.
type ConnectivityChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CameraChanged reports camera attach/detach from the device monitor.
type CameraChanged struct {
	Action string `json:"action"`
	Device string `json:"device"`
}
