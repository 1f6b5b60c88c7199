package tracker

import "time"

// TrackStatus represents the debounce lifecycle of one tracked face.
type TrackStatus string

const (
	StatusScanning   TrackStatus = "scanning"
	StatusVerifying  TrackStatus = "verifying"
	StatusRecognized TrackStatus = "recognized"
	StatusUnknown    TrackStatus = "unknown"
	StatusExpired    TrackStatus = "expired"
)

// Outcome classifies a track decision.
type Outcome string

const (
	OutcomeRecognized Outcome = "recognized"
	OutcomeUnknown    Outcome = "unknown"
)

// SuppressedByCooldown marks decisions swallowed by the per-person window cooldown.
const SuppressedByCooldown = "cooldown"

// Observation is one face in one frame as reported by the vision provider.
// An empty PersonID is the no-match variant; Identified makes the check
// explicit.
type Observation struct {
	TrackID    string
	PersonID   string
	PersonName string
	Confidence float64
	BBox       [4]float32
}

// Identified reports whether the provider matched this face to a person.
func (o Observation) Identified() bool {
	return o.PersonID != ""
}

type identification struct {
	confidence float64
	hit        bool
}

// Track holds the per-face automaton state for one provider track id.
type Track struct {
	ID             string
	Status         TrackStatus
	CandidateID    string
	CandidateName  string
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
	VerifyingSince time.Time
	Decided        bool

	history []identification
}

func (t *Track) pushHistory(entry identification, limit int) {
	t.history = append(t.history, entry)
	if limit > 0 && len(t.history) > limit {
		t.history = t.history[len(t.history)-limit:]
	}
}

func (t *Track) resetHistory() {
	t.history = t.history[:0]
}

func (t *Track) agreeingHits() int {
	count := 0
	for _, entry := range t.history {
		if entry.hit {
			count++
		}
	}
	return count
}

// Decision is emitted at most once per track, on the transition into
// recognized or unknown. Suppressed decisions still surface (feed, metrics)
// but must not produce a durable event.
type Decision struct {
	TrackID      string
	Outcome      Outcome
	PersonID     string
	PersonName   string
	Confidence   float64
	ObservedAt   time.Time
	Window       Window
	Kind         string
	Suppressed   bool
	SuppressedBy string
}

// Emittable reports whether the decision should produce a durable event.
func (d Decision) Emittable() bool {
	return !d.Suppressed
}

// Params tunes the debouncing state machine.
type Params struct {
	VerifyWindow         int
	VerifyQuorum         int
	RecognitionThreshold float64
	VerifyTimeout        time.Duration
	TrackExpiry          time.Duration
	MaxTracks            int
}

func (p Params) withDefaults() Params {
	if p.VerifyWindow <= 0 {
		p.VerifyWindow = 3
	}
	if p.VerifyQuorum <= 0 {
		p.VerifyQuorum = 2
	}
	if p.RecognitionThreshold <= 0 {
		p.RecognitionThreshold = 0.80
	}
	if p.VerifyTimeout <= 0 {
		p.VerifyTimeout = 2 * time.Second
	}
	if p.TrackExpiry <= 0 {
		p.TrackExpiry = 1500 * time.Millisecond
	}
	if p.MaxTracks <= 0 {
		p.MaxTracks = 5
	}
	return p
}
