package tracker

import (
	"sync"
	"time"

	"facegate/internal/config"
)

// Tracker runs one debouncing automaton per active track id.
type Tracker struct {
	params   Params
	resolver *WindowResolver
	cooldown *CooldownLedger

	mu      sync.Mutex
	tracks  map[string]*Track
	dropped int64
}

// New constructs a Tracker from configuration.
func New(cfg *config.Config) (*Tracker, error) {
	resolver, err := NewWindowResolver(cfg.Attendance.InUntil)
	if err != nil {
		return nil, err
	}
	params := Params{
		VerifyWindow:         cfg.Tracker.VerifyWindow,
		VerifyQuorum:         cfg.Tracker.VerifyQuorum,
		RecognitionThreshold: cfg.Tracker.RecognitionThreshold,
		VerifyTimeout:        cfg.VerifyTimeout(),
		TrackExpiry:          cfg.TrackExpiry(),
		MaxTracks:            cfg.Vision.MaxFaces,
	}
	return NewWithParams(params, resolver, NewCooldownLedger(cfg.CooldownTTL())), nil
}

// NewWithParams constructs a Tracker with explicit dependencies (primarily
// for tests). Nil resolver or ledger fall back to defaults.
func NewWithParams(params Params, resolver *WindowResolver, ledger *CooldownLedger) *Tracker {
	if resolver == nil {
		resolver, _ = NewWindowResolver("13:00")
	}
	if ledger == nil {
		ledger = NewCooldownLedger(4 * time.Hour)
	}
	return &Tracker{
		params:   params.withDefaults(),
		resolver: resolver,
		cooldown: ledger,
		tracks:   make(map[string]*Track),
	}
}

// ProcessFrame advances every automaton with one frame's observations and
// returns the decisions reached. The caller supplies the frame capture time;
// the tracker never reads the clock. An empty observation list advances
// expiry and verify timeouts only and never resets a verification window.
func (t *Tracker) ProcessFrame(now time.Time, observations []Observation) []Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	var decisions []Decision

	if max := t.params.MaxTracks; len(observations) > max {
		t.dropped += int64(len(observations) - max)
		observations = observations[:max]
	}

	for _, obs := range observations {
		if obs.TrackID == "" {
			continue
		}
		track, ok := t.tracks[obs.TrackID]
		if !ok {
			track = &Track{ID: obs.TrackID, Status: StatusScanning, FirstSeenAt: now}
			t.tracks[obs.TrackID] = track
		}
		track.LastSeenAt = now
		if track.Decided {
			continue
		}
		if decision, ok := t.observe(track, obs, now); ok {
			decisions = append(decisions, decision)
		}
	}

	for id, track := range t.tracks {
		if now.Sub(track.LastSeenAt) >= t.params.TrackExpiry {
			track.Status = StatusExpired
			delete(t.tracks, id)
			continue
		}
		if track.Decided {
			continue
		}
		if decision, ok := t.checkTimeout(track, now); ok {
			decisions = append(decisions, decision)
		}
	}

	return decisions
}

func (t *Tracker) observe(track *Track, obs Observation, now time.Time) (Decision, bool) {
	identified := obs.Identified() && obs.Confidence >= t.params.RecognitionThreshold

	switch track.Status {
	case StatusScanning:
		if !identified {
			return Decision{}, false
		}
		track.Status = StatusVerifying
		track.VerifyingSince = now
		track.anchor(obs, t.params.VerifyWindow)
	case StatusVerifying:
		if identified && obs.PersonID != track.CandidateID {
			// Disagreement re-anchors on the newer candidate. The verify
			// timeout keeps running from the original verifying entry, so
			// alternating identities still time out to unknown.
			track.anchor(obs, t.params.VerifyWindow)
			break
		}
		track.pushHistory(identification{confidence: obs.Confidence, hit: identified}, t.params.VerifyWindow)
		if identified && obs.PersonName != "" {
			track.CandidateName = obs.PersonName
		}
	default:
		return Decision{}, false
	}

	if track.agreeingHits() >= t.params.VerifyQuorum {
		return t.decideRecognized(track, obs.Confidence, now), true
	}
	return Decision{}, false
}

func (track *Track) anchor(obs Observation, limit int) {
	track.CandidateID = obs.PersonID
	track.CandidateName = obs.PersonName
	track.resetHistory()
	track.pushHistory(identification{confidence: obs.Confidence, hit: true}, limit)
}

func (t *Tracker) checkTimeout(track *Track, now time.Time) (Decision, bool) {
	var since time.Time
	switch track.Status {
	case StatusVerifying:
		since = track.VerifyingSince
	case StatusScanning:
		since = track.FirstSeenAt
	default:
		return Decision{}, false
	}
	if now.Sub(since) < t.params.VerifyTimeout {
		return Decision{}, false
	}
	return t.decideUnknown(track, now), true
}

func (t *Tracker) decideRecognized(track *Track, confidence float64, now time.Time) Decision {
	track.Status = StatusRecognized
	track.Decided = true

	window, kind := t.resolver.Resolve(now)
	decision := Decision{
		TrackID:    track.ID,
		Outcome:    OutcomeRecognized,
		PersonID:   track.CandidateID,
		PersonName: track.CandidateName,
		Confidence: confidence,
		ObservedAt: now,
		Window:     window,
		Kind:       kind,
	}
	if !t.cooldown.Admit(track.CandidateID, window, now) {
		decision.Suppressed = true
		decision.SuppressedBy = SuppressedByCooldown
	}
	return decision
}

func (t *Tracker) decideUnknown(track *Track, now time.Time) Decision {
	track.Status = StatusUnknown
	track.Decided = true

	window, _ := t.resolver.Resolve(now)
	return Decision{
		TrackID:    track.ID,
		Outcome:    OutcomeUnknown,
		ObservedAt: now,
		Window:     window,
		Kind:       KindUnknown,
	}
}

// ActiveTracks returns the number of automatons currently in memory.
func (t *Tracker) ActiveTracks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// DroppedTotal returns how many observations the per-frame cap has discarded.
func (t *Tracker) DroppedTotal() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Cooldown exposes the ledger for status reporting.
func (t *Tracker) Cooldown() *CooldownLedger {
	return t.cooldown
}
