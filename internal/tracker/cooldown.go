package tracker

import (
	"sync"
	"time"
)

// CooldownLedger suppresses repeat decisions for a person within one
// attendance window. Only the tracker mutates it, through Admit; the ledger
// lives in memory for the process lifetime (the backend deduplicates per
// window on its side, so a restart losing the ledger is acceptable).
type CooldownLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cooldownEntry
}

type cooldownEntry struct {
	lastDecisionAt time.Time
	windowKey      string
}

// NewCooldownLedger builds a ledger with the given suppression ttl.
func NewCooldownLedger(ttl time.Duration) *CooldownLedger {
	return &CooldownLedger{
		ttl:     ttl,
		entries: make(map[string]cooldownEntry),
	}
}

// Admit reports whether a decision for the person may emit an event in the
// given window, recording it when admitted. A person is admitted again once
// the window label changes (midnight or the in/out cutover) or the recorded
// decision has aged past the ttl. Suppressed attempts do not refresh the
// recorded time.
func (l *CooldownLedger) Admit(personID string, window Window, now time.Time) bool {
	if personID == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[personID]
	if ok && entry.windowKey == window.Key() && now.Sub(entry.lastDecisionAt) < l.ttl {
		return false
	}
	l.entries[personID] = cooldownEntry{lastDecisionAt: now, windowKey: window.Key()}
	return true
}

// Len returns the number of persons currently held by the ledger.
func (l *CooldownLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
