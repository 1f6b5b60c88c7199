package tracker

import (
	"fmt"
	"time"

	"facegate/internal/config"
)

// Window identifies one attendance day-part on one local calendar day.
type Window struct {
	Day   string
	Label string
}

// Key returns the ledger and event label, e.g. "2026-08-25/morning-in".
func (w Window) Key() string {
	if w.Day == "" && w.Label == "" {
		return ""
	}
	return w.Day + "/" + w.Label
}

// Labels and kinds assigned by the resolver.
const (
	LabelMorningIn    = "morning-in"
	LabelAfternoonOut = "afternoon-out"

	KindIn      = "in"
	KindOut     = "out"
	KindUnknown = "unknown"
)

// WindowResolver classifies device-local instants into attendance windows.
// Before the cutover a decision counts as a check-in; at or after it, a
// check-out. The window key includes the local day so suppression never
// bleeds across midnight.
type WindowResolver struct {
	inUntilMinutes int
}

// NewWindowResolver builds a resolver from an HH:MM cutover string.
func NewWindowResolver(inUntil string) (*WindowResolver, error) {
	minutes, err := config.ParseClock(inUntil)
	if err != nil {
		return nil, fmt.Errorf("parse in_until: %w", err)
	}
	return &WindowResolver{inUntilMinutes: minutes}, nil
}

// Resolve returns the attendance window and event kind for a local instant.
func (r *WindowResolver) Resolve(at time.Time) (Window, string) {
	day := at.Format("2006-01-02")
	minutes := at.Hour()*60 + at.Minute()
	if minutes < r.inUntilMinutes {
		return Window{Day: day, Label: LabelMorningIn}, KindIn
	}
	return Window{Day: day, Label: LabelAfternoonOut}, KindOut
}
