package pipeline

import (
	"testing"
	"time"

	"facegate/internal/tracker"
)

func TestGreetingRendersPerKind(t *testing.T) {
	coordinator := &Coordinator{
		greetingIn:  "Welcome, %s!",
		greetingOut: "Goodbye, %s!",
		unknownText: "Face not recognized",
	}

	cases := []struct {
		name     string
		decision tracker.Decision
		want     string
	}{
		{
			name: "check-in title-cases the display name",
			decision: tracker.Decision{
				Outcome:    tracker.OutcomeRecognized,
				PersonID:   "p-100",
				PersonName: "ada lovelace",
				Kind:       tracker.KindIn,
			},
			want: "Welcome, Ada Lovelace!",
		},
		{
			name: "check-out normalizes shouted names",
			decision: tracker.Decision{
				Outcome:    tracker.OutcomeRecognized,
				PersonID:   "p-101",
				PersonName: "GRACE HOPPER",
				Kind:       tracker.KindOut,
			},
			want: "Goodbye, Grace Hopper!",
		},
		{
			name: "missing name falls back to the person id",
			decision: tracker.Decision{
				Outcome:  tracker.OutcomeRecognized,
				PersonID: "guest",
				Kind:     tracker.KindIn,
			},
			want: "Welcome, Guest!",
		},
		{
			name: "unknown outcome uses the configured text",
			decision: tracker.Decision{
				Outcome:    tracker.OutcomeUnknown,
				ObservedAt: time.Now(),
				Kind:       tracker.KindUnknown,
			},
			want: "Face not recognized",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := coordinator.greeting(tc.decision); got != tc.want {
				t.Fatalf("greeting = %q, want %q", got, tc.want)
			}
		})
	}
}
