package syncer

import (
	"testing"
	"time"
)

func TestBackoffDelayDoublesUntilCap(t *testing.T) {
	s := &Syncer{backoffBase: 2 * time.Second, backoffMax: 60 * time.Second}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{6, 60 * time.Second},
		{12, 60 * time.Second},
	}
	for _, tc := range tests {
		if got := s.backoffDelay(tc.attempts); got != tc.want {
			t.Fatalf("attempts %d: expected %s, got %s", tc.attempts, tc.want, got)
		}
	}
}

func TestBackoffDelayNeverBelowBase(t *testing.T) {
	s := &Syncer{backoffBase: 5 * time.Second, backoffMax: 5 * time.Second}
	if got := s.backoffDelay(0); got != 5*time.Second {
		t.Fatalf("expected base delay, got %s", got)
	}
	if got := s.backoffDelay(9); got != 5*time.Second {
		t.Fatalf("expected capped delay, got %s", got)
	}
}
