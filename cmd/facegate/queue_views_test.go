package main

import (
	"testing"
	"time"

	"facegate/internal/api"
)

func TestBuildQueueStatusRowsSorted(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"synced":  3,
		"pending": 2,
		"failed":  1,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Failed" || rows[1][0] != "Pending" || rows[2][0] != "Synced" {
		t.Fatalf("unexpected row order: %v", rows)
	}
	if rows[1][1] != "2" {
		t.Fatalf("expected pending count 2, got %q", rows[1][1])
	}
}

func TestBuildQueueListRows(t *testing.T) {
	occurred := time.Date(2026, 3, 10, 8, 15, 0, 0, time.Local)
	events := []api.Event{
		{
			ID:         7,
			PersonID:   "P-100",
			PersonName: "Dana",
			Kind:       "in",
			Window:     "2026-03-10/morning-in",
			OccurredAt: occurred.UTC().Format(time.RFC3339),
			SyncStatus: "failed",
			Attempts:   2,
			LastError:  "connection refused by the backend after several tries",
		},
	}

	rows := buildQueueListRows(events)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row[0] != "7" {
		t.Errorf("id column = %q", row[0])
	}
	if row[1] != "Dana" {
		t.Errorf("person column = %q, want display name", row[1])
	}
	if row[2] != "In" {
		t.Errorf("kind column = %q", row[2])
	}
	if row[4] != "2026-03-10 08:15" {
		t.Errorf("occurred column = %q", row[4])
	}
	if row[5] != "Failed" {
		t.Errorf("status column = %q", row[5])
	}
	if row[7] != "connection refused by the bac..." {
		t.Errorf("last error column = %q, want truncated detail", row[7])
	}
}

func TestPersonLabelFallbacks(t *testing.T) {
	cases := []struct {
		event api.Event
		want  string
	}{
		{api.Event{PersonName: "Dana", PersonID: "P-1"}, "Dana"},
		{api.Event{PersonID: "P-1"}, "P-1"},
		{api.Event{}, "-"},
	}
	for _, tc := range cases {
		if got := personLabel(tc.event); got != tc.want {
			t.Errorf("personLabel(%+v) = %q, want %q", tc.event, got, tc.want)
		}
	}
}

func TestFormatStatusLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pending", "Pending"},
		{"in", "In"},
		{"sync_failed", "Sync Failed"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := formatStatusLabel(tc.in); got != tc.want {
			t.Errorf("formatStatusLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOccurredDay(t *testing.T) {
	stamp := time.Date(2026, 3, 10, 23, 30, 0, 0, time.Local)
	if got := occurredDay(stamp.UTC().Format(time.RFC3339)); got != "2026-03-10" {
		t.Errorf("occurredDay = %q, want local day preserved", got)
	}
	if got := occurredDay("not-a-timestamp"); got != "" {
		t.Errorf("occurredDay(garbage) = %q, want empty", got)
	}
	if got := occurredDay(""); got != "" {
		t.Errorf("occurredDay(empty) = %q, want empty", got)
	}
}

func TestTruncateDetail(t *testing.T) {
	if got := truncateDetail("", 10); got != "-" {
		t.Errorf("empty detail = %q, want placeholder", got)
	}
	if got := truncateDetail("short", 10); got != "short" {
		t.Errorf("short detail = %q", got)
	}
	long := "0123456789abcdef"
	if got := truncateDetail(long, 10); got != "0123456..." {
		t.Errorf("truncated detail = %q", got)
	}
}
