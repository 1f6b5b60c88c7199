package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"facegate/internal/api"
	"facegate/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Facegate", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Facegate:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine = %q, want %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Backend", statusOK, "Online", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
	if !strings.Contains(got, "[OK] Online") {
		t.Fatalf("expected status text in %q", got)
	}
}

func TestRenderStatusLineEmptyMessage(t *testing.T) {
	got := renderStatusLine("Camera", statusInfo, "", false)
	if !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("expected bare status tag, got %q", got)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := []struct {
		severity string
		want     statusKind
	}{
		{"ok", statusOK},
		{"OK", statusOK},
		{"warn", statusWarn},
		{"warning", statusWarn},
		{"error", statusError},
		{"info", statusInfo},
		{"", statusInfo},
		{"unexpected", statusInfo},
	}
	for _, tc := range cases {
		if got := statusKindFromSeverity(tc.severity); got != tc.want {
			t.Errorf("statusKindFromSeverity(%q) = %d, want %d", tc.severity, got, tc.want)
		}
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Queue Status", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Queue Status ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("rule length mismatch: %q", lines[1])
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "face-engine", Available: true, Command: "/usr/bin/face-engine"},
		{Name: "v4l2-ctl", Available: false, Optional: true, Detail: "not found in PATH"},
		{Name: "sqlite", Available: false, Optional: false},
	}
	summary := api.DependencySummary{
		Total:           3,
		Available:       1,
		MissingRequired: 1,
		MissingOptional: 1,
		Severity:        "error",
		Detail:          "1/3 available (missing: 1 required, 1 optional)",
	}

	lines := dependencyLines(deps, summary, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	requireContains(t, lines[0], "Summary")
	requireContains(t, lines[0], "1/3 available")
	requireContains(t, lines[1], "Ready (command: /usr/bin/face-engine)")
	requireContains(t, lines[2], "[WARN] not found in PATH")
	requireContains(t, lines[3], "[ERROR] not available")
	requireContains(t, lines[4], "Missing dependencies")
	requireContains(t, lines[4], "v4l2-ctl, sqlite")
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected no colorization for a non-file writer")
	}
}

func TestRenderTableIncludesData(t *testing.T) {
	out := renderTable(
		[]string{"Status", "Count"},
		[][]string{{"Pending", "3"}, {"Failed", "1"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	requireContains(t, out, "Status")
	requireContains(t, out, "Pending")
	requireContains(t, out, "3")
	requireContains(t, out, "Failed")
}
