package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facegate/internal/logging"
	"facegate/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (logPath string, log func(msg string, attrs ...logging.Attr)) {
	t.Helper()
	logPath = filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logPath, func(msg string, attrs ...logging.Attr) {
		logger.Info(msg, logging.Args(attrs...)...)
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath, log := newFileLogger(t, "console", "info")
	log("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath, log := newFileLogger(t, "console", "debug")
	log("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "syncer").Info("event synced",
		logging.Args(logging.String(logging.FieldEventID, "abc"))...)

	content := readLog(t, logPath)
	if !strings.Contains(content, "syncer: event synced") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "event_id=abc") {
		t.Fatalf("expected event_id attr, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should be folded into the prefix, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath, log := newFileLogger(t, "json", "debug")
	log("json message", logging.String("k", "v"))

	content := readLog(t, logPath)
	if !strings.Contains(content, `"msg":"json message"`) {
		t.Fatalf("expected json message key, got %q", content)
	}
	if !strings.Contains(content, `"k":"v"`) {
		t.Fatalf("expected attribute in json output, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath, log := newFileLogger(t, "console", "invalid")
	log("should use info level")

	if content := readLog(t, logPath); !strings.Contains(content, "INFO") {
		t.Fatalf("expected INFO line, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithEventID(ctx, "evt-1")
	ctx = services.WithTrackID(ctx, "trk-9")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content := readLog(t, logPath)
	for _, want := range []string{`"event_id":"evt-1"`, `"track_id":"trk-9"`, `"correlation_id":"req-xyz"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in output, got %q", want, content)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("discarded")
	logger.Error("also discarded")
}
