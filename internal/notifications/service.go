package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facegate/internal/config"
)

const userAgent = "facegate"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyDaemonStarted(ctx context.Context, deviceID string) error
	NotifyDaemonStopped(ctx context.Context, deviceID string) error
	NotifyEventRejected(ctx context.Context, personID, reason string) error
	NotifySyncStalled(ctx context.Context, pending int, oldest time.Duration) error
	NotifyCameraRemoved(ctx context.Context, device string) error
	NotifyDecisionNotSaved(ctx context.Context, trackID string, cause error) error
	NotifyPipelineStalled(ctx context.Context, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		lifecycle:   cfg.Notifications.Lifecycle,
		rejections:  cfg.Notifications.Rejections,
		syncStalled: cfg.Notifications.SyncStalled,
		camera:      cfg.Notifications.Camera,
		errorAlerts: cfg.Notifications.Errors,
	}
}

// Noop returns a Service that discards every notification.
func Noop() Service {
	return noopService{}
}

// payload is one rendered notification before it hits the wire.
type payload struct {
	title    string
	message  string
	priority string
	tags     []string
}

// ntfyService posts to a single ntfy topic. The bool fields mirror the
// per-category switches in the notifications config section.
type ntfyService struct {
	endpoint string
	client   *http.Client

	lifecycle   bool
	rejections  bool
	syncStalled bool
	camera      bool
	errorAlerts bool
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, deviceID string) error {
	if !n.lifecycle {
		return nil
	}
	deviceID = strings.TrimSpace(deviceID)
	data := payload{
		title:   "Facegate - Started",
		message: fmt.Sprintf("Kiosk %s is watching for faces", deviceID),
		tags:    []string{"facegate", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context, deviceID string) error {
	if !n.lifecycle {
		return nil
	}
	deviceID = strings.TrimSpace(deviceID)
	data := payload{
		title:   "Facegate - Stopped",
		message: fmt.Sprintf("Kiosk %s shut down", deviceID),
		tags:    []string{"facegate", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEventRejected(ctx context.Context, personID, reason string) error {
	if !n.rejections {
		return nil
	}
	personID = strings.TrimSpace(personID)
	if personID == "" {
		personID = "unknown"
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	data := payload{
		title:    "Facegate - Event Rejected",
		message:  fmt.Sprintf("❌ Backend rejected attendance for %s: %s", personID, reason),
		tags:     []string{"facegate", "sync", "rejected"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncStalled(ctx context.Context, pending int, oldest time.Duration) error {
	if !n.syncStalled {
		return nil
	}
	oldest = oldest.Round(time.Second)
	if oldest < 0 {
		oldest = 0
	}
	data := payload{
		title:    "Facegate - Sync Stalled",
		message:  fmt.Sprintf("%d events waiting for the backend, oldest queued %s ago", pending, oldest),
		tags:     []string{"facegate", "sync", "stalled"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCameraRemoved(ctx context.Context, device string) error {
	if !n.camera {
		return nil
	}
	device = strings.TrimSpace(device)
	if device == "" {
		device = "unknown"
	}
	data := payload{
		title:    "Facegate - Camera Lost",
		message:  fmt.Sprintf("📷 Video device removed: %s", device),
		tags:     []string{"facegate", "camera", "removed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDecisionNotSaved(ctx context.Context, trackID string, cause error) error {
	if !n.errorAlerts {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Attendance decision lost")
	if trackID = strings.TrimSpace(trackID); trackID != "" {
		builder.WriteString(" for track ")
		builder.WriteString(trackID)
	}
	builder.WriteString(": ")
	if cause != nil {
		builder.WriteString(strings.TrimSpace(cause.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Facegate - Event Not Saved",
		message:  builder.String(),
		tags:     []string{"facegate", "store", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPipelineStalled(ctx context.Context, cause error) error {
	if !n.errorAlerts {
		return nil
	}
	reason := "unknown"
	if cause != nil {
		reason = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Facegate - Vision Stalled",
		message:  fmt.Sprintf("❌ Vision pipeline stalled: %s", reason),
		tags:     []string{"facegate", "vision", "stalled"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Facegate - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"facegate", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// send posts the payload to the configured topic. The message travels as the
// request body; everything else rides in ntfy's metadata headers.
func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	data.applyHeaders(req.Header)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// applyHeaders sets the ntfy metadata headers. Empty values stay unset so
// the server applies its defaults.
func (p payload) applyHeaders(h http.Header) {
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	if p.title != "" {
		h.Set("Title", p.title)
	}
	if len(p.tags) > 0 {
		h.Set("Tags", strings.Join(p.tags, ","))
	}
	if p.priority != "" && p.priority != "default" {
		h.Set("Priority", p.priority)
	}
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(body))
}

type noopService struct{}

func (noopService) NotifyDaemonStarted(context.Context, string) error           { return nil }
func (noopService) NotifyDaemonStopped(context.Context, string) error           { return nil }
func (noopService) NotifyEventRejected(context.Context, string, string) error   { return nil }
func (noopService) NotifySyncStalled(context.Context, int, time.Duration) error { return nil }
func (noopService) NotifyCameraRemoved(context.Context, string) error           { return nil }
func (noopService) NotifyDecisionNotSaved(context.Context, string, error) error { return nil }
func (noopService) NotifyPipelineStalled(context.Context, error) error          { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
