package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facegate/internal/config"
	"facegate/internal/eventstore"
	"facegate/internal/services"
)

const (
	userAgent    = "facegate"
	maxErrorBody = 4 * 1024
)

// HTTPDoer describes the HTTP client used by the backend service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RejectionError reports a permanent 4xx rejection. The event will never be
// accepted; the syncer marks it rejected instead of retrying.
type RejectionError struct {
	StatusCode int
	Reason     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("backend rejected event: http %d: %s", e.StatusCode, e.Reason)
}

// Unwrap ties rejections into the shared error taxonomy.
func (e *RejectionError) Unwrap() error { return services.ErrRejected }

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (primarily for tests).
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// Client talks to the attendance backend with the kiosk's device identity.
type Client struct {
	baseURL       string
	deviceID      string
	deviceToken   string
	client        HTTPDoer
	healthTimeout time.Duration
}

// NewClient constructs a backend client from configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "new", "backend url required", nil)
	}
	deviceID := strings.TrimSpace(cfg.Device.ID)
	if deviceID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "new", "device id required", nil)
	}
	client := &Client{
		baseURL:       baseURL,
		deviceID:      deviceID,
		deviceToken:   strings.TrimSpace(cfg.Device.Token),
		client:        &http.Client{Timeout: cfg.BackendRequestTimeout()},
		healthTimeout: cfg.BackendHealthTimeout(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Health probes GET /health. Any response other than 2xx, and any transport
// failure, counts as unreachable. Satisfies connectivity.Prober via
// connectivity.ProbeFunc(client.Health).
func (c *Client) Health(ctx context.Context) error {
	if c.healthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.healthTimeout)
		defer cancel()
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "backend", "health", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "backend", "health", "probe failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrUnavailable, "backend", "health", fmt.Sprintf("health returned %d", resp.StatusCode), nil)
	}
	return nil
}

type attendancePayload struct {
	EventID    string `json:"eventId"`
	DeviceID   string `json:"deviceId"`
	PersonID   string `json:"personId,omitempty"`
	OccurredAt string `json:"occurredAt"`
	Kind       string `json:"kind"`
}

// PostAttendance delivers one event. The backend treats a repeated eventId as
// success, so retried deliveries are safe. 4xx responses come back as
// RejectionError; 5xx and transport failures are transient.
func (c *Client) PostAttendance(ctx context.Context, event *eventstore.Event) error {
	if event == nil || event.EventID == "" {
		return services.Wrap(services.ErrValidation, "backend", "post attendance", "event with eventId required", nil)
	}
	deviceID := event.DeviceID
	if deviceID == "" {
		deviceID = c.deviceID
	}
	payload := attendancePayload{
		EventID:    event.EventID,
		DeviceID:   deviceID,
		PersonID:   event.PersonID,
		OccurredAt: event.OccurredAt.Format(time.RFC3339),
		Kind:       event.Kind,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "backend", "post attendance", "encode body", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/attendance", bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrTransient, "backend", "post attendance", "build request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "backend", "post attendance", "deliver event", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode < http.StatusInternalServerError:
		return &RejectionError{StatusCode: resp.StatusCode, Reason: rejectionReason(body, resp.Status)}
	default:
		return services.Wrap(services.ErrTransient, "backend", "post attendance",
			fmt.Sprintf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Device-Id", c.deviceID)
	req.Header.Set("X-Device-Token", c.deviceToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func rejectionReason(body []byte, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		return strings.TrimSpace(payload.Detail)
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return fallback
}
