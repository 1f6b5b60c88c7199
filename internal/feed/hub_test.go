package feed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"facegate/internal/feed"
	"facegate/internal/logging"
)

func startHub(t *testing.T) *feed.Hub {
	t.Helper()
	hub := feed.NewHub(logging.NewNop())
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(hub.Stop)
	return hub
}

func dialHub(t *testing.T, hub *feed.Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var envelope struct {
		Type    string          `json:"type"`
		At      time.Time       `json:"at"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.At.IsZero() {
		t.Fatal("expected envelope timestamp")
	}
	return envelope.Type, envelope.Payload
}

func TestHubBroadcastsDecisions(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	hub.PublishDecision(feed.DecisionEmitted{
		TrackID:    "t1",
		Outcome:    "recognized",
		PersonID:   "P1",
		PersonName: "Ada",
		Kind:       "in",
		Window:     "2026-08-25/morning-in",
		Greeting:   "Welcome, Ada!",
		EventID:    "evt-1",
	})

	eventType, raw := readEnvelope(t, conn)
	if eventType != feed.TypeDecision {
		t.Fatalf("unexpected event type %q", eventType)
	}
	var payload feed.DecisionEmitted
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PersonName != "Ada" || payload.Greeting != "Welcome, Ada!" || payload.EventID != "evt-1" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if payload.Suppressed {
		t.Fatal("expected unsuppressed decision")
	}
}

func TestHubPublishesWithoutClients(t *testing.T) {
	hub := startHub(t)

	for i := 0; i < 10; i++ {
		hub.PublishSyncStatus(feed.SyncStatusChanged{PendingCount: i, Connectivity: "offline"})
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}

	conn := dialHub(t, hub)
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	hub.PublishConnectivity(feed.ConnectivityChanged{From: "offline", To: "online"})
	eventType, raw := readEnvelope(t, conn)
	if eventType != feed.TypeConnectivity {
		t.Fatalf("unexpected event type %q", eventType)
	}
	var payload feed.ConnectivityChanged
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.To != "online" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHubReleasesDisconnectedClients(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, "client release", func() bool { return hub.ClientCount() == 0 })
}

func TestHubRejectsUpgradesWhenStopped(t *testing.T) {
	hub := feed.NewHub(logging.NewNop())
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before Start, got %d", resp.StatusCode)
	}
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *feed.Hub
	hub.PublishDecision(feed.DecisionEmitted{TrackID: "t1"})
	hub.PublishSyncStatus(feed.SyncStatusChanged{})
	if hub.ClientCount() != 0 || hub.DroppedTotal() != 0 {
		t.Fatal("nil hub must report zero clients")
	}
}
