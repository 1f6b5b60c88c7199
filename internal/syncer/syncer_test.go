package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"facegate/internal/config"
	"facegate/internal/connectivity"
	"facegate/internal/eventstore"
	"facegate/internal/feed"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/services/backend"
	"facegate/internal/syncer"
	"facegate/internal/testsupport"
)

var queueBase = time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)

type scriptedBackend struct {
	mu      sync.Mutex
	respond func(event *eventstore.Event) error
	calls   []string
}

func (b *scriptedBackend) PostAttendance(_ context.Context, event *eventstore.Event) error {
	b.mu.Lock()
	b.calls = append(b.calls, event.EventID)
	respond := b.respond
	b.mu.Unlock()
	if respond == nil {
		return nil
	}
	return respond(event)
}

func (b *scriptedBackend) setRespond(fn func(*eventstore.Event) error) {
	b.mu.Lock()
	b.respond = fn
	b.mu.Unlock()
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *scriptedBackend) callIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

type fakeMonitor struct {
	mu     sync.Mutex
	online bool
	probes int
	subs   []chan connectivity.Transition
}

func newFakeMonitor(online bool) *fakeMonitor {
	return &fakeMonitor{online: online}
}

func (m *fakeMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *fakeMonitor) Subscribe() (<-chan connectivity.Transition, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan connectivity.Transition, 8)
	m.subs = append(m.subs, ch)
	return ch, func() {}
}

func (m *fakeMonitor) ForceProbe() {
	m.mu.Lock()
	m.probes++
	m.mu.Unlock()
}

func (m *fakeMonitor) probeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

func (m *fakeMonitor) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// setOnline flips reachability without announcing a transition, the way a
// mid-batch outage looks before the next probe settles.
func (m *fakeMonitor) setOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
}

func (m *fakeMonitor) transition(to connectivity.State) {
	m.mu.Lock()
	from := connectivity.StateOffline
	if m.online {
		from = connectivity.StateOnline
	}
	m.online = to == connectivity.StateOnline
	subs := append([]chan connectivity.Transition(nil), m.subs...)
	m.mu.Unlock()
	for _, ch := range subs {
		ch <- connectivity.Transition{From: from, To: to, At: time.Now().UTC()}
	}
}

type recordingNotifier struct {
	notifications.Service
	mu       sync.Mutex
	rejected []string
	stalled  []int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{Service: notifications.Noop()}
}

func (r *recordingNotifier) NotifyEventRejected(_ context.Context, personID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, personID+": "+reason)
	return nil
}

func (r *recordingNotifier) NotifySyncStalled(_ context.Context, pending int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stalled = append(r.stalled, pending)
	return nil
}

func (r *recordingNotifier) rejectedNotices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rejected...)
}

func (r *recordingNotifier) stallNotices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.stalled...)
}

type fixture struct {
	store    *eventstore.Store
	backend  *scriptedBackend
	monitor  *fakeMonitor
	notifier *recordingNotifier
	syncer   *syncer.Syncer
}

func newFixture(t *testing.T, online bool, tweak func(*config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if tweak != nil {
		tweak(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	client := &scriptedBackend{}
	monitor := newFakeMonitor(online)
	notifier := newRecordingNotifier()
	return &fixture{
		store:    store,
		backend:  client,
		monitor:  monitor,
		notifier: notifier,
		syncer:   syncer.New(cfg, store, client, monitor, notifier, nil, logging.NewNop()),
	}
}

func appendEvent(t *testing.T, store *eventstore.Store, id string, offset time.Duration) *eventstore.Event {
	t.Helper()
	event := &eventstore.Event{
		EventID:    id,
		PersonID:   "P-" + id,
		PersonName: "Person " + id,
		DeviceID:   "kiosk-7",
		Kind:       eventstore.KindIn,
		Window:     "2026-08-25/morning-in",
		OccurredAt: queueBase.Add(offset),
	}
	if err := store.Append(context.Background(), event); err != nil {
		t.Fatalf("append event %s: %v", id, err)
	}
	return event
}

func getEvent(t *testing.T, store *eventstore.Store, eventID string) *eventstore.Event {
	t.Helper()
	event, err := store.GetByEventID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event %s: %v", eventID, err)
	}
	return event
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

func TestSyncNowDrainsChronologically(t *testing.T) {
	fx := newFixture(t, true, nil)
	// Inserted newest first to prove delivery follows occurredAt, not rowid.
	appendEvent(t, fx.store, "evt-3", 2*time.Second)
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)

	result, err := fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.Attempted != 3 || result.Synced != 3 || result.Remaining != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	want := []string{"evt-1", "evt-2", "evt-3"}
	got := fx.backend.callIDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d deliveries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for _, id := range want {
		if status := getEvent(t, fx.store, id).SyncStatus; status != eventstore.StatusSynced {
			t.Fatalf("event %s: expected synced, got %s", id, status)
		}
	}
}

func TestTransientFailureStopsBatchAndBacksOff(t *testing.T) {
	fx := newFixture(t, true, nil)
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)
	fx.backend.setRespond(func(*eventstore.Event) error {
		return errors.New("connection refused")
	})

	before := time.Now().UTC()
	result, err := fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.Attempted != 1 || result.Failed != 1 || result.Synced != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", result.Remaining)
	}

	head := getEvent(t, fx.store, "evt-1")
	if head.SyncStatus != eventstore.StatusFailed {
		t.Fatalf("expected failed head, got %s", head.SyncStatus)
	}
	if head.Attempts != 1 {
		t.Fatalf("expected one recorded attempt, got %d", head.Attempts)
	}
	if head.LastError == "" {
		t.Fatal("expected delivery error recorded on the event")
	}
	if head.NextAttemptAt == nil {
		t.Fatal("expected retry delay on failed event")
	}
	if delay := head.NextAttemptAt.Sub(before); delay < time.Second || delay > 5*time.Second {
		t.Fatalf("expected roughly 2s first-failure delay, got %s", delay)
	}
	if status := getEvent(t, fx.store, "evt-2").SyncStatus; status != eventstore.StatusPending {
		t.Fatalf("expected second event untouched, got %s", status)
	}

	// The head in backoff defers the whole batch; evt-2 never overtakes it.
	fx.backend.setRespond(nil)
	result, err = fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if result.Attempted != 0 {
		t.Fatalf("expected deferred batch, got %+v", result)
	}
	if fx.backend.callCount() != 1 {
		t.Fatalf("expected no new deliveries, got %d", fx.backend.callCount())
	}
}

func TestRejectionIsPermanentAndBatchContinues(t *testing.T) {
	fx := newFixture(t, true, nil)
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)
	fx.backend.setRespond(func(event *eventstore.Event) error {
		if event.EventID == "evt-1" {
			return &backend.RejectionError{StatusCode: 422, Reason: "unknown person"}
		}
		return nil
	})

	result, err := fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.Attempted != 2 || result.Rejected != 1 || result.Synced != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rejected := getEvent(t, fx.store, "evt-1")
	if rejected.SyncStatus != eventstore.StatusFailed || !rejected.Permanent {
		t.Fatalf("expected permanent failure, got %s permanent=%v", rejected.SyncStatus, rejected.Permanent)
	}
	if rejected.LastError != "unknown person" {
		t.Fatalf("expected rejection reason recorded, got %q", rejected.LastError)
	}
	if status := getEvent(t, fx.store, "evt-2").SyncStatus; status != eventstore.StatusSynced {
		t.Fatalf("expected delivery to continue past rejection, got %s", status)
	}
	notices := fx.notifier.rejectedNotices()
	if len(notices) != 1 || !strings.Contains(notices[0], "unknown person") {
		t.Fatalf("expected one rejection notification, got %v", notices)
	}

	// Rejected events never reenter the delivery queue.
	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if fx.backend.callCount() != 2 {
		t.Fatalf("expected no retry of rejected event, got %d deliveries", fx.backend.callCount())
	}
}

func TestReconnectClearsBackoffAndFlushes(t *testing.T) {
	fx := newFixture(t, false, nil)
	appendEvent(t, fx.store, "evt-1", 0)
	fx.backend.setRespond(func(*eventstore.Event) error {
		return errors.New("connection refused")
	})
	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if getEvent(t, fx.store, "evt-1").SyncStatus != eventstore.StatusFailed {
		t.Fatal("expected failed event before reconnect")
	}

	if err := fx.syncer.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.syncer.Stop()
	waitFor(t, "syncer subscription", func() bool { return fx.monitor.subscriberCount() > 0 })

	fx.backend.setRespond(nil)
	fx.monitor.transition(connectivity.StateOnline)

	waitFor(t, "reconnect flush", func() bool {
		return getEvent(t, fx.store, "evt-1").SyncStatus == eventstore.StatusSynced
	})
	if fx.backend.callCount() != 2 {
		t.Fatalf("expected redelivery after reconnect, got %d deliveries", fx.backend.callCount())
	}
}

func TestTickFlushesWhileOnline(t *testing.T) {
	fx := newFixture(t, true, func(cfg *config.Config) {
		cfg.Sync.IntervalSeconds = 1
	})
	appendEvent(t, fx.store, "evt-1", 0)

	if err := fx.syncer.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.syncer.Stop()

	waitFor(t, "scheduled flush", func() bool {
		return getEvent(t, fx.store, "evt-1").SyncStatus == eventstore.StatusSynced
	})
}

func TestMidBatchOfflineDefersRemainder(t *testing.T) {
	fx := newFixture(t, false, nil)
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)
	fx.backend.setRespond(func(*eventstore.Event) error {
		// Connectivity drops while the first event is in flight.
		fx.monitor.setOnline(false)
		return nil
	})

	if err := fx.syncer.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.syncer.Stop()
	waitFor(t, "syncer subscription", func() bool { return fx.monitor.subscriberCount() > 0 })

	fx.monitor.transition(connectivity.StateOnline)

	waitFor(t, "first event synced", func() bool {
		return getEvent(t, fx.store, "evt-1").SyncStatus == eventstore.StatusSynced
	})
	if status := getEvent(t, fx.store, "evt-2").SyncStatus; status != eventstore.StatusPending {
		t.Fatalf("expected deferred second event, got %s", status)
	}
	if fx.backend.callCount() != 1 {
		t.Fatalf("expected one delivery before the defer, got %d", fx.backend.callCount())
	}
}

func TestExhaustedHeadSkipsToNewerEvents(t *testing.T) {
	fx := newFixture(t, true, func(cfg *config.Config) {
		cfg.Sync.MaxAttempts = 1
	})
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)
	fx.backend.setRespond(func(event *eventstore.Event) error {
		if event.EventID == "evt-1" {
			return errors.New("gateway timeout")
		}
		return nil
	})

	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}

	// evt-1 exhausted its single attempt; the queue moves on without it.
	result, err := fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if result.Attempted != 1 || result.Synced != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if getEvent(t, fx.store, "evt-2").SyncStatus != eventstore.StatusSynced {
		t.Fatal("expected newer event delivered past exhausted head")
	}
	stuck := getEvent(t, fx.store, "evt-1")
	if stuck.SyncStatus != eventstore.StatusFailed || stuck.Attempts != 1 {
		t.Fatalf("expected exhausted head to stay failed, got %s attempts=%d", stuck.SyncStatus, stuck.Attempts)
	}

	// An operator retry returns it to the queue for another pass.
	fx.backend.setRespond(nil)
	if _, err := fx.store.RetryFailed(context.Background()); err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("third SyncNow: %v", err)
	}
	if getEvent(t, fx.store, "evt-1").SyncStatus != eventstore.StatusSynced {
		t.Fatal("expected retried event delivered")
	}
}

func TestStallNotificationFiresOnceUntilDrained(t *testing.T) {
	fx := newFixture(t, true, func(cfg *config.Config) {
		cfg.Sync.StallThreshold = 2
	})
	appendEvent(t, fx.store, "evt-1", 0)
	appendEvent(t, fx.store, "evt-2", time.Second)
	appendEvent(t, fx.store, "evt-3", 2*time.Second)
	fx.backend.setRespond(func(*eventstore.Event) error {
		return errors.New("connection refused")
	})

	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if got := fx.notifier.stallNotices(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected one stall notice for 3 pending, got %v", got)
	}

	// Repeat passes while stalled stay quiet.
	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if got := fx.notifier.stallNotices(); len(got) != 1 {
		t.Fatalf("expected no repeat stall notice, got %v", got)
	}

	// Draining below the threshold rearms the alert without firing it.
	fx.backend.setRespond(nil)
	if _, err := fx.store.ClearBackoff(context.Background()); err != nil {
		t.Fatalf("ClearBackoff: %v", err)
	}
	if _, err := fx.syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("third SyncNow: %v", err)
	}
	if got := fx.notifier.stallNotices(); len(got) != 1 {
		t.Fatalf("expected drained queue to stay quiet, got %v", got)
	}
}

func TestStartRequeuesInterruptedDeliveries(t *testing.T) {
	fx := newFixture(t, false, nil)
	appendEvent(t, fx.store, "evt-1", 0)
	if err := fx.store.MarkSyncing(context.Background(), "evt-1"); err != nil {
		t.Fatalf("MarkSyncing: %v", err)
	}

	if err := fx.syncer.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fx.syncer.Stop()

	waitFor(t, "requeued event", func() bool {
		return getEvent(t, fx.store, "evt-1").SyncStatus == eventstore.StatusPending
	})
}

func TestSyncNowDeliversDespiteOfflineMonitor(t *testing.T) {
	fx := newFixture(t, false, nil)
	appendEvent(t, fx.store, "evt-1", 0)

	result, err := fx.syncer.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.Synced != 1 {
		t.Fatalf("expected manual sync to push through, got %+v", result)
	}
	if fx.monitor.probeCount() == 0 {
		t.Fatal("expected manual sync to kick a probe")
	}
}

func TestFlushPublishesSyncStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	hub := feed.NewHub(logging.NewNop())
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("start hub: %v", err)
	}
	t.Cleanup(hub.Stop)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial hub: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	waitFor(t, "feed client registration", func() bool { return hub.ClientCount() == 1 })

	appendEvent(t, store, "evt-1", 0)
	s := syncer.New(cfg, store, &scriptedBackend{}, newFakeMonitor(true), nil, hub, logging.NewNop())
	if _, err := s.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	if envelope.Type != feed.TypeSyncStatus {
		t.Fatalf("expected %s envelope, got %s", feed.TypeSyncStatus, envelope.Type)
	}
	var status feed.SyncStatusChanged
	if err := json.Unmarshal(envelope.Payload, &status); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if status.PendingCount != 0 || status.Connectivity != "online" {
		t.Fatalf("unexpected status payload: %+v", status)
	}
}
