package daemon

import (
	"context"
	"sync"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"facegate/internal/notifications"
	"facegate/internal/testsupport"
)

type cameraRecorder struct {
	notifications.Service
	mu      sync.Mutex
	removed []string
}

func newCameraRecorder() *cameraRecorder {
	return &cameraRecorder{Service: notifications.Noop()}
}

func (r *cameraRecorder) NotifyCameraRemoved(_ context.Context, device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, device)
	return nil
}

func (r *cameraRecorder) devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func TestNewCameraMonitor(t *testing.T) {
	if m := newCameraMonitor(nil, nil, nil, nil); m != nil {
		t.Error("expected nil monitor for nil config")
	}

	cfg := testsupport.NewConfig(t)
	if m := newCameraMonitor(cfg, nil, nil, nil); m == nil {
		t.Fatal("expected non-nil monitor")
	}
}

func TestCameraMonitorNilSafety(t *testing.T) {
	var m *cameraMonitor
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}
	m.Stop()
	if m.Running() {
		t.Error("expected Running() to return false for nil monitor")
	}
}

func TestCameraMonitorStopUnstarted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := newCameraMonitor(cfg, nil, nil, nil)
	m.Stop()
	if m.Running() {
		t.Error("expected Running() to return false after Stop on unstarted monitor")
	}
}

func TestCameraMatcher(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := newCameraMonitor(cfg, nil, nil, nil)

	matcher := m.buildMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}

	addEvent := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	}
	if !matcher.Evaluate(addEvent) {
		t.Error("expected matcher to accept camera add event")
	}

	removeEvent := netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	}
	if !matcher.Evaluate(removeEvent) {
		t.Error("expected matcher to accept camera remove event")
	}

	changeEvent := netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	}
	if matcher.Evaluate(changeEvent) {
		t.Error("expected matcher to reject change action")
	}

	blockEvent := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "block"},
	}
	if matcher.Evaluate(blockEvent) {
		t.Error("expected matcher to reject non-camera subsystem")
	}
}

func TestExtractCameraDeviceName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := newCameraMonitor(cfg, nil, nil, nil)

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"relative devname", map[string]string{"DEVNAME": "video0"}, "/dev/video0"},
		{"absolute devname", map[string]string{"DEVNAME": "/dev/video1"}, "/dev/video1"},
		{"devpath fallback", map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-2/video4linux/video2"}, "/dev/video2"},
		{"no identifiers", map[string]string{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.extractDeviceName(netlink.UEvent{Env: tc.env})
			if got != tc.want {
				t.Fatalf("extractDeviceName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCameraHandleEventNotifiesOnRemoval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := newCameraRecorder()
	m := newCameraMonitor(cfg, nil, recorder, nil)

	m.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "video0"},
	})
	removed := recorder.devices()
	if len(removed) != 1 || removed[0] != "/dev/video0" {
		t.Fatalf("expected removal notification for /dev/video0, got %v", removed)
	}

	m.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "video0"},
	})
	if len(recorder.devices()) != 1 {
		t.Fatal("attach event must not trigger a removal notification")
	}
}
