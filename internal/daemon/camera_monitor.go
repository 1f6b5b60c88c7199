package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"facegate/internal/config"
	"facegate/internal/feed"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/observability"
)

// cameraMonitor listens for udev netlink events on the video4linux subsystem
// so an unplugged camera is reported instead of discovered hours later as a
// silent gap in attendance.
type cameraMonitor struct {
	logger   *slog.Logger
	hub      *feed.Hub
	notifier notifications.Service

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newCameraMonitor creates a monitor for camera attach and detach events.
func newCameraMonitor(cfg *config.Config, hub *feed.Hub, notifier notifications.Service, logger *slog.Logger) *cameraMonitor {
	if cfg == nil {
		return nil
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &cameraMonitor{
		logger:   logging.NewComponentLogger(logger, "camera-monitor"),
		hub:      hub,
		notifier: notifier,
	}
}

// Start begins listening for udev netlink events. A failed netlink connect
// is not fatal; the kiosk just runs without hotplug awareness.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug detection unavailable",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started")
	return nil
}

// Stop shuts down the camera monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false
	m.logger.Info("camera monitor stopped")
}

// Running reports whether the camera monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *cameraMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// buildMatcher creates a matcher for camera hotplug events.
// Matches: SUBSYSTEM=video4linux, ACTION=add|remove
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

// handleEvent processes a matched uevent.
func (m *cameraMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	device := m.extractDeviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj))
		return
	}

	action := string(uevent.Action)
	observability.CameraEvents.WithLabelValues(action).Inc()
	m.hub.PublishCamera(feed.CameraChanged{Action: action, Device: device})

	switch uevent.Action {
	case netlink.REMOVE:
		m.logger.Warn("camera removed", logging.String("device", device))
		if err := m.notifier.NotifyCameraRemoved(ctx, device); err != nil {
			m.logger.Warn("camera removal notification failed", logging.Error(err))
		}
	default:
		m.logger.Info("camera attached", logging.String("device", device))
	}
}

// extractDeviceName gets the device path from a uevent.
func (m *cameraMonitor) extractDeviceName(uevent netlink.UEvent) string {
	devname := uevent.Env["DEVNAME"]
	if devname != "" && !strings.HasPrefix(devname, "/") {
		devname = "/dev/" + devname
	}
	if devname != "" {
		return devname
	}

	// Fall back to the DEVPATH tail (e.g. /devices/.../video4linux/video0)
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
