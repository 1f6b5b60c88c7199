package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"facegate/internal/config"
	"facegate/internal/connectivity"
	"facegate/internal/deps"
	"facegate/internal/eventstore"
	"facegate/internal/feed"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/pipeline"
	"facegate/internal/preflight"
	"facegate/internal/services/backend"
	"facegate/internal/syncer"
	"facegate/internal/tracker"
	"facegate/internal/vision"
)

// Daemon coordinates the kiosk components and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *eventstore.Store
	notifier notifications.Service

	provider    vision.Provider
	tracker     *tracker.Tracker
	hub         *feed.Hub
	monitor     *connectivity.Monitor
	syncer      *syncer.Syncer
	coordinator *pipeline.Coordinator
	camera      *cameraMonitor
	api         *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	DeviceID      string
	Site          string
	Connectivity  connectivity.Status
	Queue         map[eventstore.SyncStatus]int
	Today         eventstore.KindCounts
	LastSyncError string
	LastFlushAt   time.Time
	FeedClients   int
	ActiveTracks  int
	DatabasePath  string
	LockFilePath  string
	Dependencies  []deps.Status
}

// Option adjusts daemon construction, mainly so tests can substitute a
// scripted vision provider for the external process.
type Option func(*Daemon)

// WithProvider overrides the vision provider built from configuration.
func WithProvider(provider vision.Provider) Option {
	return func(d *Daemon) {
		if provider != nil {
			d.provider = provider
		}
	}
}

// WithNotifier overrides the notification service built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// New constructs a daemon with initialized components.
func New(cfg *config.Config, store *eventstore.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and event store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: cfg.LockPath(),
	}
	d.lock = flock.New(d.lockPath)
	for _, opt := range opts {
		opt(d)
	}

	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}

	client, err := backend.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	d.monitor = connectivity.NewMonitor(cfg, connectivity.ProbeFunc(client.Health), logger)
	d.hub = feed.NewHub(logger)
	d.syncer = syncer.New(cfg, store, client, d.monitor, d.notifier, d.hub, logger)

	trk, err := tracker.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	d.tracker = trk

	if d.provider == nil {
		provider, err := vision.NewCommandProvider(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("vision provider: %w", err)
		}
		d.provider = provider
	}
	d.coordinator = pipeline.New(cfg, d.provider, trk, store, d.hub, d.notifier, logger)
	d.camera = newCameraMonitor(cfg, d.hub, d.notifier, logger)
	d.api = newAPIServer(cfg, d, logger)

	return d, nil
}

// Start acquires the daemon lock and launches every component.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	switch ok, err := d.lock.TryLock(); {
	case err != nil:
		return fmt.Errorf("acquire lock: %w", err)
	case !ok:
		return errors.New("another facegate daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.startComponents(); err != nil {
		d.stopComponents()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("facegate daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldDeviceID, d.cfg.Device.ID))

	// Lifecycle ping must not delay startup when ntfy is slow or down.
	notifyCtx := d.ctx
	go func() {
		if err := d.notifier.NotifyDaemonStarted(notifyCtx, d.cfg.Device.ID); err != nil {
			d.logger.Warn("daemon start notification failed", logging.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) startComponents() error {
	if err := d.hub.Start(d.ctx); err != nil {
		return fmt.Errorf("start feed hub: %w", err)
	}
	if starter, ok := d.provider.(interface{ Start(context.Context) error }); ok {
		if err := starter.Start(d.ctx); err != nil {
			return fmt.Errorf("start vision provider: %w", err)
		}
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		return fmt.Errorf("start connectivity monitor: %w", err)
	}
	if err := d.syncer.Start(d.ctx); err != nil {
		return fmt.Errorf("start syncer: %w", err)
	}
	if err := d.coordinator.Start(d.ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.camera.Start(d.ctx); err != nil {
		return fmt.Errorf("start camera monitor: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	d.wg.Add(2)
	go d.relayConnectivity(d.ctx)
	go d.maintenanceLoop(d.ctx)
	return nil
}

func (d *Daemon) stopComponents() {
	d.api.stop()
	d.camera.Stop()
	d.coordinator.Stop()
	d.syncer.Stop()
	d.monitor.Stop()
	d.hub.Stop()
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopComponents()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)

	notifyCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := d.notifier.NotifyDaemonStopped(notifyCtx, d.cfg.Device.ID); err != nil {
		d.logger.Warn("daemon stop notification failed", logging.Error(err))
	}
	d.logger.Info("facegate daemon stopped")
}

// Close releases resources held by the daemon. The store closes last so
// in-flight appends finish before the database goes away.
func (d *Daemon) Close() error {
	d.Stop()
	if d.provider != nil {
		if err := d.provider.Close(); err != nil {
			d.logger.Warn("vision provider close failed", logging.Error(err))
		}
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// relayConnectivity republishes settled monitor transitions on the feed so
// dashboards see reachability changes even between sync flushes.
func (d *Daemon) relayConnectivity(ctx context.Context) {
	defer d.wg.Done()

	transitions, unsubscribe := d.monitor.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case transition, ok := <-transitions:
			if !ok {
				return
			}
			d.hub.PublishConnectivity(feed.ConnectivityChanged{
				From: string(transition.From),
				To:   string(transition.To),
			})
			d.logger.Info("connectivity changed",
				logging.String("from", string(transition.From)),
				logging.String("to", string(transition.To)))
		}
	}
}

// maintenanceLoop prunes synced events and old log files once a day.
func (d *Daemon) maintenanceLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	d.runMaintenance(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runMaintenance(ctx)
		}
	}
}

func (d *Daemon) runMaintenance(ctx context.Context) {
	retention := d.cfg.Sync.RetentionDays
	if retention <= 0 {
		retention = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retention)
	purged, err := d.store.PurgeSyncedBefore(ctx, cutoff)
	if err != nil {
		d.logger.Warn("synced event purge failed", logging.Error(err))
	} else if purged > 0 {
		d.logger.Info("purged synced events",
			logging.Int64("events", purged),
			logging.Time("cutoff", cutoff))
	}

	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     d.cfg.Paths.LogDir,
		Pattern: "facegated-*.log",
	})
}

// ListEvents returns stored events filtered by optional statuses.
func (d *Daemon) ListEvents(ctx context.Context, statuses []eventstore.SyncStatus) ([]*eventstore.Event, error) {
	if d.store == nil {
		return nil, errors.New("event store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// RecentEvents returns the newest events regardless of status.
func (d *Daemon) RecentEvents(ctx context.Context, limit int) ([]*eventstore.Event, error) {
	if d.store == nil {
		return nil, errors.New("event store unavailable")
	}
	return d.store.Recent(ctx, limit)
}

// QueueStats returns queue counts per delivery state.
func (d *Daemon) QueueStats(ctx context.Context) (map[eventstore.SyncStatus]int, error) {
	if d.store == nil {
		return nil, errors.New("event store unavailable")
	}
	return d.store.Stats(ctx)
}

// RetryFailed resets failed events (optionally a subset) back to pending.
// The next flush, periodic or forced, picks them up.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("event store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// ClearSynced removes delivered events from the local queue.
func (d *Daemon) ClearSynced(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("event store unavailable")
	}
	return d.store.ClearSynced(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (eventstore.HealthSummary, error) {
	if d.store == nil {
		return eventstore.HealthSummary{}, errors.New("event store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (eventstore.DatabaseHealth, error) {
	if d.store == nil {
		return eventstore.DatabaseHealth{}, errors.New("event store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// SyncNow forces an immediate flush attempt regardless of connectivity.
func (d *Daemon) SyncNow(ctx context.Context) (syncer.FlushResult, error) {
	if d.syncer == nil {
		return syncer.FlushResult{}, errors.New("syncer unavailable")
	}
	return d.syncer.SyncNow(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DeviceID:     d.cfg.Device.ID,
		Site:         d.cfg.Device.Site,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if d.monitor != nil {
		status.Connectivity = d.monitor.Status()
	}
	if d.syncer != nil {
		status.LastSyncError = d.syncer.LastError()
		status.LastFlushAt = d.syncer.LastFlush()
	}
	if d.hub != nil {
		status.FeedClients = d.hub.ClientCount()
	}
	if d.tracker != nil {
		status.ActiveTracks = d.tracker.ActiveTracks()
	}
	if d.store != nil {
		if stats, err := d.store.Stats(ctx); err == nil {
			status.Queue = stats
		}
		if counts, err := d.store.TodayCounts(ctx, startOfDay(time.Now())); err == nil {
			status.Today = counts
		}
	}
	return status
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
