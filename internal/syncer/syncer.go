package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"facegate/internal/config"
	"facegate/internal/connectivity"
	"facegate/internal/eventstore"
	"facegate/internal/feed"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/observability"
	"facegate/internal/services"
	"facegate/internal/services/backend"
)

// Backend delivers attendance events to the server.
type Backend interface {
	PostAttendance(ctx context.Context, event *eventstore.Event) error
}

// Monitor exposes the connectivity state delivery keys on.
type Monitor interface {
	Online() bool
	Subscribe() (<-chan connectivity.Transition, func())
	ForceProbe()
}

// FlushResult summarizes one drain pass over the event queue.
type FlushResult struct {
	Attempted int
	Synced    int
	Rejected  int
	Failed    int
	Remaining int
}

// Syncer owns the background drain loop. Flushes run on reconnect, on a
// periodic tick while online, and on demand through SyncNow.
type Syncer struct {
	store    *eventstore.Store
	client   Backend
	monitor  Monitor
	notifier notifications.Service
	hub      *feed.Hub
	logger   *slog.Logger

	interval       time.Duration
	maxAttempts    int
	backoffBase    time.Duration
	backoffMax     time.Duration
	stallThreshold int

	// flushMu serializes drain passes so the periodic tick, a reconnect,
	// and a manual SyncNow never interleave deliveries.
	flushMu sync.Mutex

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	lastError     string
	lastFlush     time.Time
	stallNotified bool

	wg sync.WaitGroup
}

// New builds a Syncer. The hub may be nil (feed publication is skipped);
// a nil notifier degrades to a noop.
func New(cfg *config.Config, store *eventstore.Store, client Backend, monitor Monitor, notifier notifications.Service, hub *feed.Hub, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	interval := cfg.SyncInterval()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	maxAttempts := cfg.Sync.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	base := cfg.BackoffBase()
	if base <= 0 {
		base = 2 * time.Second
	}
	ceiling := cfg.BackoffCap()
	if ceiling < base {
		ceiling = base
	}

	return &Syncer{
		store:          store,
		client:         client,
		monitor:        monitor,
		notifier:       notifier,
		hub:            hub,
		logger:         logging.NewComponentLogger(logger, "syncer"),
		interval:       interval,
		maxAttempts:    maxAttempts,
		backoffBase:    base,
		backoffMax:     ceiling,
		stallThreshold: cfg.Sync.StallThreshold,
	}
}

// Start begins the background drain loop.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("syncer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates the drain loop and waits for completion.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// SyncNow runs one ungated drain pass immediately. The POST itself probes
// reachability, so a manual sync works even while the monitor still thinks
// the backend is down.
func (s *Syncer) SyncNow(ctx context.Context) (FlushResult, error) {
	if s.monitor != nil {
		s.monitor.ForceProbe()
	}
	return s.flush(ctx, false)
}

// LastError returns the most recent delivery error, empty after a clean pass.
func (s *Syncer) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// LastFlush returns when the most recent drain pass finished.
func (s *Syncer) LastFlush() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFlush
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	// Events left in-flight by a crash go back to pending; the backend
	// dedups any resulting redelivery.
	if requeued, err := s.store.ResetStuckSyncing(ctx); err != nil {
		s.logger.Warn("requeue interrupted deliveries failed", logging.Error(err))
	} else if requeued > 0 {
		s.logger.Info("requeued interrupted deliveries", logging.Int64("events", requeued))
	}

	var transitions <-chan connectivity.Transition
	unsubscribe := func() {}
	if s.monitor != nil {
		transitions, unsubscribe = s.monitor.Subscribe()
	}
	defer unsubscribe()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case transition, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			s.handleTransition(ctx, transition)
		case <-ticker.C:
			if !s.online() {
				continue
			}
			if _, err := s.flush(ctx, true); err != nil && ctx.Err() == nil {
				s.logger.Warn("scheduled flush failed", logging.Error(err))
			}
		}
	}
}

func (s *Syncer) handleTransition(ctx context.Context, transition connectivity.Transition) {
	if transition.To != connectivity.StateOnline {
		s.publishStatus(ctx)
		return
	}

	cleared, err := s.store.ClearBackoff(ctx)
	if err != nil {
		s.logger.Warn("clear retry backoff failed", logging.Error(err))
	} else if cleared > 0 {
		s.logger.Info("backend reachable again, retry delays cleared", logging.Int64("events", cleared))
	}
	if _, err := s.flush(ctx, true); err != nil && ctx.Err() == nil {
		s.logger.Warn("reconnect flush failed", logging.Error(err))
	}
}

// flush runs one drain pass over ListPending in chronological order. When
// gated, delivery stops as soon as the monitor reports the backend
// unreachable; the remainder stays queued for the next trigger.
func (s *Syncer) flush(ctx context.Context, gated bool) (FlushResult, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	var result FlushResult
	events, err := s.store.ListPending(ctx, s.maxAttempts)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "syncer", "flush", "list pending events", err)
	}

	var oldest time.Duration
	if len(events) > 0 {
		oldest = time.Since(events[0].CreatedAt)
	}

	var lastErr string

drain:
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		if event.InBackoff(time.Now().UTC()) {
			// The head of the retryable queue is still waiting out its
			// delay; younger events must not overtake it.
			break
		}
		if gated && !s.online() {
			s.logger.Info("backend offline, deferring remaining events",
				logging.Int("pending", len(events)-result.Attempted))
			break
		}

		if err := s.store.MarkSyncing(ctx, event.EventID); err != nil {
			s.logger.Warn("claim event for delivery failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Error(err))
			break
		}

		result.Attempted++
		postStart := time.Now()
		postErr := s.client.PostAttendance(ctx, event)
		observability.DeliveryDuration.Observe(time.Since(postStart).Seconds())
		if postErr != nil && ctx.Err() != nil {
			// Shutdown mid-delivery. Leave the event syncing; the next
			// start requeues it.
			break
		}

		var rejection *backend.RejectionError
		switch {
		case postErr == nil:
			if err := s.store.MarkSynced(ctx, event.EventID); err != nil {
				s.logger.Warn("record synced state failed",
					logging.String(logging.FieldEventID, event.EventID),
					logging.Error(err))
			}
			result.Synced++
			observability.EventsSynced.Inc()
			s.logger.Info("event synced",
				logging.String(logging.FieldEventID, event.EventID),
				logging.String(logging.FieldPersonID, event.PersonID),
				logging.String(logging.FieldKind, event.Kind))

		case errors.As(postErr, &rejection):
			if err := s.store.MarkRejected(ctx, event.EventID, rejection.Reason); err != nil {
				s.logger.Warn("record rejection failed",
					logging.String(logging.FieldEventID, event.EventID),
					logging.Error(err))
			}
			result.Rejected++
			observability.EventsRejected.Inc()
			lastErr = rejection.Reason
			s.logger.Warn("backend rejected event",
				logging.String(logging.FieldEventID, event.EventID),
				logging.String(logging.FieldPersonID, event.PersonID),
				logging.Int("status", rejection.StatusCode),
				logging.String("reason", rejection.Reason))
			if err := s.notifier.NotifyEventRejected(ctx, event.PersonID, rejection.Reason); err != nil {
				s.logger.Warn("rejection notification failed", logging.Error(err))
			}

		default:
			delay := s.backoffDelay(event.Attempts)
			next := time.Now().UTC().Add(delay)
			if err := s.store.MarkFailed(ctx, event.EventID, postErr.Error(), next); err != nil {
				s.logger.Warn("record failed delivery failed",
					logging.String(logging.FieldEventID, event.EventID),
					logging.Error(err))
			}
			result.Failed++
			observability.DeliveryFailures.Inc()
			lastErr = postErr.Error()
			s.logger.Warn("event delivery failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Int("attempts", event.Attempts+1),
				logging.Duration("retry_in", delay),
				logging.Error(postErr))
			break drain
		}
	}

	if pending, err := s.store.PendingCount(ctx); err != nil {
		s.logger.Warn("pending count failed", logging.Error(err))
		result.Remaining = len(events) - result.Synced
	} else {
		result.Remaining = pending
	}
	observability.QueuePending.Set(float64(result.Remaining))

	s.mu.Lock()
	if result.Attempted > 0 {
		s.lastError = lastErr
	}
	s.lastFlush = time.Now().UTC()
	statusErr := s.lastError
	s.mu.Unlock()

	s.hub.PublishSyncStatus(feed.SyncStatusChanged{
		PendingCount: result.Remaining,
		LastError:    statusErr,
		Connectivity: s.connectivityLabel(),
	})
	s.noteBacklog(ctx, result.Remaining, oldest)

	return result, nil
}

// publishStatus pushes a queue snapshot to the feed outside a drain pass,
// used when connectivity drops so the UI sees the offline backlog.
func (s *Syncer) publishStatus(ctx context.Context) {
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		s.logger.Warn("pending count failed", logging.Error(err))
		return
	}
	s.hub.PublishSyncStatus(feed.SyncStatusChanged{
		PendingCount: pending,
		LastError:    s.LastError(),
		Connectivity: s.connectivityLabel(),
	})
}

// noteBacklog alerts the admin the first time the undelivered backlog
// crosses the stall threshold, then stays quiet until it drains below.
func (s *Syncer) noteBacklog(ctx context.Context, pending int, oldest time.Duration) {
	if s.stallThreshold <= 0 {
		return
	}

	s.mu.Lock()
	crossed := pending >= s.stallThreshold && !s.stallNotified
	if crossed {
		s.stallNotified = true
	} else if pending < s.stallThreshold {
		s.stallNotified = false
	}
	s.mu.Unlock()

	if !crossed {
		return
	}
	s.logger.Warn("sync backlog above stall threshold",
		logging.Int("pending", pending),
		logging.Int("threshold", s.stallThreshold),
		logging.Duration("oldest", oldest))
	if err := s.notifier.NotifySyncStalled(ctx, pending, oldest); err != nil {
		s.logger.Warn("stall notification failed", logging.Error(err))
	}
}

func (s *Syncer) backoffDelay(attempts int) time.Duration {
	delay := s.backoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.backoffMax {
			return s.backoffMax
		}
	}
	if delay > s.backoffMax {
		delay = s.backoffMax
	}
	return delay
}

func (s *Syncer) online() bool {
	return s.monitor == nil || s.monitor.Online()
}

func (s *Syncer) connectivityLabel() string {
	if s.online() {
		return string(connectivity.StateOnline)
	}
	return string(connectivity.StateOffline)
}
