package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"facegate/internal/config"
	"facegate/internal/eventstore"
	"facegate/internal/feed"
	"facegate/internal/logging"
	"facegate/internal/notifications"
	"facegate/internal/observability"
	"facegate/internal/tracker"
	"facegate/internal/vision"
)

// Option configures the coordinator.
type Option func(*Coordinator)

// WithRetryPause overrides the wait before re-polling a failed provider.
func WithRetryPause(pause time.Duration) Option {
	return func(c *Coordinator) {
		if pause > 0 {
			c.retryPause = pause
		}
	}
}

// Coordinator runs the single decisioning path from frames to stored
// events. One goroutine owns the loop; the tracker is never shared.
type Coordinator struct {
	provider vision.Provider
	tracker  *tracker.Tracker
	store    *eventstore.Store
	hub      *feed.Hub
	notifier notifications.Service
	logger   *slog.Logger

	deviceID    string
	greetingIn  string
	greetingOut string
	unknownText string
	retryPause  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a coordinator. Nil notifier and logger degrade to no-ops.
func New(cfg *config.Config, provider vision.Provider, trk *tracker.Tracker, store *eventstore.Store, hub *feed.Hub, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	defaults := config.Default()
	greetingIn := cfg.Attendance.GreetingIn
	if strings.TrimSpace(greetingIn) == "" {
		greetingIn = defaults.Attendance.GreetingIn
	}
	greetingOut := cfg.Attendance.GreetingOut
	if strings.TrimSpace(greetingOut) == "" {
		greetingOut = defaults.Attendance.GreetingOut
	}
	unknownText := cfg.Attendance.UnknownText
	if strings.TrimSpace(unknownText) == "" {
		unknownText = defaults.Attendance.UnknownText
	}

	coordinator := &Coordinator{
		provider:    provider,
		tracker:     trk,
		store:       store,
		hub:         hub,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		deviceID:    cfg.Device.ID,
		greetingIn:  greetingIn,
		greetingOut: greetingOut,
		unknownText: unknownText,
		retryPause:  cfg.VisionRestartPause(),
	}
	if coordinator.retryPause <= 0 {
		coordinator.retryPause = 2 * time.Second
	}
	for _, opt := range opts {
		opt(coordinator)
	}
	return coordinator
}

// Start launches the frame loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(runCtx)
	return nil
}

// Stop halts the frame loop and waits for it to exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context) {
	defer c.wg.Done()

	// Latches the stall alert so a flapping provider pages once per outage,
	// not once per exit. Only this goroutine touches it.
	visionDown := false

	for {
		frame, err := c.provider.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, vision.ErrProviderClosed):
				c.logger.Info("vision provider closed, stopping frame loop")
				return
			case errors.Is(err, vision.ErrMalformedFrame):
				observability.FramesMalformed.Inc()
				c.logger.Warn("skipping malformed frame", logging.Error(err))
				continue
			case errors.Is(err, vision.ErrProviderRestarted):
				observability.ProviderRestarts.Inc()
				c.logger.Error("vision provider exited", logging.Error(err))
				if !visionDown {
					visionDown = true
					if nerr := c.notifier.NotifyPipelineStalled(ctx, err); nerr != nil {
						c.logger.Warn("pipeline stall notification failed", logging.Error(nerr))
					}
				}
				if !sleepContext(ctx, c.retryPause) {
					return
				}
				continue
			default:
				c.logger.Error("vision provider error", logging.Error(err))
				if !sleepContext(ctx, c.retryPause) {
					return
				}
				continue
			}
		}

		if visionDown {
			visionDown = false
			c.logger.Info("vision provider recovered")
		}

		observability.FramesProcessed.Inc()
		decisions := c.tracker.ProcessFrame(frame.CapturedAt, frame.Observations)
		observability.ActiveTracks.Set(float64(c.tracker.ActiveTracks()))

		for _, decision := range decisions {
			c.handleDecision(ctx, decision)
		}
	}
}

func (c *Coordinator) handleDecision(ctx context.Context, decision tracker.Decision) {
	windowKey := decision.Window.Key()

	if !decision.Emittable() {
		observability.DecisionsSuppressed.Inc()
		c.logger.Info("decision suppressed",
			logging.String(logging.FieldTrackID, decision.TrackID),
			logging.String(logging.FieldPersonID, decision.PersonID),
			logging.String(logging.FieldWindow, windowKey),
			logging.String("suppressed_by", decision.SuppressedBy),
		)
		c.hub.PublishDecision(feed.DecisionEmitted{
			TrackID:    decision.TrackID,
			Outcome:    string(decision.Outcome),
			PersonID:   decision.PersonID,
			PersonName: decision.PersonName,
			Kind:       decision.Kind,
			Window:     windowKey,
			Suppressed: true,
		})
		return
	}

	event := &eventstore.Event{
		EventID:    uuid.NewString(),
		PersonID:   decision.PersonID,
		PersonName: decision.PersonName,
		DeviceID:   c.deviceID,
		Kind:       decision.Kind,
		Window:     windowKey,
		OccurredAt: decision.ObservedAt,
	}
	if err := c.appendWithRetry(ctx, event); err != nil {
		observability.DecisionsUnsaved.Inc()
		c.logger.Error("attendance decision not saved",
			logging.String(logging.FieldTrackID, decision.TrackID),
			logging.String(logging.FieldPersonID, decision.PersonID),
			logging.String(logging.FieldKind, decision.Kind),
			logging.Error(err),
		)
		c.hub.PublishDecisionNotSaved(feed.DecisionNotSaved{
			TrackID:  decision.TrackID,
			PersonID: decision.PersonID,
			Error:    err.Error(),
		})
		if nerr := c.notifier.NotifyDecisionNotSaved(ctx, decision.TrackID, err); nerr != nil {
			c.logger.Warn("decision-not-saved notification failed", logging.Error(nerr))
		}
		return
	}

	observability.Decisions.WithLabelValues(string(decision.Outcome)).Inc()
	c.logger.Info("attendance decision recorded",
		logging.String(logging.FieldEventID, event.EventID),
		logging.String(logging.FieldTrackID, decision.TrackID),
		logging.String(logging.FieldPersonID, decision.PersonID),
		logging.String(logging.FieldKind, decision.Kind),
		logging.String(logging.FieldWindow, windowKey),
	)
	c.hub.PublishDecision(feed.DecisionEmitted{
		TrackID:    decision.TrackID,
		Outcome:    string(decision.Outcome),
		PersonID:   decision.PersonID,
		PersonName: decision.PersonName,
		Kind:       decision.Kind,
		Window:     windowKey,
		Greeting:   c.greeting(decision),
		EventID:    event.EventID,
	})
}

// appendWithRetry gives the store one second chance. SQLite hiccups under
// checkpoint pressure are short; anything that fails twice goes to the
// not-saved path.
func (c *Coordinator) appendWithRetry(ctx context.Context, event *eventstore.Event) error {
	first := c.store.Append(ctx, event)
	if first == nil {
		return nil
	}
	if ctx.Err() != nil {
		return first
	}
	c.logger.Warn("event append failed, retrying once",
		logging.String(logging.FieldEventID, event.EventID),
		logging.Error(first),
	)
	return c.store.Append(ctx, event)
}

// greeting renders the kiosk display and voice line for a decision.
func (c *Coordinator) greeting(decision tracker.Decision) string {
	if decision.Outcome != tracker.OutcomeRecognized {
		return c.unknownText
	}
	name := strings.TrimSpace(decision.PersonName)
	if name == "" {
		name = decision.PersonID
	}
	name = cases.Title(language.Und).String(name)
	if decision.Kind == tracker.KindOut {
		return fmt.Sprintf(c.greetingOut, name)
	}
	return fmt.Sprintf(c.greetingIn, name)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
