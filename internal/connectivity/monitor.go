package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"facegate/internal/config"
	"facegate/internal/logging"
	"facegate/internal/observability"
)

// State is the reachability state published by the monitor.
type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
	StateProbing State = "probing"
)

// Transition records one settled state change. Probing interludes are never
// published; From and To are always online or offline.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Prober checks backend reachability. A timeout counts as a failure.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Status is a point-in-time snapshot for status reporting.
type Status struct {
	State      State     `json:"state"`
	Settled    State     `json:"settled"`
	LastChange time.Time `json:"lastChange"`
	LastError  string    `json:"lastError,omitempty"`
}

const subscriberBuffer = 8

// Monitor owns the probe loop. The kiosk starts offline and stays there
// until the first successful probe; sync waits for proof of reachability.
type Monitor struct {
	prober          Prober
	logger          *slog.Logger
	onlineInterval  time.Duration
	offlineInterval time.Duration
	probeTimeout    time.Duration

	kick chan struct{}

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	state        State
	settled      State
	lastChange   time.Time
	lastProbeErr error
	subscribers  map[int]chan Transition
	nextSubID    int

	wg sync.WaitGroup
}

// NewMonitor constructs a monitor from configuration.
func NewMonitor(cfg *config.Config, prober Prober, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		prober:          prober,
		logger:          logging.NewComponentLogger(logger, "connectivity"),
		onlineInterval:  cfg.OnlineProbeInterval(),
		offlineInterval: cfg.OfflineProbeInterval(),
		probeTimeout:    cfg.ProbeTimeout(),
		kick:            make(chan struct{}, 1),
		state:           StateOffline,
		settled:         StateOffline,
		subscribers:     make(map[int]chan Transition),
	}
}

// Start launches the probe loop. The first probe fires immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("connectivity monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// State returns the instantaneous state, including probing interludes.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Settled returns the last settled state, unaffected by in-flight probes.
func (m *Monitor) Settled() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// Online reports whether the last settled state is online.
func (m *Monitor) Online() bool {
	return m.Settled() == StateOnline
}

// Status returns a snapshot for status reporting.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{
		State:      m.state,
		Settled:    m.settled,
		LastChange: m.lastChange,
	}
	if m.lastProbeErr != nil {
		status.LastError = m.lastProbeErr.Error()
	}
	return status
}

// Subscribe registers for settled transitions. Delivery is non-blocking; a
// subscriber that falls behind misses transitions rather than stalling the
// monitor. The returned func unsubscribes and closes the channel.
func (m *Monitor) Subscribe() (<-chan Transition, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Transition, subscriberBuffer)
	m.subscribers[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(existing)
		}
	}
}

// ForceProbe schedules an immediate probe out of cycle.
func (m *Monitor) ForceProbe() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-m.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		m.probeOnce(ctx)

		timer.Reset(m.interval())
	}
}

func (m *Monitor) interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled == StateOnline {
		return m.onlineInterval
	}
	return m.offlineInterval
}

func (m *Monitor) probeOnce(ctx context.Context) {
	m.mu.Lock()
	m.state = StateProbing
	m.mu.Unlock()

	probeCtx := ctx
	if m.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()
	}
	err := m.prober.Probe(probeCtx)
	if ctx.Err() != nil {
		// Shutdown mid-probe; leave the settled state alone.
		return
	}
	if err != nil {
		m.settle(StateOffline, err)
		return
	}
	m.settle(StateOnline, nil)
}

func (m *Monitor) settle(to State, probeErr error) {
	m.mu.Lock()
	from := m.settled
	m.state = to
	m.lastProbeErr = probeErr
	changed := from != to
	if changed {
		transition := Transition{From: from, To: to, At: time.Now()}
		m.settled = to
		m.lastChange = transition.At
		// Delivered under the lock so an unsubscribe cannot close a channel
		// mid-send.
		for _, ch := range m.subscribers {
			select {
			case ch <- transition:
			default:
			}
		}
	}
	m.mu.Unlock()

	if !changed {
		if probeErr != nil {
			m.logger.Debug("probe failed while offline", "error", probeErr)
		}
		return
	}

	if to == StateOnline {
		observability.BackendReachable.Set(1)
		m.logger.Info("backend reachable", "from", string(from))
	} else {
		observability.BackendReachable.Set(0)
		m.logger.Warn("backend unreachable", "from", string(from), "error", probeErr)
	}
}
