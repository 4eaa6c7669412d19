package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrCoolingDown is returned by Attempt when the retry cooldown has not elapsed yet.
var ErrCoolingDown = errors.New("retry cooldown has not elapsed")

// MonitorOptions configures a Monitor. Zero values fall back to the package defaults.
type MonitorOptions struct {
	Cooldown       time.Duration
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	Logger         *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
	// ResolveName looks up a human name for the peer once connected (optional).
	ResolveName func(ctx context.Context, mac MAC) string
}

// Monitor keeps one Link connected: it polls the link, retries after a fixed cooldown and
// mirrors every state change to its observers.
type Monitor struct {
	link           Link
	cooldown       *Cooldown
	pollInterval   time.Duration
	connectTimeout time.Duration
	now            func() time.Time
	resolveName    func(ctx context.Context, mac MAC) string
	log            *zap.Logger

	inFlight atomic.Bool

	mu        sync.RWMutex
	status    Status
	observers []Observer
}

// NewMonitor creates a monitor for link.
func NewMonitor(link Link, opts MonitorOptions, observers ...Observer) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Monitor{
		link:           link,
		cooldown:       NewCooldown(opts.Cooldown),
		pollInterval:   opts.PollInterval,
		connectTimeout: opts.ConnectTimeout,
		now:            opts.Now,
		resolveName:    opts.ResolveName,
		log: opts.Logger.Named("monitor").With(
			zap.String("transport", link.Transport()),
			zap.String("target", link.Target().String()),
		),
		status: Status{
			Transport: link.Transport(),
			Target:    link.Target().String(),
			State:     StateDisconnected,
		},
		observers: observers,
	}
}

// AddObserver registers o; it is called on every following status change.
func (m *Monitor) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Status returns a snapshot of the current status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Cooldown returns the retry period.
func (m *Monitor) Cooldown() time.Duration {
	return m.cooldown.Period()
}

// Run polls the link until ctx is cancelled, then disconnects it.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Starting connection monitor",
		zap.Duration("cooldown", m.cooldown.Period()),
		zap.Duration("poll_interval", m.pollInterval))

	// Initial frame before the first attempt.
	m.update(func(*Status) {})

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case <-timer.C:
			m.Tick(ctx)
			timer.Reset(m.pollInterval)
		}
	}
}

// Tick runs one iteration of the polling loop.
func (m *Monitor) Tick(ctx context.Context) {
	switch m.Status().State {
	case StateConnecting:
		return

	case StateConnected:
		if m.link.Connected(ctx) || ctx.Err() != nil {
			return
		}
		m.log.Warn("Connection lost")
		if err := m.link.Disconnect(); err != nil {
			m.log.Debug("Disconnect after loss failed", zap.Error(err))
		}
		m.update(func(s *Status) {
			s.State = StateDisconnected
			s.LastError = "connection lost"
			s.ConnectedSince = time.Time{}
		})

	default:
		err := m.Attempt(ctx)
		if errors.Is(err, ErrCoolingDown) {
			m.refreshCountdown()
		}
	}
}

// Attempt starts one connection attempt. At most one attempt runs at a time and attempts
// are spaced by the cooldown.
func (m *Monitor) Attempt(ctx context.Context) error {
	if !m.inFlight.CompareAndSwap(false, true) {
		return ErrAttemptInFlight
	}
	defer m.inFlight.Store(false)

	now := m.now()
	if !m.cooldown.Allow(now) {
		return ErrCoolingDown
	}

	var attempt uint64
	m.update(func(s *Status) {
		s.Attempts++
		s.LastAttempt = now
		s.State = StateConnecting
		s.NextAttemptIn = 0
		attempt = s.Attempts
	})
	m.log.Info("Connecting", zap.Uint64("attempt", attempt))

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	if err := m.link.Connect(connectCtx); err != nil {
		if ctx.Err() != nil {
			m.log.Info("Connection attempt aborted", zap.Uint64("attempt", attempt))
			m.update(func(s *Status) { s.State = StateDisconnected })
			return fmt.Errorf("connect to %s: %w", m.link.Target(), ctx.Err())
		}
		retryIn := m.cooldown.Remaining(m.now())
		m.log.Warn("Connection attempt failed",
			zap.Uint64("attempt", attempt),
			zap.Duration("retry_in", retryIn),
			zap.Error(err))
		m.update(func(s *Status) {
			s.State = StateDisconnected
			s.LastError = err.Error()
			s.NextAttemptIn = ceilSeconds(retryIn)
		})
		return fmt.Errorf("connect to %s: %w", m.link.Target(), err)
	}

	var name string
	if m.resolveName != nil {
		name = m.resolveName(ctx, m.link.Target())
	}

	m.log.Info("Connected", zap.Uint64("attempt", attempt), zap.String("name", name))
	m.update(func(s *Status) {
		s.State = StateConnected
		s.ConnectedSince = m.now()
		s.LastError = ""
		if name != "" {
			s.Name = name
		}
	})
	return nil
}

func (m *Monitor) refreshCountdown() {
	next := ceilSeconds(m.cooldown.Remaining(m.now()))

	m.mu.RLock()
	unchanged := m.status.NextAttemptIn == next
	m.mu.RUnlock()
	if unchanged {
		return
	}

	m.update(func(s *Status) { s.NextAttemptIn = next })
}

func (m *Monitor) shutdown() {
	m.log.Info("Stopping connection monitor")
	if err := m.link.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		m.log.Warn("Disconnect failed", zap.Error(err))
	}
	if m.Status().State != StateDisconnected {
		m.update(func(s *Status) {
			s.State = StateDisconnected
			s.ConnectedSince = time.Time{}
		})
	}
}

// update mutates the status under the lock and notifies observers outside of it.
func (m *Monitor) update(mutate func(*Status)) {
	m.mu.Lock()
	mutate(&m.status)
	snapshot := m.status
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o.Observe(snapshot)
	}
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}
