package process

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vmacro/internal/events"
)

// DefaultPollInterval is how often the monitor samples the foreground window.
const DefaultPollInterval = 100 * time.Millisecond

// ActivityChange is the payload of events.ActivityChanged.
type ActivityChange struct {
	Active bool
}

// Monitor polls a Binding and publishes activity transitions.
type Monitor struct {
	binding  *Binding
	bus      events.Publisher
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a stopped monitor. A non-positive interval means
// DefaultPollInterval.
func NewMonitor(binding *Binding, bus events.Publisher, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		binding:  binding,
		bus:      bus,
		interval: interval,
		logger:   logger.With("component", "monitor"),
	}
}

// Start launches the polling goroutine. Calling Start on a running monitor
// is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
	m.logger.Debug("monitor started", "interval", m.interval)
}

// Stop cancels polling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active returns the last sampled activity.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Poll samples once and publishes if activity changed. It is exported so
// callers can force a refresh after changing the target.
func (m *Monitor) Poll() {
	now := m.binding.IsSelectedActive()
	m.mu.Lock()
	changed := now != m.active
	m.active = now
	m.mu.Unlock()
	if changed {
		m.logger.Debug("activity changed", "active", now)
		m.bus.Publish(events.Event{Type: events.ActivityChanged, Data: ActivityChange{Active: now}})
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}
