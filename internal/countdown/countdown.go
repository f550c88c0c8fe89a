// Package countdown implements the precision countdown used by the timed
// trigger, the trigger's key-sequence state machine and its activity gate.
package countdown

import (
	"sync"
	"time"
)

const (
	DefaultDuration     = 10 * time.Second
	DefaultPollInterval = time.Millisecond
	// DefaultTickInterval caps tick callbacks at roughly 60 per second.
	DefaultTickInterval = 16 * time.Millisecond
)

// Options configures a Countdown. Zero fields take the defaults.
type Options struct {
	Duration     time.Duration
	PollInterval time.Duration
	TickInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	return o
}

// Countdown counts down a fixed duration on a dedicated goroutine. Remaining
// time is always derived from a fixed deadline so scheduler latency never
// accumulates. Callbacks run on the countdown goroutine, except OnReset which
// runs on the goroutine calling Stop.
type Countdown struct {
	opts Options

	mu         sync.Mutex
	running    bool
	deadline   time.Time
	idle       time.Duration // reported by Remaining while not running
	lastTick   time.Time
	onTick     func(remaining time.Duration)
	onFinished func()
	onReset    func(full time.Duration)

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a countdown and starts its timing goroutine. Close releases it.
func New(opts Options) *Countdown {
	opts = opts.withDefaults()
	c := &Countdown{
		opts: opts,
		idle: opts.Duration,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Duration returns the full countdown length.
func (c *Countdown) Duration() time.Duration { return c.opts.Duration }

// OnTick sets the throttled progress callback.
func (c *Countdown) OnTick(fn func(remaining time.Duration)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// OnFinished sets the callback fired once when a run reaches zero.
func (c *Countdown) OnFinished(fn func()) {
	c.mu.Lock()
	c.onFinished = fn
	c.mu.Unlock()
}

// OnReset sets the callback fired when a run is stopped.
func (c *Countdown) OnReset(fn func(full time.Duration)) {
	c.mu.Lock()
	c.onReset = fn
	c.mu.Unlock()
}

// Start begins a fresh run, discarding any run in flight.
func (c *Countdown) Start() {
	c.mu.Lock()
	c.running = true
	c.deadline = time.Now().Add(c.opts.Duration)
	c.lastTick = time.Time{}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Reset is Start: it cancels the in-flight run and begins a new one.
func (c *Countdown) Reset() { c.Start() }

// Stop cancels the run and reports the full duration through OnReset. It is
// a no-op when nothing is running.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.idle = c.opts.Duration
	fn := c.onReset
	c.mu.Unlock()

	if fn != nil {
		fn(c.opts.Duration)
	}
}

// Running reports whether a run is in progress.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Remaining returns the time left, clamped at zero. After a finished run it
// is zero; after Stop it is the full duration.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.idle
	}
	return max(c.deadline.Sub(time.Now()), 0)
}

// Close stops the timing goroutine and waits for it.
func (c *Countdown) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(c.quit)
		<-c.done
	})
}

func (c *Countdown) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			return
		case <-c.wake:
			c.run()
		}
	}
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
		}
		if !c.step() {
			return
		}
	}
}

// step samples the deadline once. It returns false when no run is active.
func (c *Countdown) step() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	now := time.Now()
	remaining := c.deadline.Sub(now)
	if remaining <= 0 {
		c.running = false
		c.idle = 0
		tick, finished := c.onTick, c.onFinished
		c.mu.Unlock()
		if tick != nil {
			tick(0)
		}
		if finished != nil {
			finished()
		}
		return false
	}
	if !c.lastTick.IsZero() && now.Sub(c.lastTick) < c.opts.TickInterval {
		c.mu.Unlock()
		return true
	}
	c.lastTick = now
	tick := c.onTick
	c.mu.Unlock()
	if tick != nil {
		tick(remaining)
	}
	return true
}
