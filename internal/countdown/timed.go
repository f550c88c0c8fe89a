package countdown

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"vmacro/internal/events"
)

// DefaultSequenceTimeout is how long an armed sequence waits for the
// confirm key.
const DefaultSequenceTimeout = 10 * time.Second

// State is a timed trigger state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateSequenceValid
	StateCountdownRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "GROUP_A_ARMED"
	case StateSequenceValid:
		return "SEQUENCE_VALID"
	case StateCountdownRunning:
		return "COUNTDOWN_RUNNING"
	default:
		return "UNKNOWN"
	}
}

// StateChange is the payload of events.TimedStateChanged.
type StateChange struct {
	From, To State
}

// Tick is the payload of the countdown tick and reset events.
type Tick struct {
	Remaining time.Duration
}

// TriggerConfig selects the keys of the timed sequence.
type TriggerConfig struct {
	// ArmKeys are the group A keys; pressing any of them arms the sequence.
	ArmKeys []uint16
	// ConfirmKey is the group B key; releasing it while armed validates.
	ConfirmKey      uint16
	SequenceTimeout time.Duration
	Enabled         bool
	// ResumeOnReopen restarts a countdown that the gate interrupted once
	// the gate opens again.
	ResumeOnReopen bool
}

// TimedTrigger drives a Countdown from a two-key sequence.
type TimedTrigger struct {
	cfg       TriggerConfig
	countdown *Countdown
	gate      *Gate
	bus       events.Publisher
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	armedAt   time.Time
	armGen    uint64
	timer     *time.Timer
	suspended bool
}

// NewTimedTrigger wires a trigger to cd and takes over its callbacks.
func NewTimedTrigger(cfg TriggerConfig, cd *Countdown, bus events.Publisher, logger *slog.Logger) *TimedTrigger {
	if cfg.SequenceTimeout <= 0 {
		cfg.SequenceTimeout = DefaultSequenceTimeout
	}
	t := &TimedTrigger{
		cfg:       cfg,
		countdown: cd,
		bus:       bus,
		logger:    logger.With("component", "timed_trigger"),
	}
	t.gate = &Gate{trigger: t, enabled: cfg.Enabled}

	cd.OnTick(func(remaining time.Duration) {
		bus.Publish(events.Event{Type: events.CountdownTick, Data: Tick{Remaining: remaining}})
	})
	cd.OnReset(func(full time.Duration) {
		bus.Publish(events.Event{Type: events.CountdownReset, Data: Tick{Remaining: full}})
	})
	cd.OnFinished(t.finished)
	return t
}

// Gate returns the activity gate of the trigger.
func (t *TimedTrigger) Gate() *Gate { return t.gate }

// State returns the current state.
func (t *TimedTrigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ArmedAt returns when the sequence was last armed.
func (t *TimedTrigger) ArmedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armedAt
}

// HandleKey feeds one key transition into the state machine.
func (t *TimedTrigger) HandleKey(vk uint16, pressed bool) {
	switch {
	case pressed && slices.Contains(t.cfg.ArmKeys, vk):
		t.arm()
	case !pressed && vk == t.cfg.ConfirmKey:
		t.confirm()
	}
}

func (t *TimedTrigger) arm() {
	t.mu.Lock()
	t.armGen++
	gen := t.armGen
	t.armedAt = time.Now()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.cfg.SequenceTimeout, func() { t.expire(gen) })
	change := t.setState(StateArmed)
	t.mu.Unlock()
	t.publish(change)
}

func (t *TimedTrigger) confirm() {
	t.mu.Lock()
	if t.state != StateArmed {
		t.mu.Unlock()
		return
	}
	t.stopTimer()
	changes := []*StateChange{t.setState(StateSequenceValid)}
	start := t.gate.Open()
	if start {
		t.suspended = false
		changes = append(changes, t.setState(StateCountdownRunning))
	} else {
		changes = append(changes, t.setState(t.restingState()))
	}
	t.mu.Unlock()

	for _, c := range changes {
		t.publish(c)
	}
	if start {
		t.logger.Debug("countdown started")
		t.countdown.Reset()
	} else {
		t.logger.Debug("sequence valid but gate closed", "active", t.gate.Active(), "enabled", t.gate.Enabled())
	}
}

func (t *TimedTrigger) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.armGen || t.state != StateArmed {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	change := t.setState(t.restingState())
	t.mu.Unlock()
	t.logger.Debug("sequence timed out")
	t.publish(change)
}

func (t *TimedTrigger) finished() {
	t.bus.Publish(events.Event{Type: events.CountdownFinished})
	t.mu.Lock()
	var change *StateChange
	// A confirm may already have restarted the countdown.
	if t.state == StateCountdownRunning && !t.countdown.Running() {
		change = t.setState(StateIdle)
	}
	t.mu.Unlock()
	t.publish(change)
}

// gateClosed stops a running countdown. Called by Gate without t.mu held.
func (t *TimedTrigger) gateClosed() {
	t.mu.Lock()
	var change *StateChange
	wasRunning := t.countdown.Running()
	if wasRunning {
		t.suspended = t.cfg.ResumeOnReopen
	}
	if t.state == StateCountdownRunning {
		change = t.setState(StateIdle)
	}
	t.mu.Unlock()

	if wasRunning {
		t.logger.Debug("gate closed, countdown stopped")
		t.countdown.Stop()
	}
	t.publish(change)
}

// gateOpened restarts a countdown the gate interrupted.
func (t *TimedTrigger) gateOpened() {
	t.mu.Lock()
	if !t.suspended {
		t.mu.Unlock()
		return
	}
	t.suspended = false
	var change *StateChange
	if t.state == StateIdle {
		change = t.setState(StateCountdownRunning)
	}
	t.mu.Unlock()

	t.logger.Debug("gate reopened, countdown resumed")
	t.countdown.Reset()
	t.publish(change)
}

// restingState is where the machine goes when an arm sequence ends without
// starting a new countdown. Must be called with t.mu held.
func (t *TimedTrigger) restingState() State {
	if t.countdown.Running() {
		return StateCountdownRunning
	}
	return StateIdle
}

func (t *TimedTrigger) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// setState must be called with t.mu held.
func (t *TimedTrigger) setState(s State) *StateChange {
	if s == t.state {
		return nil
	}
	c := &StateChange{From: t.state, To: s}
	t.state = s
	return c
}

func (t *TimedTrigger) publish(c *StateChange) {
	if c == nil {
		return
	}
	t.bus.Publish(events.Event{Type: events.TimedStateChanged, Data: *c})
}

// Close stops the trigger's timers. The countdown is owned by the caller.
func (t *TimedTrigger) Close() {
	t.mu.Lock()
	t.stopTimer()
	t.armGen++
	t.mu.Unlock()
}

// Gate is the level-triggered condition under which the countdown may run:
// the target process is active and the feature is enabled. Any change that
// closes the gate stops the countdown immediately.
type Gate struct {
	trigger *TimedTrigger

	mu      sync.Mutex
	active  bool
	enabled bool
}

// SetActive records target activity.
func (g *Gate) SetActive(active bool) {
	g.update(func() { g.active = active })
}

// SetEnabled records the feature toggle.
func (g *Gate) SetEnabled(enabled bool) {
	g.update(func() { g.enabled = enabled })
}

// Open reports whether the countdown may run.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active && g.enabled
}

func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *Gate) update(mutate func()) {
	g.mu.Lock()
	before := g.active && g.enabled
	mutate()
	after := g.active && g.enabled
	g.mu.Unlock()

	switch {
	case before && !after:
		g.trigger.gateClosed()
	case !before && after:
		g.trigger.gateOpened()
	}
}
