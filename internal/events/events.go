// Package events is a small typed publish/subscribe bus that decouples the
// engines from whatever surface presents their state.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Type names an event kind.
type Type string

const (
	ActivityChanged   Type = "activity_changed"
	TargetChanged     Type = "target_changed"
	LogicsChanged     Type = "logics_changed"
	CountdownTick     Type = "countdown_tick"
	CountdownFinished Type = "countdown_finished"
	CountdownReset    Type = "countdown_reset"
	TimedStateChanged Type = "timed_state_changed"
	RunStarted        Type = "run_started"
	RunFinished       Type = "run_finished"
	RunFailed         Type = "run_failed"
	RunStopped        Type = "run_stopped"
)

// Event is one published occurrence. Data's concrete type depends on Type.
type Event struct {
	Type Type
	Time time.Time
	Data any
}

// Handler receives events.
type Handler func(Event)

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(e Event)
}

type subscription struct {
	id int
	fn Handler
}

// Bus delivers events synchronously on the publisher's goroutine, in
// subscription order. A panicking handler is logged and does not stop
// delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]subscription
	all    []subscription
	nextID int
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Type][]subscription),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers fn for events of type t. The returned function
// removes the subscription.
func (b *Bus) Subscribe(t Type, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[t] = remove(b.subs[t], id)
	}
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers e to its subscribers. A zero Time is stamped with now.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.subs[e.Type])+len(b.all))
	handlers = append(handlers, b.subs[e.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, s := range handlers {
		b.deliver(s.fn, e)
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", e.Type, "panic", r)
		}
	}()
	fn(e)
}

func remove(subs []subscription, id int) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
