package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vmacro/internal/events"
	"vmacro/internal/input"
	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

// DefaultImagePollInterval is how often an image_search gate re-checks.
const DefaultImagePollInterval = 100 * time.Millisecond

var errImageTimeout = errors.New("image search timeout")

// Target is the process binding a run is gated on.
type Target interface {
	IsSelectedActive() bool
	ClientRect() (osutils.Rect, bool)
}

// Options tune the orchestrator. Zero values take the defaults.
type Options struct {
	MaxDepth          int
	ImagePollInterval time.Duration
}

// RunInfo is the payload of the run events.
type RunInfo struct {
	ID    uuid.UUID
	Name  string
	Steps int
	Err   error
}

// Orchestrator executes one logic at a time.
type Orchestrator struct {
	resolver Resolver
	target   Target
	fx       Effectors
	bus      events.Publisher
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	current string
	wg      sync.WaitGroup
}

// New creates an orchestrator.
func New(resolver Resolver, target Target, fx Effectors, bus events.Publisher, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.ImagePollInterval <= 0 {
		opts.ImagePollInterval = DefaultImagePollInterval
	}
	if fx.Sleeper == nil {
		fx.Sleeper = ContextSleeper{}
	}
	return &Orchestrator{
		resolver: resolver,
		target:   target,
		fx:       fx,
		bus:      bus,
		opts:     opts,
		logger:   logger.With("component", "executor"),
	}
}

// Running returns the name of the logic in progress, or "".
func (o *Orchestrator) Running() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Run executes l synchronously. A trigger while the target is not active is
// ignored and returns nil.
func (o *Orchestrator) Run(ctx context.Context, l *logic.Logic) error {
	if !o.target.IsSelectedActive() {
		o.logger.Debug("target not active, run ignored", "logic", l.Name)
		return nil
	}
	ctx, err := o.begin(ctx, l)
	if err != nil {
		return err
	}
	return o.execute(ctx, l)
}

// Submit starts l on a background goroutine. It fails with ErrBusy while
// another run is in progress.
func (o *Orchestrator) Submit(l *logic.Logic) error {
	if !o.target.IsSelectedActive() {
		o.logger.Debug("target not active, run ignored", "logic", l.Name)
		return nil
	}
	ctx, err := o.begin(context.Background(), l)
	if err != nil {
		return err
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.execute(ctx, l)
	}()
	return nil
}

// Wait blocks until submitted runs have finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Stop force-stops the current run. Held keys and buttons are released
// before the run returns ErrForceStopped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return
	}
	o.logger.Warn("force stop requested", "logic", o.current)
	o.stopped = true
	o.cancel()
}

func (o *Orchestrator) begin(ctx context.Context, l *logic.Logic) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return nil, fmt.Errorf("%w: %s", ErrBusy, o.current)
	}
	ctx, o.cancel = context.WithCancel(ctx)
	o.stopped = false
	o.current = l.Name
	return ctx, nil
}

func (o *Orchestrator) end() (stopped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = nil
	o.current = ""
	return o.stopped
}

func (o *Orchestrator) publish(t events.Type, info RunInfo) {
	if o.bus != nil {
		o.bus.Publish(events.Event{Type: t, Data: info})
	}
}

func (o *Orchestrator) execute(ctx context.Context, l *logic.Logic) (err error) {
	info := RunInfo{ID: l.ID, Name: l.Name}
	held := newHeldInputs()
	log := o.logger.With("logic", l.Name)

	defer func() {
		interrupted := ctx.Err() != nil
		// Held inputs are released while the run is still current.
		if err != nil {
			held.release(o.fx, log)
		}
		stopped := o.end()
		switch {
		case err == nil:
			log.Info("run finished", "steps", info.Steps)
			o.publish(events.RunFinished, info)
		case interrupted:
			if stopped {
				err = ErrForceStopped
			}
			info.Err = err
			log.Warn("run stopped", "error", err)
			o.publish(events.RunStopped, info)
		default:
			info.Err = err
			log.Error("run failed", "error", err)
			o.publish(events.RunFailed, info)
		}
	}()

	steps, err := Flatten(o.resolver, l, o.opts.MaxDepth)
	if err != nil {
		return err
	}
	repeat := max(l.RepeatCount, 1)
	info.Steps = len(steps) * repeat
	log.Info("run started", "steps", info.Steps, "repeat", repeat)
	o.publish(events.RunStarted, info)

	for n := 0; n < repeat; n++ {
		for _, s := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.dispatch(ctx, s, held); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("%s in %q: %w", s.Item.DisplayText(), s.Source, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, s Step, held *heldInputs) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()

	switch p := s.Item.Payload.(type) {
	case logic.KeyPayload:
		if o.fx.Keys == nil {
			return ErrNoEffector
		}
		k := input.KeyStrokeFor(p)
		pressed := p.Action == logic.KeyPress
		if err := o.fx.Keys.SendKey(k, pressed); err != nil {
			return err
		}
		held.key(k, pressed)

	case logic.MousePayload:
		return o.mouse(p, held)

	case logic.DelayPayload:
		return o.fx.Sleeper.Sleep(ctx, time.Duration(p.Duration*float64(time.Second)))

	case logic.WaitClickPayload:
		if o.fx.Clicks == nil {
			return ErrNoEffector
		}
		return o.fx.Clicks.WaitClick(ctx, p.Button)

	case logic.ImageSearchPayload:
		return o.waitImage(ctx, p)

	case logic.WriteTextPayload:
		if o.fx.Text == nil {
			return ErrNoEffector
		}
		return o.fx.Text.TypeText(p.Text)

	default:
		return fmt.Errorf("%w: %s", ErrNoEffector, s.Item.Type())
	}
	return nil
}

func (o *Orchestrator) mouse(p logic.MousePayload, held *heldInputs) error {
	if o.fx.Mouse == nil {
		return ErrNoEffector
	}
	client, _ := o.target.ClientRect()
	x, y := input.ResolvePoint(p, client)
	if err := o.fx.Mouse.MoveTo(x, y); err != nil {
		return err
	}
	switch p.Action {
	case logic.MousePress, logic.MouseRelease:
		pressed := p.Action == logic.MousePress
		if err := o.fx.Mouse.SendMouse(p.Button, pressed); err != nil {
			return err
		}
		held.button(p.Button, pressed)
	case logic.MouseClick:
		if err := o.fx.Mouse.SendMouse(p.Button, true); err != nil {
			return err
		}
		held.button(p.Button, true)
		if err := o.fx.Mouse.SendMouse(p.Button, false); err != nil {
			return err
		}
		held.button(p.Button, false)
	}
	return nil
}

// waitImage polls until the image appears, the item's timeout passes or ctx
// is cancelled. A zero timeout waits indefinitely.
func (o *Orchestrator) waitImage(ctx context.Context, p logic.ImageSearchPayload) error {
	if o.fx.Images == nil {
		return ErrNoEffector
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, time.Duration(p.Timeout*float64(time.Second)), errImageTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(o.opts.ImagePollInterval)
	defer ticker.Stop()
	for {
		client, _ := o.target.ClientRect()
		found, err := o.fx.Images.Match(ctx, p, client)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if found {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), errImageTimeout) {
				return &ImageTimeoutError{ImagePath: p.ImagePath}
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type heldInputs struct {
	keys    []input.KeyStroke
	buttons []logic.MouseButton
}

func newHeldInputs() *heldInputs { return &heldInputs{} }

func (h *heldInputs) key(k input.KeyStroke, pressed bool) {
	h.keys = toggle(h.keys, k, pressed)
}

func (h *heldInputs) button(b logic.MouseButton, pressed bool) {
	h.buttons = toggle(h.buttons, b, pressed)
}

// release lifts everything still held, most recent first.
func (h *heldInputs) release(fx Effectors, log *slog.Logger) {
	for i := len(h.keys) - 1; i >= 0; i-- {
		if fx.Keys == nil {
			break
		}
		if err := fx.Keys.SendKey(h.keys[i], false); err != nil {
			log.Error("release key failed", "vk", h.keys[i].VirtualKey, "error", err)
		}
	}
	for i := len(h.buttons) - 1; i >= 0; i-- {
		if fx.Mouse == nil {
			break
		}
		if err := fx.Mouse.SendMouse(h.buttons[i], false); err != nil {
			log.Error("release button failed", "button", h.buttons[i], "error", err)
		}
	}
	h.keys, h.buttons = nil, nil
}

func toggle[T comparable](held []T, v T, pressed bool) []T {
	for i, x := range held {
		if x == v {
			if pressed {
				return held
			}
			return append(held[:i], held[i+1:]...)
		}
	}
	if pressed {
		return append(held, v)
	}
	return held
}
