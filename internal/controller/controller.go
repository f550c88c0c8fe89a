// Package controller wires the engines together: it owns the repository,
// the process binding, the timed trigger and the orchestrator, and routes
// global key events to them.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vmacro/internal/config"
	"vmacro/internal/countdown"
	"vmacro/internal/events"
	"vmacro/internal/executor"
	"vmacro/internal/hotkey"
	"vmacro/internal/logic"
	"vmacro/internal/osutils"
	"vmacro/internal/process"
	"vmacro/internal/repository"
)

// Deps are the collaborators the controller is built from.
type Deps struct {
	Config    *config.Manager
	Repo      *repository.Repository
	Windows   osutils.WindowService
	Hotkeys   *hotkey.Manager
	Effectors executor.Effectors
	Bus       *events.Bus
	Logger    *slog.Logger
}

// Controller coordinates one automation session.
type Controller struct {
	cfg     *config.Manager
	repo    *repository.Repository
	windows osutils.WindowService
	hotkeys *hotkey.Manager
	bus     *events.Bus
	logger  *slog.Logger

	binding   *process.Binding
	monitor   *process.Monitor
	orch      *executor.Orchestrator
	countdown *countdown.Countdown
	timed     *countdown.TimedTrigger

	mu     sync.Mutex
	down   map[uint16]bool
	unsubs []func()
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a controller from the current configuration.
func New(d Deps) (*Controller, error) {
	cfg := d.Config.Get()
	logger := d.Logger.With("component", "controller")

	trig, err := triggerConfig(cfg.TimedTrigger)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:     d.Config,
		repo:    d.Repo,
		windows: d.Windows,
		hotkeys: d.Hotkeys,
		bus:     d.Bus,
		logger:  logger,
		down:    make(map[uint16]bool),
	}
	c.binding = process.NewBinding(d.Windows, d.Logger)
	c.monitor = process.NewMonitor(c.binding, d.Bus, time.Duration(cfg.Process.PollIntervalMs)*time.Millisecond, d.Logger)

	fx := d.Effectors
	if fx.Clicks == nil {
		fx.Clicks = d.Hotkeys
	}
	c.orch = executor.New(d.Repo, c.binding, fx, d.Bus, executor.Options{
		MaxDepth:          cfg.Execution.MaxNestingDepth,
		ImagePollInterval: time.Duration(cfg.Execution.ImagePollIntervalMs) * time.Millisecond,
	}, d.Logger)

	c.countdown = countdown.New(countdown.Options{Duration: cfg.TimedTrigger.Duration()})
	c.timed = countdown.NewTimedTrigger(trig, c.countdown, d.Bus, d.Logger)
	return c, nil
}

func triggerConfig(t config.TimedTriggerConfig) (countdown.TriggerConfig, error) {
	out := countdown.TriggerConfig{
		SequenceTimeout: t.SequenceTimeout(),
		Enabled:         t.Enabled,
		ResumeOnReopen:  t.Resume(),
	}
	for _, name := range t.ArmKeys {
		vk, err := logic.VirtualKey(name)
		if err != nil {
			return out, fmt.Errorf("timed_trigger.arm_keys: %w", err)
		}
		out.ArmKeys = append(out.ArmKeys, vk)
	}
	if t.ConfirmKey != "" {
		vk, err := logic.VirtualKey(t.ConfirmKey)
		if err != nil {
			return out, fmt.Errorf("timed_trigger.confirm_key: %w", err)
		}
		out.ConfirmKey = vk
	}
	return out, nil
}

// Start subscribes to key and activity events, restores the configured
// target and starts the activity monitor. Global hooks are started
// separately by the caller.
func (c *Controller) Start(ctx context.Context) error {
	cfg := c.cfg.Get()

	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.unsubs = append(c.unsubs,
		c.hotkeys.SubscribeKeys(c.handleKey),
		c.bus.Subscribe(events.ActivityChanged, func(e events.Event) {
			if a, ok := e.Data.(process.ActivityChange); ok {
				c.timed.Gate().SetActive(a.Active)
			}
		}),
	)
	c.mu.Unlock()

	if _, err := c.hotkeys.Register(cfg.General.ForceStopHotkey, c.ForceStop); err != nil {
		return fmt.Errorf("force stop hotkey: %w", err)
	}
	c.repo.RegisterChangeCallback(func() {
		c.bus.Publish(events.Event{Type: events.LogicsChanged})
	})

	if _, err := c.repo.List(ctx, false); err != nil {
		return fmt.Errorf("load logics: %w", err)
	}
	if cfg.TargetProcess != "" {
		if _, err := c.binding.SelectByName(cfg.TargetProcess); err != nil {
			c.logger.Warn("configured target not running", "process", cfg.TargetProcess, "error", err)
		}
	}

	c.monitor.Start(c.ctx)
	c.logger.Info("controller started", "target", cfg.TargetProcess, "force_stop", cfg.General.ForceStopHotkey)
	return nil
}

// Close stops everything the controller started and closes the repository.
func (c *Controller) Close() error {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	cancel := c.cancel
	c.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	c.monitor.Stop()
	c.orch.Stop()
	c.orch.Wait()
	c.timed.Close()
	c.countdown.Close()
	if cancel != nil {
		cancel()
	}
	return c.repo.Close()
}

func (c *Controller) handleKey(ev hotkey.KeyEvent) {
	if ev.Injected {
		return
	}

	c.mu.Lock()
	repeat := ev.Pressed && c.down[ev.VirtualKey]
	if ev.Pressed {
		c.down[ev.VirtualKey] = true
	} else {
		delete(c.down, ev.VirtualKey)
	}
	ctx := c.ctx
	c.mu.Unlock()

	if repeat {
		return
	}
	c.timed.HandleKey(ev.VirtualKey, ev.Pressed)

	if !ev.Pressed || logic.IsModifierKey(ev.VirtualKey) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	l, ok := c.repo.FindByTrigger(ctx, logic.Combo{VirtualKey: ev.VirtualKey, Modifiers: ev.Modifiers})
	if !ok {
		return
	}
	if err := c.orch.Submit(l); err != nil {
		if errors.Is(err, executor.ErrBusy) {
			c.logger.Debug("trigger ignored while running", "logic", l.Name)
			return
		}
		c.logger.Error("submit failed", "logic", l.Name, "error", err)
	}
}

// ForceStop aborts the running logic.
func (c *Controller) ForceStop() { c.orch.Stop() }

// Running returns the name of the running logic, or "".
func (c *Controller) Running() string { return c.orch.Running() }

// Wait blocks until submitted runs finish.
func (c *Controller) Wait() { c.orch.Wait() }

// Repository returns the logic repository.
func (c *Controller) Repository() *repository.Repository { return c.repo }

// Timed returns the timed trigger.
func (c *Controller) Timed() *countdown.TimedTrigger { return c.timed }

// Countdown returns the timed trigger's countdown.
func (c *Controller) Countdown() *countdown.Countdown { return c.countdown }

// Target returns the selected process, or nil.
func (c *Controller) Target() *osutils.ProcessInfo { return c.binding.Selected() }

// Active reports the last sampled activity of the target.
func (c *Controller) Active() bool { return c.monitor.Active() }

// Processes lists windowed processes matching filter.
func (c *Controller) Processes(filter string) ([]osutils.ProcessInfo, error) {
	return c.windows.ListProcesses(filter)
}

// SelectTarget sets the target process and remembers its name.
func (c *Controller) SelectTarget(info osutils.ProcessInfo) error {
	c.binding.SetSelected(&info)
	c.monitor.Poll()
	c.cfg.Update(func(cfg *config.Config) { cfg.TargetProcess = info.Name })
	c.bus.Publish(events.Event{Type: events.TargetChanged, Data: info})
	return c.cfg.Save()
}

// SelectTargetByName selects the first process with image name name.
func (c *Controller) SelectTargetByName(name string) (osutils.ProcessInfo, error) {
	info, err := c.binding.SelectByName(strings.TrimSpace(name))
	if err != nil {
		return info, err
	}
	return info, c.SelectTarget(info)
}

// SetTimedEnabled toggles the timed trigger feature and persists it.
func (c *Controller) SetTimedEnabled(enabled bool) error {
	c.timed.Gate().SetEnabled(enabled)
	c.cfg.Update(func(cfg *config.Config) { cfg.TimedTrigger.Enabled = enabled })
	return c.cfg.Save()
}

// TimedEnabled reports the feature toggle.
func (c *Controller) TimedEnabled() bool { return c.timed.Gate().Enabled() }

// RunByName executes the named logic once, bypassing its trigger. The run
// is still gated on target activity.
func (c *Controller) RunByName(ctx context.Context, name string) error {
	logics, err := c.repo.List(ctx, false)
	if err != nil {
		return err
	}
	for _, l := range logics {
		if strings.EqualFold(l.Name, name) {
			return c.orch.Run(ctx, l)
		}
	}
	return fmt.Errorf("%w: %q", repository.ErrNotFound, name)
}

// Edit opens an editor on a stored logic.
func (c *Controller) Edit(ctx context.Context, name string) (*Editor, error) {
	logics, err := c.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, l := range logics {
		if l.Name == name {
			return EditLogic(ctx, c.repo, l.ID)
		}
	}
	return nil, fmt.Errorf("%w: %q", repository.ErrNotFound, name)
}
