// vmacro - Windows macro automation service
// Replays recorded input sequences into one target window on a trigger key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"vmacro/internal/autostart"
	"vmacro/internal/capture"
	"vmacro/internal/config"
	"vmacro/internal/controller"
	"vmacro/internal/countdown"
	"vmacro/internal/events"
	"vmacro/internal/executor"
	"vmacro/internal/hotkey"
	"vmacro/internal/input"
	"vmacro/internal/logging"
	"vmacro/internal/osutils"
	"vmacro/internal/process"
	"vmacro/internal/repository"
	"vmacro/internal/tray"
)

var (
	version    = "0.3.0"
	showVer    = flag.Bool("version", false, "Show version")
	listProcs  = flag.String("list", "", "List windowed processes matching a filter (use \"*\" for all)")
	listLogics = flag.Bool("logics", false, "List stored logics")
	exportTo   = flag.String("export", "", "Export all logics to a YAML bundle")
	importFrom = flag.String("import", "", "Import logics from a YAML bundle")
	runName    = flag.String("run", "", "Run the named logic once and exit")
	target     = flag.String("target", "", "Target process name for -run (defaults to the configured one)")
	dryRun     = flag.Bool("dry-run", false, "Log injected input instead of sending it")
	autoStart  = flag.String("autostart", "", "Enable (on) or disable (off) start at login")
	verbose    = flag.Bool("v", false, "Debug logging to stderr")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vmacro version %s\n", version)
		return
	}

	bootstrap := logging.Discard()
	cfgMgr, err := config.NewManager(bootstrap)
	if err != nil {
		fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	cfg := cfgMgr.Get()

	level := logging.Level(cfg.General.LogLevel)
	if *verbose {
		level = logging.LevelDebug
	}
	logFile := cfg.General.LogFile
	if logFile != "" {
		logFile = cfgMgr.Resolve(logFile)
	}
	logSvc, err := logging.New(logging.Options{Level: level, File: logFile, Stderr: true})
	if err != nil {
		fatalf("Failed to initialize logging: %v", err)
	}
	defer logSvc.Close()
	logger := logSvc.Logger()

	switch {
	case *autoStart != "":
		handleAutostart(*autoStart)
		return
	case *listProcs != "":
		listProcesses(*listProcs)
		return
	}

	backend, err := controller.OpenBackend(cfg.Storage, cfgMgr.Resolve)
	if err != nil {
		fatalf("Failed to open logic store: %v", err)
	}
	repo := repository.New(backend, logger)
	ctx := context.Background()

	switch {
	case *listLogics:
		printLogics(ctx, repo)
		_ = repo.Close()
	case *exportTo != "":
		exportBundle(ctx, repo, *exportTo)
		_ = repo.Close()
	case *importFrom != "":
		importBundle(ctx, repo, *importFrom)
		_ = repo.Close()
	case *runName != "":
		runOnce(cfgMgr, repo, logger, *runName)
	default:
		runService(cfgMgr, repo, logger)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func handleAutostart(mode string) {
	var err error
	switch strings.ToLower(mode) {
	case "on", "true", "1":
		err = autostart.Enable()
	case "off", "false", "0":
		err = autostart.Disable()
	default:
		fatalf("Invalid -autostart value %q (use on or off)", mode)
	}
	if err != nil {
		fatalf("Failed to change autostart: %v", err)
	}
	fmt.Printf("Start at login: %v\n", autostart.IsEnabled())
}

func listProcesses(filter string) {
	if filter == "*" {
		filter = ""
	}
	procs, err := osutils.NewWindowService().ListProcesses(filter)
	if err != nil {
		fatalf("Failed to list processes: %v", err)
	}

	fmt.Println("Windowed Processes:")
	fmt.Println("-------------------")
	for _, p := range procs {
		fmt.Printf("PID: %d\n", p.PID)
		fmt.Printf("  Name: %s\n", p.Name)
		if p.Title != "" {
			fmt.Printf("  Title: %s\n", p.Title)
		}
		fmt.Println()
	}
}

func printLogics(ctx context.Context, repo *repository.Repository) {
	logics, err := repo.List(ctx, false)
	if err != nil {
		fatalf("Failed to list logics: %v", err)
	}

	fmt.Println("Logics:")
	fmt.Println("-------")
	for _, l := range logics {
		fmt.Printf("%d. %s\n", l.DisplayOrder, l.Name)
		switch {
		case l.IsNested:
			fmt.Printf("  Trigger: (nested)\n")
		case l.TriggerKey != nil:
			fmt.Printf("  Trigger: %s\n", l.TriggerKey)
		}
		fmt.Printf("  Repeat: %d\n", l.RepeatCount)
		for _, it := range l.Items {
			fmt.Printf("    %2d %s\n", it.Order, it.DisplayText())
		}
		fmt.Println()
	}
}

func exportBundle(ctx context.Context, repo *repository.Repository, path string) {
	f, err := os.Create(path)
	if err != nil {
		fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := repo.ExportYAML(ctx, f); err != nil {
		fatalf("Export failed: %v", err)
	}
	fmt.Printf("Exported logics to %s\n", path)
}

func importBundle(ctx context.Context, repo *repository.Repository, path string) {
	f, err := os.Open(path)
	if err != nil {
		fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	report, err := repo.ImportYAML(ctx, f)
	if err != nil {
		fatalf("Import failed: %v", err)
	}
	for _, name := range report.Imported {
		fmt.Printf("Imported: %s\n", name)
	}
	for name, reason := range report.Skipped {
		fmt.Printf("Skipped: %s (%s)\n", name, reason)
	}
}

// newController builds the live wiring shared by -run and the service.
func newController(cfgMgr *config.Manager, repo *repository.Repository, logger *slog.Logger, bus *events.Bus) (*controller.Controller, *hotkey.Manager, error) {
	cfg := cfgMgr.Get()

	var inj input.Injector = input.NewInjector()
	if *dryRun {
		inj = input.NewLogger(logger)
	}
	fx := executor.FromInjector(inj)
	imageDir := cfgMgr.Dir()
	if cfg.Execution.ImageDir != "" {
		imageDir = cfgMgr.Resolve(cfg.Execution.ImageDir)
	}
	fx.Images = capture.NewMatcher(capture.NewService(), imageDir, logger)

	hk := hotkey.NewManager(logger)
	ctrl, err := controller.New(controller.Deps{
		Config:    cfgMgr,
		Repo:      repo,
		Windows:   osutils.NewWindowService(),
		Hotkeys:   hk,
		Effectors: fx,
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return ctrl, hk, nil
}

func runOnce(cfgMgr *config.Manager, repo *repository.Repository, logger *slog.Logger, name string) {
	bus := events.NewBus(logger)
	ctrl, hk, err := newController(cfgMgr, repo, logger, bus)
	if err != nil {
		fatalf("Failed to create controller: %v", err)
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		fatalf("Failed to start: %v", err)
	}
	if err := hk.Start(); err != nil {
		logger.Warn("global hooks unavailable, force stop disabled", "error", err)
	}
	defer hk.Stop()

	if *target != "" {
		if _, err := ctrl.SelectTargetByName(*target); err != nil {
			fatalf("Target %s not found: %v", *target, err)
		}
	}
	if ctrl.Target() == nil {
		fatalf("No target process selected (use -target)")
	}
	active := make(chan struct{}, 1)
	unsub := bus.Subscribe(events.ActivityChanged, func(e events.Event) {
		if a, ok := e.Data.(process.ActivityChange); ok && a.Active {
			select {
			case active <- struct{}{}:
			default:
			}
		}
	})
	if !ctrl.Active() {
		fmt.Printf("Waiting for %s to become the foreground window...\n", ctrl.Target().Name)
		select {
		case <-active:
		case <-ctx.Done():
			unsub()
			return
		}
	}
	unsub()

	if err := ctrl.RunByName(ctx, name); err != nil {
		if errors.Is(err, executor.ErrForceStopped) || errors.Is(err, context.Canceled) {
			fmt.Println("Stopped.")
			return
		}
		fatalf("Run failed: %v", err)
	}
	fmt.Printf("Finished %s\n", name)
}

func runService(cfgMgr *config.Manager, repo *repository.Repository, logger *slog.Logger) {
	logger.Info("vmacro service starting", "version", version)
	if !osutils.IsElevated() {
		logger.Warn("not running elevated; input to elevated windows will be blocked")
	}

	bus := events.NewBus(logger)
	ctrl, hk, err := newController(cfgMgr, repo, logger, bus)
	if err != nil {
		fatalf("Failed to create controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ctrl.Start(ctx); err != nil {
		fatalf("Failed to start controller: %v", err)
	}
	if err := hk.Start(); err != nil {
		logger.Error("failed to start global hooks", "error", err)
	}

	t := tray.New("vmacro", "vmacro - macro automation")
	targetItem := t.AddStatus(targetTitle(ctrl))
	runItem := t.AddStatus("Idle")
	timerItem := t.AddStatus(timerTitle(countdown.StateIdle, 0))
	t.AddSeparator()

	t.AddCheckbox("Timed Trigger", ctrl.TimedEnabled(), func(checked bool) {
		if err := ctrl.SetTimedEnabled(checked); err != nil {
			logger.Error("failed to save timed trigger setting", "error", err)
		}
	})
	t.AddCheckbox("Start at Login", autostart.IsEnabled(), func(checked bool) {
		var err error
		if checked {
			err = autostart.Enable()
		} else {
			err = autostart.Disable()
		}
		if err != nil {
			logger.Error("failed to change autostart", "error", err)
		}
	})
	t.AddMenuItem("Force Stop", ctrl.ForceStop)
	t.AddMenuItem("Reload Logics", func() {
		if _, err := repo.List(ctx, true); err != nil {
			logger.Error("reload failed", "error", err)
		}
	})
	t.AddMenuItem(fmt.Sprintf("Retarget %s", cfgMgr.Get().TargetProcess), func() {
		name := cfgMgr.Get().TargetProcess
		if name == "" {
			return
		}
		if _, err := ctrl.SelectTargetByName(name); err != nil {
			logger.Warn("target not running", "process", name, "error", err)
		}
	})

	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	refreshTarget := func(events.Event) { t.SetItemTitle(targetItem, targetTitle(ctrl)) }
	bus.Subscribe(events.ActivityChanged, refreshTarget)
	bus.Subscribe(events.TargetChanged, refreshTarget)
	bus.Subscribe(events.RunStarted, func(e events.Event) {
		if info, ok := e.Data.(executor.RunInfo); ok {
			t.SetItemTitle(runItem, "Running: "+info.Name)
		}
	})
	finished := func(e events.Event) {
		title := "Idle"
		if info, ok := e.Data.(executor.RunInfo); ok && info.Err != nil {
			title = fmt.Sprintf("Last run %s: %v", info.Name, info.Err)
		}
		t.SetItemTitle(runItem, title)
	}
	bus.Subscribe(events.RunFinished, finished)
	bus.Subscribe(events.RunStopped, finished)
	bus.Subscribe(events.RunFailed, finished)

	var lastSecond atomic.Int64
	lastSecond.Store(-1)
	bus.Subscribe(events.CountdownTick, func(e events.Event) {
		tick, ok := e.Data.(countdown.Tick)
		if !ok {
			return
		}
		if s := int64(tick.Remaining / time.Second); lastSecond.Swap(s) != s {
			t.SetItemTitle(timerItem, timerTitle(ctrl.Timed().State(), tick.Remaining))
		}
	})
	bus.Subscribe(events.TimedStateChanged, func(e events.Event) {
		if sc, ok := e.Data.(countdown.StateChange); ok {
			lastSecond.Store(-1)
			t.SetItemTitle(timerItem, timerTitle(sc.To, ctrl.Countdown().Remaining()))
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		t.Stop()
	}()

	logger.Info("vmacro service running", "force_stop", cfgMgr.Get().General.ForceStopHotkey)
	t.Run()

	hk.Stop()
	if err := ctrl.Close(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func targetTitle(ctrl *controller.Controller) string {
	sel := ctrl.Target()
	if sel == nil {
		return "Target: none"
	}
	state := "inactive"
	if ctrl.Active() {
		state = "active"
	}
	return fmt.Sprintf("Target: %s (%d) %s", sel.Name, sel.PID, state)
}

func timerTitle(state countdown.State, remaining time.Duration) string {
	if state == countdown.StateCountdownRunning {
		return fmt.Sprintf("Timer: %.1fs", remaining.Seconds())
	}
	return "Timer: " + strings.ToLower(state.String())
}
