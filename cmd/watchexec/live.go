package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"watchloop/internal/config"
	"watchloop/internal/event"
	"watchloop/internal/fsevents"
	"watchloop/internal/logging"
	"watchloop/internal/metrics"
	"watchloop/internal/monitor"
	"watchloop/internal/notify"
	"watchloop/internal/process"
	"watchloop/internal/runloop"
	"watchloop/internal/shutdown"
)

// runLive builds the recursive-watcher pipeline (FsEventSource ->
// RecursiveMonitor -> RunLoop -> ChildSupervisor) and drives it until an
// external signal requests shutdown. It returns the process exit code.
func runLive(rc config.RunnerConfig, logger *logging.Logger) int {
	source, err := fsevents.New()
	if err != nil {
		logger.Error("watchexec: failed to open event source", map[string]string{"error": err.Error()})
		return 1
	}

	var overrides []monitor.OverrideFilter
	if !rc.NoVCSIgnore {
		overrides = gitignoreOverrides(rc.Roots, logger)
	}
	filter, err := config.BuildFilter(rc, nil)
	if err != nil {
		logger.Error("watchexec: bad filter configuration", map[string]string{"error": err.Error()})
		return 1
	}

	mask := fsevents.MaskContent
	if rc.Meta {
		mask |= fsevents.MaskMetadata
	}

	mon, err := monitor.New(source, monitor.Config{
		Roots:          rc.Roots,
		Filter:         filter,
		Overrides:      overrides,
		FollowSymlinks: rc.FollowSymlinks,
		Mask:           mask,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("watchexec: failed to start monitor", map[string]string{"error": err.Error()})
		return 1
	}
	metrics.Default.SetActiveWatches(mon.WatchCount())

	ctx, cancel := context.WithCancel(context.Background())
	bus := event.NewBus[runloop.Event](ctx, event.BusOptions{Name: "runloop", Registry: metrics.Default})

	registry := process.NewRegistry()
	rl := runloop.New(mon, shellSpawner(rc, registry), runloop.Options{
		Cmd:         rc.Command,
		EnvExport:   rc.EnvExport,
		Debounce:    rc.Debounce,
		Timeout:     rc.Timeout,
		Signal:      rc.Signal,
		Restart:     rc.Restart,
		Postpone:    rc.Postpone,
		ClearScreen: rc.ClearScreen,
		ClearEvents: rc.ClearEvents,
	}, bus, logger)

	var sink notify.Sink
	if rc.NotifyMsg != "" {
		sink = notify.NewDesktopSink("watchexec")
	}
	go reportRuns(bus, sink, rc.Color, rc.NotifyMsg, "watchexec", metrics.Default)

	var metricsServer *http.Server
	if rc.MetricsAddr != "" {
		metricsServer = serveMetrics(rc.MetricsAddr, metrics.Default, bus, logger)
	}

	coordinator := shutdown.NewCoordinator(logger)
	coordinator.Add("children", func(ctx context.Context) error { return registry.StopAll(ctx, rc.Signal) })
	coordinator.Add("monitor", func(context.Context) error { return mon.Close() })
	coordinator.Add("event_bus", func(context.Context) error { bus.Close(); return nil })
	if metricsServer != nil {
		coordinator.Add("metrics_server", metricsServer.Shutdown)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	stopWatching := shutdown.WatchSignals(logger, cancel, sigCh)
	defer stopWatching()

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	logger.Info("watchexec: watching", map[string]string{
		"roots": fmt.Sprint(rc.Roots),
	})
	rl.Run(stop)

	_ = coordinator.Run(context.Background())
	return 0
}

// shellSpawner adapts internal/process.Spawn into a runloop.Spawner that
// routes the joined command through the operator's shell, per spec.md §9.
// When rc.Pty is set the child is attached to a pseudo-terminal instead
// (internal/process.SpawnPty, ADDED per §4.4). Every spawned handle is
// tracked in registry so shutdown.Coordinator's "children" phase can
// reach the currently running child.
func shellSpawner(rc config.RunnerConfig, registry *process.Registry) runloop.Spawner {
	return func(argv, env []string) (runloop.Supervisor, error) {
		shellArgv := wrapShell("", argv)
		spawn := process.Spawn
		if rc.Pty {
			spawn = process.SpawnPty
		}
		h, err := spawn(shellArgv, env)
		if err != nil {
			return nil, err
		}
		h.Track(registry, "watched-command")
		return h, nil
	}
}
