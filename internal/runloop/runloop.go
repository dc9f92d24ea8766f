package runloop

import (
	"fmt"
	"io"
	"os"
	"time"

	"watchloop/internal/event"
	"watchloop/internal/logging"
	"watchloop/internal/monitor"
	"watchloop/internal/process"
)

const (
	defaultIdlePollPeriod = 250 * time.Millisecond
	defaultRestartPoll    = 10 * time.Millisecond
	clearScreenSequence   = "\033c"
)

const (
	EventTypePhase = "runloop_phase"
	EventTypeRun   = "runloop_run"
)

// RunLoop owns the Idle/Debouncing/Executing/Killing state machine.
type RunLoop struct {
	monitor Monitor
	spawn   Spawner
	opts    Options
	bus     *event.Bus[Event]
	logger  *logging.Logger
	stdout  io.Writer
}

// New builds a RunLoop. spawn defaults to internal/process.Spawn when nil.
func New(mon Monitor, spawn Spawner, opts Options, bus *event.Bus[Event], logger *logging.Logger) *RunLoop {
	if opts.IdlePollPeriod <= 0 {
		opts.IdlePollPeriod = defaultIdlePollPeriod
	}
	if opts.RestartPoll <= 0 {
		opts.RestartPoll = defaultRestartPoll
	}
	if opts.Signal == nil {
		opts.Signal = process.DefaultKillSignal
	}
	if spawn == nil {
		spawn = func(argv, env []string) (Supervisor, error) {
			return process.Spawn(argv, env)
		}
	}
	if logger == nil {
		logger = logging.NewLoggerWithOutput(nil, logging.LevelInfo, nil)
	}
	return &RunLoop{monitor: mon, spawn: spawn, opts: opts, bus: bus, logger: logger, stdout: os.Stdout}
}

// Run drives the state machine until stop is closed. It returns when the
// loop exits cleanly; it never returns an error itself (execution failures
// are reported as Events, not propagated — spec.md §7: child nonzero exit
// is not an error for the core).
func (r *RunLoop) Run(stop <-chan struct{}) {
	var changes []monitor.MonitorResult
	if !r.opts.Postpone {
		r.runOnce(nil, stop)
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		changes = r.waitForFirstEvent(stop)
		if changes == nil {
			return // stop was closed
		}

		changes = r.debounce(changes, stop)
		r.runOnce(changes, stop)
	}
}

func (r *RunLoop) waitForFirstEvent(stop <-chan struct{}) []monitor.MonitorResult {
	r.publishPhase(PhaseIdle, nil)
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		results := r.monitor.Wait(r.opts.IdlePollPeriod)
		if len(results) > 0 {
			return results
		}
	}
}

// debounce keeps draining events for a fixed window measured from the
// first event, folding every observed event into the coming change-set
// (spec.md §4.5 "Debounce").
func (r *RunLoop) debounce(first []monitor.MonitorResult, stop <-chan struct{}) []monitor.MonitorResult {
	changes := append([]monitor.MonitorResult{}, first...)
	if r.opts.Debounce <= 0 {
		return changes
	}
	r.publishPhase(PhaseDebouncing, changes)

	deadline := time.Now().Add(r.opts.Debounce)
	for {
		select {
		case <-stop:
			return changes
		default:
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return changes
		}
		more := r.monitor.Wait(remaining)
		changes = append(changes, more...)
	}
}

// runOnce executes the command once, running the restart or no-restart
// alternation until the command's final exit for this trigger.
func (r *RunLoop) runOnce(changes []monitor.MonitorResult, stop <-chan struct{}) {
	if r.opts.ClearScreen {
		fmt.Fprint(r.stdout, clearScreenSequence)
	}

	handle, err := r.spawnChild(changes)
	if err != nil {
		r.logger.Error("runloop: spawn failed", map[string]string{"error": err.Error()})
		r.publish(Event{EventType: EventTypeRun, ExitErr: err, ExitCode: -1})
		return
	}
	r.publishPhase(PhaseExecuting, changes)

	if r.opts.Restart {
		r.runWithRestart(handle, changes, stop)
		return
	}
	r.runToCompletion(handle)
}

func (r *RunLoop) spawnChild(changes []monitor.MonitorResult) (Supervisor, error) {
	env := append([]string{}, r.opts.BaseEnv...)
	if r.opts.EnvExport {
		env = append(env, "WATCHEXEC_EVENT="+monitor.EncodeChangeSet(changes))
	}
	return r.spawn(r.opts.Cmd, env)
}

func (r *RunLoop) runToCompletion(handle Supervisor) {
	if r.opts.Timeout > 0 {
		handle.SetTimeout(r.opts.Timeout, r.opts.Signal)
	}
	err := handle.Wait()
	r.reportExit(handle.ExitCode(), err, false)

	if r.opts.ClearEvents {
		r.monitor.Clear()
	}
}

// runWithRestart implements spec.md §4.5's restart alternation: poll
// tryWait and the monitor concurrently (here, alternated on one goroutine
// per spec.md §9's single-thread discipline). The exit always wins a tie
// against a same-tick event.
func (r *RunLoop) runWithRestart(handle Supervisor, changes []monitor.MonitorResult, stop <-chan struct{}) {
	if r.opts.Timeout > 0 {
		handle.SetTimeout(r.opts.Timeout, r.opts.Signal)
	}

	for {
		if done, err := handle.TryWait(); done {
			r.reportExit(handle.ExitCode(), err, false)
			return
		}

		select {
		case <-stop:
			handle.Kill(r.opts.Signal)
			return
		default:
		}

		events := r.monitor.Wait(r.opts.RestartPoll)
		if len(events) == 0 {
			continue
		}

		// Tie-break: if the child finished in the same tick, the exit wins.
		if done, err := handle.TryWait(); done {
			r.reportExit(handle.ExitCode(), err, false)
			return
		}

		r.publishPhase(PhaseKilling, events)
		r.logger.Info("runloop: restarting", nil)
		handle.Kill(r.opts.Signal)
		handle.Wait()
		r.publish(Event{EventType: EventTypeRun, Changes: events, Restarting: true, ExitCode: handle.ExitCode()})

		next, err := r.spawnChild(events)
		if err != nil {
			r.logger.Error("runloop: restart spawn failed", map[string]string{"error": err.Error()})
			return
		}
		handle = next
		changes = events
		r.publishPhase(PhaseExecuting, changes)
		if r.opts.Timeout > 0 {
			handle.SetTimeout(r.opts.Timeout, r.opts.Signal)
		}
	}
}

func (r *RunLoop) reportExit(code int, err error, restarting bool) {
	r.publish(Event{EventType: EventTypeRun, ExitCode: code, ExitErr: err, Restarting: restarting})
}

func (r *RunLoop) publishPhase(phase Phase, changes []monitor.MonitorResult) {
	r.publish(Event{EventType: EventTypePhase, Phase: phase, Changes: changes})
}

func (r *RunLoop) publish(e Event) {
	e.OccurredAt = time.Now().UTC()
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
