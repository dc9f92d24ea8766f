package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"watchloop/internal/colorline"
	"watchloop/internal/event"
	"watchloop/internal/metrics"
	"watchloop/internal/notify"
	"watchloop/internal/runloop"
)

// reportRuns subscribes to the RunLoop's event bus and renders the
// colorized exit-status line (spec.md §7), fans the same outcome out to
// the notifier (prefixed with the operator's --notify MSG text, if any),
// and keeps the metrics registry's run counters current. It runs until
// bus is closed.
func reportRuns(bus *event.Bus[runloop.Event], sink notify.Sink, colorMode colorline.Mode, notifyMsg, progName string, registry *metrics.Registry) {
	ch, _ := bus.Subscribe()
	colorEnabled := colorline.Enabled(colorMode, isTerminal(os.Stdout))

	for evt := range ch {
		switch evt.EventType {
		case runloop.EventTypePhase:
			if evt.Phase == runloop.PhaseExecuting {
				registry.IncRunStarted()
			}
		case runloop.EventTypeRun:
			if evt.Restarting {
				registry.IncRestart()
				registry.IncRunKilled()
				fmt.Println(colorline.RestartingLine(colorEnabled))
				continue
			}
			line := colorline.ExitLine(colorEnabled, evt.ExitCode)
			fmt.Println(line)
			if evt.ExitCode == 0 {
				registry.IncRunSucceeded()
			} else {
				registry.IncRunFailed()
			}
			if sink != nil {
				status := "exit status " + strconv.Itoa(evt.ExitCode)
				message := status
				if notifyMsg != "" {
					message = notifyMsg + " (" + status + ")"
				}
				_ = sink.Emit(context.Background(), notify.Event{
					OccurredAt: evt.OccurredAt,
					Message:    message,
				})
			}
		}
	}
}

// isTerminal is the narrowest possible TTY probe: a character device.
// internal/colorline never imports a terminal-detection library directly
// (it is handed a plain bool), matching spec.md §1's "colorized log
// formatting" out-of-scope boundary.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
