// Package shutdown coordinates graceful termination: a signal watcher that
// cancels a context on the first SIGINT/SIGTERM and ignores repeats, plus
// an ordered phase list run once. Adapted from
// gestalt/cmd/gestalt/shutdown_coordinator.go and shutdown_signals.go into
// a reusable package so cmd/watchexec is not the only caller.
package shutdown

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"watchloop/internal/logging"
)

type phase struct {
	name string
	stop func(context.Context) error
}

// Coordinator runs a list of named stop phases exactly once, in order,
// joining every phase's error rather than stopping at the first failure.
type Coordinator struct {
	logger *logging.Logger
	once   sync.Once
	phases []phase
}

func NewCoordinator(logger *logging.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Add registers a stop phase. Phases run in registration order.
func (c *Coordinator) Add(name string, stop func(context.Context) error) {
	if c == nil || stop == nil {
		return
	}
	c.phases = append(c.phases, phase{name: name, stop: stop})
}

func (c *Coordinator) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var runErr error
	c.once.Do(func() {
		for _, p := range c.phases {
			if c.logger != nil {
				c.logger.Info("shutdown phase starting", map[string]string{"phase": p.name})
			}
			if err := p.stop(ctx); err != nil {
				runErr = errors.Join(runErr, err)
				if c.logger != nil {
					c.logger.Warn("shutdown phase failed", map[string]string{"phase": p.name, "error": err.Error()})
				}
			}
		}
	})
	return runErr
}

// WatchSignals cancels cancelFn on the first received signal and logs but
// ignores any further signal delivered while shutdown is already in
// progress (spec.md §5: "no in-core signal handling of SIGINT; termination
// of the core propagates to children via process-group ownership" — this
// lives in cmd/watchexec, one layer above the core, exactly as named).
// The returned func stops the watcher goroutine.
func WatchSignals(logger *logging.Logger, cancelFn context.CancelFunc, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	done := make(chan struct{})
	var started atomic.Bool
	var loggedRepeat atomic.Bool

	go func() {
		for {
			select {
			case <-done:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				fields := map[string]string{}
				if sig != nil {
					fields["signal"] = sig.String()
				}
				if started.CompareAndSwap(false, true) {
					if logger != nil {
						logger.Info("shutdown signal received", fields)
					}
					if cancelFn != nil {
						cancelFn()
					}
					continue
				}
				if loggedRepeat.CompareAndSwap(false, true) && logger != nil {
					logger.Info("shutdown already in progress; ignoring signal", fields)
				}
			}
		}
	}()

	return func() {
		close(done)
	}
}
