// Package runloop implements the debounce + coalesce + restart-decision
// state machine that sits between internal/monitor and internal/process:
// Idle -> Debouncing -> Executing, with a Killing sub-state when restart
// mode preempts a live child.
package runloop

import (
	"os"
	"time"

	"watchloop/internal/monitor"
)

// Phase names the RunLoop's current state, published on the event bus so a
// status line or notifier can subscribe without the core importing either.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseExecuting  Phase = "executing"
	PhaseKilling    Phase = "killing"
)

// Event is one phase transition or run outcome, published on the bus.
type Event struct {
	EventType  string
	Phase      Phase
	Changes    []monitor.MonitorResult
	ExitCode   int
	ExitErr    error
	Restarting bool
	OccurredAt time.Time
}

func (e Event) Type() string      { return e.EventType }
func (e Event) Timestamp() time.Time { return e.OccurredAt }

// Monitor is the subset of *monitor.RecursiveMonitor the RunLoop depends
// on. Tests substitute a fake implementation.
type Monitor interface {
	Wait(timeout time.Duration) []monitor.MonitorResult
	Clear()
}

// Supervisor is the subset of internal/process the RunLoop depends on.
type Supervisor interface {
	TryWait() (bool, error)
	Wait() error
	Kill(sig os.Signal) error
	SetTimeout(d time.Duration, sig os.Signal)
	ExitCode() int
}

// Spawner starts a new supervised child.
type Spawner func(argv, env []string) (Supervisor, error)

// Options configures one RunLoop instance. It is the Go realization of the
// operator-facing flags in spec.md §6 that shape the state machine itself.
type Options struct {
	Cmd            []string
	BaseEnv        []string
	EnvExport      bool
	Debounce       time.Duration
	Timeout        time.Duration
	Signal         os.Signal
	Restart        bool
	Postpone       bool
	ClearScreen    bool
	ClearEvents    bool
	IdlePollPeriod time.Duration
	RestartPoll    time.Duration
}
