package runloop

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"watchloop/internal/monitor"
)

// fakeMonitor is a Monitor backed by a queue of pre-scripted change-sets.
// Wait pops the next queued change-set if one is ready, otherwise blocks
// until timeout elapses and returns nil, mirroring *monitor.RecursiveMonitor's
// real polling contract closely enough to drive the state machine under test.
type fakeMonitor struct {
	mu     sync.Mutex
	queue  [][]monitor.MonitorResult
	popped int
	onPop  func(idx int)
	clears int
}

func (m *fakeMonitor) push(results []monitor.MonitorResult) {
	m.mu.Lock()
	m.queue = append(m.queue, results)
	m.mu.Unlock()
}

func (m *fakeMonitor) Wait(timeout time.Duration) []monitor.MonitorResult {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			next := m.queue[0]
			m.queue = m.queue[1:]
			idx := m.popped
			m.popped++
			hook := m.onPop
			m.mu.Unlock()
			if hook != nil {
				hook(idx)
			}
			return next
		}
		m.mu.Unlock()
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *fakeMonitor) Clear() {
	m.mu.Lock()
	m.clears++
	m.mu.Unlock()
}

// fakeHandle is a Supervisor a test controls directly: finish marks it
// exited with a given code, as if the real child process had just reaped.
type fakeHandle struct {
	mu       sync.Mutex
	exited   bool
	killed   bool
	exitCode int
	doneCh   chan struct{}
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{doneCh: make(chan struct{})}
}

func (h *fakeHandle) finish(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	h.exited = true
	h.exitCode = code
	close(h.doneCh)
}

func (h *fakeHandle) TryWait() (bool, error) {
	select {
	case <-h.doneCh:
		return true, nil
	default:
		return false, nil
	}
}

func (h *fakeHandle) Wait() error {
	<-h.doneCh
	return nil
}

func (h *fakeHandle) Kill(sig os.Signal) error {
	h.mu.Lock()
	h.killed = true
	h.mu.Unlock()
	h.finish(-1)
	return nil
}

func (h *fakeHandle) SetTimeout(d time.Duration, sig os.Signal) {}

func (h *fakeHandle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *fakeHandle) wasKilled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killed
}

// fakeSpawner hands out fakeHandles in spawn order and records the env
// each spawn carried, so a test can inspect the WATCHEXEC_EVENT a change-set
// produced without needing a real child process.
type fakeSpawner struct {
	mu      sync.Mutex
	handles []*fakeHandle
	envs    [][]string
}

func (s *fakeSpawner) spawn(argv, env []string) (Supervisor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := newFakeHandle()
	s.handles = append(s.handles, h)
	s.envs = append(s.envs, append([]string{}, env...))
	return h, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *fakeSpawner) handleAt(i int) *fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[i]
}

func (s *fakeSpawner) envAt(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envs[i]
}

func waitUntil(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func changeSet(path string) []monitor.MonitorResult {
	return []monitor.MonitorResult{{Kind: monitor.Modify, Path: path}}
}

// TestRunLoopDebounceCoalescesBurstIntoOneRun covers spec.md S1: a burst of
// events within the debounce window runs the command exactly once, with
// every touched path folded into the WATCHEXEC_EVENT change-set.
func TestRunLoopDebounceCoalescesBurstIntoOneRun(t *testing.T) {
	mon := &fakeMonitor{}
	mon.push(changeSet("a.txt"))
	mon.push(changeSet("b.txt"))
	mon.push(changeSet("c.txt"))

	spawner := &fakeSpawner{}
	rl := New(mon, spawner.spawn, Options{
		Cmd:            []string{"echo", "hi"},
		EnvExport:      true,
		Debounce:       40 * time.Millisecond,
		Postpone:       true,
		IdlePollPeriod: 2 * time.Millisecond,
	}, nil, nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		rl.Run(stop)
		close(done)
	}()

	waitUntil(t, func() bool { return spawner.count() == 1 }, time.Second, "expected exactly one spawn for the debounced burst")

	// Let the run complete so Run() can return once stop is closed.
	spawner.handleAt(0).finish(0)
	close(stop)
	<-done

	if spawner.count() != 1 {
		t.Fatalf("expected 1 spawn, got %d", spawner.count())
	}
	env := spawner.envAt(0)
	var watchexecEvent string
	for _, kv := range env {
		if strings.HasPrefix(kv, "WATCHEXEC_EVENT=") {
			watchexecEvent = strings.TrimPrefix(kv, "WATCHEXEC_EVENT=")
		}
	}
	parts := strings.Split(watchexecEvent, ";")
	if len(parts) != 3 {
		t.Fatalf("expected all 3 burst events folded into one change-set, got %q", watchexecEvent)
	}
}

// TestRunLoopRestartKillsAndRespawnsOnNewEvent covers spec.md S2: in
// restart mode, a new event while the command is still running kills it and
// starts a fresh run from the new change-set.
func TestRunLoopRestartKillsAndRespawnsOnNewEvent(t *testing.T) {
	mon := &fakeMonitor{}
	mon.push(changeSet("x"))

	spawner := &fakeSpawner{}
	rl := New(mon, spawner.spawn, Options{
		Cmd:            []string{"sleep", "60"},
		Restart:        true,
		Postpone:       true,
		IdlePollPeriod: 2 * time.Millisecond,
		RestartPoll:    2 * time.Millisecond,
	}, nil, nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		rl.Run(stop)
		close(done)
	}()

	waitUntil(t, func() bool { return spawner.count() == 1 }, time.Second, "expected first spawn")
	first := spawner.handleAt(0)

	mon.push(changeSet("y"))
	waitUntil(t, func() bool { return spawner.count() == 2 }, time.Second, "expected restart to spawn a second handle")

	if !first.wasKilled() {
		t.Fatal("expected the first handle to be killed on restart")
	}

	second := spawner.handleAt(1)
	second.finish(0)
	close(stop)
	<-done

	if spawner.count() != 2 {
		t.Fatalf("expected exactly 2 spawns, got %d", spawner.count())
	}
}

// TestRunLoopExitWinsSameTickTie covers the documented tie-break: if the
// child exits in the same tick a new event arrives, the exit is reported
// and no restart happens.
func TestRunLoopExitWinsSameTickTie(t *testing.T) {
	mon := &fakeMonitor{}
	mon.push(changeSet("x"))
	mon.push(changeSet("y"))

	spawner := &fakeSpawner{}
	rl := New(mon, spawner.spawn, Options{
		Cmd:            []string{"sleep", "60"},
		Restart:        true,
		Postpone:       true,
		IdlePollPeriod: 2 * time.Millisecond,
		RestartPoll:    2 * time.Millisecond,
	}, nil, nil)

	mon.onPop = func(idx int) {
		// idx 0 is the initial trigger event; idx 1 is the restart-poll
		// pop that delivers "y" — finish the running child exactly as
		// that event becomes visible, so the tie-break's re-check of
		// TryWait sees it already done.
		if idx == 1 {
			spawner.handleAt(0).finish(3)
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		rl.Run(stop)
		close(done)
	}()

	waitUntil(t, func() bool { return spawner.count() == 1 }, time.Second, "expected first spawn")
	waitUntil(t, func() bool {
		isDone, _ := spawner.handleAt(0).TryWait()
		return isDone
	}, time.Second, "expected handle to report done")

	// Give runWithRestart a moment to observe the tie and return, without
	// spawning a second handle.
	time.Sleep(20 * time.Millisecond)
	close(stop)
	<-done

	if spawner.count() != 1 {
		t.Fatalf("expected exit to win the tie and skip a restart spawn, got %d spawns", spawner.count())
	}
	if spawner.handleAt(0).wasKilled() {
		t.Fatal("expected the handle to exit on its own, not be killed")
	}
	if spawner.handleAt(0).ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", spawner.handleAt(0).ExitCode())
	}
}
