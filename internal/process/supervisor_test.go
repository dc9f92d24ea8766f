//go:build !windows

package process

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSpawnAndTryWait(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "exit 0"}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if h.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", h.ExitCode())
	}
	done, _ := h.TryWait()
	if !done {
		t.Fatal("expected TryWait to report done after Wait")
	}
}

func TestKillTerminatesLongRunningChild(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "sleep 60"}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	start := time.Now()
	if err := h.Kill(syscall.SIGKILL); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Kill took too long to reap")
	}
	if h.State() != Exited {
		t.Fatalf("expected Exited state, got %v", h.State())
	}
}

func TestKillReachesGrandchildIgnoringSigterm(t *testing.T) {
	script := `trap '' TERM; sleep 60 & wait`
	h, err := Spawn([]string{"/bin/sh", "-c", script}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := h.Kill(syscall.SIGKILL); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	pgid := h.pgid
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(-pgid, 0); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected grandchild process group to be gone after Kill")
}

func TestSetTimeoutKillsExpiredChild(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "sleep 60"}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	h.SetTimeout(100*time.Millisecond, syscall.SIGKILL)
	if err := h.Wait(); err == nil {
		t.Log("child exited without error status, which is fine for a killed process on some platforms")
	}
	if h.State() != Exited {
		t.Fatalf("expected Exited after timeout, got %v", h.State())
	}
}

func TestSpawnMergesEnv(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "test \"$WATCHEXEC_EVENT\" = \"create:/tmp/a\""}, append(os.Environ(), "WATCHEXEC_EVENT=create:/tmp/a"))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("expected env var to be visible to child: %v", err)
	}
}

func TestExitCodeNonZero(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "exit 7"}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	h.Wait()
	if h.ExitCode() != 7 {
		t.Fatalf("expected exit code 7, got %d", h.ExitCode())
	}
}

func TestSpawnEmptyArgvFails(t *testing.T) {
	if _, err := Spawn(nil, nil); err == nil {
		t.Fatal("expected error for empty argv")
	} else if !strings.Contains(err.Error(), "empty argv") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleTrackRegistersAndUnregistersOnExit(t *testing.T) {
	h, err := Spawn([]string{"/bin/sh", "-c", "exit 0"}, os.Environ())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	registry := NewRegistry()
	h.Track(registry, "test-child")

	registry.mu.Lock()
	_, tracked := registry.entries[h.pid]
	registry.mu.Unlock()
	if !tracked {
		t.Fatal("expected Track to register the handle immediately")
	}

	if err := h.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		registry.mu.Lock()
		_, stillTracked := registry.entries[h.pid]
		registry.mu.Unlock()
		if !stillTracked {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected Track to unregister the handle after it exited")
}
