//go:build !windows

package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

func GroupID(pid int) int {
	if pid <= 0 {
		return 0
	}
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return 0
	}
	return pgid
}

// stopProcess asks the group to exit with sig (the operator's configured
// --signal, or SIGTERM if unset) and escalates to DefaultKillSignal if it
// hasn't exited once wait returns. Both signals go through killProcessGroup,
// the same cross-platform group-signaling primitive Handle.Kill uses, so
// there is exactly one place in this package that calls into the kernel to
// deliver a signal to a process group.
func stopProcess(ctx context.Context, pid, pgid int, sig os.Signal, wait func(context.Context) error) error {
	if pid <= 0 {
		return nil
	}
	if !isProcessAlive(pid) {
		return ErrProcessNotFound
	}
	if sig == nil {
		sig = syscall.SIGTERM
	}
	termErr := killProcessGroup(pgid, sig)
	waitErr := waitForExit(ctx, pid, wait)
	if isExpectedExit(waitErr) {
		waitErr = nil
	}
	if waitErr == nil {
		return termErr
	}
	killErr := killProcessGroup(pgid, DefaultKillSignal)
	_ = waitForExit(ctx, pid, wait)
	return errors.Join(termErr, waitErr, killErr)
}

func waitForExit(ctx context.Context, pid int, wait func(context.Context) error) error {
	if wait != nil {
		return wait(ctx)
	}
	timeout := defaultStopTimeout
	if ctx != nil {
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ctx.Err()
			}
			if remaining < timeout {
				timeout = remaining
			}
		}
	}
	deadline := time.Now().Add(timeout)
	for {
		if !isProcessAlive(pid) {
			return nil
		}
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func isExpectedExit(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return status.Signaled()
}
