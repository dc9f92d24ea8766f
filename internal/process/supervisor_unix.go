//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// DefaultKillSignal is the signal ChildSupervisor sends when the operator
// has not configured one: forced termination.
var DefaultKillSignal os.Signal = syscall.SIGKILL

func setSandboxAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func processGroupID(pid int) int {
	return GroupID(pid)
}

func killProcessGroup(pgid int, sig os.Signal) error {
	if pgid <= 0 {
		return nil
	}
	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		sysSig = syscall.SIGKILL
	}
	err := syscall.Kill(-pgid, sysSig)
	if err != nil && (err == syscall.ESRCH) {
		return nil
	}
	return err
}
