//go:build windows

package process

import (
	"os"
	"os/exec"
)

// DefaultKillSignal is a stand-in on windows, which has no real process
// groups or signal delivery. Non-goal: cross-platform parity beyond Linux
// inotify semantics also implies no full sandbox-kill parity here.
var DefaultKillSignal os.Signal = os.Kill

func setSandboxAttrs(cmd *exec.Cmd) {}

func processGroupID(pid int) int {
	return GroupID(pid)
}

func killProcessGroup(pgid int, sig os.Signal) error {
	process, err := os.FindProcess(pgid)
	if err != nil {
		return nil
	}
	return process.Kill()
}
