//go:build !windows

package process

import (
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// SpawnPty starts argv[0] with argv[1:] and env attached to a freshly
// allocated pseudo-terminal instead of watchexec's own stdio, the way
// gestalt/internal/terminal/pty_unix.go allocates one for its embedded
// shell sessions. Used when the operator passes --pty (spec.md §6 ADDED):
// some watched commands (progress bars, colorized test runners) behave
// differently once they see a controlling tty.
func SpawnPty(argv []string, env []string) (*Handle, error) {
	if len(argv) == 0 {
		return nil, errors.New("process: empty argv")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	setSandboxAttrs(cmd)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, errors.Join(ErrSpawnFailed, err)
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	go func() { _, _ = io.Copy(os.Stdout, ptmx) }()

	h := &Handle{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		pgid:   processGroupID(cmd.Process.Pid),
		doneCh: make(chan struct{}),
		closer: ptmx,
	}
	go h.reap()
	return h, nil
}
