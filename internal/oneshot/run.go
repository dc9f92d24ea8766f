package oneshot

import (
	"os"
	"strconv"
	"time"

	"watchloop/internal/logging"
	"watchloop/internal/monitor"
	"watchloop/internal/process"
)

// RunResult reports what a one-shot invocation did.
type RunResult struct {
	Ran      bool
	ExitCode int
	Changes  []monitor.MonitorResult
}

// Options configures how the command is spawned for a one-shot run. Cmd is
// the canonical command persisted into the FileDb (spec.md §3); SpawnArgv
// is what actually gets exec'd and defaults to Cmd when unset — callers
// that route through a shell (spec.md §9) can keep the two distinct so the
// on-disk "cmd" array reflects what the operator typed, not the wrapper.
type Options struct {
	Cmd       []string
	SpawnArgv []string
	Env       []string
	Timeout   time.Duration
	KillSig   os.Signal
	EnvExport bool
}

// Run scans, and if anything changed, executes the command synchronously
// and advances the DB atomically only on a zero exit status (spec.md §4.6
// step 6 / §8 "Atomic DB advance").
func Run(d *Differ, opts Options, logger *logging.Logger) (RunResult, error) {
	diff, prior, err := d.Scan()
	if err != nil {
		return RunResult{}, err
	}
	if !diff.Changed {
		return RunResult{Ran: false}, nil
	}

	diff.NewDb.Cmd = opts.Cmd

	env := append([]string{}, opts.Env...)
	if opts.EnvExport {
		env = append(env, "WATCHEXEC_EVENT="+monitor.EncodeChangeSet(diff.Changes))
	}

	spawnArgv := opts.SpawnArgv
	if len(spawnArgv) == 0 {
		spawnArgv = opts.Cmd
	}
	handle, err := process.Spawn(spawnArgv, env)
	if err != nil {
		return RunResult{}, err
	}
	if opts.Timeout > 0 {
		sig := opts.KillSig
		if sig == nil {
			sig = process.DefaultKillSignal
		}
		handle.SetTimeout(opts.Timeout, sig)
	}
	handle.Wait()
	code := handle.ExitCode()

	if code == 0 {
		if err := WriteAtomic(d.DbPath, diff.NewDb); err != nil {
			if logger != nil {
				logger.Warn("oneshot: failed to advance db", map[string]string{"error": err.Error()})
			}
		}
	} else if logger != nil {
		logger.Info("oneshot: command failed, db not advanced", map[string]string{"exit_code": strconv.Itoa(code)})
	}

	_ = prior
	return RunResult{Ran: true, ExitCode: code, Changes: diff.Changes}, nil
}
