// Package cli parses the command-runner's flag surface (spec.md §6) into a
// plain Options struct. It never touches any core package directly — the
// core is handed an already-validated, already-joined configuration.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// ErrNoCommand is returned when no command follows "--" on the argv.
var ErrNoCommand = errors.New("cli: no command given after --")

// stringSliceFlag implements flag.Value for a repeatable flag.
type stringSliceFlag struct {
	values *[]string
}

func (s *stringSliceFlag) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s.values = append(*s.values, value)
	return nil
}

// Options is the parsed, unvalidated flag surface. Durations default to a
// negative sentinel meaning "not given on the command line" so
// internal/config can tell a CLI override from a config-file default.
type Options struct {
	Watch            []string
	Ext              []string
	Include          []string
	Exclude          []string
	NoVCSIgnore      bool
	NoDefaultIgnore  bool
	NoFollowSymlink  bool
	ClearScreen      bool
	Debounce         time.Duration
	Timeout          time.Duration
	Restart          bool
	Signal           string
	Meta             bool
	Env              bool
	Notify           string
	Postpone         bool
	ClearEvents      bool
	OneShot          bool
	OneShotDB        string
	Verbose          string
	Color            string
	Shell            string
	ConfigPath       string
	MetricsAddr      string
	Pty              bool
	Help             bool
	Version          bool
	Command          []string
}

const (
	// UnsetDuration marks a duration flag the operator never passed, so
	// internal/config can fall through to a config file or the built-in
	// default instead of a hardcoded zero value.
	UnsetDuration time.Duration = -1
)

// Parse splits argv on the first bare "--" into flags and command, then
// parses the flag half. Everything after "--" is the command argv, joined
// verbatim — the core never parses shell syntax (spec.md §1).
func Parse(name string, argv []string) (*Options, error) {
	flagArgs, command := splitCommand(argv)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opts := &Options{Debounce: UnsetDuration, Timeout: UnsetDuration}

	fs.Var(&stringSliceFlag{&opts.Watch}, "w", "add a watch root (repeatable)")
	fs.Var(&stringSliceFlag{&opts.Watch}, "watch", "add a watch root (repeatable)")
	fs.Var(&stringSliceFlag{&opts.Ext}, "e", "sugar for --include \"*.EXT\" (repeatable)")
	fs.Var(&stringSliceFlag{&opts.Ext}, "ext", "sugar for --include \"*.EXT\" (repeatable)")
	fs.Var(&stringSliceFlag{&opts.Include}, "include", "glob to include (repeatable)")
	fs.Var(&stringSliceFlag{&opts.Exclude}, "exclude", "glob to exclude (repeatable)")

	fs.BoolVar(&opts.NoVCSIgnore, "no-vcs-ignore", false, "do not consume .gitignore")
	fs.BoolVar(&opts.NoDefaultIgnore, "no-default-ignore", false, "skip built-in ignore patterns")
	fs.BoolVar(&opts.NoFollowSymlink, "no-follow-symlink", false, "disable symlink traversal")

	fs.BoolVar(&opts.ClearScreen, "c", false, "emit \\033c before each run")
	fs.BoolVar(&opts.ClearScreen, "clear", false, "emit \\033c before each run")

	fs.DurationVar(&opts.Debounce, "d", UnsetDuration, "debounce window (default 200ms)")
	fs.DurationVar(&opts.Debounce, "debounce", UnsetDuration, "debounce window (default 200ms)")

	fs.DurationVar(&opts.Timeout, "t", UnsetDuration, "per-run wall-clock timeout (default 3600s)")
	fs.DurationVar(&opts.Timeout, "timeout", UnsetDuration, "per-run wall-clock timeout (default 3600s)")

	fs.BoolVar(&opts.Restart, "r", false, "kill and restart on event")
	fs.BoolVar(&opts.Restart, "restart", false, "kill and restart on event")

	fs.StringVar(&opts.Signal, "s", "", "signal to send (default: forced kill)")
	fs.StringVar(&opts.Signal, "signal", "", "signal to send (default: forced kill)")

	fs.BoolVar(&opts.Meta, "meta", false, "also observe metadata events")
	fs.BoolVar(&opts.Env, "env", false, "populate WATCHEXEC_EVENT")
	fs.StringVar(&opts.Notify, "notify", "", "invoke external notify-send with exit status")

	fs.BoolVar(&opts.Postpone, "p", false, "do not run at startup")
	fs.BoolVar(&opts.Postpone, "postpone", false, "do not run at startup")

	fs.BoolVar(&opts.ClearEvents, "clear-events", false, "drain late events after each run")

	fs.BoolVar(&opts.OneShot, "o", false, "one-shot mode")
	fs.BoolVar(&opts.OneShot, "oneshot", false, "one-shot mode")
	fs.StringVar(&opts.OneShotDB, "oneshot-db", "", "one-shot database path")

	fs.StringVar(&opts.Verbose, "v", "", "verbosity level")
	fs.StringVar(&opts.Verbose, "verbose", "", "verbosity level")

	fs.StringVar(&opts.Color, "color", "", "auto|always|never (added: colorized exit-status line)")
	fs.StringVar(&opts.Shell, "shell", "", "deprecated: the command always routes through $SHELL -c")
	fs.StringVar(&opts.ConfigPath, "config", "", "added: path to a .watchexec.yml config file")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "added: serve Prometheus metrics on this address")
	fs.BoolVar(&opts.Pty, "pty", false, "added: run the watched command attached to a pseudo-terminal")

	fs.BoolVar(&opts.Help, "h", false, "show help")
	fs.BoolVar(&opts.Help, "help", false, "show help")
	fs.BoolVar(&opts.Version, "version", false, "print version and exit")

	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	if extra := fs.Args(); len(extra) > 0 && len(command) == 0 {
		// Tolerate "prog [opts] cmd..." without an explicit "--" the way the
		// teacher's flag.FlagSet naturally stops parsing at the first
		// non-flag token.
		command = extra
	}
	opts.Command = command

	if !opts.Help && !opts.Version && len(opts.Watch) == 0 {
		return opts, fmt.Errorf("cli: at least one -w/--watch root is required")
	}
	if !opts.Help && !opts.Version && len(opts.Command) == 0 {
		return opts, ErrNoCommand
	}
	return opts, nil
}

// splitCommand finds the first bare "--" and returns (flags, command).
func splitCommand(argv []string) (flags, command []string) {
	for i, a := range argv {
		if a == "--" {
			return argv[:i], argv[i+1:]
		}
	}
	return argv, nil
}
