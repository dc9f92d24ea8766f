// Command watchexec is the CLI entrypoint for the filesystem-change-driven
// command runner: it parses flags, merges an optional config file, builds
// the FsEventSource -> RecursiveMonitor -> RunLoop -> ChildSupervisor
// pipeline (or the OneShotDiffer alternative), and drives it to exit.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"watchloop/internal/cli"
	"watchloop/internal/config"
	"watchloop/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, err := cli.Parse("watchexec", argv)
	if opts != nil && opts.Help {
		printUsage()
		return 0
	}
	if opts != nil && opts.Version {
		printVersion()
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "watchexec:", err)
		printUsage()
		return 1
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}
	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "watchexec:", err)
		return 1
	}

	rc, err := config.Merge(opts, fileCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "watchexec:", err)
		return 1
	}
	rc.Roots = absRoots(rc.Roots)

	logger := newLogger(rc.VerboseLevel)

	if rc.OneShot {
		return runOneShot(rc, logger)
	}
	return runLive(rc, logger)
}

func newLogger(verbose string) *logging.Logger {
	level := logging.LevelInfo
	if parsed, ok := logging.ParseLevel(verbose); ok {
		level = parsed
	}
	return logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), level, os.Stderr)
}

func absRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			out = append(out, r)
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}
