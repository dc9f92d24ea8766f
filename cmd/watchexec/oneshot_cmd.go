package main

import (
	"os"

	"watchloop/internal/config"
	"watchloop/internal/logging"
	"watchloop/internal/metrics"
	"watchloop/internal/oneshot"
)

// runOneShot replaces the live watcher with a single content-addressed
// scan against the persisted FileDb (spec.md §4.6). It returns the process
// exit code: 0 on success (including "nothing changed"), the child's exit
// code when the command ran and failed.
func runOneShot(rc config.RunnerConfig, logger *logging.Logger) int {
	workDir, err := os.Getwd()
	if err != nil {
		logger.Error("watchexec: cannot resolve working directory", map[string]string{"error": err.Error()})
		return 1
	}

	var patterns []string
	if !rc.NoVCSIgnore {
		patterns = gitignorePatterns(rc.Roots, logger)
	}
	filter, err := config.BuildFilter(rc, patterns)
	if err != nil {
		logger.Error("watchexec: bad filter configuration", map[string]string{"error": err.Error()})
		return 1
	}

	differ := &oneshot.Differ{
		Roots:          rc.Roots,
		Filter:         filter,
		FollowSymlinks: rc.FollowSymlinks,
		DbPath:         rc.OneShotDB,
		WorkDir:        workDir,
		Logger:         logger,
	}

	result, err := oneshot.Run(differ, oneshot.Options{
		Cmd:       rc.Command,
		SpawnArgv: wrapShell("", rc.Command),
		Timeout:   rc.Timeout,
		KillSig:   rc.Signal,
		EnvExport: rc.EnvExport,
	}, logger)
	if err != nil {
		logger.Error("watchexec: one-shot run failed", map[string]string{"error": err.Error()})
		return 1
	}
	if !result.Ran {
		logger.Info("watchexec: no changes detected", nil)
		return 0
	}

	metrics.Default.IncOneshotRun()
	if result.ExitCode != 0 {
		logger.Info("watchexec: command failed, database not advanced", nil)
	}
	return result.ExitCode
}
