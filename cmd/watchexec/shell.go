package main

import (
	"os"
	"strings"
)

// wrapShell joins argv with spaces and routes it through the operator's
// shell, per spec.md §9: "--shell flag is deprecated; retain acceptance
// for backward compatibility but route through the user's shell via
// SHELL -c <joined> regardless." Argument joining itself is explicitly
// the shell's job, not the core's (spec.md §1).
func wrapShell(shellOverride string, argv []string) []string {
	shell := shellOverride
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell, "-c", strings.Join(argv, " ")}
}
