package cli

import (
	"testing"
	"time"
)

func TestParseBasic(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "-d", "50ms", "-r", "--", "echo", "hi"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(opts.Watch) != 1 || opts.Watch[0] != "./src" {
		t.Fatalf("unexpected watch roots: %v", opts.Watch)
	}
	if opts.Debounce != 50*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", opts.Debounce)
	}
	if !opts.Restart {
		t.Fatalf("expected restart flag set")
	}
	if len(opts.Command) != 2 || opts.Command[0] != "echo" || opts.Command[1] != "hi" {
		t.Fatalf("unexpected command: %v", opts.Command)
	}
}

func TestParseExtSugar(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "--ext", "go", "--", "make"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(opts.Ext) != 1 || opts.Ext[0] != "go" {
		t.Fatalf("unexpected ext: %v", opts.Ext)
	}
}

func TestParseRequiresWatchRoot(t *testing.T) {
	_, err := Parse("test", []string{"--", "echo", "hi"})
	if err == nil {
		t.Fatalf("expected error for missing -w")
	}
}

func TestParseRequiresCommand(t *testing.T) {
	_, err := Parse("test", []string{"-w", "./src"})
	if err != ErrNoCommand {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

func TestParseWithoutDoubleDash(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "echo", "hi"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(opts.Command) != 2 {
		t.Fatalf("unexpected command: %v", opts.Command)
	}
}

func TestParseHelpSkipsRequiredFlags(t *testing.T) {
	opts, err := Parse("test", []string{"-h"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !opts.Help {
		t.Fatalf("expected help flag set")
	}
}

func TestParseVerboseShortFlag(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "-v", "debug", "--", "echo"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Verbose != "debug" {
		t.Fatalf("unexpected verbose level: %q", opts.Verbose)
	}
}

func TestParsePtyFlag(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "--pty", "--", "echo"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !opts.Pty {
		t.Fatalf("expected pty flag set")
	}
}

func TestUnsetDurationSentinel(t *testing.T) {
	opts, err := Parse("test", []string{"-w", "./src", "--", "echo"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Debounce != UnsetDuration {
		t.Fatalf("expected unset debounce sentinel, got %v", opts.Debounce)
	}
	if opts.Timeout != UnsetDuration {
		t.Fatalf("expected unset timeout sentinel, got %v", opts.Timeout)
	}
}
