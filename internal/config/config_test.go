package config

import (
	"testing"
	"time"

	"watchloop/internal/cli"
)

func baseOpts() *cli.Options {
	return &cli.Options{
		Watch:    []string{"./src"},
		Command:  []string{"echo", "hi"},
		Debounce: cli.UnsetDuration,
		Timeout:  cli.UnsetDuration,
	}
}

func TestMergeDefaults(t *testing.T) {
	rc, err := Merge(baseOpts(), &FileConfig{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if rc.Debounce != defaultDebounce {
		t.Fatalf("unexpected debounce default: %v", rc.Debounce)
	}
	if rc.Timeout != defaultTimeout {
		t.Fatalf("unexpected timeout default: %v", rc.Timeout)
	}
	if !rc.FollowSymlinks {
		t.Fatalf("expected symlinks followed by default")
	}
}

func TestMergeCliOverridesFile(t *testing.T) {
	opts := baseOpts()
	opts.Debounce = 10 * time.Millisecond

	fileDebounce := "5s"
	rc, err := Merge(opts, &FileConfig{Debounce: &fileDebounce})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if rc.Debounce != 10*time.Millisecond {
		t.Fatalf("CLI debounce should win, got %v", rc.Debounce)
	}
}

func TestMergeFileFillsUnsetCli(t *testing.T) {
	fileDebounce := "5s"
	rc, err := Merge(baseOpts(), &FileConfig{Debounce: &fileDebounce})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if rc.Debounce != 5*time.Second {
		t.Fatalf("file debounce should fill unset CLI flag, got %v", rc.Debounce)
	}
}

func TestMergeRequiresRoot(t *testing.T) {
	opts := baseOpts()
	opts.Watch = nil
	if _, err := Merge(opts, &FileConfig{}); err == nil {
		t.Fatalf("expected error for missing watch root")
	}
}

func TestMergeOneShotRequiresDB(t *testing.T) {
	opts := baseOpts()
	opts.OneShot = true
	if _, err := Merge(opts, &FileConfig{}); err == nil {
		t.Fatalf("expected error for --oneshot without --oneshot-db")
	}
}

func TestMergeExtSugar(t *testing.T) {
	opts := baseOpts()
	opts.Ext = []string{"go"}
	rc, err := Merge(opts, &FileConfig{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	found := false
	for _, p := range rc.Include {
		if p == "*.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected *.go include pattern from --ext, got %v", rc.Include)
	}
}
