//go:build !windows

package oneshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"watchloop/internal/globfilter"
)

func TestRunAdvancesDbOnSuccess(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, filepath.Join(root, "foo"), "abc", time.Unix(100, 0))
	dbPath := filepath.Join(root, "db.json")

	filter, _ := globfilter.New(nil, nil)
	d := &Differ{Roots: []string{root}, Filter: filter, DbPath: dbPath, WorkDir: root}

	result, err := Run(d, Options{Cmd: []string{"/bin/sh", "-c", "exit 0"}, Env: os.Environ()}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ran || result.ExitCode != 0 {
		t.Fatalf("expected a successful run, got %+v", result)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db to be written: %v", err)
	}
}

func TestRunDoesNotAdvanceDbOnFailure(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, filepath.Join(root, "foo"), "abc", time.Unix(100, 0))
	dbPath := filepath.Join(root, "db.json")

	// Seed a prior db so we can assert it is byte-identical afterward.
	seed := newFileDb()
	seed.Files["foo"] = Fingerprint{ModTimeUnix: 1, Size: 1}
	if err := WriteAtomic(dbPath, seed); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}

	filter, _ := globfilter.New(nil, nil)
	d := &Differ{Roots: []string{root}, Filter: filter, DbPath: dbPath, WorkDir: root}

	result, err := Run(d, Options{Cmd: []string{"/bin/sh", "-c", "exit 1"}, Env: os.Environ()}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode)
	}

	after, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("expected db file to be untouched after a failed run")
	}
}

func TestRunSkipsSpawnWhenUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, filepath.Join(root, "foo"), "abc", time.Unix(100, 0))
	dbPath := filepath.Join(root, "db.json")
	filter, _ := globfilter.New(nil, nil)
	d := &Differ{Roots: []string{root}, Filter: filter, DbPath: dbPath, WorkDir: root}

	first, err := Run(d, Options{Cmd: []string{"/bin/sh", "-c", "exit 0"}, Env: os.Environ()}, nil)
	if err != nil || !first.Ran {
		t.Fatalf("expected first run to execute: %+v %v", first, err)
	}

	second, err := Run(d, Options{Cmd: []string{"/bin/sh", "-c", "exit 99"}, Env: os.Environ()}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.Ran {
		t.Fatal("expected second run on an unchanged tree to skip spawning the command")
	}
}
