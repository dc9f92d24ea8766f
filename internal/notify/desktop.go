package notify

import (
	"context"

	"watchloop/internal/process"
)

// DesktopSink shells out to notify-send, mirroring exactly how
// internal/process spawns the watched command — spec.md §6: "spawn
// notify-send -u normal -t 3000 -a <progname> <msg>; non-zero status is
// ignored."
type DesktopSink struct {
	ProgName string
}

func NewDesktopSink(progName string) *DesktopSink {
	return &DesktopSink{ProgName: progName}
}

func (d *DesktopSink) Emit(_ context.Context, event Event) error {
	if d == nil {
		return nil
	}
	name := d.ProgName
	if name == "" {
		name = "watchexec"
	}
	argv := []string{"notify-send", "-u", "normal", "-t", "3000", "-a", name, event.Message}
	handle, err := process.Spawn(argv, nil)
	if err != nil {
		// notify-send missing or unspawnable is not fatal (spec.md §7).
		return nil
	}
	handle.Wait()
	return nil
}
