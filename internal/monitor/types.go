// Package monitor builds and maintains a recursive directory watch set atop
// internal/fsevents, classifies raw kernel events into a typed EventKind,
// and projects them through internal/globfilter.
package monitor

import (
	"strings"

	"watchloop/internal/globfilter"
)

// EventKind is a closed, string-backed tagged variant. Every consumer that
// switches on it should end with a panic default so a forgotten case is
// caught immediately rather than silently falling through.
type EventKind string

const (
	Access       EventKind = "access"
	Attribute    EventKind = "attribute"
	CloseWrite   EventKind = "close_write"
	CloseNoWrite EventKind = "close_no_write"
	Create       EventKind = "create"
	Delete       EventKind = "delete"
	DeleteSelf   EventKind = "delete_self"
	Modify       EventKind = "modify"
	MoveSelf     EventKind = "move_self"
	Rename       EventKind = "rename"
	Open         EventKind = "open"
)

// IsContent reports whether kind belongs to the "content" subclass:
// CloseWrite, Create, Modify, Delete, DeleteSelf, MoveSelf, Rename.
func (k EventKind) IsContent() bool {
	switch k {
	case CloseWrite, Create, Modify, Delete, DeleteSelf, MoveSelf, Rename:
		return true
	case Access, Attribute, CloseNoWrite, Open:
		return false
	default:
		panic("monitor: unhandled EventKind in IsContent: " + string(k))
	}
}

// MonitorResult pairs a classified event with the path it applies to. For
// Rename the path is the destination; MoveSelf and DeleteSelf refer to the
// watched directory itself.
type MonitorResult struct {
	Kind EventKind
	Path string
}

// OverrideFilter layers a per-directory ignore file's compiled filter,
// resolved by nearest-ancestor-prefix match. Modeled as a flat ordered
// list, not inheritance (see DESIGN.md).
type OverrideFilter struct {
	Prefix string
	Filter *globfilter.Filter
}

// EncodeChangeSet renders a change-set as WATCHEXEC_EVENT's wire format:
// "kind:path" pairs joined by ";".
func EncodeChangeSet(results []MonitorResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, string(r.Kind)+":"+r.Path)
	}
	return strings.Join(parts, ";")
}
