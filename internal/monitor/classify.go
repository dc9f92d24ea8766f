package monitor

import "watchloop/internal/fsevents"

// classify maps a single raw inotify mask to an EventKind. Kernel events
// carry at most one of these bits (aside from the IN_ISDIR companion bit,
// which fsevents leaves in the mask and also copies into RawEvent.IsDir;
// no case here tests it), so priority order only
// matters for defensive robustness against a kernel that combines flags.
func classify(mask uint32) (EventKind, bool) {
	switch {
	case mask&flagCreate != 0:
		return Create, true
	case mask&flagMovedTo != 0:
		return Rename, true
	case mask&flagMovedFrom != 0:
		return Delete, true
	case mask&flagDeleteSelf != 0:
		return DeleteSelf, true
	case mask&flagDelete != 0:
		return Delete, true
	case mask&flagMoveSelf != 0:
		return MoveSelf, true
	case mask&flagCloseWrite != 0:
		return CloseWrite, true
	case mask&flagCloseNoWrite != 0:
		return CloseNoWrite, true
	case mask&flagModify != 0:
		return Modify, true
	case mask&flagAttrib != 0:
		return Attribute, true
	case mask&flagOpen != 0:
		return Open, true
	case mask&flagAccess != 0:
		return Access, true
	default:
		return "", false
	}
}

// classMatchesMask reports whether kind's subclass is selected by mask.
func classMatchesMask(kind EventKind, mask fsevents.Mask) bool {
	if kind.IsContent() {
		return mask&fsevents.MaskContent != 0
	}
	return mask&fsevents.MaskMetadata != 0
}

// Mirrors the kernel ABI constants in internal/fsevents (kept private
// there); duplicated here narrowly so this package classifies without
// depending on fsevents' Linux-only build tag for the constant values
// themselves — RawEvent.Mask is a plain uint32 available on every platform.
const (
	flagAccess       uint32 = 0x00000001
	flagModify       uint32 = 0x00000002
	flagAttrib       uint32 = 0x00000004
	flagCloseWrite   uint32 = 0x00000008
	flagCloseNoWrite uint32 = 0x00000010
	flagOpen         uint32 = 0x00000020
	flagMovedFrom    uint32 = 0x00000040
	flagMovedTo      uint32 = 0x00000080
	flagCreate       uint32 = 0x00000100
	flagDelete       uint32 = 0x00000200
	flagDeleteSelf   uint32 = 0x00000400
	flagMoveSelf     uint32 = 0x00000800
)
