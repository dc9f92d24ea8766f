package monitor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"watchloop/internal/fsevents"
	"watchloop/internal/globfilter"
	"watchloop/internal/logging"
)

// Source is the subset of *fsevents.Source the monitor depends on. Tests
// substitute a fake implementation so they do not require a live kernel
// inotify instance.
type Source interface {
	Watch(dir string, mask fsevents.Mask) (int, error)
	Unwatch(wd int) error
	Poll(timeout time.Duration) ([]fsevents.RawEvent, error)
	Close() error
}

// Config constructs a RecursiveMonitor.
type Config struct {
	Roots          []string
	Filter         *globfilter.Filter
	Overrides      []OverrideFilter
	FollowSymlinks bool
	Mask           fsevents.Mask
	Logger         *logging.Logger
}

// RecursiveMonitor owns the live watch set for a group of roots.
type RecursiveMonitor struct {
	mu             sync.Mutex
	source         Source
	filter         *globfilter.Filter
	overrides      []OverrideFilter
	followSymlinks bool
	mask           fsevents.Mask
	logger         *logging.Logger

	roots     []string
	wdToPath  map[int]string
	pathToWd  map[string]int
}

// New builds a RecursiveMonitor and performs the initial recursive walk.
func New(source Source, cfg Config) (*RecursiveMonitor, error) {
	if source == nil {
		return nil, fmt.Errorf("monitor: source is required")
	}
	if len(cfg.Roots) == 0 {
		return nil, fmt.Errorf("monitor: at least one root is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(nil, logging.LevelInfo, nil)
	}

	m := &RecursiveMonitor{
		source:         source,
		filter:         cfg.Filter,
		overrides:      cfg.Overrides,
		followSymlinks: cfg.FollowSymlinks,
		mask:           cfg.Mask,
		logger:         logger,
		wdToPath:       make(map[int]string),
		pathToWd:       make(map[string]int),
	}

	for _, root := range cfg.Roots {
		anchor := root
		if !cfg.FollowSymlinks {
			if resolved, err := filepath.EvalSymlinks(root); err == nil {
				anchor = resolved
			}
		}
		anchor = filepath.Clean(anchor)
		m.roots = append(m.roots, anchor)

		if err := m.setupRoot(anchor); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *RecursiveMonitor) setupRoot(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Warn("monitor: walk error", map[string]string{"path": path, "error": err.Error()})
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if !m.shouldWatch(path) {
			if path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if err := m.registerWatch(path); err != nil {
			m.logger.Warn("monitor: watch registration failed", map[string]string{"path": path, "error": err.Error()})
			return filepath.SkipDir
		}
		return nil
	})
}

// shouldWatch is the predicate from spec.md §4.3: a directory passes iff
// no override filter applies (or the nearest-ancestor override accepts it)
// and the primary filter accepts it.
func (m *RecursiveMonitor) shouldWatch(path string) bool {
	if override := m.nearestOverride(path); override != nil {
		if !override.Match(path) {
			return false
		}
	}
	return m.filter == nil || m.filter.Match(path)
}

func (m *RecursiveMonitor) nearestOverride(path string) *globfilter.Filter {
	var best *OverrideFilter
	for i := range m.overrides {
		o := &m.overrides[i]
		if !strings.HasPrefix(path, o.Prefix) {
			continue
		}
		if best == nil || len(o.Prefix) > len(best.Prefix) {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	return best.Filter
}

func (m *RecursiveMonitor) registerWatch(path string) error {
	m.mu.Lock()
	if _, ok := m.pathToWd[path]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	wd, err := m.source.Watch(path, m.mask)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.wdToPath[wd] = path
	m.pathToWd[path] = wd
	m.mu.Unlock()
	return nil
}

func (m *RecursiveMonitor) unregisterWatch(path string) {
	m.mu.Lock()
	wd, ok := m.pathToWd[path]
	if ok {
		delete(m.pathToWd, path)
		delete(m.wdToPath, wd)
	}
	m.mu.Unlock()
	if ok {
		_ = m.source.Unwatch(wd)
	}
}

// registerRecursiveIterative walks start's subtree with an explicit work
// queue rather than recursive calls (spec.md §9 "Recursive re-entry"), so a
// pathological tree created in one burst cannot overflow the machine stack.
func (m *RecursiveMonitor) registerRecursiveIterative(start string) {
	stack := []string{start}
	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !m.shouldWatch(path) {
			continue
		}
		if err := m.registerWatch(path); err != nil {
			m.logger.Warn("monitor: watch registration failed", map[string]string{"path": path, "error": err.Error()})
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			m.logger.Warn("monitor: readdir failed", map[string]string{"path": path, "error": err.Error()})
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				stack = append(stack, filepath.Join(path, entry.Name()))
			}
		}
	}
}

// wait asks the source for events, classifies and filters them, and grows
// or shrinks the watch set as directories appear and disappear.
func (m *RecursiveMonitor) wait(timeout time.Duration) []MonitorResult {
	raw, err := m.source.Poll(timeout)
	if err != nil {
		m.logger.Warn("monitor: poll error", map[string]string{"error": err.Error()})
		return nil
	}
	return m.process(raw)
}

func (m *RecursiveMonitor) process(raw []fsevents.RawEvent) []MonitorResult {
	seen := make(map[MonitorResult]struct{}, len(raw))
	results := make([]MonitorResult, 0, len(raw))

	for _, evt := range raw {
		kind, ok := classify(evt.Mask)
		if !ok {
			continue
		}
		if !classMatchesMask(kind, m.mask) {
			continue
		}

		m.mu.Lock()
		dirPath, known := m.wdToPath[evt.Wd]
		m.mu.Unlock()
		if !known {
			continue
		}

		var path string
		switch {
		case kind == DeleteSelf || kind == MoveSelf:
			path = dirPath
		case evt.Name != "":
			path = filepath.Join(dirPath, evt.Name)
		default:
			path = dirPath
		}

		if !isUTF8(path) {
			m.logger.Info("monitor: dropping non-utf8 path", nil)
			continue
		}

		switch kind {
		case Create:
			if evt.IsDir {
				m.registerRecursiveIterative(path)
			}
		case DeleteSelf, MoveSelf:
			m.handleSelfEvent(kind, dirPath)
		}

		if !m.filter.Match(path) {
			continue
		}

		result := MonitorResult{Kind: kind, Path: path}
		if _, dup := seen[result]; dup {
			continue
		}
		seen[result] = struct{}{}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].Kind < results[j].Kind
	})
	return results
}

// handleSelfEvent implements spec.md §4.3 step 4: on MoveSelf of a watched
// directory that is still reachable at its old path under a root, keep its
// existing watch; otherwise (or on DeleteSelf) drop the watch. Inotify does not report a
// moved directory's new location, so "still a descendant of some root" is
// approximated by whether the old path still resolves to a directory —
// documented in DESIGN.md.
func (m *RecursiveMonitor) handleSelfEvent(kind EventKind, path string) {
	if kind == DeleteSelf {
		m.unregisterWatch(path)
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		m.unregisterWatch(path)
		return
	}
	if !m.isDescendantOfRoot(path) {
		m.unregisterWatch(path)
	}
}

func (m *RecursiveMonitor) isDescendantOfRoot(path string) bool {
	for _, root := range m.roots {
		if strings.HasPrefix(path, root) {
			return true
		}
	}
	return false
}

func isUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

// Wait blocks up to timeout and returns classified, filtered events.
func (m *RecursiveMonitor) Wait(timeout time.Duration) []MonitorResult {
	return m.wait(timeout)
}

// Collect behaves like Wait but applies timeout as an additional drain
// window after the first non-empty batch, to let late events (e.g. slow
// network filesystems) catch up.
func (m *RecursiveMonitor) Collect(timeout time.Duration) []MonitorResult {
	first := m.wait(timeout)
	if len(first) == 0 {
		return first
	}
	more := m.wait(timeout)
	if len(more) == 0 {
		return first
	}
	combined := append(first, more...)
	return dedupe(combined)
}

// Clear fully drains the source with a zero timeout, discarding events but
// still processing directory creation so the watch set keeps growing.
func (m *RecursiveMonitor) Clear() {
	for {
		raw, err := m.source.Poll(0)
		if err != nil || len(raw) == 0 {
			return
		}
		m.process(raw)
	}
}

// Close releases the underlying event source.
func (m *RecursiveMonitor) Close() error {
	return m.source.Close()
}

// WatchCount reports the number of directories currently watched.
func (m *RecursiveMonitor) WatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pathToWd)
}

func dedupe(results []MonitorResult) []MonitorResult {
	seen := make(map[MonitorResult]struct{}, len(results))
	out := make([]MonitorResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
