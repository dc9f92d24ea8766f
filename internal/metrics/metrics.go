package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry accumulates counters for a single watchexec process: run
// lifecycle, watch-set size, and the generic event bus traffic that
// internal/event.Bus reports through.
type Registry struct {
	runsStarted   atomic.Int64
	runsSucceeded atomic.Int64
	runsFailed    atomic.Int64
	runsKilled    atomic.Int64
	restarts      atomic.Int64
	activeWatches atomic.Int64
	oneshotRuns   atomic.Int64

	eventBuses sync.Map // bus name -> *busStats
}

type busStats struct {
	published sync.Map // event type -> *atomic.Int64
	dropped   sync.Map // event type -> *atomic.Int64
	filtered  atomic.Int64
	unfiltered atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncRunStarted() {
	if r == nil {
		return
	}
	r.runsStarted.Add(1)
}

func (r *Registry) IncRunSucceeded() {
	if r == nil {
		return
	}
	r.runsSucceeded.Add(1)
}

func (r *Registry) IncRunFailed() {
	if r == nil {
		return
	}
	r.runsFailed.Add(1)
}

func (r *Registry) IncRunKilled() {
	if r == nil {
		return
	}
	r.runsKilled.Add(1)
}

func (r *Registry) IncRestart() {
	if r == nil {
		return
	}
	r.restarts.Add(1)
}

func (r *Registry) SetActiveWatches(count int) {
	if r == nil {
		return
	}
	r.activeWatches.Store(int64(count))
}

func (r *Registry) IncOneshotRun() {
	if r == nil {
		return
	}
	r.oneshotRuns.Add(1)
}

// IncEventPublished and IncEventDropped are called by internal/event.Bus on
// every publish/drop so the process exposes bus health without the bus
// package needing to know about Prometheus formatting.
func (r *Registry) IncEventPublished(bus, eventType string) {
	if r == nil {
		return
	}
	r.busStats(bus).counter(&r.busStats(bus).published, eventType).Add(1)
}

func (r *Registry) IncEventDropped(bus, eventType string) {
	if r == nil {
		return
	}
	r.busStats(bus).counter(&r.busStats(bus).dropped, eventType).Add(1)
}

func (r *Registry) SetEventSubscriberCounts(bus string, filtered, unfiltered int) {
	if r == nil {
		return
	}
	stats := r.busStats(bus)
	stats.filtered.Store(int64(filtered))
	stats.unfiltered.Store(int64(unfiltered))
}

func (r *Registry) busStats(name string) *busStats {
	if strings.TrimSpace(name) == "" {
		name = "default"
	}
	value, _ := r.eventBuses.LoadOrStore(name, &busStats{})
	return value.(*busStats)
}

func (s *busStats) counter(m *sync.Map, eventType string) *atomic.Int64 {
	if strings.TrimSpace(eventType) == "" {
		eventType = "unknown"
	}
	value, _ := m.LoadOrStore(eventType, &atomic.Int64{})
	return value.(*atomic.Int64)
}

// WritePrometheus renders the registry in Prometheus text exposition format.
func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "watchexec_runs_started_total", "Total command executions started", r.runsStarted.Load())
	writeCounter(writer, "watchexec_runs_succeeded_total", "Total command executions that exited zero", r.runsSucceeded.Load())
	writeCounter(writer, "watchexec_runs_failed_total", "Total command executions that exited non-zero", r.runsFailed.Load())
	writeCounter(writer, "watchexec_runs_killed_total", "Total command executions killed for a restart", r.runsKilled.Load())
	writeCounter(writer, "watchexec_restarts_total", "Total restart-on-event evictions", r.restarts.Load())
	writeCounter(writer, "watchexec_oneshot_runs_total", "Total one-shot invocations that detected a change", r.oneshotRuns.Load())

	writeHelp(writer, "watchexec_active_watches", "Directories currently registered with the kernel watcher")
	fmt.Fprintln(writer, "# TYPE watchexec_active_watches gauge")
	fmt.Fprintf(writer, "watchexec_active_watches %d\n", r.activeWatches.Load())

	busNames := r.busNames()
	sort.Strings(busNames)

	writeHelp(writer, "watchexec_events_published_total", "Events published per bus and type")
	fmt.Fprintln(writer, "# TYPE watchexec_events_published_total counter")
	writeHelp(writer, "watchexec_events_dropped_total", "Events dropped per bus and type")
	fmt.Fprintln(writer, "# TYPE watchexec_events_dropped_total counter")

	for _, name := range busNames {
		stats := r.busStats(name)
		types := make([]string, 0)
		seen := make(map[string]bool)
		stats.published.Range(func(key, _ any) bool {
			if t, ok := key.(string); ok && !seen[t] {
				types = append(types, t)
				seen[t] = true
			}
			return true
		})
		stats.dropped.Range(func(key, _ any) bool {
			if t, ok := key.(string); ok && !seen[t] {
				types = append(types, t)
				seen[t] = true
			}
			return true
		})
		sort.Strings(types)
		for _, eventType := range types {
			published := stats.counter(&stats.published, eventType).Load()
			dropped := stats.counter(&stats.dropped, eventType).Load()
			fmt.Fprintf(writer, "watchexec_events_published_total{bus=%s,type=%s} %d\n", formatLabel(name), formatLabel(eventType), published)
			fmt.Fprintf(writer, "watchexec_events_dropped_total{bus=%s,type=%s} %d\n", formatLabel(name), formatLabel(eventType), dropped)
		}
	}

	writeHelp(writer, "watchexec_event_subscribers", "Current subscriber count per bus")
	fmt.Fprintln(writer, "# TYPE watchexec_event_subscribers gauge")
	for _, name := range busNames {
		stats := r.busStats(name)
		fmt.Fprintf(writer, "watchexec_event_subscribers{bus=%s,filtered=\"true\"} %d\n", formatLabel(name), stats.filtered.Load())
		fmt.Fprintf(writer, "watchexec_event_subscribers{bus=%s,filtered=\"false\"} %d\n", formatLabel(name), stats.unfiltered.Load())
	}

	return nil
}

func (r *Registry) busNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	r.eventBuses.Range(func(key, _ any) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
