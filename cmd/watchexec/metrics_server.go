package main

import (
	"net/http"
	"time"

	"watchloop/internal/event"
	"watchloop/internal/logging"
	"watchloop/internal/metrics"
	"watchloop/internal/runloop"
)

// serveMetrics exposes the Prometheus text exposition format generated by
// internal/metrics.Registry.WritePrometheus on addr, plus (when bus is
// non-nil) a /events websocket stream of the same runloop.Event feed the
// status line consumes. It is an ambient, optional concern: the core
// never imports net/http or gorilla/websocket.
func serveMetrics(addr string, registry *metrics.Registry, bus *event.Bus[runloop.Event], logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = registry.WritePrometheus(w)
	})
	if bus != nil {
		registerEventsStream(mux, bus, logger)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Warn("metrics server stopped", map[string]string{"error": err.Error()})
			}
		}
	}()
	return server
}
