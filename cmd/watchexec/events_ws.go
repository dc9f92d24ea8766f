package main

import (
	"net/http"

	"watchloop/internal/event"
	"watchloop/internal/logging"
	"watchloop/internal/runloop"

	"github.com/gorilla/websocket"
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registerEventsStream adds a /events websocket endpoint to mux that fans
// out the same runloop.Event stream the colorized status line consumes,
// for a browser-based dashboard. Grounded on
// gestalt/internal/api/ws_helpers.go's upgrade-then-write-loop shape,
// narrowed to one fixed payload type instead of the teacher's generic
// wsStreamConfig[T].
func registerEventsStream(mux *http.ServeMux, bus *event.Bus[runloop.Event], logger *logging.Logger) {
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := eventsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			if logger != nil {
				logger.Warn("events websocket upgrade failed", map[string]string{"error": err.Error()})
			}
			return
		}
		defer conn.Close()

		ch, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		for evt := range ch {
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	})
}
