package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/sade-booster/session"
	"github.com/jrsteele09/sade-booster/view"
)

const eventsHeartbeat = 25 * time.Second

// SessionEventsHandler streams server-sent events to an open dashboard. The
// guard is re-evaluated after every committed Session change, so signing out
// in another tab moves this one to the sign in page.
func (s *Server) SessionEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		inst := instanceFrom(r)

		changed := make(chan struct{}, 1)
		unsubscribe := inst.Session.Subscribe(func(session.Session) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "retry: 3000\n\n")
		flusher.Flush()

		heartbeat := time.NewTicker(eventsHeartbeat)
		defer heartbeat.Stop()

		for {
			if inst.Session.Closed() {
				// Reloading the dashboard opens a fresh client instance
				writeEvent(w, "redirect", RouteDashboard)
				flusher.Flush()
				return
			}
			if to, ok := view.Guard(inst.Session.Snapshot()); ok {
				writeEvent(w, "redirect", to)
				flusher.Flush()
				return
			}

			select {
			case <-r.Context().Done():
				return
			case <-inst.Session.Done():
			case <-changed:
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
