package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const heartbeatInterval = 30 * time.Second

// handleEvents is the live subscription: a server-sent event stream that
// emits a refresh event whenever the user's collection changes. The browser
// re-fetches the page on each event, so what it renders is always a full
// snapshot, never a partial diff. Closing the tab cancels the request
// context, which tears the subscription down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := userFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots := s.hub.Subscribe(r.Context(), user.ID)

	slog.InfoContext(r.Context(), "Live subscription opened", "user_id", user.ID)

	// Tell the client the stream is up before any change happens.
	fmt.Fprint(w, "event: connected\ndata: ok\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.InfoContext(r.Context(), "Live subscription closed", "user_id", user.ID)
			return
		case snapshot := <-snapshots:
			// Keep the cache warm with the freshest snapshot so the refresh
			// the client is about to issue does not hit the database again.
			s.snapshotCache.Set(user.ID, snapshot)
			fmt.Fprintf(w, "event: refresh\ndata: %d\n\n", len(snapshot))
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
