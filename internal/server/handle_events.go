package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/philosophersclick/internal/game"
)

// handleEvents streams session events as Server-Sent Events, starting with
// a state snapshot. The stream ends when the session closes.
func handleEvents(sessions *Registry, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		release, err := sessions.Acquire(s.ID())
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		defer release()

		ch := broker.Subscribe(s.ID())
		defer broker.Unsubscribe(s.ID(), ch)

		state, err := s.Snapshot(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		initial, _ := json.Marshal(game.Event{Type: game.EventState, State: state})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", game.EventState, initial)
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg := <-ch:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Data)
				flusher.Flush()
				if msg.Type == game.EventClosed {
					return
				}
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
