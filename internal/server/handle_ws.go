package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/philosophersclick/internal/game"
)

// WSCommand is sent by the client over the play socket.
type WSCommand struct {
	Type   string `json:"type"` // "answer" or "dismiss"
	Answer string `json:"answer,omitempty"`
}

// WSError is pushed back when a command is rejected.
type WSError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWS upgrades to a WebSocket that pushes session events and accepts
// answer/dismiss commands.
func handleWS(sessions *Registry, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)

		release, err := sessions.Acquire(s.ID())
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		defer release()

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		ch := broker.Subscribe(s.ID())
		defer broker.Unsubscribe(s.ID(), ch)

		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			defer cancel()
			readCommands(ctx, conn, s, logger)
		}()
		defer func() {
			cancel()
			<-readerDone
		}()

		state, err := s.Snapshot(ctx)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		if err := wsjson.Write(ctx, conn, game.Event{Type: game.EventState, State: state}); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, msg.Data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
				if msg.Type == game.EventClosed {
					conn.Close(websocket.StatusNormalClosure, "session closed")
					return
				}
			}
		}
	}
}

func readCommands(ctx context.Context, conn *websocket.Conn, s *game.Session, logger *slog.Logger) {
	for {
		// Decoded by hand: wsjson.Read closes the connection on bad JSON.
		typ, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debug("websocket read ended", "error", err)
			return
		}
		var cmd WSCommand
		if typ != websocket.MessageText || json.Unmarshal(data, &cmd) != nil {
			wsjson.Write(ctx, conn, WSError{Type: "error", Error: "invalid command"})
			continue
		}

		switch cmd.Type {
		case "answer":
			_, _, err = s.Submit(ctx, cmd.Answer)
		case "dismiss":
			_, _, err = s.Dismiss(ctx)
		default:
			wsjson.Write(ctx, conn, WSError{Type: "error", Error: "unknown command " + cmd.Type})
			continue
		}
		if err != nil {
			wsjson.Write(ctx, conn, WSError{Type: "error", Error: err.Error()})
		}
	}
}
