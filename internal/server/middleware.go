package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/philosophersclick/internal/game"
)

type ctxKey int

const ctxKeySession ctxKey = iota

// sessionMiddleware resolves {sessionID} to a running session.
func sessionMiddleware(sessions *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Get(chi.URLParam(r, "sessionID"))
			if err != nil {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}

			sessions.Touch(s.ID())

			ctx := context.WithValue(r.Context(), ctxKeySession, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(r *http.Request) *game.Session {
	return r.Context().Value(ctxKeySession).(*game.Session)
}
