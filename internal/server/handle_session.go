package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/philosophersclick/internal/game"
)

type CreateSessionRequest struct {
	GameName string `json:"gameName"`
}

type SessionResponse struct {
	ID       string     `json:"id"`
	GameName string     `json:"gameName"`
	State    game.State `json:"state"`
}

func handleCreateSession(sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s, err := sessions.Create(r.Context(), strings.TrimSpace(req.GameName))
		if errors.Is(err, errRegistryClosed) {
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		state, err := s.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, SessionResponse{ID: s.ID(), GameName: s.GameName(), State: state})
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		state, err := s.Snapshot(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{ID: s.ID(), GameName: s.GameName(), State: state})
	}
}

func handleEndSession(sessions *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := sessions.End(r.Context(), chi.URLParam(r, "sessionID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleReflections(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if _, err := store.GetSession(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		refs, err := store.ListReflections(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if refs == nil {
			refs = []Reflection{}
		}
		writeJSON(w, http.StatusOK, refs)
	}
}

// writeSessionError maps session command errors to HTTP responses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotAwaiting):
		writeError(w, http.StatusConflict, "no question is awaiting an answer")
	case errors.Is(err, game.ErrClosed):
		writeError(w, http.StatusNotFound, "session not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
