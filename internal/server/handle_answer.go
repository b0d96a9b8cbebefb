package server

import (
	"net/http"

	"github.com/playperu/philosophersclick/internal/game"
)

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type ResolutionResponse struct {
	Resolution game.Resolution `json:"resolution"`
	State      game.State      `json:"state"`
}

type TriggerResponse struct {
	Started bool       `json:"started"`
	State   game.State `json:"state"`
}

// handleAnswer submits the player's answer. A blank answer is accepted and
// resolves as empty_answer, which resets the score.
func handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, state, err := sessionFrom(r).Submit(r.Context(), req.Answer)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ResolutionResponse{Resolution: res, State: state})
	}
}

func handleDismiss() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, state, err := sessionFrom(r).Dismiss(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ResolutionResponse{Resolution: res, State: state})
	}
}

func handleTrigger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		started, err := s.Trigger(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		state, err := s.Snapshot(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TriggerResponse{Started: started, State: state})
	}
}
