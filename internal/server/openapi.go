package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// HealthStatus is one entry of the /healthz response, keyed by check name.
type HealthStatus struct {
	Status string `json:"status" enum:"ok,error"`
}

type sessionPath struct {
	SessionID string `path:"sessionID" description:"Session ID returned by POST /api/sessions."`
}

func newOpenAPISpec(withTrigger bool) *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Philosopher's Click API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Philosopher's Click idle game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	createSession.SetSummary("Start session")
	createSession.SetDescription("Starts a game session. The score begins accruing immediately.")
	createSession.AddReqStructure(CreateSessionRequest{})
	createSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(createSession)

	// GET /api/sessions/{sessionID}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns a snapshot of the session's score and pending question.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{sessionID}
	endSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{sessionID}")
	endSession.SetSummary("End session")
	endSession.SetDescription("Stops the session's timers and records its final score.")
	endSession.AddReqStructure(sessionPath{})
	endSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	endSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(endSession)

	// POST /api/sessions/{sessionID}/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/answer")
	postAnswer.SetSummary("Answer question")
	postAnswer.SetDescription("Answers the pending question. A blank answer resets the score.")
	postAnswer.AddReqStructure(struct {
		sessionPath
		AnswerRequest
	}{})
	postAnswer.AddRespStructure(ResolutionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/sessions/{sessionID}/dismiss
	postDismiss, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/dismiss")
	postDismiss.SetSummary("Dismiss question")
	postDismiss.SetDescription("Closes the pending question without answering. Resets the score.")
	postDismiss.AddReqStructure(sessionPath{})
	postDismiss.AddRespStructure(ResolutionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postDismiss.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postDismiss.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postDismiss)

	// GET /api/sessions/{sessionID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session events, starting with a state snapshot.")
	getEvents.AddReqStructure(sessionPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{sessionID}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/ws")
	getWS.SetSummary("WebSocket play channel")
	getWS.SetDescription(`Upgrades to a WebSocket that pushes session events. ` +
		`Clients send {"type":"answer","answer":"..."} or {"type":"dismiss"}.`)
	getWS.AddReqStructure(sessionPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/sessions/{sessionID}/reflections
	getReflections, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/reflections")
	getReflections.SetSummary("List reflections")
	getReflections.SetDescription("Returns the session's resolved questions, newest first.")
	getReflections.AddReqStructure(sessionPath{})
	getReflections.AddRespStructure([]Reflection{}, openapi.WithHTTPStatus(http.StatusOK))
	getReflections.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getReflections)

	if withTrigger {
		// POST /api/sessions/{sessionID}/trigger
		postTrigger, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/trigger")
		postTrigger.SetSummary("Ask now")
		postTrigger.SetDescription("Starts question generation immediately if the session is idle.")
		postTrigger.AddReqStructure(sessionPath{})
		postTrigger.AddRespStructure(TriggerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
		postTrigger.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		_ = r.AddOperation(postTrigger)
	}

	return r.Spec
}

func handleOpenAPI(withTrigger bool) http.HandlerFunc {
	spec := newOpenAPISpec(withTrigger)
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
