package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI(deps.AllowManualTrigger))
	r.Mount("/docs", v5emb.New("Philosopher's Click API", "/openapi.json", "/docs"))

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps.Sessions))

		// Available after the session has ended.
		r.Delete("/{sessionID}", handleEndSession(deps.Sessions))
		r.Get("/{sessionID}/reflections", handleReflections(deps.Store))

		// Live session routes, {sessionID} resolved by sessionMiddleware.
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware(deps.Sessions))
			r.Get("/{sessionID}", handleGetSession())
			r.Post("/{sessionID}/answer", handleAnswer())
			r.Post("/{sessionID}/dismiss", handleDismiss())
			r.Get("/{sessionID}/events", handleEvents(deps.Sessions, deps.Broker))
			r.Get("/{sessionID}/ws", handleWS(deps.Sessions, deps.Broker, logger))
			if deps.AllowManualTrigger {
				r.Post("/{sessionID}/trigger", handleTrigger())
			}
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
