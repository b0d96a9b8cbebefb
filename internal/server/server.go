package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the collaborators the HTTP routes are wired to.
type Deps struct {
	Store    Store
	Sessions *Registry
	Broker   *Broker
	SPADir   string

	// AllowManualTrigger mounts POST /api/sessions/{id}/trigger.
	AllowManualTrigger bool
}

type Server struct {
	srv      *http.Server
	sessions *Registry
	logger   *slog.Logger
}

// New builds the HTTP server. mount, if non-nil, registers extra routes
// such as health checks before the SPA fallback is installed.
func New(addr string, logger *slog.Logger, deps Deps, mount func(r chi.Router)) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Streams only end once their session closes, so sessions must close
	// while Shutdown is still waiting on active handlers.
	if deps.Sessions != nil {
		srv.RegisterOnShutdown(func() {
			if err := deps.Sessions.Close(); err != nil {
				logger.Error("closing sessions", "error", err)
			}
		})
	}

	return &Server{srv: srv, sessions: deps.Sessions, logger: logger}
}

// Handler returns the root handler, for use with httptest.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	if s.sessions != nil {
		// Waits for the close started on shutdown to flush the journal.
		s.sessions.Close()
	}
	return err
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
