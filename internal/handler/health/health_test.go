package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/philosophersclick/internal/handler/health"
)

func ok(context.Context) error { return nil }

func failing(msg string) health.CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"sqlite":   health.CheckFunc(ok),
				"sessions": health.CheckFunc(ok),
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"sqlite": "ok", "sessions": "ok"},
		},
		{
			name: "sqlite down",
			checks: map[string]health.Checker{
				"sqlite":   failing("locked"),
				"sessions": health.CheckFunc(ok),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"sqlite": "error", "sessions": "ok"},
		},
		{
			name: "registry closed",
			checks: map[string]health.Checker{
				"sqlite":   health.CheckFunc(ok),
				"sessions": failing("session registry closed"),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"sqlite": "ok", "sessions": "error"},
		},
		{
			name:       "no checks",
			checks:     map[string]health.Checker{},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(body) != len(tt.wantBody) {
				t.Errorf("got %d checks, want %d", len(body), len(tt.wantBody))
			}

			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}
