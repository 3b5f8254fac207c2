// Package http exposes the service's operational endpoints: liveness,
// readiness, run progress, and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStatus reports readiness and identifies the active consolidation run.
// The pipeline coordinator satisfies this: readiness flips once the first
// chunk commits, and the run ID is set when a run starts.
type RunStatus interface {
	CheckReadiness(ctx context.Context) error
	ActiveRunID() string
}

// ProgressReporter exposes per-phase completion percentages of the active
// consolidation run.
type ProgressReporter interface {
	Percent(phase string) int
}

// Server exposes health, readiness, progress, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /progress, and
// /metrics routes.
func NewServer(addr string, status RunStatus, progress ProgressReporter, phases []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(status))
	mux.HandleFunc("GET /progress", handleProgress(status, progress, phases))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(status RunStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := map[string]string{}
		if id := status.ActiveRunID(); id != "" {
			body["run_id"] = id
		}
		if err := status.CheckReadiness(ctx); err != nil {
			body["status"] = "not ready"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		writeJSON(w, http.StatusOK, body)
	}
}

// progressResponse ties the per-phase percentages to the run they describe.
type progressResponse struct {
	RunID  string         `json:"run_id,omitempty"`
	Phases map[string]int `json:"phases"`
}

func handleProgress(status RunStatus, progress ProgressReporter, phases []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := progressResponse{
			RunID:  status.ActiveRunID(),
			Phases: make(map[string]int, len(phases)),
		}
		for _, phase := range phases {
			body.Phases[phase] = progress.Percent(phase)
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
