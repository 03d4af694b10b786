// Package api exposes champion selection and the registry's run listings
// over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/schemas"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server routes the HTTP API.
type Server struct {
	router   *chi.Mux
	registry ports.ModelRegistry
	gatherer prometheus.Gatherer
}

// NewServer creates a Server. registry may be nil, in which case the run
// endpoints answer 503. gatherer backs /metrics; nil uses the default
// Prometheus gatherer.
func NewServer(registry ports.ModelRegistry, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		gatherer: gatherer,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/select", s.handleSelect)
		r.Get("/runs/{runID}/candidates", s.handleRunCandidates)
		r.Post("/runs/{runID}/select", s.handleRunSelect)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// selectResponse is the body of a successful selection.
type selectResponse struct {
	Champion domain.Candidate `json:"champion"`
	Decision domain.Decision  `json:"decision"`
}

type candidatesResponse struct {
	RunID      string             `json:"run_id"`
	Candidates []domain.Candidate `json:"candidates"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := schemas.DecodeSelectRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.decide(w, r, req.Candidates, req.Policy)
}

func (s *Server) handleRunCandidates(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no model registry configured"))
		return
	}
	runID := chi.URLParam(r, "runID")
	candidates, err := s.registry.ListCandidates(r.Context(), runID)
	if err != nil {
		writeError(w, statusFor(err), fmt.Errorf("failed to list candidates for run %q: %w", runID, err))
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidatesResponse{RunID: runID, Candidates: candidates})
}

// handleRunSelect applies the policy in the body to the candidates
// registered under the run.
func (s *Server) handleRunSelect(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no model registry configured"))
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policy, err := schemas.DecodePolicy(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	runID := chi.URLParam(r, "runID")
	candidates, err := s.registry.ListCandidates(r.Context(), runID)
	if err != nil {
		writeError(w, statusFor(err), fmt.Errorf("failed to list candidates for run %q: %w", runID, err))
		return
	}
	s.decide(w, r, candidates, policy)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, candidates []domain.Candidate, policy domain.SelectionPolicy) {
	decision, err := domain.Decide(candidates, policy)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	slog.InfoContext(r.Context(), "champion selected",
		"champion", decision.Champion.Model,
		"eligible", decision.EligibleCount,
		"tie_declared", decision.TieDeclared)
	writeJSON(w, http.StatusOK, selectResponse{Champion: decision.Champion, Decision: decision})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// statusFor maps infrastructure failures to a response status.
func statusFor(err error) int {
	switch {
	case ports.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var schemaErr *schemas.SchemaError
	if errors.As(err, &schemaErr) {
		resp.Problems = schemaErr.Problems
	}
	writeJSON(w, status, resp)
}

// requestLogger logs one line per request through the default slog logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
