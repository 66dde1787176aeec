// Package api exposes the packer pipeline over HTTP (SPEC_FULL.md §6
// ADDED "HTTP API"): thin chi handlers that decode a pipeline.Options
// body, call pipeline.Runner.Execute, and encode the pipeline.Result —
// the same Options/Result contract the CLI's pack command drives.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/fpgapack/pkg/observability"
	"github.com/matzehuels/fpgapack/pkg/pipeline"
	"github.com/matzehuels/fpgapack/pkg/runstore"
)

// Server wires the HTTP API's dependencies: a pipeline.Runner for
// POST /v1/pack and a runstore.Store for the read-only /v1/runs routes.
type Server struct {
	Runner *pipeline.Runner
	Runs   runstore.Store
	Logger *log.Logger
}

// Router builds the chi router for the API (spec §6 ADDED: "POST
// /v1/pack", "GET /v1/runs", "GET /v1/runs/{id}").
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pack", s.handlePack)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	return r
}

// logRequests emits one structured log line per request and fires
// observability.HTTP() hooks, mirroring the teacher's progress/spinner
// instrumentation conventions in internal/cli/log.go.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		observability.HTTP().OnRequest(req.Context(), req.Method, req.URL.Path)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		dur := time.Since(start)
		observability.HTTP().OnResponse(req.Context(), req.Method, req.URL.Path, ww.Status(), dur)
		s.Logger.Debug("request", "method", req.Method, "path", req.URL.Path, "status", ww.Status(), "duration", dur)
	})
}

func (s *Server) handlePack(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	opts.Logger = s.Logger

	result, err := s.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		s.writeJSON(w, http.StatusOK, []*runstore.Run{})
		return
	}
	runs, err := s.Runs.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.Runs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	s.Logger.Warn("request failed", "path", r.URL.Path, "err", err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
