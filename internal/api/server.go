// Package api exposes experiment submission, phase status polling and
// reports over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/internal"
	"hypogate/internal/metrics"
	"hypogate/ports"
)

// Experiments is the orchestrator surface used by the handlers.
type Experiments interface {
	Submit(ctx context.Context, rec *experiment.ConfigRecord) (*experiment.Experiment, error)
	Cancel(ctx context.Context, id core.ExperimentID) error
}

// Queue schedules a submitted experiment for execution.
type Queue interface {
	Enqueue(id core.ExperimentID) error
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Experiments Experiments
	Queue       Queue
	Store       ports.ExperimentStore
	Metrics     *metrics.Metrics
	Hub         *EventHub
	Logger      *internal.Logger
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router *chi.Mux
	logger *internal.Logger
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = internal.NewNopLogger()
	}
	s := &Server{deps: deps, router: chi.NewRouter(), logger: deps.Logger.Named("api")}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api/experiments", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/phases", s.handlePhases)
			r.Get("/validations", s.handleValidations)
			r.Get("/artifacts", s.handleArtifacts)
			r.Get("/report", s.handleReport)
			r.Post("/cancel", s.handleCancel)
		})
	})
	if s.deps.Hub != nil {
		s.router.Get("/api/events", s.deps.Hub.HandleSSE)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s -> %d in %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
