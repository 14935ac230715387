package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/prose/internal/config"
	"github.com/dgallion1/prose/internal/metrics"
	"github.com/dgallion1/prose/internal/pipeline"
	"github.com/dgallion1/prose/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for prose.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	jobs         *pipeline.JobQueue
	workspaces   workspace.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, jobs *pipeline.JobQueue, ws workspace.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		jobs:         jobs,
		workspaces:   ws,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ProseAPIKey, s.log))

		r.Route("/api/workspaces/{workspaceID}", func(r chi.Router) {
			r.Use(requireWorkspaceID)

			r.Post("/compile", s.handleCompile)
			r.Post("/compile/jobs", s.handleSubmitJob)
			r.Get("/tree", s.handleTree)
			r.Get("/export", s.handleExport)
			r.Post("/documents/import", s.handleImport)
		})

		r.Get("/api/compile/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/compile/jobs/{jobID}/artifact", s.handleJobArtifact)
		r.Delete("/api/compile/jobs/{jobID}", s.handleCancelJob)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.jobs.QueueDepth(),
	})
}
