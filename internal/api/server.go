package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/metrics"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/search"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Store is the library storage the server exposes.
type Store interface {
	library.Sink
	library.Reader
	DeleteIndex(ctx context.Context, title string) error
	DeleteVersions(ctx context.Context, title string) error
	ListTerms(ctx context.Context, scheme string) ([]library.Term, error)
}

// Server is the HTTP API server for a corpusload library.
type Server struct {
	router       chi.Router
	store        Store
	orchestrator *pipeline.Orchestrator
	search       *search.Index
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// Option configures optional server features.
type Option func(*Server)

// WithSearch mounts GET /api/search over ix.
func WithSearch(ix *search.Index) Option {
	return func(s *Server) { s.search = ix }
}

// WithMetrics mounts GET /metrics for m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates and configures the HTTP server. orch may be nil, in
// which case the import endpoints are not mounted.
func NewServer(store Store, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store:        store,
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(s)
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
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/index", s.handleListIndexes)
		r.Get("/api/index/{title}", s.handleGetIndex)
		r.Put("/api/index/{title}", s.handlePutIndex)
		r.Delete("/api/index/{title}", s.handleDeleteIndex)

		r.Get("/api/versions/{title}", s.handleGetVersion)
		r.Put("/api/versions/{title}", s.handlePutVersion)
		r.Delete("/api/versions/{title}", s.handleDeleteVersions)

		r.Get("/api/terms/{scheme}", s.handleListTerms)
		r.Put("/api/terms/{scheme}", s.handlePutTerms)

		r.Get("/api/categories", s.handleListCategories)
		r.Put("/api/categories", s.handlePutCategories)

		r.Get("/api/stats", s.handleStats)

		if s.search != nil {
			r.Get("/api/search", s.handleSearch)
		}

		if s.orchestrator != nil {
			r.Post("/api/import", s.handleImport)
			r.Get("/api/import/{jobID}/status", s.handleImportStatus)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
