// Package server provides the HTTP API for talentsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/breaker"
	"github.com/hireloop/talentsearch/internal/config"
	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/metrics"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/profilestore"
)

// Searcher runs candidate searches.
type Searcher interface {
	Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)
}

// Ingestor accepts ingestion jobs.
type Ingestor interface {
	Submit(ctx context.Context, payload models.IngestionJobPayload) (string, error)
}

// BrokerStatus exposes queue observability for the status endpoint.
type BrokerStatus interface {
	Depth(queue string) int
	DeadLetterKeys(ctx context.Context) ([]string, error)
}

// Server is the HTTP server for the talentsearch API.
type Server struct {
	engine   Searcher
	ingestor Ingestor
	profiles profilestore.Store
	graph    graph.Store
	broker   BrokerStatus
	stats    *metrics.Collector
	breakers *breaker.Registry
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine Searcher,
	ingestor Ingestor,
	profiles profilestore.Store,
	graphStore graph.Store,
	broker BrokerStatus,
	stats *metrics.Collector,
	breakers *breaker.Registry,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		profiles: profiles,
		graph:    graphStore,
		broker:   broker,
		stats:    stats,
		breakers: breakers,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Get("/api/v1/candidates/{id}", s.handleGetCandidate)
	r.Post("/api/v1/taxonomy/sync", s.handleTaxonomySync)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
