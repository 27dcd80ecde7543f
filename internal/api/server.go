// Package api provides the HTTP API server for the log analyzer.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Amazomic/loki-analyzer/internal/api/handlers"
	"github.com/Amazomic/loki-analyzer/internal/api/health"
	"github.com/Amazomic/loki-analyzer/internal/api/middleware"
	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/internal/store"
	"github.com/Amazomic/loki-analyzer/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Fetcher  handlers.LogFetcher
	Analyzer handlers.Analyzer
	Store    store.Store
	// Auth validates bearer tokens. A nil Auth leaves /v1 open.
	Auth middleware.TokenValidator
}

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	deps          Deps
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}

	s.healthChecker = health.NewChecker(Version)
	if deps.Store != nil {
		s.healthChecker.AddCritical("store", deps.Store)
	}
	if cfg.Loki.URL != "" {
		defaults := QueryDefaults(cfg)
		s.healthChecker.AddOptional("loki", health.PingFunc(func(ctx context.Context) error {
			if !deps.Fetcher.TestConnectivity(ctx, defaults) {
				return errors.New("loki is not ready")
			}
			return nil
		}))
	}

	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// QueryDefaults returns the query fields used when a request omits them.
func QueryDefaults(cfg *config.Config) models.QueryConfig {
	return models.QueryConfig{
		URL:   cfg.Loki.URL,
		Token: cfg.Loki.Token,
		Query: cfg.Loki.Query,
		Limit: cfg.Loki.Limit,
		Range: cfg.Loki.Range,
	}
}

// ProviderDefaults returns the provider selection used when a request omits it.
func ProviderDefaults(cfg *config.Config) models.ProviderConfig {
	return models.ProviderConfig{
		Provider: models.ParseProvider(cfg.AI.Provider),
		Model:    cfg.AI.Model,
	}
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	var reports store.ReportStore
	if s.deps.Store != nil {
		reports = s.deps.Store.Reports()
	}

	logHandler := handlers.NewLogHandler(s.deps.Fetcher, QueryDefaults(s.config), s.logger)
	analyzeHandler := handlers.NewAnalyzeHandler(logHandler, s.deps.Analyzer, reports, ProviderDefaults(s.config), s.logger)
	providerHandler := handlers.NewProviderHandler(s.deps.Analyzer, ProviderDefaults(s.config).Provider, s.logger)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
		if s.deps.Auth != nil {
			authMiddleware := middleware.NewAuthMiddleware(s.deps.Auth, s.logger)
			r.Use(authMiddleware.Authenticate)
		} else {
			s.logger.Warn("authentication disabled, /v1 is open")
		}

		r.Route("/logs", func(r chi.Router) {
			r.Post("/probe", logHandler.Probe)
			r.Post("/query", logHandler.Query)
		})

		r.Post("/analyze", analyzeHandler.Analyze)

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providerHandler.List)
			r.Get("/{provider}/models", providerHandler.Models)
		})

		if reports != nil {
			reportHandler := handlers.NewReportHandler(reports, s.logger)
			r.Route("/reports", func(r chi.Router) {
				r.Get("/", reportHandler.List)
				r.Route("/{reportID}", func(r chi.Router) {
					r.Get("/", reportHandler.Get)
					r.Delete("/", reportHandler.Delete)
				})
			})
		}
	})

	s.router = r
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr, "auth", s.deps.Auth != nil)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
