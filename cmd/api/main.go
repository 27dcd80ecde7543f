// Package main provides the entry point for the API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/Amazomic/loki-analyzer/internal/analysis/providers"
	"github.com/Amazomic/loki-analyzer/internal/api"
	"github.com/Amazomic/loki-analyzer/internal/auth"
	"github.com/Amazomic/loki-analyzer/internal/loki"
	"github.com/Amazomic/loki-analyzer/internal/shutdown"
	"github.com/Amazomic/loki-analyzer/internal/store"
	"github.com/Amazomic/loki-analyzer/internal/store/memory"
	pgstore "github.com/Amazomic/loki-analyzer/internal/store/postgres"
	"github.com/Amazomic/loki-analyzer/pkg/config"
	"github.com/Amazomic/loki-analyzer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (or set "+config.EnvConfigFile+")")
	flag.Parse()

	// A missing .env file is ignored.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)

	// Initialize report store
	st, err := openStore(context.Background(), cfg, log.Logger)
	if err != nil {
		log.Error("failed to open report store", "error", err)
		os.Exit(1)
	}

	deps := api.Deps{
		Fetcher:  loki.NewClient(loki.WithLogger(log.WithComponent("loki").Logger)),
		Analyzer: providers.NewOrchestrator(cfg.AI, log.WithComponent("analysis").Logger),
		Store:    st,
	}

	// Initialize auth service
	if cfg.AuthEnabled() {
		deps.Auth = auth.NewService(&auth.Config{
			JWTSecret:   []byte(cfg.Auth.JWTSecret),
			TokenExpiry: cfg.Auth.TokenExpiry,
		}, log.Logger)
	}

	if cfg.Loki.URL == "" {
		log.Warn("no default loki url configured, every request must supply one")
	}
	if cfg.AI.GeminiAPIKey == "" {
		log.Warn("no default gemini api key configured, every request must supply one")
	}

	// Create the API server
	server := api.NewServer(cfg, deps, log.Logger)

	// The store is registered first so that it closes after the server drains.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.Server.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("report store", st))
	coordinator.Register(shutdown.NewFuncComponent("http server", server.Shutdown))

	log.Info("starting loki analyzer",
		"addr", cfg.Addr(),
		"provider", cfg.AI.Provider,
		"loki_url", cfg.Loki.URL,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
		coordinator.Shutdown()
	}()

	coordinator.WaitForSignal()

	exitCode := coordinator.ExitCode()
	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			exitCode = 1
		}
	default:
	}
	log.Info("server stopped")
	os.Exit(exitCode)
}

// openStore returns the PostgreSQL store when a DSN is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.Database.DSN == "" {
		log.Info("no database configured, reports are kept in memory")
		return memory.New(), nil
	}
	return pgstore.NewPostgresStore(ctx, pgstore.DefaultConfig(cfg.Database.DSN), log)
}
