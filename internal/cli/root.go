// Package cli implements the loki-analyzer command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Amazomic/loki-analyzer/internal/analysis/providers"
	"github.com/Amazomic/loki-analyzer/internal/loki"
	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/pkg/config"
	"github.com/Amazomic/loki-analyzer/pkg/logger"
)

// Fetcher reads log entries from the backend.
type Fetcher interface {
	TestConnectivity(ctx context.Context, cfg models.QueryConfig) bool
	Fetch(ctx context.Context, cfg models.QueryConfig) ([]models.LogEntry, error)
}

// Analyzer turns log entries into an analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, entries []models.LogEntry, cfg models.ProviderConfig) (models.AnalysisResult, error)
	Providers() []models.ProviderInfo
	ListAvailableModels(ctx context.Context, p models.Provider, apiKey string) []models.ModelInfo
}

// Backend bundles the collaborators a command talks to.
type Backend struct {
	Fetcher  Fetcher
	Analyzer Analyzer
}

// BackendFactory builds a Backend once configuration is loaded.
type BackendFactory func(cfg *config.Config, log *slog.Logger) Backend

// DefaultBackend talks to Loki over HTTP and to the configured providers.
func DefaultBackend(cfg *config.Config, log *slog.Logger) Backend {
	return Backend{
		Fetcher:  loki.NewClient(loki.WithLogger(log)),
		Analyzer: providers.NewOrchestrator(cfg.AI, log),
	}
}

// options holds the persistent flags and the state loaded from them.
type options struct {
	configPath string
	verbose    bool
	pretty     bool

	url      string
	token    string
	query    string
	limit    int
	lookback string

	provider string
	apiKey   string
	model    string

	cfg     *config.Config
	log     *slog.Logger
	backend Backend
}

// NewRootCmd builds the command tree. factory is called after configuration
// has been loaded, before any subcommand runs.
func NewRootCmd(factory BackendFactory) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "loki-analyzer",
		Short: "Fetch logs from Loki and analyze them with an LLM",
		Long: `loki-analyzer queries a Grafana Loki instance, classifies the returned
lines by severity and asks an LLM provider (Gemini, OpenAI or OpenRouter)
for a structured summary of the errors it finds.

Settings are read from an optional YAML file, LOKI_ANALYZER_* environment
variables and the flags below, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.log = logger.NewWithWriter(cmd.ErrOrStderr(), level, false).Logger
			opts.backend = factory(cfg, opts.log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $"+config.EnvConfigFile+")")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	pf.StringVar(&opts.url, "url", "", "Loki base URL (default: loki.url)")
	pf.StringVar(&opts.token, "token", "", "bearer token or full Authorization header value")
	pf.StringVarP(&opts.query, "query", "q", "", "LogQL query (default: loki.query)")
	pf.IntVarP(&opts.limit, "limit", "n", 0, "maximum number of entries (default: loki.limit)")
	pf.StringVarP(&opts.lookback, "range", "r", "", "lookback window such as 6h or 7d (default: loki.range)")

	pf.StringVarP(&opts.provider, "provider", "p", "", "LLM provider: gemini, openai, openrouter (default: ai.provider)")
	pf.StringVar(&opts.apiKey, "api-key", "", "provider API key")
	pf.StringVarP(&opts.model, "model", "m", "", "provider model (default: provider default)")

	root.AddCommand(
		newProbeCmd(opts),
		newFetchCmd(opts),
		newAnalyzeCmd(opts),
		newProvidersCmd(opts),
		newModelsCmd(opts),
	)
	return root
}

// queryConfig merges the query flags over the configured defaults. The
// configured token only accompanies the configured URL.
func (o *options) queryConfig() (models.QueryConfig, error) {
	q := models.QueryConfig{
		URL:   strings.TrimSpace(o.url),
		Token: strings.TrimSpace(o.token),
		Query: o.cfg.Loki.Query,
		Limit: o.cfg.Loki.Limit,
		Range: o.cfg.Loki.Range,
	}
	if q.URL == "" {
		q.URL = o.cfg.Loki.URL
		if q.Token == "" {
			q.Token = o.cfg.Loki.Token
		}
	}
	if o.query != "" {
		q.Query = o.query
	}
	if o.limit > 0 {
		q.Limit = o.limit
	}
	if o.lookback != "" {
		q.Range = o.lookback
	}
	if q.URL == "" {
		return q, fmt.Errorf("no Loki URL: pass --url or set LOKI_URL")
	}
	return q, nil
}

// providerConfig merges the provider flags over the configured defaults.
func (o *options) providerConfig() models.ProviderConfig {
	p := models.ProviderConfig{
		Provider: models.ParseProvider(o.provider),
		APIKey:   strings.TrimSpace(o.apiKey),
		Model:    strings.TrimSpace(o.model),
	}
	defaultProvider := models.ParseProvider(o.cfg.AI.Provider)
	if p.Provider == "" {
		p.Provider = defaultProvider
	}
	if p.Model == "" && p.Provider == defaultProvider {
		p.Model = o.cfg.AI.Model
	}
	return p
}

func (o *options) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
