package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/Amazomic/loki-analyzer/internal/api/errors"
	"github.com/Amazomic/loki-analyzer/internal/classify"
	"github.com/Amazomic/loki-analyzer/internal/loki"
	"github.com/Amazomic/loki-analyzer/internal/models"
)

// LogFetcher reads log entries from the backend.
type LogFetcher interface {
	TestConnectivity(ctx context.Context, cfg models.QueryConfig) bool
	Fetch(ctx context.Context, cfg models.QueryConfig) ([]models.LogEntry, error)
}

// queryParams is a merged QueryConfig as checked before a fetch.
type queryParams struct {
	URL   string `validate:"required,url"`
	Query string `validate:"required"`
	// 5000 is the default max_entries_limit_per_query of Loki.
	Limit int `validate:"min=0,max=5000"`
}

// LogHandler handles connectivity probes and log queries.
type LogHandler struct {
	fetcher  LogFetcher
	defaults models.QueryConfig
	logger   *slog.Logger
}

// NewLogHandler creates a new log handler. Fields missing from a request are
// taken from defaults.
func NewLogHandler(fetcher LogFetcher, defaults models.QueryConfig, logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{
		fetcher:  fetcher,
		defaults: defaults,
		logger:   logger,
	}
}

// Probe handles POST /v1/logs/probe. It always answers 200.
func (h *LogHandler) Probe(w http.ResponseWriter, r *http.Request) {
	var req models.QueryConfig
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		WriteError(w, r, apiErr)
		return
	}

	cfg := mergeQuery(req, h.defaults)
	healthy := h.fetcher.TestConnectivity(r.Context(), cfg)

	WriteJSON(w, http.StatusOK, map[string]any{
		"healthy": healthy,
		"url":     cfg.URL,
	})
}

// Query handles POST /v1/logs/query.
func (h *LogHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryConfig
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		WriteError(w, r, apiErr)
		return
	}

	cfg, apiErr := h.resolve(req)
	if apiErr != nil {
		WriteError(w, r, apiErr)
		return
	}

	entries, err := h.fetcher.Fetch(r.Context(), cfg)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"entries":      entries,
		"count":        len(entries),
		"level_counts": classify.CountLevels(entries),
	})
}

// resolve merges req with the defaults and validates the result.
func (h *LogHandler) resolve(req models.QueryConfig) (models.QueryConfig, *apierrors.APIError) {
	cfg := mergeQuery(req, h.defaults)

	err := validate.Struct(queryParams{URL: cfg.URL, Query: cfg.Query, Limit: cfg.Limit})
	if err != nil {
		return cfg, validationError(err)
	}
	if cfg.Range != "" {
		if _, err := loki.ParseLookback(cfg.Range); err != nil {
			var fields apierrors.ValidationErrors
			fields.Add("range", err.Error())
			return cfg, fields.ToAPIError()
		}
	}
	return cfg, nil
}

// mergeQuery fills the empty fields of req from defaults. The default token
// is only used together with the default URL.
func mergeQuery(req, defaults models.QueryConfig) models.QueryConfig {
	cfg := models.QueryConfig{
		URL:   strings.TrimSpace(req.URL),
		Token: strings.TrimSpace(req.Token),
		Query: strings.TrimSpace(req.Query),
		Limit: req.Limit,
		Range: strings.TrimSpace(req.Range),
	}
	if cfg.URL == "" {
		cfg.URL = defaults.URL
		if cfg.Token == "" {
			cfg.Token = defaults.Token
		}
	}
	if cfg.Query == "" {
		cfg.Query = defaults.Query
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaults.Limit
	}
	if cfg.Range == "" {
		cfg.Range = defaults.Range
	}
	return cfg
}
