package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Amazomic/loki-analyzer/internal/classify"
	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/internal/store"
)

// Analyzer turns log entries into an analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, entries []models.LogEntry, cfg models.ProviderConfig) (models.AnalysisResult, error)
	Providers() []models.ProviderInfo
	ListAvailableModels(ctx context.Context, p models.Provider, apiKey string) []models.ModelInfo
}

// AnalyzeRequest is the body of POST /v1/analyze. When Entries is present the
// backend is not queried.
type AnalyzeRequest struct {
	Query    models.QueryConfig    `json:"query"`
	Provider models.ProviderConfig `json:"provider"`
	Entries  []models.LogEntry     `json:"entries,omitempty"`
}

// AnalyzeResponse is the body returned by POST /v1/analyze.
type AnalyzeResponse struct {
	Result      models.AnalysisResult `json:"result"`
	EntryCount  int                   `json:"entry_count"`
	LevelCounts map[models.Level]int  `json:"level_counts"`
	ReportID    string                `json:"report_id,omitempty"`
}

// AnalyzeHandler runs the fetch-then-analyze pipeline.
type AnalyzeHandler struct {
	logs     *LogHandler
	analyzer Analyzer
	reports  store.ReportStore
	defaults models.ProviderConfig
	logger   *slog.Logger
}

// NewAnalyzeHandler creates a new analyze handler. reports may be nil, in which
// case no history is kept.
func NewAnalyzeHandler(logs *LogHandler, analyzer Analyzer, reports store.ReportStore, defaults models.ProviderConfig, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeHandler{
		logs:     logs,
		analyzer: analyzer,
		reports:  reports,
		defaults: defaults,
		logger:   logger,
	}
}

// Analyze handles POST /v1/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		WriteError(w, r, apiErr)
		return
	}

	entries := req.Entries
	query := strings.TrimSpace(req.Query.Query)
	if entries == nil {
		cfg, apiErr := h.logs.resolve(req.Query)
		if apiErr != nil {
			WriteError(w, r, apiErr)
			return
		}
		query = cfg.Query

		fetched, err := h.logs.fetcher.Fetch(r.Context(), cfg)
		if err != nil {
			WriteDomainError(w, r, h.logger, err)
			return
		}
		entries = fetched
	}

	providerCfg := h.mergeProvider(req.Provider)
	result, err := h.analyzer.Analyze(r.Context(), entries, providerCfg)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}

	resp := AnalyzeResponse{
		Result:      result,
		EntryCount:  len(entries),
		LevelCounts: classify.CountLevels(entries),
	}

	if h.reports != nil && len(entries) > 0 {
		report := &models.Report{
			Query:       query,
			Provider:    providerCfg.Provider,
			Model:       h.modelFor(providerCfg),
			EntryCount:  resp.EntryCount,
			LevelCounts: resp.LevelCounts,
			Result:      result,
		}
		if err := h.reports.Create(r.Context(), report); err != nil {
			h.logger.Error("failed to save report", "error", err, "provider", providerCfg.Provider)
		} else {
			resp.ReportID = report.ID
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// mergeProvider fills the provider and model from defaults. The default model
// only applies when the default provider is used.
func (h *AnalyzeHandler) mergeProvider(req models.ProviderConfig) models.ProviderConfig {
	cfg := models.ProviderConfig{
		Provider: models.ParseProvider(string(req.Provider)),
		APIKey:   strings.TrimSpace(req.APIKey),
		Model:    strings.TrimSpace(req.Model),
	}
	if cfg.Provider == "" {
		cfg.Provider = h.defaults.Provider
	}
	if cfg.Model == "" && cfg.Provider == h.defaults.Provider {
		cfg.Model = h.defaults.Model
	}
	return cfg
}

// modelFor names the model that served cfg.
func (h *AnalyzeHandler) modelFor(cfg models.ProviderConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	for _, info := range h.analyzer.Providers() {
		if info.ID == cfg.Provider {
			return info.DefaultModel
		}
	}
	return ""
}
