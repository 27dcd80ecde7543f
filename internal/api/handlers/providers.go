package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// ProviderKeyHeader carries the caller's provider API key for model listing.
const ProviderKeyHeader = "X-Provider-Key"

// ProviderHandler serves the provider catalogue.
type ProviderHandler struct {
	analyzer        Analyzer
	defaultProvider models.Provider
	logger          *slog.Logger
}

// NewProviderHandler creates a new provider handler.
func NewProviderHandler(analyzer Analyzer, defaultProvider models.Provider, logger *slog.Logger) *ProviderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderHandler{
		analyzer:        analyzer,
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

// List handles GET /v1/providers.
func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"providers":        h.analyzer.Providers(),
		"default_provider": h.defaultProvider,
	})
}

// Models handles GET /v1/providers/{provider}/models. Listing is advisory:
// failures produce an empty list, never an error status.
func (h *ProviderHandler) Models(w http.ResponseWriter, r *http.Request) {
	provider := models.ParseProvider(chi.URLParam(r, "provider"))
	list := h.analyzer.ListAvailableModels(r.Context(), provider, r.Header.Get(ProviderKeyHeader))

	WriteJSON(w, http.StatusOK, map[string]any{
		"provider": provider,
		"models":   list,
	})
}
