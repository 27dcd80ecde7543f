package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/internal/store"
)

// maxReportLimit caps the page size of report listings.
const maxReportLimit = 500

// ReportHandler serves the analysis history.
type ReportHandler struct {
	reports store.ReportStore
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports store.ReportStore, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// List handles GET /v1/reports?error_type=&limit=.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.ReportFilter{
		ErrorType: r.URL.Query().Get("error_type"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxReportLimit {
			WriteBadRequest(w, r, "limit must be between 1 and "+strconv.Itoa(maxReportLimit))
			return
		}
		filter.Limit = limit
	}

	reports, err := h.reports.List(r.Context(), filter)
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// Get handles GET /v1/reports/{reportID}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /v1/reports/{reportID}.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), chi.URLParam(r, "reportID")); err != nil {
		WriteDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
