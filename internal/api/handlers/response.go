package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Amazomic/loki-analyzer/internal/analysis"
	apierrors "github.com/Amazomic/loki-analyzer/internal/api/errors"
	"github.com/Amazomic/loki-analyzer/internal/loki"
	"github.com/Amazomic/loki-analyzer/internal/store"
)

// maxBodyBytes bounds request bodies; analyze requests may carry entries.
const maxBodyBytes = 8 << 20

var validate = validator.New()

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError writes err with the request ID of r.
func WriteError(w http.ResponseWriter, r *http.Request, err *apierrors.APIError) {
	apierrors.WriteErrorWithRequestID(w, err, middleware.GetReqID(r.Context()))
}

// WriteBadRequest writes a 400 VALIDATION_ERROR response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewValidationError(message))
}

// WriteNotFound writes a 404 NOT_FOUND response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewNotFoundError(message))
}

// WriteInternalError writes a 500 INTERNAL_ERROR response.
func WriteInternalError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewInternalError(message))
}

// WriteDomainError maps errors from the fetcher, the analyzer and the store to
// API errors and logs them.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		fetchErr    *loki.FetchError
		analysisErr *analysis.AnalysisError
	)

	switch {
	case errors.As(err, &fetchErr):
		logger.Warn("log fetch failed", "error", err, "status_code", fetchErr.StatusCode)
		apiErr := apierrors.NewFetchError(fetchErr.Error())
		if fetchErr.StatusCode != 0 {
			apiErr = apiErr.WithDetails(map[string]any{"status_code": fetchErr.StatusCode})
		}
		WriteError(w, r, apiErr)

	case errors.As(err, &analysisErr):
		details := map[string]any{"kind": string(analysisErr.Kind)}
		if analysisErr.Provider != "" {
			details["provider"] = string(analysisErr.Provider)
		}
		if analysisErr.Kind == analysis.KindConfig {
			WriteError(w, r, apierrors.NewValidationError(analysisErr.Error()).WithDetails(details))
			return
		}
		logger.Warn("analysis failed", "error", err, "provider", analysisErr.Provider, "kind", analysisErr.Kind)
		WriteError(w, r, apierrors.NewAnalysisError(analysisErr.Error()).WithDetails(details))

	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, r, "Report not found")

	default:
		logger.Error("request failed", "error", err)
		WriteInternalError(w, r, "An unexpected error occurred")
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) *apierrors.APIError {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierrors.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}

// validationError converts validator failures into field-level API errors.
func validationError(err error) *apierrors.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.NewValidationError(err.Error())
	}

	var fields apierrors.ValidationErrors
	for _, fe := range verrs {
		field := jsonFieldName(fe)
		fields.Add(field, fieldMessage(field, fe))
	}
	return fields.ToAPIError()
}

func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be an absolute URL"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
