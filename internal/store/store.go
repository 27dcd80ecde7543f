// Package store provides persistence interfaces for analysis reports.
package store

import (
	"context"
	"errors"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested report does not exist.
	ErrNotFound = errors.New("report not found")

	// ErrDuplicateID is returned when a report with the same ID already exists.
	ErrDuplicateID = errors.New("duplicate report id")
)

// DefaultListLimit is applied when a filter names no limit.
const DefaultListLimit = 50

// ReportStore defines operations for analysis report history.
type ReportStore interface {
	// Create saves a report. An empty ID is replaced with a new UUID and a
	// zero CreatedAt with the current time.
	Create(ctx context.Context, report *models.Report) error
	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (*models.Report, error)
	// List retrieves reports newest first.
	List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)
	// Delete removes a report by ID.
	Delete(ctx context.Context, id string) error
}

// Store is the main interface for persistence.
type Store interface {
	// Reports returns the ReportStore.
	Reports() ReportStore
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Limit returns the effective listing limit for f.
func Limit(f models.ReportFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
