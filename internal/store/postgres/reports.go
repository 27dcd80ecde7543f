package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/internal/store"
)

// ReportStore implements store.ReportStore using PostgreSQL.
type ReportStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Create inserts a new report.
func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	levelCounts, err := json.Marshal(report.LevelCounts)
	if err != nil {
		return fmt.Errorf("marshaling level counts: %w", err)
	}
	result, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (id, created_at, query, provider, model, entry_count, level_counts, result, error_types)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.CreatedAt,
		report.Query,
		string(report.Provider),
		report.Model,
		report.EntryCount,
		string(levelCounts),
		string(result),
		pq.Array(report.Result.ErrorTypes()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("inserting report: %w", err)
	}

	s.logger.Debug("report saved", "report_id", report.ID, "provider", report.Provider)
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	query := `
		SELECT id, created_at, query, provider, model, entry_count, level_counts, result
		FROM analysis_reports
		WHERE id = $1`

	report, err := scanReport(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying report: %w", err)
	}
	return report, nil
}

// List retrieves reports newest first, optionally filtered by detected error type.
func (s *ReportStore) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	query := `
		SELECT id, created_at, query, provider, model, entry_count, level_counts, result
		FROM analysis_reports
		WHERE $1::text = '' OR $1::text = ANY(error_types)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, filter.ErrorType, store.Limit(filter))
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return reports, nil
}

// Delete removes a report by ID.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_reports WHERE id = $1`, id)
	if isInvalidUUID(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		report      models.Report
		provider    string
		levelCounts []byte
		result      []byte
	)

	err := row.Scan(
		&report.ID,
		&report.CreatedAt,
		&report.Query,
		&provider,
		&report.Model,
		&report.EntryCount,
		&levelCounts,
		&result,
	)
	if err != nil {
		return nil, err
	}

	report.Provider = models.Provider(provider)
	report.CreatedAt = report.CreatedAt.UTC()
	if err := json.Unmarshal(levelCounts, &report.LevelCounts); err != nil {
		return nil, fmt.Errorf("unmarshaling level counts: %w", err)
	}
	if err := json.Unmarshal(result, &report.Result); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	return &report, nil
}
