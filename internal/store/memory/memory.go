// Package memory provides an in-process implementation of the store interfaces.
// Reports are lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/internal/store"
)

// Store implements store.Store in memory.
type Store struct {
	reports *ReportStore
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		reports: &ReportStore{
			byID: make(map[string]*models.Report),
			now:  time.Now,
		},
	}
}

var _ store.Store = (*Store)(nil)

// Reports returns the ReportStore.
func (s *Store) Reports() store.ReportStore {
	return s.reports
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// ReportStore implements store.ReportStore in memory.
type ReportStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Report
	now  func() time.Time
}

// Create saves a copy of report.
func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[report.ID]; exists {
		return store.ErrDuplicateID
	}
	s.byID[report.ID] = cloneReport(report)
	return nil
}

// Get retrieves a copy of the report with id.
func (s *ReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneReport(r), nil
}

// List returns matching reports newest first.
func (s *ReportStore) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	s.mu.RLock()
	matched := make([]*models.Report, 0, len(s.byID))
	for _, r := range s.byID {
		if filter.ErrorType != "" && !hasErrorType(r, filter.ErrorType) {
			continue
		}
		matched = append(matched, cloneReport(r))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit := store.Limit(filter); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Delete removes the report with id.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func hasErrorType(r *models.Report, errorType string) bool {
	for _, t := range r.Result.ErrorTypes() {
		if t == errorType {
			return true
		}
	}
	return false
}

func cloneReport(r *models.Report) *models.Report {
	c := *r
	if r.LevelCounts != nil {
		c.LevelCounts = make(map[models.Level]int, len(r.LevelCounts))
		for k, v := range r.LevelCounts {
			c.LevelCounts[k] = v
		}
	}
	if r.Result.DetectedErrors != nil {
		c.Result.DetectedErrors = append([]models.DetectedError{}, r.Result.DetectedErrors...)
	}
	if r.Result.Recommendations != nil {
		c.Result.Recommendations = append([]models.Recommendation{}, r.Result.Recommendations...)
	}
	return &c
}
