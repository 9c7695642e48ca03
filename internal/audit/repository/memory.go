package repository

import (
	"context"
	"slices"
	"strings"
	"sync"

	"library-service/backend/internal/audit/domain"
)

// MemoryRepository keeps audit records in process memory for local runs without Postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	records []domain.Record
}

// NewMemoryRepository returns an empty in-memory audit log.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends a copy of rec.
func (r *MemoryRepository) Create(ctx context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

// List returns copies ordered like the Postgres query: timestamp, then id, both descending.
func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]*domain.Record, error) {
	r.mu.Lock()
	sorted := slices.Clone(r.records)
	r.mu.Unlock()

	slices.SortStableFunc(sorted, func(a, b domain.Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if offset < 0 || offset >= len(sorted) {
		return []*domain.Record{}, nil
	}
	sorted = sorted[offset:]
	if limit >= 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	out := make([]*domain.Record, len(sorted))
	for i := range sorted {
		out[i] = &sorted[i]
	}
	return out, nil
}
