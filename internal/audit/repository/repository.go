package repository

import (
	"context"

	"library-service/backend/internal/audit/domain"
)

// Repository persists audit records. Records are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, r *domain.Record) error
	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.Record, error)
}
