package repository

import (
	"context"

	"library-service/backend/internal/user/domain"
)

// Repository is the credential store. Getters return (nil, nil) when no account matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// GetByUsernameOrEmail matches either column exactly.
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.Account, error)
	// Create inserts a and sets its ID and timestamps. Returns domain.ErrUsernameTaken or domain.ErrEmailTaken on conflict.
	Create(ctx context.Context, a *domain.Account) error
	// UpdateLockout runs fn on the account's lockout state inside one read-modify-write cycle and
	// persists the result when fn reports a change. Returns domain.ErrNotFound for an unknown id.
	UpdateLockout(ctx context.Context, id int64, fn func(l *domain.Lockout) bool) (domain.Lockout, error)
}
