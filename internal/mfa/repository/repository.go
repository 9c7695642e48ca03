package repository

import (
	"context"
	"time"

	"library-service/backend/internal/mfa/domain"
)

// Store holds OTP sessions until their TTL elapses. Get returns (nil, nil) for a missing or expired session.
type Store interface {
	Save(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, requestID string) (*domain.Session, error)
	Delete(ctx context.Context, requestID string) error
}

// DefaultSessionTTL is how long an emailed code stays valid.
const DefaultSessionTTL = 5 * time.Minute

// KeyPrefix namespaces OTP sessions in shared key-value stores.
const KeyPrefix = "mfa_otp:"

// Key returns the storage key for requestID.
func Key(requestID string) string { return KeyPrefix + requestID }
