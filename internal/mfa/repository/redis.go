package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"library-service/backend/internal/mfa/domain"
)

// RedisStore keeps OTP sessions as JSON values with a key TTL, so every instance sees them until expiry.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore returns a store using client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Save writes s under mfa_otp:<requestId> with the given ttl.
func (r *RedisStore) Save(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key(s.RequestID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save otp session: %w", err)
	}
	return nil
}

// Get returns the session for requestID, or nil if absent or expired.
func (r *RedisStore) Get(ctx context.Context, requestID string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, Key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get otp session: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode otp session: %w", err)
	}
	return &s, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *RedisStore) Delete(ctx context.Context, requestID string) error {
	return r.client.Del(ctx, Key(requestID)).Err()
}

// Ping checks connectivity for health reporting.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
