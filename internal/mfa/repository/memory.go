package repository

import (
	"context"
	"sync"
	"time"

	"library-service/backend/internal/mfa/domain"
)

// MemoryStore is a process-local Store for development and tests. Sessions are not shared across instances.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory OTP session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Save stores a copy of s until now+ttl.
func (s *MemoryStore) Save(ctx context.Context, sess *domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.RequestID] = entry{session: *sess, expiresAt: s.nowF().Add(ttl)}
	return nil
}

// Get returns a copy of the session, or nil if absent or expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, requestID string) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.m[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, requestID)
		s.mu.Unlock()
		return nil, nil
	}
	sess := e.session
	return &sess, nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, requestID)
	return nil
}
