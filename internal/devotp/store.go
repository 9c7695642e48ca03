// Package devotp keeps plaintext one-time codes by request id for the dev-only GET /dev/mfa/otp endpoint.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plaintext codes for dev retrieval. Never wired in production.
type Store interface {
	// Put keeps otp for requestID until expiresAt.
	Put(ctx context.Context, requestID, otp string, expiresAt time.Time)
	// Get returns the otp for requestID; ok is false when missing or expired.
	Get(ctx context.Context, requestID string) (otp string, ok bool)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]entry), nowF: time.Now}
}

// Put keeps otp for requestID until expiresAt and drops any entries that already expired.
func (s *MemoryStore) Put(ctx context.Context, requestID, otp string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	for id, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, id)
		}
	}
	s.m[requestID] = entry{otp: otp, expiresAt: expiresAt}
}

// Get returns the otp for requestID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, requestID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[requestID]
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		delete(s.m, requestID)
		return "", false
	}
	return e.otp, true
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
