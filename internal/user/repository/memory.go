package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"library-service/backend/internal/user/domain"
)

// MemoryRepository is a process-local Repository for local runs without Postgres and for tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Account
	nowF   func() time.Time
}

// NewMemoryRepository returns an empty in-memory account store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]*domain.Account), nowF: time.Now}
}

func (r *MemoryRepository) find(match func(a *domain.Account) bool) *domain.Account {
	for _, a := range r.byID {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

// GetByID returns the account for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(a *domain.Account) bool { return a.ID == id }), nil
}

// GetByUsername returns the account with username, or nil if not found.
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(a *domain.Account) bool { return a.Username == username }), nil
}

// GetByUsernameOrEmail prefers a username match over an email match. Emails match case-insensitively.
func (r *MemoryRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.find(func(a *domain.Account) bool { return a.Username == usernameOrEmail }); a != nil {
		return a, nil
	}
	return r.find(func(a *domain.Account) bool { return strings.EqualFold(a.Email, usernameOrEmail) }), nil
}

// Create stores a copy of a with a new id and an unlocked lockout state.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byID {
		if e.Username == a.Username {
			return domain.ErrUsernameTaken
		}
		if e.Email == a.Email {
			return domain.ErrEmailTaken
		}
	}
	a.ID = r.nextID
	r.nextID++
	a.CreatedAt = r.nowF().UTC()
	a.UpdatedAt = a.CreatedAt
	a.Lockout = domain.Unlocked()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

// UpdateLockout applies fn under the repository lock.
func (r *MemoryRepository) UpdateLockout(ctx context.Context, id int64, fn func(l *domain.Lockout) bool) (domain.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.Lockout{}, domain.ErrNotFound
	}
	l := a.Lockout
	if !fn(&l) {
		return l, nil
	}
	a.Lockout = l
	a.UpdatedAt = r.nowF().UTC()
	return l, nil
}
