package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"library-service/backend/internal/mfa"
	"library-service/backend/internal/security"
	userdomain "library-service/backend/internal/user/domain"
)

type memAccountRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*userdomain.Account
	getErr error
	// ctxAware makes every call fail with ctx.Err() once ctx is done, like database/sql.
	ctxAware bool
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{nextID: 1, byID: map[int64]*userdomain.Account{}}
}

func (r *memAccountRepo) find(match func(a *userdomain.Account) bool) *userdomain.Account {
	for _, a := range r.byID {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

func (r *memAccountRepo) GetByUsername(ctx context.Context, username string) (*userdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ctxErr(ctx); err != nil {
		return nil, err
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.find(func(a *userdomain.Account) bool { return a.Username == username }), nil
}

func (r *memAccountRepo) GetByUsernameOrEmail(ctx context.Context, s string) (*userdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ctxErr(ctx); err != nil {
		return nil, err
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	if a := r.find(func(a *userdomain.Account) bool { return a.Username == s }); a != nil {
		return a, nil
	}
	return r.find(func(a *userdomain.Account) bool { return a.Email == s }), nil
}

func (r *memAccountRepo) Create(ctx context.Context, a *userdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byID {
		if e.Username == a.Username {
			return userdomain.ErrUsernameTaken
		}
		if e.Email == a.Email {
			return userdomain.ErrEmailTaken
		}
	}
	a.ID = r.nextID
	r.nextID++
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccountRepo) UpdateLockout(ctx context.Context, id int64, fn func(l *userdomain.Lockout) bool) (userdomain.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ctxErr(ctx); err != nil {
		return userdomain.Lockout{}, err
	}
	a, ok := r.byID[id]
	if !ok {
		return userdomain.Lockout{}, userdomain.ErrNotFound
	}
	l := a.Lockout
	if fn(&l) {
		a.Lockout = l
	}
	return l, nil
}

func (r *memAccountRepo) ctxErr(ctx context.Context) error {
	if r.ctxAware {
		return ctx.Err()
	}
	return nil
}

func (r *memAccountRepo) lockout(username string) userdomain.Lockout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(a *userdomain.Account) bool { return a.Username == username }).Lockout
}

// seed adds an account with a bcrypt hash of password.
func (r *memAccountRepo) seed(username, email, password string, role userdomain.Role) *userdomain.Account {
	hash, err := security.NewHasher(4).Hash(password)
	if err != nil {
		panic(err)
	}
	a := &userdomain.Account{
		FullName:     username,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Lockout:      userdomain.Unlocked(),
	}
	if err := r.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

type fakeMFA struct {
	mu       sync.Mutex
	sessions map[string]fakeChallenge
	issueErr error
	storeErr error
	next     int
}

type fakeChallenge struct {
	username string
	code     int
}

func newFakeMFA() *fakeMFA {
	return &fakeMFA{sessions: map[string]fakeChallenge{}}
}

func (f *fakeMFA) IssueChallenge(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return "", f.issueErr
	}
	f.next++
	id := fmt.Sprintf("req-%d", f.next)
	f.sessions[id] = fakeChallenge{username: username, code: 123456}
	return id, nil
}

func (f *fakeMFA) ValidateChallenge(ctx context.Context, requestID string, code int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return false, f.storeErr
	}
	c, ok := f.sessions[requestID]
	if !ok {
		return false, mfa.ErrChallengeNotFound
	}
	return c.code == code, nil
}

func (f *fakeMFA) ResolveUsername(ctx context.Context, requestID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	c, ok := f.sessions[requestID]
	if !ok {
		return "", mfa.ErrChallengeNotFound
	}
	return c.username, nil
}

type fakeTokens struct {
	issued []string
	err    error
}

func (f *fakeTokens) Issue(subject string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	f.issued = append(f.issued, subject)
	return "token-for-" + subject, time.Now().Add(time.Hour), nil
}

var errBoom = errors.New("boom")

// cancellingMatcher cancels the request context while the password is being checked, as a client
// hanging up mid-login would.
type cancellingMatcher struct {
	PasswordMatcher
	cancel context.CancelFunc
}

func (m cancellingMatcher) Matches(hash, password string) bool {
	m.cancel()
	return m.PasswordMatcher.Matches(hash, password)
}

type fixture struct {
	repo     *memAccountRepo
	tracker  *AttemptTracker
	verifier *CredentialVerifier
	mfa      *fakeMFA
	tokens   *fakeTokens
	svc      *AuthService
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:   newMemAccountRepo(),
		mfa:    newFakeMFA(),
		tokens: &fakeTokens{},
		now:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.tracker = NewAttemptTracker(f.repo, userdomain.DefaultLockoutPolicy)
	f.tracker.nowF = func() time.Time { return f.now }
	hasher := security.NewHasher(4)
	f.verifier = NewCredentialVerifier(f.repo, f.tracker, hasher, nil)
	f.svc = NewAuthService(f.repo, f.verifier, f.mfa, f.tokens, hasher, nil)
	return f
}
