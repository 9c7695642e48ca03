package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	userdomain "library-service/backend/internal/user/domain"
)

// AccountRepo is the minimal credential store needed by the identity service.
type AccountRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.Account, error)
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*userdomain.Account, error)
	Create(ctx context.Context, a *userdomain.Account) error
	UpdateLockout(ctx context.Context, id int64, fn func(l *userdomain.Lockout) bool) (userdomain.Lockout, error)
}

// storeTimeout bounds each bookkeeping call once it is detached from the request.
const storeTimeout = 5 * time.Second

// AttemptTracker applies the lockout policy to accounts in the credential store.
type AttemptTracker struct {
	accounts AccountRepo
	policy   userdomain.LockoutPolicy
	nowF     func() time.Time

	failures metric.Int64Counter
	lockouts metric.Int64Counter
}

// NewAttemptTracker returns a tracker using policy. Counters are registered on the global meter provider.
func NewAttemptTracker(accounts AccountRepo, policy userdomain.LockoutPolicy) *AttemptTracker {
	meter := otel.Meter("library-service/identity")
	failures, _ := meter.Int64Counter("auth.login.failures",
		metric.WithDescription("Failed password checks against known accounts."))
	lockouts, _ := meter.Int64Counter("auth.account.lockouts",
		metric.WithDescription("Accounts locked after too many failed logins."))
	return &AttemptTracker{
		accounts: accounts,
		policy:   policy,
		nowF:     time.Now,
		failures: failures,
		lockouts: lockouts,
	}
}

// Policy returns the lockout policy in force.
func (t *AttemptTracker) Policy() userdomain.LockoutPolicy { return t.policy }

// detach drops the caller's cancellation so an abandoned request still settles its lockout state.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}

// RecordFailure counts one failed login for the account matching usernameOrEmail.
// Returns userdomain.ErrNotFound when no account matches.
func (t *AttemptTracker) RecordFailure(ctx context.Context, usernameOrEmail string) error {
	ctx, cancel := detach(ctx)
	defer cancel()
	a, err := t.accounts.GetByUsernameOrEmail(ctx, normalizeIdentity(usernameOrEmail))
	if err != nil {
		return err
	}
	if a == nil {
		return userdomain.ErrNotFound
	}
	now := t.nowF()
	var counted, locked bool
	_, err = t.accounts.UpdateLockout(ctx, a.ID, func(l *userdomain.Lockout) bool {
		if !l.NonLocked {
			return false
		}
		counted = true
		locked = l.RecordFailure(now, t.policy)
		return true
	})
	if err != nil {
		return err
	}
	if counted && t.failures != nil {
		t.failures.Add(ctx, 1)
	}
	if locked && t.lockouts != nil {
		t.lockouts.Add(ctx, 1)
	}
	return nil
}

// RecordSuccess clears the account's failure bookkeeping and any lock.
func (t *AttemptTracker) RecordSuccess(ctx context.Context, username string) error {
	ctx, cancel := detach(ctx)
	defer cancel()
	a, err := t.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if a == nil {
		return userdomain.ErrNotFound
	}
	_, err = t.accounts.UpdateLockout(ctx, a.ID, func(l *userdomain.Lockout) bool {
		l.Reset()
		return true
	})
	return err
}

// IsLocked reports whether username is currently locked. It never mutates the stored state.
func (t *AttemptTracker) IsLocked(ctx context.Context, username string) (bool, error) {
	ctx, cancel := detach(ctx)
	defer cancel()
	a, err := t.accounts.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, userdomain.ErrNotFound
	}
	return a.Lockout.IsLocked(t.nowF(), t.policy.LockDuration), nil
}
