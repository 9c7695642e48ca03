package domain

import "time"

// LockoutPolicy bounds failed logins: MaxAttempts failures whose window started no more than
// Window ago lock the account for LockDuration.
type LockoutPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultLockoutPolicy is 5 failures in 10 minutes, locked for 30 minutes.
var DefaultLockoutPolicy = LockoutPolicy{
	MaxAttempts:  5,
	Window:       10 * time.Minute,
	LockDuration: 30 * time.Minute,
}

// Lockout is the brute-force bookkeeping carried on every account.
// LockedAt is set iff NonLocked is false.
type Lockout struct {
	NonLocked      bool
	FailedAttempts int
	FirstFailureAt *time.Time
	LockedAt       *time.Time
}

// Unlocked returns the state of a fresh account.
func Unlocked() Lockout {
	return Lockout{NonLocked: true}
}

// RecordFailure registers one failed login at now and reports whether it locked the account.
// Failures while locked are ignored so the lock time is not extended.
func (l *Lockout) RecordFailure(now time.Time, p LockoutPolicy) bool {
	if !l.NonLocked {
		return false
	}
	switch {
	case l.FirstFailureAt == nil, now.Sub(*l.FirstFailureAt) > p.Window:
		t := now
		l.FirstFailureAt = &t
		l.FailedAttempts = 1
	default:
		l.FailedAttempts++
	}
	if l.FailedAttempts >= p.MaxAttempts {
		t := now
		l.NonLocked = false
		l.LockedAt = &t
		return true
	}
	return false
}

// IsLocked reports whether the account is locked at now. A lock older than lockDuration reads as
// unlocked without being cleared; the stored state is only reset by the next successful login.
func (l Lockout) IsLocked(now time.Time, lockDuration time.Duration) bool {
	if l.NonLocked {
		return false
	}
	if l.LockedAt == nil || now.Sub(*l.LockedAt) > lockDuration {
		return false
	}
	return true
}

// Reset clears all failure bookkeeping.
func (l *Lockout) Reset() {
	l.NonLocked = true
	l.FailedAttempts = 0
	l.FirstFailureAt = nil
	l.LockedAt = nil
}
