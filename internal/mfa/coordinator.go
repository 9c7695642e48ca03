// Package mfa runs the second login step: a 6-digit code emailed to the account and checked by request id.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"library-service/backend/internal/mfa/domain"
	"library-service/backend/internal/mfa/email"
	"library-service/backend/internal/mfa/repository"
	userdomain "library-service/backend/internal/user/domain"
)

var (
	// ErrUnknownAccount is returned by IssueChallenge when the username does not resolve.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrChallengeNotFound is returned when the request id is unknown or its session expired.
	ErrChallengeNotFound = errors.New("challenge not found")
)

const (
	otpSubject  = "Library Service OTP"
	sendTimeout = 5 * time.Second
)

// AccountLookup resolves usernames to accounts.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.Account, error)
}

// DevOutbox receives plaintext codes when dev OTP mode is on.
type DevOutbox interface {
	Put(ctx context.Context, requestID, otp string, expiresAt time.Time)
}

// Options configures a Coordinator.
type Options struct {
	// TTL is the session lifetime; zero means repository.DefaultSessionTTL.
	TTL time.Duration
	// SingleUse deletes a session after its first successful validation.
	SingleUse bool
	// Outbox, when set, receives every issued code (dev mode only).
	Outbox DevOutbox
	Log    *zap.Logger
}

// Coordinator issues and validates OTP sessions.
type Coordinator struct {
	accounts  AccountLookup
	store     repository.Store
	sender    email.Sender
	ttl       time.Duration
	singleUse bool
	outbox    DevOutbox
	log       *zap.Logger

	nowF     func() time.Time
	newID    func() string
	genCode  func() (int, error)
	dispatch func(func())
}

// NewCoordinator returns a Coordinator that stores sessions in store and mails codes through sender.
func NewCoordinator(accounts AccountLookup, store repository.Store, sender email.Sender, opts Options) *Coordinator {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = repository.DefaultSessionTTL
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		accounts:  accounts,
		store:     store,
		sender:    sender,
		ttl:       ttl,
		singleUse: opts.SingleUse,
		outbox:    opts.Outbox,
		log:       log,
		nowF:      time.Now,
		newID:     func() string { return uuid.New().String() },
		genCode:   GenerateCode,
		dispatch:  func(f func()) { go f() },
	}
}

// IssueChallenge creates a session for username, emails the code, and returns the request id.
// Delivery is asynchronous; a send failure is logged and does not fail the call.
func (c *Coordinator) IssueChallenge(ctx context.Context, username string) (string, error) {
	a, err := c.accounts.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", ErrUnknownAccount
	}
	code, err := c.genCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	now := c.nowF().UTC()
	s := &domain.Session{
		RequestID: c.newID(),
		Username:  a.Username,
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(c.ttl),
		CreatedAt: now,
	}
	if err := c.store.Save(ctx, s, c.ttl); err != nil {
		return "", err
	}
	if c.outbox != nil {
		c.outbox.Put(ctx, s.RequestID, strconv.Itoa(code), s.ExpiresAt)
	}

	msg := email.Message{To: a.Email, Subject: otpSubject, Body: "OTP: " + strconv.Itoa(code)}
	requestID := s.RequestID
	c.dispatch(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := c.sender.Send(sendCtx, msg); err != nil {
			c.log.Warn("send otp email", zap.String("request_id", requestID), zap.Error(err))
		}
	})
	return requestID, nil
}

// ValidateChallenge reports whether code matches the session for requestID.
// Returns ErrChallengeNotFound when the session is absent or expired.
func (c *Coordinator) ValidateChallenge(ctx context.Context, requestID string, code int) (bool, error) {
	s, err := c.load(ctx, requestID)
	if err != nil {
		return false, err
	}
	if !CodeEqual(code, s.CodeHash) {
		return false, nil
	}
	if c.singleUse {
		if err := c.store.Delete(ctx, requestID); err != nil {
			c.log.Warn("delete used otp session", zap.String("request_id", requestID), zap.Error(err))
		}
	}
	return true, nil
}

// ResolveUsername returns the username the session for requestID was issued to.
// With single-use sessions, resolve before validating.
func (c *Coordinator) ResolveUsername(ctx context.Context, requestID string) (string, error) {
	s, err := c.load(ctx, requestID)
	if err != nil {
		return "", err
	}
	return s.Username, nil
}

func (c *Coordinator) load(ctx context.Context, requestID string) (*domain.Session, error) {
	if requestID == "" {
		return nil, ErrChallengeNotFound
	}
	s, err := c.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Expired(c.nowF()) {
		return nil, ErrChallengeNotFound
	}
	return s, nil
}
