package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	identitydomain "library-service/backend/internal/identity/domain"
	userdomain "library-service/backend/internal/user/domain"
)

var (
	// ErrInvalidCredentials covers both unknown identities and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned when the password matched but the account is locked.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed login attempts")
)

// PasswordMatcher checks a plaintext password against a stored hash.
type PasswordMatcher interface {
	Matches(hash, password string) bool
}

// CredentialVerifier turns a username-or-email and password into a Principal.
type CredentialVerifier struct {
	accounts AccountRepo
	tracker  *AttemptTracker
	hasher   PasswordMatcher
	log      *zap.Logger
}

// NewCredentialVerifier returns a verifier. log may be nil.
func NewCredentialVerifier(accounts AccountRepo, tracker *AttemptTracker, hasher PasswordMatcher, log *zap.Logger) *CredentialVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialVerifier{accounts: accounts, tracker: tracker, hasher: hasher, log: log}
}

// Authenticate returns ErrInvalidCredentials or ErrAccountLocked on failure.
// A failed attempt is recorded best-effort; bookkeeping errors are logged, never returned.
func (v *CredentialVerifier) Authenticate(ctx context.Context, usernameOrEmail, password string) (*identitydomain.Principal, error) {
	usernameOrEmail = normalizeIdentity(usernameOrEmail)
	if usernameOrEmail == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	a, err := v.accounts.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	if a == nil || !v.hasher.Matches(a.PasswordHash, password) {
		if err := v.tracker.RecordFailure(ctx, usernameOrEmail); err != nil {
			if errors.Is(err, userdomain.ErrNotFound) {
				v.log.Debug("failed login for unknown identity")
			} else {
				v.log.Warn("record failed login", zap.Error(err))
			}
		}
		return nil, ErrInvalidCredentials
	}

	locked, err := v.tracker.IsLocked(ctx, a.Username)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrAccountLocked
	}
	if err := v.tracker.RecordSuccess(ctx, a.Username); err != nil {
		return nil, err
	}
	return &identitydomain.Principal{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
	}, nil
}

// normalizeIdentity trims the identifier and lowercases it when it is an email; emails are stored
// lowercased and usernames cannot contain '@'.
func normalizeIdentity(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return strings.ToLower(s)
	}
	return s
}
