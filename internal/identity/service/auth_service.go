package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	identitydomain "library-service/backend/internal/identity/domain"
	"library-service/backend/internal/mfa"
	"library-service/backend/internal/server/middleware"
	userdomain "library-service/backend/internal/user/domain"
)

// Sentinel errors for the auth flows; the HTTP handler maps them to status codes.
var (
	// ErrInvalidOTP is the single outcome for every failed second step.
	ErrInvalidOTP = errors.New("invalid requestId or otp")
	// ErrValidation wraps register input errors.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned by Me when the request carries no principal.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// MFACoordinator issues and checks emailed one-time codes.
type MFACoordinator interface {
	IssueChallenge(ctx context.Context, username string) (string, error)
	ValidateChallenge(ctx context.Context, requestID string, code int) (bool, error)
	ResolveUsername(ctx context.Context, requestID string) (string, error)
}

// TokenIssuer signs bearer tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// PasswordHasher produces storable password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// AuthService implements the two-step login, account registration, and identity lookup.
type AuthService struct {
	accounts AccountRepo
	verifier *CredentialVerifier
	mfa      MFACoordinator
	tokens   TokenIssuer
	hasher   PasswordHasher
	log      *zap.Logger
}

// NewAuthService returns an AuthService with the given dependencies. log may be nil.
func NewAuthService(
	accounts AccountRepo,
	verifier *CredentialVerifier,
	mfa MFACoordinator,
	tokens TokenIssuer,
	hasher PasswordHasher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts: accounts,
		verifier: verifier,
		mfa:      mfa,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
	}
}

// Login checks the password and, on success, emails a one-time code and returns its request id.
func (s *AuthService) Login(ctx context.Context, req identitydomain.LoginRequest) (*identitydomain.LoginResponse, error) {
	p, err := s.verifier.Authenticate(ctx, req.UsernameOrEmail, req.Password)
	if err != nil {
		return nil, err
	}
	requestID, err := s.mfa.IssueChallenge(ctx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}
	return &identitydomain.LoginResponse{ID: p.AccountID, RequestID: requestID}, nil
}

// Validate completes the login by checking the code and issuing a bearer token.
// Every code failure, including unknown or expired request ids, returns ErrInvalidOTP.
func (s *AuthService) Validate(ctx context.Context, req identitydomain.ValidateRequest) (*identitydomain.ValidateResponse, error) {
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		return nil, ErrInvalidOTP
	}
	// Resolve first: a single-use session is gone once validated.
	username, err := s.mfa.ResolveUsername(ctx, requestID)
	if err != nil {
		return nil, otpFailure(err)
	}
	ok, err := s.mfa.ValidateChallenge(ctx, requestID, req.OTP)
	if err != nil {
		return nil, otpFailure(err)
	}
	if !ok {
		return nil, ErrInvalidOTP
	}
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrInvalidOTP
	}
	token, _, err := s.tokens.Issue(a.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &identitydomain.ValidateResponse{ID: a.ID, Token: token}, nil
}

// Register creates a viewer account. Returns ErrValidation-wrapped errors for bad input and
// userdomain.ErrUsernameTaken or userdomain.ErrEmailTaken on conflict.
func (s *AuthService) Register(ctx context.Context, req identitydomain.RegisterRequest) (*userdomain.UserSummary, error) {
	fullName := strings.TrimSpace(req.FullName)
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" {
		return nil, fmt.Errorf("%w: fullName is required", ErrValidation)
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	for _, identity := range []string{username, email} {
		existing, err := s.accounts.GetByUsernameOrEmail(ctx, identity)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			continue
		}
		if existing.Username == username {
			return nil, userdomain.ErrUsernameTaken
		}
		return nil, userdomain.ErrEmailTaken
	}
	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	a := &userdomain.Account{
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         userdomain.DefaultRole,
		Lockout:      userdomain.Unlocked(),
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("account registered", zap.Int64("account_id", a.ID), zap.String("role", string(a.Role)))
	summary := a.Summary()
	return &summary, nil
}

// otpFailure hides why a challenge lookup failed; store outages still surface as errors.
func otpFailure(err error) error {
	if errors.Is(err, mfa.ErrChallengeNotFound) {
		return ErrInvalidOTP
	}
	return fmt.Errorf("otp store: %w", err)
}

// Me returns the username of the authenticated caller.
func (s *AuthService) Me(ctx context.Context) (string, error) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return p.Username, nil
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-50 letters, digits, dots, dashes or underscores", ErrValidation)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", ErrValidation)
	}
	if !hasNumber {
		return fmt.Errorf("%w: password must contain at least one number", ErrValidation)
	}
	return nil
}
