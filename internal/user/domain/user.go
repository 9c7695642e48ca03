package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no account matches the given identity.
	ErrNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned by Create when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already taken")
)

// Account is a registered user of the CMS.
type Account struct {
	ID           int64
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Lockout      Lockout
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the closed set of CMS roles.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = RoleViewer

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleEditor, RoleContributor, RoleViewer:
		return true
	}
	return false
}

// ParseRole maps a case-insensitive role name (optionally ROLE_ prefixed) to a Role.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "role_")
	r := Role(s)
	return r, r.Valid()
}

// Validate checks the account for persistence and applies the default role.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(a.Email) == "" {
		return errors.New("email is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if a.Role == "" {
		a.Role = DefaultRole
	}
	if !a.Role.Valid() {
		return errors.New("unknown role")
	}
	return nil
}

// Summary returns the public projection of the account.
func (a *Account) Summary() UserSummary {
	return UserSummary{
		ID:       a.ID,
		FullName: a.FullName,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

// UserSummary is what the API returns about an account. It never carries the password hash.
type UserSummary struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// AuditEntityID identifies the account in audit records.
func (s UserSummary) AuditEntityID() (int64, bool) {
	return s.ID, s.ID != 0
}
