// Package domain holds the request and response shapes of the auth endpoints.
package domain

import userdomain "library-service/backend/internal/user/domain"

// Principal is an authenticated account.
type Principal struct {
	AccountID int64
	Username  string
	Email     string
	Role      userdomain.Role
}

// LoginRequest is the first step of the two-step login.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// LoginResponse carries the account id and the OTP request id the client must validate.
type LoginResponse struct {
	ID        int64  `json:"id"`
	RequestID string `json:"requestId"`
}

// AuditEntityID identifies the account that passed the password step.
func (r LoginResponse) AuditEntityID() (int64, bool) { return r.ID, r.ID != 0 }

// ValidateRequest submits the emailed code for a pending login.
type ValidateRequest struct {
	RequestID string `json:"requestId"`
	OTP       int    `json:"otp"`
}

// ValidateResponse carries the bearer token issued after a successful second step.
type ValidateResponse struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

// AuditEntityID identifies the account the token was issued for.
func (r ValidateResponse) AuditEntityID() (int64, bool) { return r.ID, r.ID != 0 }

// RegisterRequest creates a viewer account.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
