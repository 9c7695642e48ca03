package domain

import "time"

// Session is a pending second login step, keyed by an unguessable request id.
// Only the hash of the emailed code is kept.
type Session struct {
	RequestID string    `json:"requestId"`
	Username  string    `json:"username"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
