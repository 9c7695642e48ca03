// Package domain holds the audit record written for every audited operation.
package domain

import "time"

// Anonymous is recorded as the actor when the request carries no authenticated principal.
const Anonymous = "ANONYMOUS"

// Actions.
const (
	ActionUserLogin    = "USER_LOGIN"
	ActionUserValidate = "USER_VALIDATE"
	ActionUserRegister = "USER_REGISTER"
)

// Entity types.
const (
	EntityAuth = "AUTH"
	EntityUser = "USER"
)

// Record is one append-only audit entry. ErrorMessage is set iff Success is false.
type Record struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	EntityType   string    `json:"entityType"`
	EntityID     *int64    `json:"entityId,omitempty"`
	Username     string    `json:"username"`
	UserAgent    string    `json:"userAgent"`
	IPAddress    string    `json:"ipAddress"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
}
