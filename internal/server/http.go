// Package server wires handlers, middleware and audited operations into one http.Handler.
package server

import (
	"net/http"

	"go.uber.org/zap"

	"library-service/backend/internal/audit"
	auditdomain "library-service/backend/internal/audit/domain"
	audithandler "library-service/backend/internal/audit/handler"
	auditrepo "library-service/backend/internal/audit/repository"
	"library-service/backend/internal/devotp"
	devotphandler "library-service/backend/internal/devotp/handler"
	healthhandler "library-service/backend/internal/health/handler"
	identitydomain "library-service/backend/internal/identity/domain"
	identityhandler "library-service/backend/internal/identity/handler"
	identityservice "library-service/backend/internal/identity/service"
	"library-service/backend/internal/platform/rbac"
	"library-service/backend/internal/server/middleware"
	userdomain "library-service/backend/internal/user/domain"
)

// Audited operation names.
const (
	OpLogin    = "login"
	OpValidate = "validate"
	OpRegister = "register"
)

// AuditRegistrations is the list of audited operations and the tags their records carry.
func AuditRegistrations() []audit.Registration {
	return []audit.Registration{
		{Operation: OpLogin, Action: auditdomain.ActionUserLogin, EntityType: auditdomain.EntityAuth},
		{Operation: OpValidate, Action: auditdomain.ActionUserValidate, EntityType: auditdomain.EntityAuth},
		{Operation: OpRegister, Action: auditdomain.ActionUserRegister, EntityType: auditdomain.EntityUser},
	}
}

// Deps holds the dependencies of the HTTP API.
type Deps struct {
	// Auth backs /api/auth.
	Auth *identityservice.AuthService
	// Recorder and Registry audit the registered operations. A nil Recorder disables auditing.
	Recorder *audit.Recorder
	Registry *audit.Registry
	// AuditRepo backs GET /api/audit-logs. If nil, the route is not registered.
	AuditRepo auditrepo.Repository
	// Authorizer decides role permissions for guarded routes.
	Authorizer rbac.Authorizer
	// Tokens and Accounts resolve bearer tokens to principals.
	Tokens   middleware.TokenVerifier
	Accounts middleware.AccountLookup
	// Health dependencies; nil ones are skipped.
	HealthDB     healthhandler.Pinger
	HealthStore  healthhandler.StorePinger
	HealthPolicy healthhandler.PolicyChecker
	// DevOTP is the dev-only outbox. If nil, GET /dev/mfa/otp is not registered.
	DevOTP devotp.Store
	Log    *zap.Logger
}

// NewHandler returns the API handler with middleware applied.
//
// Routes:
//   - POST /api/auth/login, /api/auth/validate, /api/auth/register (audited)
//   - GET  /api/auth/me
//   - GET  /api/audit-logs (super_admin)
//   - GET  /healthz
//   - GET  /dev/mfa/otp (dev OTP mode only)
func NewHandler(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	if deps.Auth != nil {
		auth := identityhandler.NewHandler(identityhandler.Ops{
			Login: audited[identitydomain.LoginRequest, *identitydomain.LoginResponse](deps, OpLogin,
				audit.ResultID[identitydomain.LoginRequest, *identitydomain.LoginResponse](),
				deps.Auth.Login),
			Validate: audited[identitydomain.ValidateRequest, *identitydomain.ValidateResponse](deps, OpValidate,
				audit.ResultID[identitydomain.ValidateRequest, *identitydomain.ValidateResponse](),
				deps.Auth.Validate),
			Register: audited[identitydomain.RegisterRequest, *userdomain.UserSummary](deps, OpRegister,
				audit.ResultID[identitydomain.RegisterRequest, *userdomain.UserSummary](),
				deps.Auth.Register),
			Me: deps.Auth.Me,
		}, log)
		mux.HandleFunc("POST /api/auth/login", auth.Login)
		mux.HandleFunc("POST /api/auth/validate", auth.Validate)
		mux.HandleFunc("POST /api/auth/register", auth.Register)
		mux.HandleFunc("GET /api/auth/me", auth.Me)
	}

	if deps.AuditRepo != nil && deps.Authorizer != nil {
		mux.HandleFunc("GET /api/audit-logs", audithandler.NewHandler(deps.AuditRepo, deps.Authorizer, log).List)
	}

	mux.HandleFunc("GET /healthz", healthhandler.NewHandler(deps.HealthDB, deps.HealthStore, deps.HealthPolicy).Healthz)

	if deps.DevOTP != nil {
		mux.HandleFunc("GET /dev/mfa/otp", devotphandler.NewHandler(deps.DevOTP).GetOTP)
	}

	mws := []func(http.Handler) http.Handler{
		middleware.Telemetry(log),
		middleware.SecurityHeaders,
		middleware.RequestMetadata,
	}
	if deps.Tokens != nil && deps.Accounts != nil {
		mws = append(mws, middleware.Authenticate(deps.Tokens, deps.Accounts, log))
	}
	return middleware.Chain(mux, mws...)
}

// audited wraps op when it is registered and a recorder is configured.
func audited[Req, Resp any](deps Deps, operation string, ids audit.EntityIDs[Req, Resp], op audit.Operation[Req, Resp]) audit.Operation[Req, Resp] {
	if deps.Recorder == nil {
		return op
	}
	reg, ok := deps.Registry.Lookup(operation)
	if !ok {
		return op
	}
	return audit.Wrap(deps.Recorder, reg, ids, op)
}
