// server runs the library-service HTTP API.
package main

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"library-service/backend/internal/audit"
	"library-service/backend/internal/audit/publisher"
	auditrepo "library-service/backend/internal/audit/repository"
	"library-service/backend/internal/config"
	"library-service/backend/internal/db"
	"library-service/backend/internal/devotp"
	healthhandler "library-service/backend/internal/health/handler"
	identityservice "library-service/backend/internal/identity/service"
	"library-service/backend/internal/logger"
	"library-service/backend/internal/mfa"
	"library-service/backend/internal/mfa/email"
	mfarepo "library-service/backend/internal/mfa/repository"
	"library-service/backend/internal/policy/engine"
	"library-service/backend/internal/security"
	"library-service/backend/internal/server"
	"library-service/backend/internal/telemetry/otel"
	userdomain "library-service/backend/internal/user/domain"
	userrepo "library-service/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.Init(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, otel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	var (
		conn      *sqlx.DB
		accounts  identityservice.AccountRepo
		auditRepo auditrepo.Repository
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer conn.Close()
		accounts = userrepo.NewPostgresRepository(conn)
		auditRepo = auditrepo.NewPostgresRepository(conn)
	} else {
		if cfg.IsProduction() {
			return errors.New("DATABASE_URL is required when APP_ENV=production")
		}
		log.Warn("DATABASE_URL not set; accounts and audit logs are kept in process memory")
		accounts = userrepo.NewMemoryRepository()
		auditRepo = auditrepo.NewMemoryRepository()
	}

	var (
		otpStore    mfarepo.Store
		healthStore healthhandler.StorePinger
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		rs := mfarepo.NewRedisStore(client)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		otpStore, healthStore = rs, rs
	} else {
		log.Warn("REDIS_URL not set; OTP sessions are kept in process memory")
		otpStore = mfarepo.NewMemoryStore()
	}

	tokens, err := tokenProvider(cfg, log)
	if err != nil {
		return err
	}

	authz, err := engine.NewAuthorizerFromFile(ctx, cfg.AuthzPolicyFile)
	if err != nil {
		return err
	}

	var sender email.Sender = email.LogSender{Log: log}
	if cfg.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	var devStore *devotp.MemoryStore
	mfaOpts := mfa.Options{TTL: cfg.OTPTTL(), SingleUse: cfg.OTPSingleUse, Log: log}
	if cfg.OTPReturnToClient && !cfg.IsProduction() {
		devStore = devotp.NewMemoryStore()
		mfaOpts.Outbox = devStore
		log.Warn("dev OTP mode enabled; codes are readable at GET /dev/mfa/otp")
	}

	policy := userdomain.LockoutPolicy{
		MaxAttempts:  cfg.MaxFailedAttempts,
		Window:       cfg.AttemptWindow(),
		LockDuration: cfg.LockDuration(),
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	tracker := identityservice.NewAttemptTracker(accounts, policy)
	verifier := identityservice.NewCredentialVerifier(accounts, tracker, hasher, log)
	coordinator := mfa.NewCoordinator(accounts, otpStore, sender, mfaOpts)
	authSvc := identityservice.NewAuthService(accounts, verifier, coordinator, tokens, hasher, log)

	registry, err := audit.NewRegistry(server.AuditRegistrations()...)
	if err != nil {
		return err
	}
	publishers := []audit.Publisher{publisher.NewOTelPublisher(providers.LoggerProvider)}
	kafkaPub := publisher.NewKafkaPublisher(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	if kafkaPub != nil {
		publishers = append(publishers, kafkaPub)
	}
	recorder := audit.NewRecorder(auditRepo, log, publishers...)

	deps := server.Deps{
		Auth:         authSvc,
		Recorder:     recorder,
		Registry:     registry,
		AuditRepo:    auditRepo,
		Authorizer:   authz,
		Tokens:       tokens,
		Accounts:     accounts,
		HealthStore:  healthStore,
		HealthPolicy: authz,
		Log:          log,
	}
	if conn != nil {
		deps.HealthDB = conn
	}
	if devStore != nil {
		deps.DevOTP = devStore
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr),
			zap.Int("max_failed_attempts", policy.MaxAttempts),
			zap.Duration("lock_duration", policy.LockDuration))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	drainCtx, cancelDrain := context.WithTimeout(shutdownCtx, audit.ShutdownDrainDuration)
	if err := recorder.Wait(drainCtx); err != nil {
		log.Warn("audit drain", zap.Error(err))
	}
	cancelDrain()
	if err := kafkaPub.Close(); err != nil {
		log.Warn("kafka close", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")
	return nil
}

// tokenProvider loads the configured PEM key pair. Outside production a missing pair is replaced
// by an ephemeral ECDSA key; tokens then do not survive a restart.
func tokenProvider(cfg *config.Config, log *zap.Logger) (*security.TokenProvider, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	switch {
	case cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "":
		if priv, err = security.ParsePrivateKey(cfg.JWTPrivateKey); err != nil {
			return nil, fmt.Errorf("jwt private key: %w", err)
		}
		if pub, err = security.ParsePublicKey(cfg.JWTPublicKey); err != nil {
			return nil, fmt.Errorf("jwt public key: %w", err)
		}
	case cfg.IsProduction():
		return nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when APP_ENV=production")
	default:
		log.Warn("JWT keys not configured; signing with an ephemeral key")
		if priv, pub, err = security.GenerateEphemeralKey(); err != nil {
			return nil, fmt.Errorf("generate jwt key: %w", err)
		}
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}
