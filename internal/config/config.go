// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL of the OTP session store. Empty selects the in-process store (single instance only).
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the bearer token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// MaxFailedAttempts is the number of failed logins inside the attempt window that locks an account.
	MaxFailedAttempts int `mapstructure:"MAX_FAILED_ATTEMPTS"`
	// AttemptWindowMinutes is the rolling window in which failed logins accumulate.
	AttemptWindowMinutes int `mapstructure:"ATTEMPT_WINDOW_MINUTES"`
	// LockDurationMinutes is how long a locked account stays locked before lazy auto-unlock.
	LockDurationMinutes int `mapstructure:"LOCK_DURATION_MINUTES"`
	// OTPTTLMinutes is the lifetime of an issued one-time code.
	OTPTTLMinutes int `mapstructure:"OTP_TTL_MINUTES"`
	// OTPSingleUse invalidates an OTP session after its first successful validation. Off by default.
	OTPSingleUse bool `mapstructure:"OTP_SINGLE_USE"`
	// OTPReturnToClient enables dev OTP mode: codes are kept for GET /dev/mfa/otp instead of relying on email.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// SMTPHost is the mail relay host. Empty disables email delivery; sends are only logged, without the code.
	SMTPHost string `mapstructure:"SMTP_HOST"`
	// SMTPPort is the mail relay port.
	SMTPPort int `mapstructure:"SMTP_PORT"`
	// SMTPUsername and SMTPPassword enable PLAIN auth when both are set.
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// MailFrom is the envelope and header sender.
	MailFrom string `mapstructure:"MAIL_FROM"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint. Empty installs no-op exporters.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// AuditKafkaBrokers is a comma-separated broker list; when set, audit records are also streamed to Kafka.
	AuditKafkaBrokers string `mapstructure:"AUDIT_KAFKA_BROKERS"`
	// AuditKafkaTopic is the topic for the audit stream.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// AuthzPolicyFile is an optional Rego file replacing the built-in role permission policy.
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`

	// SeedAdminUsername, SeedAdminEmail, SeedAdminPassword and SeedAdminFullName describe the
	// super_admin account created by cmd/seed.
	SeedAdminUsername string `mapstructure:"SEED_ADMIN_USERNAME"`
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
	SeedAdminFullName string `mapstructure:"SEED_ADMIN_FULL_NAME"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogDev selects the zap development (console) encoder.
	LogDev bool `mapstructure:"LOG_DEV"`
	// LogFile, when set, additionally writes JSON logs to a daily rotated file at this path.
	LogFile string `mapstructure:"LOG_FILE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "library-service")
	v.SetDefault("JWT_AUDIENCE", "library-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_FAILED_ATTEMPTS", 5)
	v.SetDefault("ATTEMPT_WINDOW_MINUTES", 10)
	v.SetDefault("LOCK_DURATION_MINUTES", 30)
	v.SetDefault("OTP_TTL_MINUTES", 5)
	v.SetDefault("OTP_SINGLE_USE", false)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "no-reply@library.local")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "library-service")
	v.SetDefault("AUDIT_KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "library-audit")
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("SEED_ADMIN_USERNAME", "admin")
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_FULL_NAME", "Administrator")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MaxFailedAttempts <= 0 {
		return nil, errors.New("config: MAX_FAILED_ATTEMPTS must be positive")
	}
	if cfg.AttemptWindowMinutes <= 0 {
		return nil, errors.New("config: ATTEMPT_WINDOW_MINUTES must be positive")
	}
	if cfg.LockDurationMinutes <= 0 {
		return nil, errors.New("config: LOCK_DURATION_MINUTES must be positive")
	}
	if cfg.OTPTTLMinutes <= 0 {
		return nil, errors.New("config: OTP_TTL_MINUTES must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// AttemptWindow returns the failed-login accumulation window.
func (c *Config) AttemptWindow() time.Duration {
	return time.Duration(c.AttemptWindowMinutes) * time.Minute
}

// LockDuration returns how long a lock holds before lazy auto-unlock.
func (c *Config) LockDuration() time.Duration {
	return time.Duration(c.LockDurationMinutes) * time.Minute
}

// OTPTTL returns the one-time code lifetime.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the audit stream.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
