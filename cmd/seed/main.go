// seed creates the initial super_admin account. Run via go run ./cmd/seed after migrations.
// Idempotent: an existing account with the configured username is left untouched.
package main

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"library-service/backend/internal/config"
	"library-service/backend/internal/db"
	"library-service/backend/internal/security"
	"library-service/backend/internal/user/domain"
	"library-service/backend/internal/user/repository"
)

type accountStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

type adminParams struct {
	Username string
	Email    string
	Password string
	FullName string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	created, err := seedAdmin(ctx, repository.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost), adminParams{
		Username: cfg.SeedAdminUsername,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
		FullName: cfg.SeedAdminFullName,
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if created {
		log.Printf("seed: created super_admin %q", cfg.SeedAdminUsername)
	} else {
		log.Printf("seed: account %q already exists, skipping", cfg.SeedAdminUsername)
	}
}

// seedAdmin creates the super_admin account unless the username is already registered.
func seedAdmin(ctx context.Context, store accountStore, hasher passwordHasher, p adminParams) (bool, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return false, errors.New("SEED_ADMIN_USERNAME is required")
	}
	existing, err := store.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if strings.TrimSpace(p.Email) == "" || p.Password == "" {
		return false, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	hash, err := hasher.Hash(p.Password)
	if err != nil {
		return false, err
	}
	acc := &domain.Account{
		FullName:     p.FullName,
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
	}
	if err := store.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
