package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"library-service/backend/internal/user/domain"
)

const uniqueViolation = "23505"

const accountColumns = `id, full_name, username, email, password_hash, role,
	non_locked, failed_attempts, first_failure_at, locked_at, created_at, updated_at`

// PostgresRepository stores accounts in the accounts table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an account repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type accountRow struct {
	ID             int64        `db:"id"`
	FullName       string       `db:"full_name"`
	Username       string       `db:"username"`
	Email          string       `db:"email"`
	PasswordHash   string       `db:"password_hash"`
	Role           string       `db:"role"`
	NonLocked      bool         `db:"non_locked"`
	FailedAttempts int          `db:"failed_attempts"`
	FirstFailureAt sql.NullTime `db:"first_failure_at"`
	LockedAt       sql.NullTime `db:"locked_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// GetByID returns the account for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByUsername returns the account with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

// GetByUsernameOrEmail prefers a username match over an email match. Emails match case-insensitively.
func (r *PostgresRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE username = $1 OR email = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`, usernameOrEmail)
}

func (r *PostgresRepository) getOne(ctx context.Context, q string, arg any) (*domain.Account, error) {
	var row accountRow
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToDomain(&row), nil
}

// Create inserts the account with an unlocked lockout state.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	const q = `INSERT INTO accounts (full_name, username, email, password_hash, role, non_locked, failed_attempts)
		VALUES (:full_name, :username, :email, :password_hash, :role, TRUE, 0)
		RETURNING id, created_at, updated_at`
	params := map[string]any{
		"full_name":     a.FullName,
		"username":      a.Username,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          string(a.Role),
	}
	rows, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return mapConflict(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapConflict(err)
		}
		return errors.New("create account: no id returned")
	}
	if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return err
	}
	a.Lockout = domain.Unlocked()
	return nil
}

// UpdateLockout locks the row with SELECT ... FOR UPDATE so concurrent cycles on the same account serialize.
func (r *PostgresRepository) UpdateLockout(ctx context.Context, id int64, fn func(l *domain.Lockout) bool) (domain.Lockout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Lockout{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var row accountRow
	err = tx.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lockout{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Lockout{}, err
	}

	l := rowToDomain(&row).Lockout
	if !fn(&l) {
		return l, nil
	}
	_, err = tx.ExecContext(ctx, `UPDATE accounts
		SET non_locked = $2, failed_attempts = $3, first_failure_at = $4, locked_at = $5, updated_at = NOW()
		WHERE id = $1`,
		id, l.NonLocked, l.FailedAttempts, nullTime(l.FirstFailureAt), nullTime(l.LockedAt))
	if err != nil {
		return domain.Lockout{}, fmt.Errorf("update lockout: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Lockout{}, err
	}
	return l, nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "accounts_email_key":
			return domain.ErrEmailTaken
		default:
			return domain.ErrUsernameTaken
		}
	}
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func rowToDomain(r *accountRow) *domain.Account {
	return &domain.Account{
		ID:           r.ID,
		FullName:     r.FullName,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		Lockout: domain.Lockout{
			NonLocked:      r.NonLocked,
			FailedAttempts: r.FailedAttempts,
			FirstFailureAt: timePtr(r.FirstFailureAt),
			LockedAt:       timePtr(r.LockedAt),
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
