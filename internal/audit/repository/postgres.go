package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"library-service/backend/internal/audit/domain"
)

// PostgresRepository stores audit records in the audit_logs table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an audit repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type recordRow struct {
	ID           string         `db:"id"`
	Action       string         `db:"action"`
	EntityType   string         `db:"entity_type"`
	EntityID     sql.NullInt64  `db:"entity_id"`
	Username     string         `db:"username"`
	UserAgent    string         `db:"user_agent"`
	IPAddress    string         `db:"ip_address"`
	Timestamp    time.Time      `db:"timestamp"`
	Success      bool           `db:"success"`
	ErrorMessage sql.NullString `db:"error_message"`
}

// Create inserts r. r.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	const q = `INSERT INTO audit_logs
		(id, action, entity_type, entity_id, username, user_agent, ip_address, "timestamp", success, error_message)
		VALUES (:id, :action, :entity_type, :entity_id, :username, :user_agent, :ip_address, :timestamp, :success, :error_message)`
	_, err := r.db.NamedExecContext(ctx, q, domainToRow(rec))
	return err
}

// List returns audit records newest first, paginated by limit and offset.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.Record, error) {
	const q = `SELECT id, action, entity_type, entity_id, username, user_agent, ip_address, "timestamp", success, error_message
		FROM audit_logs ORDER BY "timestamp" DESC, id DESC LIMIT $1 OFFSET $2`
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, err
	}
	out := make([]*domain.Record, len(rows))
	for i := range rows {
		out[i] = rowToDomain(&rows[i])
	}
	return out, nil
}

func domainToRow(rec *domain.Record) *recordRow {
	row := &recordRow{
		ID:         rec.ID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		Username:   rec.Username,
		UserAgent:  rec.UserAgent,
		IPAddress:  rec.IPAddress,
		Timestamp:  rec.Timestamp,
		Success:    rec.Success,
	}
	if rec.EntityID != nil {
		row.EntityID = sql.NullInt64{Int64: *rec.EntityID, Valid: true}
	}
	if rec.ErrorMessage != nil {
		row.ErrorMessage = sql.NullString{String: *rec.ErrorMessage, Valid: true}
	}
	return row
}

func rowToDomain(row *recordRow) *domain.Record {
	rec := &domain.Record{
		ID:         row.ID,
		Action:     row.Action,
		EntityType: row.EntityType,
		Username:   row.Username,
		UserAgent:  row.UserAgent,
		IPAddress:  row.IPAddress,
		Timestamp:  row.Timestamp.UTC(),
		Success:    row.Success,
	}
	if row.EntityID.Valid {
		id := row.EntityID.Int64
		rec.EntityID = &id
	}
	if row.ErrorMessage.Valid {
		msg := row.ErrorMessage.String
		rec.ErrorMessage = &msg
	}
	return rec
}
