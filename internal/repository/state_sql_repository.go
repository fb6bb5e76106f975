package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

const (
	postgresStateSchema = `CREATE TABLE IF NOT EXISTS actor_state (
	kind TEXT NOT NULL,
	state_key TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, state_key)
)`
	sqliteStateSchema = `CREATE TABLE IF NOT EXISTS actor_state (
	kind TEXT NOT NULL,
	state_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (kind, state_key)
)`
)

// SQLStateRepository persists actor state in the actor_state table. Queries
// are rebound for the connection's driver so the same code serves Postgres
// (lib/pq or pgx) and SQLite.
type SQLStateRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStateRepository constructs a SQL-backed state store.
func NewSQLStateRepository(db *sqlx.DB) *SQLStateRepository {
	return &SQLStateRepository{db: db, now: time.Now}
}

// EnsureSchema creates the actor_state table when missing.
func (r *SQLStateRepository) EnsureSchema(ctx context.Context) error {
	ddl := postgresStateSchema
	if r.db.DriverName() == "sqlite" {
		ddl = sqliteStateSchema
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create actor_state: %w", err)
	}
	return nil
}

// ReadState loads the payload for partition/key.
func (r *SQLStateRepository) ReadState(ctx context.Context, partition, key string) ([]byte, error) {
	var record models.StateRecord
	query := r.db.Rebind(`SELECT kind, state_key, payload FROM actor_state WHERE kind = ? AND state_key = ?`)
	if err := r.db.GetContext(ctx, &record, query, partition, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("read state %s/%s: %w", partition, key, err)
	}
	return []byte(record.Payload), nil
}

// WriteState upserts the payload for partition/key.
func (r *SQLStateRepository) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	query := r.db.Rebind(`INSERT INTO actor_state (kind, state_key, payload, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, state_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, partition, key, string(payload), r.now().UTC()); err != nil {
		return fmt.Errorf("write state %s/%s: %w", partition, key, err)
	}
	return nil
}

// ClearState deletes the row for partition/key.
func (r *SQLStateRepository) ClearState(ctx context.Context, partition, key string) error {
	query := r.db.Rebind(`DELETE FROM actor_state WHERE kind = ? AND state_key = ?`)
	if _, err := r.db.ExecContext(ctx, query, partition, key); err != nil {
		return fmt.Errorf("clear state %s/%s: %w", partition, key, err)
	}
	return nil
}

// CountByPartition reports how many records each partition holds.
func (r *SQLStateRepository) CountByPartition(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Partition string `db:"kind"`
		Total     int    `db:"total"`
	}
	query := `SELECT kind, COUNT(*) AS total FROM actor_state GROUP BY kind`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count state: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Partition] = row.Total
	}
	return out, nil
}
