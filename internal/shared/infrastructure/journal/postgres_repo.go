package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS command_journal (
	id          TEXT PRIMARY KEY,
	command_id  TEXT NOT NULL,
	command     TEXT NOT NULL,
	status      TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	duration_us BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_command_journal_started_at ON command_journal (started_at);
`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url and applies the schema.
func OpenPostgres(ctx context.Context, url string) (*PostgresRepository, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required for PostgreSQL")
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepository wraps an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the journal table if missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return nil
}

// Record appends an entry.
func (r *PostgresRepository) Record(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO command_journal (
			id, command_id, command, status, error_kind, error, started_at, duration_us
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID.String(),
		e.CommandID,
		e.Command,
		string(e.Status),
		e.ErrorKind,
		e.Error,
		e.StartedAt,
		e.Duration.Microseconds(),
	)
	return err
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, command_id, command, status, error_kind, error, started_at, duration_us
		FROM command_journal
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e          Entry
			id, status string
			durationUS int64
		)
		if err := rows.Scan(&id, &e.CommandID, &e.Command, &status, &e.ErrorKind, &e.Error, &e.StartedAt, &durationUS); err != nil {
			return nil, err
		}
		e.ID, _ = uuid.Parse(id)
		e.Status = Status(status)
		e.Duration = time.Duration(durationUS) * time.Microsecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteOld removes entries started more than olderThanDays ago.
func (r *PostgresRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM command_journal WHERE started_at < $1`,
		cutoff(olderThanDays),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the connection is still alive.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
