package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/security"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS command_journal (
	id          TEXT PRIMARY KEY,
	command_id  TEXT NOT NULL,
	command     TEXT NOT NULL,
	status      TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	duration_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_command_journal_started_at ON command_journal (started_at);
`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the journal database at path and
// applies the schema. ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		clean, err := security.DatabasePath(path)
		if err != nil {
			return nil, err
		}
		path = clean
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// - journal_mode=WAL: readers do not block the writer
	// - busy_timeout=5000: wait on lock instead of failing immediately
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	repo := NewSQLiteRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteRepository wraps an open database. Call Migrate before use.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Migrate creates the journal table if missing.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return nil
}

// Record appends an entry.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO command_journal (
			id, command_id, command, status, error_kind, error, started_at, duration_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		e.CommandID,
		e.Command,
		string(e.Status),
		e.ErrorKind,
		e.Error,
		e.StartedAt.UTC().Format(timeLayout),
		e.Duration.Microseconds(),
	)
	return err
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, command_id, command, status, error_kind, error, started_at, duration_us
		FROM command_journal
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e          Entry
			id, status string
			startedAt  string
			durationUS int64
		)
		if err := rows.Scan(&id, &e.CommandID, &e.Command, &status, &e.ErrorKind, &e.Error, &startedAt, &durationUS); err != nil {
			return nil, err
		}
		e.ID, _ = uuid.Parse(id)
		e.Status = Status(status)
		e.StartedAt, _ = time.Parse(timeLayout, startedAt)
		e.Duration = time.Duration(durationUS) * time.Microsecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteOld removes entries started more than olderThanDays ago.
func (r *SQLiteRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM command_journal WHERE started_at < ?`,
		cutoff(olderThanDays).Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ping verifies the connection is still alive.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
