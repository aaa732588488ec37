// Package sqlite stores run history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	site TEXT NOT NULL,
	command TEXT NOT NULL,
	criteria TEXT NOT NULL,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	result TEXT,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_site_created ON runs (site, created_at);
`

// New opens (and migrates) the database at dsn.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// modernc serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.RunRecord) error {
	query := `
	INSERT INTO runs (
		id, site, command, criteria, status, attempts, duration_ms, result, error, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		run.ID,
		run.Site,
		run.Command,
		run.Criteria,
		run.Status,
		run.Attempts,
		run.Duration.Milliseconds(),
		string(run.Result),
		run.Error,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT id, site, command, criteria, status, attempts, duration_ms, result, error, created_at FROM runs WHERE 1=1`
	args := []any{}

	if filter.Site != "" {
		query += ` AND site = ?`
		args = append(args, filter.Site)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UnixNano())
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	results := []*storage.RunRecord{}
	for rows.Next() {
		var (
			r          storage.RunRecord
			result     sql.NullString
			errText    sql.NullString
			durationMs int64
			createdAt  int64
		)
		err := rows.Scan(
			&r.ID, &r.Site, &r.Command, &r.Criteria, &r.Status, &r.Attempts,
			&durationMs, &result, &errText, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.Unix(0, createdAt)
		r.Error = errText.String
		if result.String != "" {
			r.Result = []byte(result.String)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
