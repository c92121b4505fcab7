package actioncheck

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS action_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ip          TEXT NOT NULL,
	action      TEXT NOT NULL,
	occurred_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_log_ip_action_time
	ON action_log (ip, action, occurred_at);
`

// SQLiteChecker implements Checker against a SQLite database with a real
// action_log(ip, action, occurred_at) schema — unlike the teacher's own
// SQLite storage backend, which is an explicitly-labeled placeholder.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker opens (creating if necessary) the SQLite database named
// by dsn and ensures the action_log schema exists.
func NewSQLiteChecker(dsn string) (*SQLiteChecker, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for sqlite action checker")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create action_log schema: %w", err)
	}

	return &SQLiteChecker{db: db}, nil
}

// RecordAction inserts a row into action_log.
func (s *SQLiteChecker) RecordAction(ctx context.Context, ip, action string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_log (ip, action, occurred_at) VALUES (?, ?, ?)`,
		ip, action, time.Now())
	if err != nil {
		return fmt.Errorf("insert action_log row: %w", err)
	}
	return nil
}

// CheckRecentAction reports whether any row matches ip/action within the
// last `within` duration.
func (s *SQLiteChecker) CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error) {
	cutoff := time.Now().Add(-within)
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM action_log
			WHERE ip = ? AND action = ? AND occurred_at > ?
		)`,
		ip, action, cutoff)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("query action_log: %w", err)
	}
	return exists, nil
}

// Close closes the underlying database handle.
func (s *SQLiteChecker) Close() error {
	return s.db.Close()
}
