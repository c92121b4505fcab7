package actioncheck

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS action_log (
	id          BIGSERIAL PRIMARY KEY,
	ip          TEXT NOT NULL,
	action      TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_log_ip_action_time
	ON action_log (ip, action, occurred_at);
`

// PostgresChecker implements Checker against a PostgreSQL database using
// pgx directly, with hand-written parameterized queries — the teacher's
// Postgres storage backend instead relies on sqlc-generated queries, which
// there is no codegen step available to reproduce here (see DESIGN.md).
type PostgresChecker struct {
	pool *pgxpool.Pool
}

// NewPostgresChecker connects to dsn and ensures the action_log schema
// exists.
func NewPostgresChecker(ctx context.Context, dsn string) (*PostgresChecker, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for postgres action checker")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create action_log schema: %w", err)
	}

	return &PostgresChecker{pool: pool}, nil
}

// RecordAction inserts a row into action_log.
func (p *PostgresChecker) RecordAction(ctx context.Context, ip, action string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO action_log (ip, action, occurred_at) VALUES ($1, $2, $3)`,
		ip, action, time.Now())
	if err != nil {
		return fmt.Errorf("insert action_log row: %w", err)
	}
	return nil
}

// CheckRecentAction reports whether any row matches ip/action within the
// last `within` duration.
func (p *PostgresChecker) CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error) {
	cutoff := time.Now().Add(-within)
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM action_log
			WHERE ip = $1 AND action = $2 AND occurred_at > $3
		)`,
		ip, action, cutoff).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query action_log: %w", err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (p *PostgresChecker) Close() error {
	p.pool.Close()
	return nil
}
