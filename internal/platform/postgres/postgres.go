// Package postgres opens the database/sql pool over the pgx driver and owns
// the schema bootstrap for the case, contact-request, and match tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so startup can always
// run them.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cases (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		full_name TEXT NOT NULL,
		age INT,
		gender TEXT NOT NULL,
		city TEXT NOT NULL,
		area TEXT,
		description TEXT NOT NULL DEFAULT '',
		last_seen_or_found_on DATE,
		contact_name TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		reporter_id TEXT NOT NULL,
		verified_by TEXT,
		verified_at TIMESTAMPTZ,
		rejection_reason TEXT,
		matched_with_case_id UUID,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_kind_status ON cases (kind, status)`,
	`CREATE TABLE IF NOT EXISTS contact_requests (
		id UUID PRIMARY KEY,
		case_id UUID NOT NULL REFERENCES cases (id),
		requester_id TEXT,
		requester_email TEXT NOT NULL,
		requester_agent TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		responded_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contact_requests_case_status ON contact_requests (case_id, status)`,
	`CREATE TABLE IF NOT EXISTS case_matches (
		id UUID PRIMARY KEY,
		missing_case_id UUID NOT NULL REFERENCES cases (id),
		found_case_id UUID NOT NULL REFERENCES cases (id),
		score INT NOT NULL,
		status TEXT NOT NULL,
		confirmed_by TEXT,
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_case_matches_status ON case_matches (status)`,
	`CREATE INDEX IF NOT EXISTS idx_case_matches_missing ON case_matches (missing_case_id)`,
	`CREATE INDEX IF NOT EXISTS idx_case_matches_found ON case_matches (found_case_id)`,
}
