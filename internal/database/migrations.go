package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		email        TEXT NOT NULL UNIQUE,
		avatar_url   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		destination  TEXT,
		start_date   DATE,
		end_date     DATE,
		organizer_id TEXT NOT NULL REFERENCES users(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS trip_participants (
		trip_id   TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL REFERENCES users(id),
		status    TEXT NOT NULL DEFAULT 'INVITED',
		role      TEXT NOT NULL DEFAULT 'MEMBER',
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (trip_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id          TEXT PRIMARY KEY,
		trip_id     TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		amount      NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		category    TEXT NOT NULL,
		paid_by     TEXT NOT NULL,
		split_type  TEXT NOT NULL,
		split_among TEXT[] NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_trip_id ON expenses (trip_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS expense_shares (
		expense_id     TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		participant_id TEXT NOT NULL,
		amount         NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
		percentage     NUMERIC(5,2),
		PRIMARY KEY (expense_id, participant_id)
	)`,
}

// Migrate creates the tables the service needs if they do not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
