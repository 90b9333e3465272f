// Package postgres opens the shared database handle and owns the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres via the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS access_points (
		id                 UUID PRIMARY KEY,
		site_id            UUID NOT NULL,
		name               TEXT NOT NULL,
		capacity           INT  NOT NULL DEFAULT 0,
		current_occupancy  INT  NOT NULL DEFAULT 0 CHECK (current_occupancy >= 0),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_points_site ON access_points (site_id)`,

	`CREATE TABLE IF NOT EXISTS visitors (
		id                       UUID PRIMARY KEY,
		site_id                  UUID NOT NULL,
		access_point_id          UUID NOT NULL REFERENCES access_points (id),
		full_name                TEXT NOT NULL,
		email                    TEXT NOT NULL,
		phone                    TEXT NOT NULL DEFAULT '',
		company                  TEXT NOT NULL,
		purpose                  TEXT NOT NULL,
		badge_number             TEXT NOT NULL,
		qr_payload               TEXT NOT NULL,
		status                   TEXT NOT NULL,
		special_access           TEXT NOT NULL DEFAULT 'none',
		emergency_contact_name   TEXT NOT NULL DEFAULT '',
		emergency_contact_phone  TEXT NOT NULL DEFAULT '',
		expected_duration_hours  DOUBLE PRECISION NOT NULL DEFAULT 0,
		check_in_time            TIMESTAMPTZ,
		check_out_time           TIMESTAMPTZ,
		check_out_notes          TEXT NOT NULL DEFAULT '',
		checked_in_by            UUID,
		checked_out_by           UUID
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visitors_badge ON visitors (badge_number)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_site_status ON visitors (site_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_ap_status ON visitors (access_point_id, status)`,

	`CREATE TABLE IF NOT EXISTS banned_entries (
		id          UUID PRIMARY KEY,
		full_name   TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		company     TEXT NOT NULL DEFAULT '',
		reason      TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id               UUID PRIMARY KEY,
		type             TEXT NOT NULL,
		description      TEXT NOT NULL,
		priority         TEXT NOT NULL,
		site_id          UUID NOT NULL,
		access_point_id  UUID,
		visitor_id       UUID,
		actor_id         UUID,
		occurred_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_site_time ON activities (site_id, occurred_at DESC)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id           UUID PRIMARY KEY,
		severity     TEXT NOT NULL,
		status       TEXT NOT NULL,
		title        TEXT NOT NULL,
		message      TEXT NOT NULL,
		site_id      UUID NOT NULL,
		visitor_id   UUID,
		activity_id  UUID,
		audience     JSONB NOT NULL DEFAULT '{}',
		reads        JSONB NOT NULL DEFAULT '[]',
		acks         JSONB NOT NULL DEFAULT '[]',
		expires_at   TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_site_time ON alerts (site_id, created_at DESC)`,
}
