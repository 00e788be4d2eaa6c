package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schema creates every table the services read or write. Statements are
// idempotent so Migrate can run on each deploy.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS reference_cases (
		id              BIGSERIAL PRIMARY KEY,
		patient_id      TEXT NOT NULL UNIQUE,
		diagnosis_label TEXT NOT NULL,
		symptoms        JSONB NOT NULL DEFAULT '[]',
		embedding       vector(%d) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS timelines (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		description TEXT,
		symptoms    JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		timeline_id TEXT PRIMARY KEY,
		match_limit INTEGER NOT NULL,
		match_data  JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_feedback (
		id           BIGSERIAL PRIMARY KEY,
		user_id      TEXT NOT NULL,
		timeline_id  TEXT NOT NULL,
		match_id     TEXT NOT NULL,
		is_helpful   BOOLEAN NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_tokens (
		id          BIGSERIAL PRIMARY KEY,
		token_hash  TEXT NOT NULL UNIQUE,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		rate_limit  INTEGER NOT NULL DEFAULT 60,
		is_active   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. dimension fixes the width of the
// reference_cases embedding column and must match the embedding service.
func (c *Client) Migrate(ctx context.Context, dimension int) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if strings.Contains(stmt, "%d") {
				stmt = fmt.Sprintf(stmt, dimension)
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
		}
		return nil
	})
}
