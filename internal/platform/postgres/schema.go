package postgres

import (
	"context"
	"fmt"
)

// Schema matches the hosted tables the board runs against. EnsureSchema makes
// a fresh database usable without an external migration step.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id          TEXT PRIMARY KEY,
		status      TEXT NOT NULL DEFAULT 'AVAILABLE',
		participant JSONB,
		seller_id   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sellers (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name            TEXT NOT NULL,
		pin             TEXT NOT NULL UNIQUE,
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		commission_rate DOUBLE PRECISION NOT NULL DEFAULT 0.1
	)`,
	`CREATE TABLE IF NOT EXISTS raffle_config (
		id   INTEGER PRIMARY KEY,
		data JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seller_applications (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		full_name    TEXT NOT NULL,
		id_number    TEXT NOT NULL,
		address      TEXT,
		phone        TEXT NOT NULL,
		family_phone TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
