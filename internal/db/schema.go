package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Appointment start times are local wall-clock times of the city, hence
// TIMESTAMP without time zone.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id         BIGSERIAL PRIMARY KEY,
		name       VARCHAR(512) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id          BIGSERIAL PRIMARY KEY,
		starts_at   TIMESTAMP NOT NULL,
		location_id BIGINT NOT NULL REFERENCES locations (id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (starts_at, location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		address    TEXT PRIMARY KEY,
		deadline   DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS subscribers_deadline_idx ON subscribers (deadline)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
