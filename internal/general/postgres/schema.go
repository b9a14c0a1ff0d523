package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent; it runs on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS client_session (
		id          SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		token       TEXT,
		actor_type  TEXT CHECK (actor_type IN ('RIDER', 'DRIVER')),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS taxi_request_snapshot (
		id               TEXT PRIMARY KEY,
		rider_id         TEXT NOT NULL,
		driver_id        TEXT,
		trip_id          TEXT,
		status           TEXT NOT NULL,
		expiration_date  TIMESTAMPTZ NOT NULL,
		fetched_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trip_snapshot (
		id               TEXT PRIMARY KEY,
		taxi_request_id  TEXT NOT NULL,
		rider_id         TEXT NOT NULL,
		driver_id        TEXT NOT NULL,
		status           TEXT NOT NULL,
		start_date       TIMESTAMPTZ NOT NULL,
		end_date         TIMESTAMPTZ,
		fare_amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
		rating           SMALLINT,
		fetched_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables this process owns.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres ensure schema: %w", err)
		}
	}
	return nil
}
