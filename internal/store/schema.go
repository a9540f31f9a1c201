package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tpfi_runs (
		run_id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		kind          TEXT NOT NULL,
		status        TEXT NOT NULL,
		stage         TEXT,
		error         TEXT,
		walk_strategy TEXT,
		regions       TEXT[] NOT NULL DEFAULT '{}',
		weights       JSONB,
		correlations  JSONB,
		features      JSONB,
		vitality      JSONB,
		stats         JSONB,
		record_count  INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS tpfi_runs_kind_status_idx ON tpfi_runs (kind, status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tpfi_itinerary_records (
		record_id       BIGSERIAL PRIMARY KEY,
		run_id          UUID NOT NULL REFERENCES tpfi_runs(run_id) ON DELETE CASCADE,
		seq             INTEGER NOT NULL,
		region          TEXT NOT NULL,
		label           TEXT NOT NULL,
		num_stops       INTEGER NOT NULL,
		distance_m      DOUBLE PRECISION NOT NULL,
		duration_s      DOUBLE PRECISION NOT NULL,
		walk_distance_m DOUBLE PRECISION NOT NULL,
		transfers       INTEGER NOT NULL,
		fare            DOUBLE PRECISION NOT NULL,
		walk_ratio      DOUBLE PRECISION NOT NULL,
		walk_strategy   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tpfi_itinerary_records_run_idx ON tpfi_itinerary_records (run_id, seq)`,
}

// EnsureSchema creates the tables this package reads and writes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
