package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, kind, status, stage, error, walk_strategy,
	regions, weights, correlations, features, vitality, stats,
	record_count, created_at, updated_at, completed_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	weights, correlations, features, vitality, stats := marshalRun(run)
	return s.pool.QueryRow(ctx, `
		INSERT INTO tpfi_runs (kind, status, stage, error, walk_strategy,
			regions, weights, correlations, features, vitality, stats, record_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING run_id, created_at, updated_at`,
		run.Kind, run.Status, run.Stage, run.Error, run.WalkStrategy,
		nonNil(run.Regions), weights, correlations, features, vitality, stats, run.RecordCount,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM tpfi_runs WHERE run_id = $1`, id)
	run, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	weights, correlations, features, vitality, stats := marshalRun(run)
	return s.pool.QueryRow(ctx, `
		UPDATE tpfi_runs SET status = $2, stage = $3, error = $4, walk_strategy = $5,
			regions = $6, weights = $7, correlations = $8, features = $9, vitality = $10,
			stats = $11, record_count = $12, completed_at = $13, updated_at = now()
		WHERE run_id = $1
		RETURNING updated_at`,
		run.ID, run.Status, run.Stage, run.Error, run.WalkStrategy,
		nonNil(run.Regions), weights, correlations, features, vitality,
		stats, run.RecordCount, run.CompletedAt,
	).Scan(&run.UpdatedAt)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM tpfi_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Kind != "" {
		n++
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestCompletedRun(ctx context.Context, kind RunKind) (*Run, error) {
	status := StatusCompleted
	runs, err := s.ListRuns(ctx, RunFilter{Status: &status, Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func (s *PostgresStore) SaveRecords(ctx context.Context, runID uuid.UUID, records []itinerary.Record) error {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			runID, i, r.Region, r.Label, r.NumStops, r.DistanceM, r.DurationS,
			r.WalkDistanceM, r.Transfers, r.Fare, r.WalkRatio, r.WalkStrategy,
		}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"tpfi_itinerary_records"},
		[]string{"run_id", "seq", "region", "label", "num_stops", "distance_m", "duration_s",
			"walk_distance_m", "transfers", "fare", "walk_ratio", "walk_strategy"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy itinerary records: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRecords(ctx context.Context, runID uuid.UUID) ([]itinerary.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region, label, num_stops, distance_m, duration_s, walk_distance_m,
			transfers, fare, walk_ratio, walk_strategy
		FROM tpfi_itinerary_records WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []itinerary.Record
	for rows.Next() {
		var r itinerary.Record
		if err := rows.Scan(&r.Region, &r.Label, &r.NumStops, &r.DistanceM, &r.DurationS,
			&r.WalkDistanceM, &r.Transfers, &r.Fare, &r.WalkRatio, &r.WalkStrategy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	var stage, runErr, strategy sql.NullString
	var weights, correlations, features, vitality, stats []byte
	err := row.Scan(
		&r.ID, &r.Kind, &r.Status, &stage, &runErr, &strategy,
		&r.Regions, &weights, &correlations, &features, &vitality, &stats,
		&r.RecordCount, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Stage = stage.String
	r.Error = runErr.String
	r.WalkStrategy = strategy.String
	if weights != nil {
		_ = json.Unmarshal(weights, &r.Weights)
	}
	if correlations != nil {
		_ = json.Unmarshal(correlations, &r.Correlations)
	}
	if features != nil {
		_ = json.Unmarshal(features, &r.Features)
	}
	if vitality != nil {
		_ = json.Unmarshal(vitality, &r.Vitality)
	}
	if stats != nil {
		_ = json.Unmarshal(stats, &r.Stats)
	}
	return r, nil
}

func marshalRun(run *Run) (weights, correlations, features, vitality, stats []byte) {
	weights, _ = json.Marshal(run.Weights)
	correlations, _ = json.Marshal(run.Correlations)
	features, _ = json.Marshal(run.Features)
	vitality, _ = json.Marshal(run.Vitality)
	stats, _ = json.Marshal(run.Stats)
	return
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
