package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

// Runner drives the collect, analyze and plan steps over one store.
type Runner struct {
	Collector *Collector
	Analyzer  *Analyzer
	Planner   *Planner

	runs   runRecorder
	logger *slog.Logger
}

func NewRunner(c *Collector, a *Analyzer, p *Planner, s store.Store, ev events.Client, logger *slog.Logger) *Runner {
	return &Runner{
		Collector: c,
		Analyzer:  a,
		Planner:   p,
		runs:      runRecorder{store: s, events: ev, logger: logger},
		logger:    logger,
	}
}

// Collect builds the dataset and stores it as a collect run.
func (r *Runner) Collect(ctx context.Context) (uuid.UUID, []itinerary.Record, []RegionStats, error) {
	run := &store.Run{Stage: string(StageCollect)}
	if err := r.runs.start(ctx, store.KindCollect, run); err != nil {
		return uuid.Nil, nil, nil, fmt.Errorf("create run: %w", err)
	}

	records, stats, err := r.Collector.Collect(ctx)
	run.Stats = map[string]interface{}{"regions": stats}
	if err != nil {
		r.runs.fail(ctx, run, err)
		return run.ID, nil, stats, err
	}

	seen := map[string]bool{}
	for _, rec := range records {
		if !seen[rec.Region] {
			seen[rec.Region] = true
			run.Regions = append(run.Regions, rec.Region)
		}
	}
	run.RecordCount = len(records)
	run.WalkStrategy = records[0].WalkStrategy

	if err := r.runs.finish(ctx, run, records); err != nil {
		return run.ID, nil, stats, err
	}
	return run.ID, records, stats, nil
}

// RecordsForRun loads the itinerary records persisted with a run. A missing
// run is reported as nil records and no error.
func (r *Runner) RecordsForRun(ctx context.Context, id uuid.UUID) ([]itinerary.Record, error) {
	run, err := r.runs.store.GetRun(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}
	return r.runs.store.GetRecords(ctx, id)
}

// LatestDataset returns the records of the newest completed collect run.
func (r *Runner) LatestDataset(ctx context.Context) ([]itinerary.Record, error) {
	run, err := r.runs.store.LatestCompletedRun(ctx, store.KindCollect)
	if err != nil || run == nil {
		return nil, err
	}
	return r.runs.store.GetRecords(ctx, run.ID)
}

// DeriveAndPlan derives weights from records and ranks req's trips with
// them. Weights already on req take precedence.
func (r *Runner) DeriveAndPlan(ctx context.Context, records []itinerary.Record, req PlanRequest) (*Analysis, *Plan, error) {
	analysis, err := r.Analyzer.Analyze(ctx, AnalyzeRequest{Records: records})
	if err != nil {
		return nil, nil, err
	}
	if len(req.Weights) == 0 {
		req.Weights = analysis.Weights
	}
	plan, err := r.Planner.Plan(ctx, req)
	if err != nil {
		return analysis, nil, err
	}
	return analysis, plan, nil
}
