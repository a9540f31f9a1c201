package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

// PlanRequest asks for every visiting order of Stops starting and ending at
// Start. Weights default to the latest completed analysis.
type PlanRequest struct {
	Region  string               `json:"region,omitempty"`
	Start   string               `json:"start"`
	Stops   []string             `json:"stops"`
	Weights scoring.WeightVector `json:"weights,omitempty"`
}

// Validate checks the request shape. maxStops <= 0 disables the stop cap.
func (r PlanRequest) Validate(maxStops int) error {
	if r.Start == "" {
		return errors.New("start is required")
	}
	if len(r.Stops) == 0 {
		return errors.New("at least one stop is required")
	}
	if maxStops > 0 && len(r.Stops) > maxStops {
		return fmt.Errorf("%w: %d requested, at most %d allowed", ErrTooManyStops, len(r.Stops), maxStops)
	}
	return nil
}

// Plan is a ranked set of candidate trips.
type Plan struct {
	RunID    uuid.UUID                 `json:"run_id"`
	Weights  scoring.WeightVector      `json:"weights"`
	Ranking  []scoring.ScoredItinerary `json:"ranking"`
	Frontier []scoring.ScoredItinerary `json:"frontier"`
	Stats    itinerary.BatchStats      `json:"stats"`
}

// Planner ranks the orderings of a user's chosen stops by fatigue.
type Planner struct {
	geocoder Geocoder
	agg      *itinerary.Aggregator
	limit    int
	maxStops int
	rescale  bool
	runs     runRecorder
	logger   *slog.Logger
}

func NewPlanner(g Geocoder, agg *itinerary.Aggregator, cfg config.AnalysisConfig, s store.Store, ev events.Client, logger *slog.Logger) *Planner {
	return &Planner{
		geocoder: g,
		agg:      agg,
		limit:    cfg.PlanLimit,
		maxStops: cfg.MaxPlanStops,
		rescale:  cfg.Rescale,
		runs:     runRecorder{store: s, events: ev, logger: logger},
		logger:   logger,
	}
}

// Validate applies the configured stop cap to req.
func (p *Planner) Validate(req PlanRequest) error {
	return req.Validate(p.maxStops)
}

func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	weights, err := p.resolveWeights(ctx, req.Weights)
	if err != nil {
		return nil, err
	}

	label := req.Region
	if label == "" {
		label = req.Start
	}
	run := &store.Run{Stage: string(StageCollect), Regions: []string{label}, Weights: weights}
	if err := p.runs.start(ctx, store.KindPlan, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	plan, records, err := p.plan(ctx, req, label, weights, run)
	if err != nil {
		p.runs.fail(ctx, run, err)
		return nil, err
	}

	if err := p.runs.finish(ctx, run, records); err != nil {
		return nil, err
	}
	plan.RunID = run.ID
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, req PlanRequest, label string, weights scoring.WeightVector, run *store.Run) (*Plan, []itinerary.Record, error) {
	start, err := p.geocoder.Geocode(ctx, req.Start)
	if err != nil {
		return nil, nil, stageErr(StageCollect, fmt.Errorf("start %q: %w", req.Start, err))
	}
	stops := make([]itinerary.Stop, 0, len(req.Stops))
	for _, name := range req.Stops {
		s, err := p.geocoder.Geocode(ctx, name)
		if err != nil {
			return nil, nil, stageErr(StageCollect, fmt.Errorf("stop %q: %w", name, err))
		}
		stops = append(stops, s)
	}

	its := itinerary.Enumerate(start, stops, len(stops), p.limit)
	records, stats := p.agg.AggregateAll(ctx, label, its)
	run.RecordCount = len(records)
	run.Stats = map[string]interface{}{
		"total":           stats.Total,
		"valid":           stats.Valid,
		"lookup_failures": stats.LookupFailures,
		"zero_distance":   stats.ZeroDistance,
	}
	if len(records) == 0 {
		return nil, nil, stageErr(StageCollect, ErrNoValidItineraries)
	}
	run.WalkStrategy = records[0].WalkStrategy

	run.Stage = string(StageScore)
	ranking, err := scoring.NewFatigueScorer(weights, p.rescale, p.logger).Score(records)
	if err != nil {
		return nil, nil, stageErr(StageScore, err)
	}

	return &Plan{
		Weights:  weights,
		Ranking:  ranking,
		Frontier: scoring.ComputeFrontier(ranking),
		Stats:    stats,
	}, records, nil
}

func (p *Planner) resolveWeights(ctx context.Context, w scoring.WeightVector) (scoring.WeightVector, error) {
	if len(w) > 0 {
		nw, err := w.Normalize()
		if err != nil {
			return nil, stageErr(StageScore, err)
		}
		return nw, nil
	}
	run, err := p.runs.store.LatestCompletedRun(ctx, store.KindAnalyze)
	if err != nil {
		return nil, fmt.Errorf("load latest analysis: %w", err)
	}
	if run == nil || len(run.Weights) == 0 {
		return nil, stageErr(StageScore, ErrNoWeights)
	}
	return scoring.WeightVector(run.Weights), nil
}
