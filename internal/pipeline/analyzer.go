package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/region"
	"github.com/MikeSquared-Agency/tpfi/internal/routing"
	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

// AnalyzeRequest carries the itinerary dataset to derive weights from.
type AnalyzeRequest struct {
	Records []itinerary.Record `json:"records"`
}

// WalkStrategy returns the single walk-distance strategy shared by every
// record.
func (r AnalyzeRequest) WalkStrategy() (string, error) {
	return WalkStrategyOf(r.Records)
}

// WalkStrategyOf returns the walk-distance strategy shared by records, or
// ErrMixedWalkStrategies. Records without a strategy count as measured.
func WalkStrategyOf(records []itinerary.Record) (string, error) {
	strategy := ""
	for _, rec := range records {
		s := rec.WalkStrategy
		if s == "" {
			s = string(routing.Measured)
		}
		if strategy == "" {
			strategy = s
			continue
		}
		if s != strategy {
			return "", fmt.Errorf("%w: %s and %s", ErrMixedWalkStrategies, strategy, s)
		}
	}
	return strategy, nil
}

// Analysis is a successful weight derivation.
type Analysis struct {
	RunID    uuid.UUID                       `json:"run_id"`
	Features map[string]region.FeatureVector `json:"features"`
	Vitality map[string]float64              `json:"vitality"`
	scoring.Derivation
}

// Analyzer derives fatigue weights from a dataset and spending tables.
type Analyzer struct {
	spending   region.SpendingSource
	categories []string
	runs       runRecorder
	logger     *slog.Logger
}

func NewAnalyzer(spending region.SpendingSource, categories []string, s store.Store, ev events.Client, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		spending:   spending,
		categories: categories,
		runs:       runRecorder{store: s, events: ev, logger: logger},
		logger:     logger,
	}
}

// Analyze aggregates records per region, builds vitality ratios, and
// correlates the two. Every outcome is persisted as an analyze run.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	run := &store.Run{Stage: string(StageJoin), RecordCount: len(req.Records)}
	if err := a.runs.start(ctx, store.KindAnalyze, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	out, err := a.analyze(ctx, req, run)
	if err != nil {
		a.runs.fail(ctx, run, err)
		return nil, err
	}

	if err := a.runs.finish(ctx, run, req.Records); err != nil {
		return nil, err
	}

	events.Emit(ctx, a.runs.events, a.logger, events.WeightsDerivedEvent{
		RunID:        run.ID.String(),
		Weights:      out.Weights,
		Correlations: out.Correlations,
		Regions:      out.Regions,
		Timestamp:    time.Now(),
	})
	out.RunID = run.ID
	return out, nil
}

func (a *Analyzer) analyze(ctx context.Context, req AnalyzeRequest, run *store.Run) (*Analysis, error) {
	if len(req.Records) == 0 {
		return nil, stageErr(StageJoin, ErrNoValidItineraries)
	}
	strategy, err := req.WalkStrategy()
	if err != nil {
		return nil, stageErr(StageJoin, err)
	}
	run.WalkStrategy = strategy

	features := region.Aggregate(req.Records)
	regions := region.SortedRegions(features)
	run.Regions = regions
	run.Features = make(map[string]map[string]float64, len(features))
	for name, fv := range features {
		row := make(map[string]float64, 5)
		for _, f := range region.FeatureNames() {
			row[f], _ = fv.Value(f)
		}
		row["itineraries"] = float64(fv.Itineraries)
		run.Features[name] = row
	}

	vitality, err := region.BuildVitality(ctx, a.spending, regions, a.categories, a.logger)
	if err != nil {
		return nil, stageErr(StageJoin, err)
	}
	run.Vitality = vitality

	d, err := scoring.DeriveWeights(features, vitality)
	run.Correlations = d.Correlations
	switch {
	case errors.Is(err, scoring.ErrInsufficientRegions):
		return nil, stageErr(StageJoin, err)
	case err != nil:
		return nil, stageErr(StageCorrelate, err)
	}
	run.Stage = string(StageCorrelate)
	run.Weights = d.Weights
	run.Regions = d.Regions

	a.logger.Info("weights derived", "regions", len(d.Regions), "weights", d.Weights, "walk_strategy", strategy)
	return &Analysis{Features: features, Vitality: vitality, Derivation: d}, nil
}
