package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/region"
	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock implementations

type mockGeocoder map[string]itinerary.Stop

func (m mockGeocoder) Geocode(_ context.Context, name string) (itinerary.Stop, error) {
	s, ok := m[name]
	if !ok {
		return itinerary.Stop{}, fmt.Errorf("unknown place %s", name)
	}
	return s, nil
}

type mockPOIs map[string][]itinerary.Stop

func (m mockPOIs) Points(_ context.Context, rc config.RegionConfig, _ itinerary.Stop) ([]itinerary.Stop, error) {
	return m[rc.Name], nil
}

type mockSpending map[string][]region.SpendingRow

func (m mockSpending) SpendingRows(_ context.Context, name string) ([]region.SpendingRow, error) {
	rows, ok := m[name]
	if !ok {
		return nil, region.ErrNoSpendingData
	}
	return rows, nil
}

type mockEvents struct {
	subjects []string
}

func (m *mockEvents) Publish(_ context.Context, ev events.Event) error {
	m.subjects = append(m.subjects, ev.Subject())
	return nil
}
func (m *mockEvents) Close() {}

// failingStore loses every write of itinerary records.
type failingStore struct {
	*store.MemoryStore
}

func (f failingStore) SaveRecords(context.Context, uuid.UUID, []itinerary.Record) error {
	return errors.New("disk full")
}

// legTable serves leg metrics keyed "origin>destination"; unknown legs fail.
func legTable(dist map[string]float64) itinerary.LegProvider {
	return itinerary.LegProviderFunc(func(_ context.Context, o, d itinerary.Stop) (itinerary.LegMetrics, error) {
		v, ok := dist[o.Name+">"+d.Name]
		if !ok {
			return itinerary.LegMetrics{}, errors.New("no route")
		}
		return itinerary.LegMetrics{DistanceM: v, DurationS: v / 10, WalkDistanceM: v / 5}, nil
	})
}


func stop(name string, lon float64) itinerary.Stop {
	return itinerary.Stop{Name: name, Lon: lon, Lat: 37.5}
}

func datasetRecords() []itinerary.Record {
	mk := func(region string, dist float64) itinerary.Record {
		return itinerary.Record{
			Region: region, Label: region + " loop", NumStops: 3,
			DistanceM: dist, DurationS: 600, Transfers: 1, WalkRatio: 0.1,
			WalkStrategy: "measured",
		}
	}
	return []itinerary.Record{mk("a", 3000), mk("a", 3000), mk("b", 2000), mk("c", 1000)}
}

func vitalityTables() mockSpending {
	return mockSpending{
		"a": {{Category: "쇼핑업", Share: 0.1}},
		"b": {{Category: "쇼핑업", Share: 0.2}},
		"c": {{Category: "쇼핑업", Share: 0.3}},
	}
}

func TestStageError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", stageErr(StageCorrelate, scoring.ErrNoNegativeCorrelation))
	assert.Equal(t, StageCorrelate, StageOf(err))
	assert.ErrorIs(t, err, scoring.ErrNoNegativeCorrelation)
	assert.Contains(t, err.Error(), "correlate stage")
	assert.Equal(t, Stage(""), StageOf(errors.New("plain")))
}

func TestAnalyzeRequestWalkStrategy(t *testing.T) {
	req := AnalyzeRequest{Records: []itinerary.Record{{WalkStrategy: ""}, {WalkStrategy: "measured"}}}
	s, err := req.WalkStrategy()
	require.NoError(t, err)
	assert.Equal(t, "measured", s)

	req.Records = append(req.Records, itinerary.Record{WalkStrategy: "bucketed"})
	_, err = req.WalkStrategy()
	assert.ErrorIs(t, err, ErrMixedWalkStrategies)
}

func TestCollectorSkipsUnresolvableRegions(t *testing.T) {
	geo := mockGeocoder{"S": stop("S", 0)}
	pois := mockPOIs{
		"ok": {stop("S", 0), stop("A", 1), stop("B", 2), stop("C", 3)},
	}
	legs := map[string]float64{}
	for _, o := range []string{"S", "A", "B", "C"} {
		for _, d := range []string{"S", "A", "B", "C"} {
			if o != d {
				legs[o+">"+d] = 1000
			}
		}
	}
	agg := itinerary.NewAggregator(legTable(legs), "measured", discardLogger())
	cfg := config.AnalysisConfig{
		Regions:     []config.RegionConfig{{Name: "ok", Start: "S"}, {Name: "lost", Start: "nowhere"}},
		StopCounts:  []int{2, 5},
		MaxPerCount: 100,
	}

	records, stats, err := NewCollector(geo, pois, agg, cfg, discardLogger()).Collect(context.Background())
	require.NoError(t, err)
	// 3 points, k=2 → 6 loops; k=5 has too few points.
	assert.Len(t, records, 6)
	require.Len(t, stats, 2)
	assert.Equal(t, 3, stats[0].Points)
	assert.Equal(t, 6, stats[0].Valid)
	assert.NotEmpty(t, stats[1].Skipped)
	for _, r := range records {
		assert.Equal(t, "ok", r.Region)
		assert.Equal(t, 3000.0, r.DistanceM)
	}
}

func TestCollectorNoValidItineraries(t *testing.T) {
	geo := mockGeocoder{"S": stop("S", 0)}
	pois := mockPOIs{"r": {stop("A", 1), stop("B", 2)}}
	agg := itinerary.NewAggregator(legTable(nil), "measured", discardLogger())
	cfg := config.AnalysisConfig{Regions: []config.RegionConfig{{Name: "r", Start: "S"}}, StopCounts: []int{2}}

	_, _, err := NewCollector(geo, pois, agg, cfg, discardLogger()).Collect(context.Background())
	assert.ErrorIs(t, err, ErrNoValidItineraries)
	assert.Equal(t, StageCollect, StageOf(err))
}

func TestAnalyzeDerivesAndPersists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &mockEvents{}
	a := NewAnalyzer(vitalityTables(), []string{"쇼핑업"}, s, ev, discardLogger())

	out, err := a.Analyze(ctx, AnalyzeRequest{Records: datasetRecords()})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.Weights[region.FeatureDistance], 1e-9)
	assert.Len(t, out.Weights, 1)
	assert.Equal(t, []string{"a", "b", "c"}, out.Regions)

	run, err := s.GetRun(ctx, out.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, store.KindAnalyze, run.Kind)
	assert.Equal(t, "measured", run.WalkStrategy)
	assert.InDelta(t, 1.0, run.Weights[region.FeatureDistance], 1e-9)
	assert.Equal(t, 2.0, run.Features["a"]["itineraries"])

	recs, err := s.GetRecords(ctx, out.RunID)
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	assert.Contains(t, ev.subjects, "tpfi.weights.derived")
	assert.Contains(t, ev.subjects, "tpfi.run."+out.RunID.String()+".completed")
}

func TestAnalyzeFailuresNameStage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		records  []itinerary.Record
		spending mockSpending
		stage    Stage
		target   error
	}{
		{
			name:     "empty dataset",
			spending: vitalityTables(),
			stage:    StageJoin,
			target:   ErrNoValidItineraries,
		},
		{
			name: "mixed walk strategies",
			records: append(datasetRecords(), itinerary.Record{
				Region: "c", DistanceM: 1, WalkStrategy: "bucketed",
			}),
			spending: vitalityTables(),
			stage:    StageJoin,
			target:   ErrMixedWalkStrategies,
		},
		{
			name:     "one region with vitality",
			records:  datasetRecords(),
			spending: mockSpending{"a": {{Category: "쇼핑업", Share: 0.1}}},
			stage:    StageJoin,
			target:   scoring.ErrInsufficientRegions,
		},
		{
			name:    "positive correlation only",
			records: datasetRecords(),
			spending: mockSpending{
				"a": {{Category: "쇼핑업", Share: 0.3}},
				"b": {{Category: "쇼핑업", Share: 0.2}},
				"c": {{Category: "쇼핑업", Share: 0.1}},
			},
			stage:  StageCorrelate,
			target: scoring.ErrNoNegativeCorrelation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			ev := &mockEvents{}
			a := NewAnalyzer(tt.spending, []string{"쇼핑업"}, s, ev, discardLogger())

			out, err := a.Analyze(ctx, AnalyzeRequest{Records: tt.records})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.stage, StageOf(err))

			runs, err := s.ListRuns(ctx, store.RunFilter{})
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, store.StatusFailed, runs[0].Status)
			assert.Equal(t, string(tt.stage), runs[0].Stage)
			assert.NotEmpty(t, runs[0].Error)
		})
	}
}

func planFixture(s store.Store) *Planner {
	geo := mockGeocoder{"S": stop("S", 0), "A": stop("A", 1), "B": stop("B", 2)}
	legs := map[string]float64{
		"S>A": 1000, "A>B": 1000, "B>S": 1000,
		"S>B": 3000, "B>A": 3000, "A>S": 3000,
	}
	agg := itinerary.NewAggregator(legTable(legs), "measured", discardLogger())
	return NewPlanner(geo, agg, planConfig, s, nil, discardLogger())
}

var planConfig = config.AnalysisConfig{PlanLimit: 150, MaxPlanStops: 4, Rescale: true}

func TestPlanRanksByFatigue(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := planFixture(s)

	plan, err := p.Plan(ctx, PlanRequest{
		Start:   "S",
		Stops:   []string{"A", "B"},
		Weights: scoring.WeightVector{region.FeatureDistance: 2},
	})
	require.NoError(t, err)
	require.Len(t, plan.Ranking, 2)
	assert.Equal(t, "S -> A -> B -> S", plan.Ranking[0].Label)
	assert.Equal(t, 0.0, plan.Ranking[0].FatigueScore)
	assert.InDelta(t, 100.0, plan.Ranking[1].FatigueScore, 1e-9)
	assert.Equal(t, 1, plan.Ranking[0].Rank)
	assert.InDelta(t, 1.0, plan.Weights[region.FeatureDistance], 1e-9)
	assert.Len(t, plan.Frontier, 1)

	run, err := s.GetRun(ctx, plan.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.KindPlan, run.Kind)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.RecordCount)
}

func TestPlanUsesLatestAnalysisWeights(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	_, err := planFixture(s).Plan(ctx, PlanRequest{Start: "S", Stops: []string{"A"}})
	assert.ErrorIs(t, err, ErrNoWeights)
	assert.Equal(t, StageScore, StageOf(err))

	a := NewAnalyzer(vitalityTables(), []string{"쇼핑업"}, s, nil, discardLogger())
	_, err = a.Analyze(ctx, AnalyzeRequest{Records: datasetRecords()})
	require.NoError(t, err)

	plan, err := planFixture(s).Plan(ctx, PlanRequest{Start: "S", Stops: []string{"A", "B"}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, plan.Weights[region.FeatureDistance], 1e-9)
	assert.Equal(t, "S -> A -> B -> S", plan.Ranking[0].Label)
}

func TestPlanFailures(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := planFixture(s)
	w := scoring.WeightVector{region.FeatureDistance: 1}

	_, err := p.Plan(ctx, PlanRequest{Stops: []string{"A"}, Weights: w})
	assert.Error(t, err)

	_, err = p.Plan(ctx, PlanRequest{Start: "S", Stops: []string{"Z"}, Weights: w})
	assert.Equal(t, StageCollect, StageOf(err))

	// Only the outbound leg resolves, so the single loop is discarded.
	geo := mockGeocoder{"S": stop("S", 0), "A": stop("A", 1)}
	agg := itinerary.NewAggregator(legTable(map[string]float64{"S>A": 10}), "measured", discardLogger())
	_, err = NewPlanner(geo, agg, planConfig, s, nil, discardLogger()).
		Plan(ctx, PlanRequest{Start: "S", Stops: []string{"A"}, Weights: w})
	assert.ErrorIs(t, err, ErrNoValidItineraries)

	failed := store.StatusFailed
	runs, err := s.ListRuns(ctx, store.RunFilter{Status: &failed})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunnerCollectThenDeriveAndPlan(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	geo := mockGeocoder{"S": stop("S", 0), "A": stop("A", 1), "B": stop("B", 2)}
	legs := map[string]float64{
		"S>A": 1000, "A>B": 1000, "B>S": 1000,
		"S>B": 3000, "B>A": 3000, "A>S": 3000,
	}
	agg := itinerary.NewAggregator(legTable(legs), "measured", discardLogger())
	cfg := config.AnalysisConfig{
		Regions:    []config.RegionConfig{{Name: "r", Start: "S"}},
		StopCounts: []int{2},
	}
	r := NewRunner(
		NewCollector(geo, mockPOIs{"r": {stop("A", 1), stop("B", 2)}}, agg, cfg, discardLogger()),
		NewAnalyzer(vitalityTables(), []string{"쇼핑업"}, s, nil, discardLogger()),
		NewPlanner(geo, agg, planConfig, s, nil, discardLogger()),
		s, nil, discardLogger(),
	)

	id, records, _, err := r.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	stored, err := r.RecordsForRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, records, stored)

	latest, err := r.LatestDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, latest)

	analysis, plan, err := r.DeriveAndPlan(ctx, datasetRecords(), PlanRequest{Start: "S", Stops: []string{"A", "B"}})
	require.NoError(t, err)
	assert.Equal(t, analysis.Weights, plan.Weights)
	assert.Len(t, plan.Ranking, 2)
}

func TestPlanRejectsTooManyStops(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := planFixture(s)

	req := PlanRequest{
		Start:   "S",
		Stops:   []string{"A", "B", "A", "B", "A"},
		Weights: scoring.WeightVector{region.FeatureDistance: 1},
	}
	assert.ErrorIs(t, p.Validate(req), ErrTooManyStops)

	_, err := p.Plan(ctx, req)
	assert.ErrorIs(t, err, ErrTooManyStops)

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.NoError(t, req.Validate(0), "a zero cap disables the check")
}

func TestPlanCapsCandidates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	geo := mockGeocoder{"S": stop("S", 0), "A": stop("A", 1), "B": stop("B", 2)}
	legs := map[string]float64{
		"S>A": 1000, "A>B": 1000, "B>S": 1000,
		"S>B": 3000, "B>A": 3000, "A>S": 3000,
	}
	agg := itinerary.NewAggregator(legTable(legs), "measured", discardLogger())
	cfg := planConfig
	cfg.PlanLimit = 1

	plan, err := NewPlanner(geo, agg, cfg, s, nil, discardLogger()).Plan(ctx, PlanRequest{
		Start:   "S",
		Stops:   []string{"A", "B"},
		Weights: scoring.WeightVector{region.FeatureDistance: 1},
	})
	require.NoError(t, err)
	require.Len(t, plan.Ranking, 1)
	assert.Equal(t, "S -> A -> B -> S", plan.Ranking[0].Label)
	assert.Equal(t, 1, plan.Stats.Total)
}

func TestRecordWriteFailuresFailTheRun(t *testing.T) {
	ctx := context.Background()
	geo := mockGeocoder{"S": stop("S", 0), "A": stop("A", 1), "B": stop("B", 2)}
	legs := map[string]float64{
		"S>A": 1000, "A>B": 1000, "B>S": 1000,
		"S>B": 3000, "B>A": 3000, "A>S": 3000,
	}
	cfg := config.AnalysisConfig{
		Regions:    []config.RegionConfig{{Name: "r", Start: "S"}},
		StopCounts: []int{2},
	}

	tests := []struct {
		name string
		kind store.RunKind
		run  func(r *Runner) error
	}{
		{
			name: "collect",
			kind: store.KindCollect,
			run: func(r *Runner) error {
				_, _, _, err := r.Collect(ctx)
				return err
			},
		},
		{
			name: "analyze",
			kind: store.KindAnalyze,
			run: func(r *Runner) error {
				_, err := r.Analyzer.Analyze(ctx, AnalyzeRequest{Records: datasetRecords()})
				return err
			},
		},
		{
			name: "plan",
			kind: store.KindPlan,
			run: func(r *Runner) error {
				_, err := r.Planner.Plan(ctx, PlanRequest{
					Start:   "S",
					Stops:   []string{"A", "B"},
					Weights: scoring.WeightVector{region.FeatureDistance: 1},
				})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := failingStore{store.NewMemoryStore()}
			ev := &mockEvents{}
			agg := itinerary.NewAggregator(legTable(legs), "measured", discardLogger())
			r := NewRunner(
				NewCollector(geo, mockPOIs{"r": {stop("A", 1), stop("B", 2)}}, agg, cfg, discardLogger()),
				NewAnalyzer(vitalityTables(), []string{"쇼핑업"}, s, ev, discardLogger()),
				NewPlanner(geo, agg, planConfig, s, ev, discardLogger()),
				s, ev, discardLogger(),
			)

			err := tt.run(r)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "save records")

			runs, err := s.ListRuns(ctx, store.RunFilter{Kind: tt.kind})
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, store.StatusFailed, runs[0].Status)
			assert.Contains(t, runs[0].Error, "disk full")
			assert.NotNil(t, runs[0].CompletedAt)
			assert.Contains(t, ev.subjects, "tpfi.run."+runs[0].ID.String()+".failed")
			assert.NotContains(t, ev.subjects, "tpfi.run."+runs[0].ID.String()+".completed")
			assert.NotContains(t, ev.subjects, "tpfi.weights.derived")
		})
	}
}
