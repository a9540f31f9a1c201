package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/MikeSquared-Agency/tpfi/internal/dataset"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/kakao"
	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
	"github.com/MikeSquared-Agency/tpfi/internal/profile"
	"github.com/MikeSquared-Agency/tpfi/internal/region"
	"github.com/MikeSquared-Agency/tpfi/internal/report"
	"github.com/MikeSquared-Agency/tpfi/internal/scoring"
)

func (a *app) collect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	out := fs.String("out", "itineraries.csv", "dataset output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, records, stats, err := a.runner.Collect(ctx)
	for _, st := range stats {
		a.logger.Info("region collected", "region", st.Region, "points", st.Points,
			"valid", st.Valid, "lookup_failures", st.LookupFailures, "skipped", st.Skipped)
	}
	if err != nil {
		return err
	}

	if err := writeFile(*out, func(w io.Writer) error { return dataset.WriteCSV(w, records) }); err != nil {
		return err
	}
	a.logger.Info("dataset written", "run_id", id, "path", *out, "records", len(records))
	return nil
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	in := fs.String("in", "itineraries.csv", "dataset input file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := readDataset(*in)
	if err != nil {
		return err
	}
	analysis, err := a.runner.Analyzer.Analyze(ctx, pipeline.AnalyzeRequest{Records: records})
	if err != nil {
		return err
	}

	w := os.Stdout
	fmt.Fprintf(w, "%-16s %12s %10s %10s %10s %10s\n", "region", "distance_m", "duration_s", "transfers", "walk_ratio", "vitality")
	for _, name := range region.SortedRegions(analysis.Features) {
		fv := analysis.Features[name]
		vit := "-"
		if v, ok := analysis.Vitality[name]; ok {
			vit = strconv.FormatFloat(v, 'f', 4, 64)
		}
		fmt.Fprintf(w, "%-16s %12.1f %10.1f %10.2f %10.4f %10s\n",
			name, fv.AvgDistance, fv.AvgDuration, fv.AvgTransfers, fv.AvgWalkRatio, vit)
	}
	return json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":       analysis.RunID,
		"correlations": analysis.Correlations,
		"weights":      analysis.Weights,
	})
}

// score ranks every itinerary of a dataset at once, as in the final
// per-region fatigue report.
func (a *app) score(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	in := fs.String("in", "itineraries.csv", "dataset input file")
	weightsFlag := fs.String("weights", "", "feature weights, e.g. distance=0.6,transfers=0.4 (derived from the dataset if empty)")
	xlsxOut := fs.String("xlsx", "", "optional spreadsheet report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := readDataset(*in)
	if err != nil {
		return err
	}
	strategy, err := pipeline.WalkStrategyOf(records)
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageScore, Err: err}
	}
	weights, err := parseWeights(*weightsFlag)
	if err != nil {
		return err
	}
	if len(weights) == 0 {
		analysis, err := a.runner.Analyzer.Analyze(ctx, pipeline.AnalyzeRequest{Records: records})
		if err != nil {
			return err
		}
		weights = analysis.Weights
	} else if weights, err = weights.Normalize(); err != nil {
		return err
	}

	ranked, err := scoring.NewFatigueScorer(weights, a.cfg.Analysis.Rescale, a.logger).Score(records)
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageScore, Err: err}
	}
	means := report.RegionMeans(ranked)
	fmt.Fprintf(os.Stdout, "walk strategy: %s\n", strategy)
	for _, m := range means {
		fmt.Fprintf(os.Stdout, "%-16s %8.3f %6d\n", m.Region, m.MeanScore, m.Itineraries)
	}
	if *xlsxOut != "" {
		return writeFile(*xlsxOut, func(w io.Writer) error { return report.WriteXLSX(w, ranked, means) })
	}
	return nil
}

func (a *app) plan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	in := fs.String("in", "", "dataset to derive weights from (latest analysis run if empty)")
	start := fs.String("start", "", "start and end point")
	stops := fs.String("stops", "", "comma-separated stops to visit")
	regionName := fs.String("region", "", "region label for the plan")
	weightsFlag := fs.String("weights", "", "feature weights, e.g. distance=0.6,transfers=0.4")
	xlsxOut := fs.String("xlsx", "", "optional spreadsheet report")
	top := fs.Int("top", 10, "number of trips to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	weights, err := parseWeights(*weightsFlag)
	if err != nil {
		return err
	}
	req := pipeline.PlanRequest{
		Region:  *regionName,
		Start:   *start,
		Stops:   splitStops(*stops),
		Weights: weights,
	}
	if err := a.runner.Planner.Validate(req); err != nil {
		return err
	}

	var plan *pipeline.Plan
	if *in != "" && len(weights) == 0 {
		records, err := readDataset(*in)
		if err != nil {
			return err
		}
		_, plan, err = a.runner.DeriveAndPlan(ctx, records, req)
		if err != nil {
			return err
		}
	} else {
		plan, err = a.runner.Planner.Plan(ctx, req)
		if err != nil {
			return err
		}
	}

	shown := plan.Ranking
	if *top > 0 && len(shown) > *top {
		shown = shown[:*top]
	}
	if err := report.WriteText(os.Stdout, shown); err != nil {
		return err
	}
	if *xlsxOut != "" {
		return writeFile(*xlsxOut, func(w io.Writer) error {
			return report.WriteXLSX(w, plan.Ranking, nil)
		})
	}
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rc := range a.cfg.Analysis.Regions {
		counts := make(map[string]int, len(profile.Categories()))
		for _, code := range profile.Categories() {
			n, err := a.places.CountPlaces(ctx, rc.Name, code)
			if err != nil {
				return fmt.Errorf("count %s in %s: %w", code, rc.Name, err)
			}
			counts[code] = n
		}

		places, err := kakao.CollectPOIs(ctx, a.places, rc.Name, a.cfg.Analysis.POIKeywords,
			a.cfg.Kakao.PagesPerQuery, a.cfg.Kakao.PageSize)
		if err != nil {
			return err
		}
		points := make([]orb.Point, len(places))
		for i, p := range places {
			points[i] = p.Stop().Point()
		}

		if err := enc.Encode(profile.Build(rc.Name, rc.AreaKm2, counts, points)); err != nil {
			return err
		}
	}
	return nil
}

func readDataset(path string) ([]itinerary.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// parseWeights reads "feature=value" pairs separated by commas.
func parseWeights(s string) (scoring.WeightVector, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	known := make(map[string]bool)
	for _, f := range region.FeatureNames() {
		known[f] = true
	}
	w := scoring.WeightVector{}
	for _, pair := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q, want feature=value", pair)
		}
		if !known[name] {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", name, err)
		}
		w[name] = v
	}
	if len(w) == 0 {
		return nil, errors.New("no weights given")
	}
	return w, nil
}

func splitStops(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
