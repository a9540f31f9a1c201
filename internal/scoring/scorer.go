package scoring

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

var (
	ErrNoCandidates = errors.New("no candidate itineraries to score")
	ErrEmptyWeights = errors.New("weight vector is empty")
)

// Component captures one feature's contribution to a fatigue score.
type Component struct {
	Feature  string  `json:"feature"`
	Raw      float64 `json:"raw"`
	Scaled   float64 `json:"scaled"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// ScoredItinerary is a record with its fatigue score within one batch.
type ScoredItinerary struct {
	itinerary.Record
	FatigueScore float64     `json:"fatigue_score"`
	Rank         int         `json:"rank"`
	Components   []Component `json:"components"`
}

// FatigueScorer ranks candidate itineraries by weighted, min-max scaled features.
type FatigueScorer struct {
	weights WeightVector
	rescale bool
	logger  *slog.Logger
}

// NewFatigueScorer creates a FatigueScorer. With rescale set, scores span [0,100].
func NewFatigueScorer(weights WeightVector, rescale bool, logger *slog.Logger) *FatigueScorer {
	return &FatigueScorer{weights: weights, rescale: rescale, logger: logger}
}

// Score returns the candidates sorted by ascending fatigue score.
// Scores are only comparable within a single call.
func (s *FatigueScorer) Score(records []itinerary.Record) ([]ScoredItinerary, error) {
	if len(records) == 0 {
		return nil, ErrNoCandidates
	}
	if len(s.weights) == 0 {
		return nil, ErrEmptyWeights
	}

	features := s.weights.Features()
	mins := make(map[string]float64, len(features))
	maxs := make(map[string]float64, len(features))
	for _, f := range features {
		for i, r := range records {
			v, _ := region.RecordValue(r, f)
			if i == 0 || v < mins[f] {
				mins[f] = v
			}
			if i == 0 || v > maxs[f] {
				maxs[f] = v
			}
		}
	}

	scale := 1.0
	if s.rescale {
		scale = 100.0
	}

	out := make([]ScoredItinerary, len(records))
	for i, r := range records {
		var total float64
		components := make([]Component, 0, len(features))
		for _, f := range features {
			raw, known := region.RecordValue(r, f)
			c := Component{Feature: f, Raw: raw, Weight: s.weights[f]}
			if known && maxs[f] > mins[f] {
				c.Scaled = (raw - mins[f]) / (maxs[f] - mins[f])
			}
			c.Weighted = c.Scaled * c.Weight
			total += c.Weighted
			components = append(components, c)
		}
		out[i] = ScoredItinerary{
			Record:       r,
			FatigueScore: total * scale,
			Components:   components,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FatigueScore < out[j].FatigueScore
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	metrics.ScoringBatchesTotal.Inc()
	metrics.ScoringBatchSize.Observe(float64(len(records)))
	s.logger.Debug("scored itineraries", "candidates", len(out), "best", out[0].Label, "best_score", out[0].FatigueScore)
	return out, nil
}
