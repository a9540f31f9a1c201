package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
)

// Aggregator sums per-leg metrics over closed-loop itineraries.
type Aggregator struct {
	provider LegProvider
	strategy string
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. strategy tags every record with the
// walk-distance strategy the provider uses.
func NewAggregator(provider LegProvider, strategy string, logger *slog.Logger) *Aggregator {
	return &Aggregator{provider: provider, strategy: strategy, logger: logger}
}

// BatchStats summarises one AggregateAll call.
type BatchStats struct {
	Total          int `json:"total"`
	Valid          int `json:"valid"`
	LookupFailures int `json:"lookup_failures"`
	ZeroDistance   int `json:"zero_distance"`
}

// Aggregate resolves every leg of it and returns the summed record.
// Any failed leg discards the whole itinerary; there are no retries.
func (a *Aggregator) Aggregate(ctx context.Context, region string, it Itinerary) (Record, error) {
	var total LegMetrics
	for i := 0; i+1 < len(it.Stops); i++ {
		origin, dest := it.Stops[i], it.Stops[i+1]

		t0 := time.Now()
		metrics.LegLookupsTotal.Inc()
		leg, err := a.provider.LegMetrics(ctx, origin, dest)
		metrics.LegLookupDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
		if err != nil {
			metrics.LegLookupFailuresTotal.Inc()
			return Record{}, fmt.Errorf("%w: %s -> %s: %v", ErrLegLookup, origin.Name, dest.Name, err)
		}
		total = total.Add(leg)
	}

	if total.DistanceM <= 0 {
		return Record{}, ErrZeroDistance
	}

	return Record{
		Region:        region,
		Label:         it.Label(),
		NumStops:      it.Visits(),
		DistanceM:     total.DistanceM,
		DurationS:     total.DurationS,
		WalkDistanceM: total.WalkDistanceM,
		Transfers:     total.TransferCount,
		Fare:          total.Fare,
		WalkRatio:     WalkRatio(total.WalkDistanceM, total.DistanceM),
		WalkStrategy:  a.strategy,
	}, nil
}

// AggregateAll aggregates a batch, dropping invalid itineraries.
// A cancelled context stops the batch and returns what was collected so far.
func (a *Aggregator) AggregateAll(ctx context.Context, region string, its []Itinerary) ([]Record, BatchStats) {
	stats := BatchStats{Total: len(its)}
	records := make([]Record, 0, len(its))

	for i, it := range its {
		if ctx.Err() != nil {
			a.logger.Warn("aggregation cancelled", "region", region, "processed", i, "total", len(its))
			break
		}
		rec, err := a.Aggregate(ctx, region, it)
		switch {
		case err == nil:
			records = append(records, rec)
			stats.Valid++
			metrics.ItinerariesValidTotal.Inc()
		case errors.Is(err, ErrZeroDistance):
			stats.ZeroDistance++
			metrics.ItinerariesDiscardedTotal.WithLabelValues("zero_distance").Inc()
			a.logger.Debug("itinerary discarded", "region", region, "label", it.Label(), "reason", "zero distance")
		default:
			stats.LookupFailures++
			metrics.ItinerariesDiscardedTotal.WithLabelValues("lookup_failure").Inc()
			a.logger.Debug("itinerary discarded", "region", region, "label", it.Label(), "error", err)
		}

		if (i+1)%20 == 0 {
			a.logger.Info("aggregation progress", "region", region, "processed", i+1, "total", len(its))
		}
	}

	a.logger.Info("aggregation finished", "region", region,
		"total", stats.Total, "valid", stats.Valid,
		"lookup_failures", stats.LookupFailures, "zero_distance", stats.ZeroDistance)
	return records, stats
}
