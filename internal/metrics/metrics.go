// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LegLookupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tpfi_leg_lookups_total",
		Help: "Total leg metric lookups against the routing provider",
	})
	LegLookupFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tpfi_leg_lookup_failures_total",
		Help: "Total leg metric lookups that failed",
	})
	LegLookupDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tpfi_leg_lookup_duration_ms",
		Help:    "Leg lookup duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	ItinerariesValidTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tpfi_itineraries_valid_total",
		Help: "Total itineraries aggregated into a record",
	})
	ItinerariesDiscardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpfi_itineraries_discarded_total",
		Help: "Total itineraries discarded during aggregation",
	}, []string{"reason"})
	PlaceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpfi_place_requests_total",
		Help: "Total place search requests by source and outcome",
	}, []string{"source", "outcome"})
	PlaceCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpfi_place_cache_total",
		Help: "Place lookup cache hits and misses",
	}, []string{"result"})
	DerivationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpfi_weight_derivations_total",
		Help: "Weight derivations by outcome",
	}, []string{"outcome"})
	ScoringBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tpfi_scoring_batches_total",
		Help: "Total fatigue scoring batches",
	})
	ScoringBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tpfi_scoring_batch_size",
		Help:    "Candidates per scoring batch",
		Buckets: []float64{1, 2, 6, 24, 60, 120, 250, 500},
	})
)

func init() {
	prometheus.MustRegister(LegLookupsTotal)
	prometheus.MustRegister(LegLookupFailuresTotal)
	prometheus.MustRegister(LegLookupDurationMs)
	prometheus.MustRegister(ItinerariesValidTotal)
	prometheus.MustRegister(ItinerariesDiscardedTotal)
	prometheus.MustRegister(PlaceRequestsTotal)
	prometheus.MustRegister(PlaceCacheTotal)
	prometheus.MustRegister(DerivationsTotal)
	prometheus.MustRegister(ScoringBatchesTotal)
	prometheus.MustRegister(ScoringBatchSize)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
