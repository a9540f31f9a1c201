package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

// RegionStats summarises collection for one region.
type RegionStats struct {
	Region string `json:"region"`
	Points int    `json:"points"`
	itinerary.BatchStats
	Skipped string `json:"skipped,omitempty"`
}

// Collector builds the itinerary dataset for every configured region.
type Collector struct {
	geocoder    Geocoder
	pois        POISource
	agg         *itinerary.Aggregator
	regions     []config.RegionConfig
	stopCounts  []int
	maxPerCount int
	maxPoints   int
	logger      *slog.Logger
}

func NewCollector(g Geocoder, pois POISource, agg *itinerary.Aggregator, cfg config.AnalysisConfig, logger *slog.Logger) *Collector {
	return &Collector{
		geocoder:    g,
		pois:        pois,
		agg:         agg,
		regions:     cfg.Regions,
		stopCounts:  cfg.StopCounts,
		maxPerCount: cfg.MaxPerCount,
		maxPoints:   cfg.MaxPoints,
		logger:      logger,
	}
}

// Collect geocodes each region's start, gathers POIs, enumerates loops for
// every stop count and aggregates them. A region whose start or POIs cannot
// be resolved is skipped. No valid records at all is a collect-stage error.
func (c *Collector) Collect(ctx context.Context) ([]itinerary.Record, []RegionStats, error) {
	var records []itinerary.Record
	stats := make([]RegionStats, 0, len(c.regions))

	for _, rc := range c.regions {
		if err := ctx.Err(); err != nil {
			return nil, stats, stageErr(StageCollect, err)
		}
		recs, st := c.collectRegion(ctx, rc)
		records = append(records, recs...)
		stats = append(stats, st)
	}

	if len(records) == 0 {
		return nil, stats, stageErr(StageCollect, ErrNoValidItineraries)
	}
	return records, stats, nil
}

func (c *Collector) collectRegion(ctx context.Context, rc config.RegionConfig) ([]itinerary.Record, RegionStats) {
	st := RegionStats{Region: rc.Name}

	start, err := c.geocoder.Geocode(ctx, rc.Start)
	if err != nil {
		c.logger.Warn("start point lookup failed, skipping region", "region", rc.Name, "start", rc.Start, "error", err)
		st.Skipped = fmt.Sprintf("start lookup: %v", err)
		return nil, st
	}

	points, err := c.pois.Points(ctx, rc, start)
	if err != nil {
		c.logger.Warn("poi lookup failed, skipping region", "region", rc.Name, "error", err)
		st.Skipped = fmt.Sprintf("poi lookup: %v", err)
		return nil, st
	}
	points = withoutStop(points, start)
	st.Points = len(points)

	for _, k := range c.stopCounts {
		if len(points) < k {
			c.logger.Warn("not enough points for stop count", "region", rc.Name, "points", len(points), "stops", k,
				"error", itinerary.ErrInsufficientPoints)
		}
	}

	its := itinerary.EnumerateSizes(start, points, c.stopCounts, c.maxPerCount, c.maxPoints)
	c.logger.Info("itineraries enumerated", "region", rc.Name, "points", len(points), "itineraries", len(its))

	recs, batch := c.agg.AggregateAll(ctx, rc.Name, its)
	st.BatchStats = batch
	return recs, st
}

// withoutStop drops points with the same name as the start so a loop never
// visits its own origin.
func withoutStop(points []itinerary.Stop, start itinerary.Stop) []itinerary.Stop {
	out := points[:0:0]
	for _, p := range points {
		if p.Name == start.Name {
			continue
		}
		out = append(out, p)
	}
	return out
}
