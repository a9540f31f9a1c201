package itinerary

import (
	"context"
	"errors"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// ErrLegLookup marks an itinerary whose legs could not all be resolved.
	ErrLegLookup = errors.New("leg lookup failed")
	// ErrZeroDistance marks an itinerary whose legs sum to zero metres.
	ErrZeroDistance = errors.New("itinerary has zero total distance")
	// ErrInsufficientPoints is returned by callers when fewer points than the stop count exist.
	ErrInsufficientPoints = errors.New("insufficient points for stop count")
)

// Stop is a named coordinate. Lon/Lat are WGS84 degrees.
type Stop struct {
	Name string  `json:"name"`
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}

// Point returns the stop as an orb point (lon, lat order).
func (s Stop) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// LegMetrics is what a routing provider reports for one directed pair of stops.
type LegMetrics struct {
	DistanceM     float64 `json:"distance_m"`
	DurationS     float64 `json:"duration_s"`
	WalkDistanceM float64 `json:"walk_distance_m"`
	TransferCount int     `json:"transfer_count"`
	Fare          float64 `json:"fare"`
}

// Add returns the element-wise sum of two legs.
func (m LegMetrics) Add(o LegMetrics) LegMetrics {
	return LegMetrics{
		DistanceM:     m.DistanceM + o.DistanceM,
		DurationS:     m.DurationS + o.DurationS,
		WalkDistanceM: m.WalkDistanceM + o.WalkDistanceM,
		TransferCount: m.TransferCount + o.TransferCount,
		Fare:          m.Fare + o.Fare,
	}
}

// LegProvider resolves transit metrics between two stops. Implementations
// return an error for no-route, provider and network failures; never a partial record.
type LegProvider interface {
	LegMetrics(ctx context.Context, origin, destination Stop) (LegMetrics, error)
}

// LegProviderFunc adapts a function to LegProvider.
type LegProviderFunc func(ctx context.Context, origin, destination Stop) (LegMetrics, error)

func (f LegProviderFunc) LegMetrics(ctx context.Context, origin, destination Stop) (LegMetrics, error) {
	return f(ctx, origin, destination)
}

// Itinerary is a closed loop: Stops[0] == Stops[len-1].
type Itinerary struct {
	Stops []Stop `json:"stops"`
}

// Label renders the stop names joined by arrows.
func (it Itinerary) Label() string {
	names := make([]string, len(it.Stops))
	for i, s := range it.Stops {
		names[i] = s.Name
	}
	return strings.Join(names, " -> ")
}

// Visits is the number of stops between the start and the return.
func (it Itinerary) Visits() int {
	if len(it.Stops) < 2 {
		return 0
	}
	return len(it.Stops) - 2
}

// Record is the aggregated, immutable result for one valid itinerary.
type Record struct {
	Region        string  `json:"region"`
	Label         string  `json:"label"`
	NumStops      int     `json:"num_stops"`
	DistanceM     float64 `json:"distance_m"`
	DurationS     float64 `json:"duration_s"`
	WalkDistanceM float64 `json:"walk_distance_m"`
	Transfers     int     `json:"transfers"`
	Fare          float64 `json:"fare"`
	WalkRatio     float64 `json:"walk_ratio"`
	WalkStrategy  string  `json:"walk_strategy,omitempty"`
}

// WalkRatio divides walk distance by total distance, 0 when distance is 0.
func WalkRatio(walkDistanceM, distanceM float64) float64 {
	if distanceM <= 0 {
		return 0
	}
	return walkDistanceM / distanceM
}
