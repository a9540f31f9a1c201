// Package routing selects how walking distance and transfers are obtained for
// each leg.
package routing

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

// Strategy names the walk-distance source recorded on every itinerary record.
type Strategy string

const (
	// Measured uses the walking segments and transit boardings reported by the provider.
	Measured Strategy = "measured"
	// Bucketed estimates walking share and transfers from leg distance alone.
	Bucketed Strategy = "bucketed"
)

// ParseStrategy validates a configured strategy name. Empty means Measured.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", Measured:
		return Measured, nil
	case Bucketed:
		return Bucketed, nil
	}
	return "", fmt.Errorf("unknown walk strategy %q", s)
}

// BucketedProvider keeps the base provider's distance, duration, and fare but
// replaces walking distance and transfers with distance-bucket estimates.
type BucketedProvider struct {
	base itinerary.LegProvider
}

func NewBucketedProvider(base itinerary.LegProvider) *BucketedProvider {
	return &BucketedProvider{base: base}
}

func (p *BucketedProvider) LegMetrics(ctx context.Context, origin, destination itinerary.Stop) (itinerary.LegMetrics, error) {
	leg, err := p.base.LegMetrics(ctx, origin, destination)
	if err != nil {
		return itinerary.LegMetrics{}, err
	}
	leg.WalkDistanceM = leg.DistanceM * BucketWalkRatio(leg.DistanceM)
	leg.TransferCount = BucketTransfers(leg.DistanceM)
	return leg, nil
}

// BucketWalkRatio is 0.30 under 2 km, 0.20 under 5 km, and 0.15 beyond.
func BucketWalkRatio(distanceM float64) float64 {
	switch {
	case distanceM < 2000:
		return 0.30
	case distanceM < 5000:
		return 0.20
	default:
		return 0.15
	}
}

// BucketTransfers assumes one boarding per 3 km.
func BucketTransfers(distanceM float64) int {
	if distanceM <= 0 {
		return 0
	}
	return max(0, int(distanceM/3000)-1)
}

// NewProvider wraps base according to strategy.
func NewProvider(strategy Strategy, base itinerary.LegProvider) itinerary.LegProvider {
	if strategy == Bucketed {
		return NewBucketedProvider(base)
	}
	return base
}
