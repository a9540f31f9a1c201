package region

import (
	"sort"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

// Feature column names, shared with the scoring package.
const (
	FeatureDistance  = "distance"
	FeatureDuration  = "duration"
	FeatureTransfers = "transfers"
	FeatureWalkRatio = "walk_ratio"
)

// FeatureNames lists the travel-pattern features in report order.
func FeatureNames() []string {
	return []string{FeatureDistance, FeatureDuration, FeatureTransfers, FeatureWalkRatio}
}

// FeatureVector holds a region's mean travel-pattern metrics.
type FeatureVector struct {
	Region       string  `json:"region"`
	Itineraries  int     `json:"itineraries"`
	AvgDistance  float64 `json:"avg_distance"`
	AvgDuration  float64 `json:"avg_duration"`
	AvgTransfers float64 `json:"avg_transfers"`
	AvgWalkRatio float64 `json:"avg_walk_ratio"`
}

// Value returns the mean for a feature name, and false for unknown names.
func (f FeatureVector) Value(feature string) (float64, bool) {
	switch feature {
	case FeatureDistance:
		return f.AvgDistance, true
	case FeatureDuration:
		return f.AvgDuration, true
	case FeatureTransfers:
		return f.AvgTransfers, true
	case FeatureWalkRatio:
		return f.AvgWalkRatio, true
	}
	return 0, false
}

// RecordValue extracts an itinerary-level feature column.
func RecordValue(r itinerary.Record, feature string) (float64, bool) {
	switch feature {
	case FeatureDistance:
		return r.DistanceM, true
	case FeatureDuration:
		return r.DurationS, true
	case FeatureTransfers:
		return float64(r.Transfers), true
	case FeatureWalkRatio:
		return r.WalkRatio, true
	}
	return 0, false
}

// Aggregate groups records by region and averages each feature.
// Regions without records do not appear in the result.
func Aggregate(records []itinerary.Record) map[string]FeatureVector {
	type sums struct {
		n                                    int
		distance, duration, transfers, ratio float64
	}
	acc := make(map[string]*sums)
	for _, r := range records {
		s, ok := acc[r.Region]
		if !ok {
			s = &sums{}
			acc[r.Region] = s
		}
		s.n++
		s.distance += r.DistanceM
		s.duration += r.DurationS
		s.transfers += float64(r.Transfers)
		s.ratio += r.WalkRatio
	}

	out := make(map[string]FeatureVector, len(acc))
	for name, s := range acc {
		n := float64(s.n)
		out[name] = FeatureVector{
			Region:       name,
			Itineraries:  s.n,
			AvgDistance:  s.distance / n,
			AvgDuration:  s.duration / n,
			AvgTransfers: s.transfers / n,
			AvgWalkRatio: s.ratio / n,
		}
	}
	return out
}

// SortedRegions returns the map keys in ascending order.
func SortedRegions[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
