package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

func fv(name string, dist, dur, transfers, ratio float64) region.FeatureVector {
	return region.FeatureVector{Region: name, AvgDistance: dist, AvgDuration: dur, AvgTransfers: transfers, AvgWalkRatio: ratio}
}

func TestDeriveWeightsSingleNegativeFeature(t *testing.T) {
	features := map[string]region.FeatureVector{
		"gangneung": fv("gangneung", 9000, 1800, 1, 0.2),
		"haeundae":  fv("haeundae", 6000, 1800, 1, 0.2),
		"junggu":    fv("junggu", 3000, 1800, 1, 0.2),
	}
	vitality := map[string]float64{"gangneung": 0.10, "haeundae": 0.20, "junggu": 0.35}

	d, err := DeriveWeights(features, vitality)
	require.NoError(t, err)
	assert.Equal(t, []string{"gangneung", "haeundae", "junggu"}, d.Regions)
	require.Len(t, d.Weights, 1)
	assert.InDelta(t, 1.0, d.Weights["distance"], 1e-9)
	assert.Equal(t, 0.0, d.Weights["duration"])
	assert.Equal(t, 0.0, d.Correlations["duration"], "constant feature correlates at 0")
	assert.Less(t, d.Correlations["distance"], 0.0)
}

func TestDeriveWeightsNormalizesAbsoluteCorrelations(t *testing.T) {
	features := map[string]region.FeatureVector{
		"a": fv("a", 9000, 1000, 3, 0.1),
		"b": fv("b", 6000, 3000, 1, 0.4),
		"c": fv("c", 3000, 2000, 2, 0.2),
		"d": fv("d", 2000, 2500, 0, 0.3),
	}
	vitality := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.4}

	d, err := DeriveWeights(features, vitality)
	require.NoError(t, err)
	assert.True(t, math.Abs(d.Weights.Sum()-1) <= 1e-9)
	for name, w := range d.Weights {
		assert.Less(t, d.Correlations[name], 0.0, name)
		assert.Greater(t, w, 0.0)
	}
	_, positive := d.Weights["walk_ratio"]
	assert.False(t, positive, "positively correlated features get no weight")
}

func TestDeriveWeightsInnerJoin(t *testing.T) {
	features := map[string]region.FeatureVector{
		"a": fv("a", 9000, 1, 1, 0.1),
		"b": fv("b", 3000, 1, 1, 0.1),
		"c": fv("c", 1000, 1, 1, 0.1),
	}
	vitality := map[string]float64{"a": 0.1, "b": 0.3, "z": 0.9}

	d, err := DeriveWeights(features, vitality)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, d.Regions)
	// Two points: every non-constant feature correlates at ±1.
	assert.InDelta(t, -1.0, d.Correlations["distance"], 1e-9)
}

func TestDeriveWeightsInsufficientRegions(t *testing.T) {
	features := map[string]region.FeatureVector{"a": fv("a", 1, 1, 1, 1)}
	_, err := DeriveWeights(features, map[string]float64{"a": 0.2, "b": 0.3})
	assert.ErrorIs(t, err, ErrInsufficientRegions)
}

func TestDeriveWeightsNoNegativeCorrelation(t *testing.T) {
	features := map[string]region.FeatureVector{
		"a": fv("a", 1000, 100, 0, 0.1),
		"b": fv("b", 2000, 200, 1, 0.2),
		"c": fv("c", 3000, 300, 2, 0.3),
	}
	vitality := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}

	d, err := DeriveWeights(features, vitality)
	assert.ErrorIs(t, err, ErrNoNegativeCorrelation)
	assert.Empty(t, d.Weights)
	assert.Len(t, d.Correlations, 4)
}
