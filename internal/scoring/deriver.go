package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvlath/matrix"

	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
	"github.com/MikeSquared-Agency/tpfi/internal/region"
)

var (
	ErrInsufficientRegions   = errors.New("fewer than 2 regions have both travel features and vitality data")
	ErrNoNegativeCorrelation = errors.New("no feature correlates negatively with vitality")
)

// Derivation is the outcome of correlating region features against vitality.
type Derivation struct {
	Weights      WeightVector       `json:"weights"`
	Correlations map[string]float64 `json:"correlations"`
	Regions      []string           `json:"regions"`
}

// DeriveWeights joins region features with vitality ratios, correlates each
// feature with vitality, and weights the negatively correlated ones by |r|.
//
// With exactly two regions every non-constant feature correlates at ±1.
// A zero-variance feature correlates at 0 and never receives weight.
func DeriveWeights(features map[string]region.FeatureVector, vitality map[string]float64) (Derivation, error) {
	var joined []string
	for _, name := range region.SortedRegions(features) {
		if _, ok := vitality[name]; ok {
			joined = append(joined, name)
		}
	}
	if len(joined) < 2 {
		metrics.DerivationsTotal.WithLabelValues("insufficient_regions").Inc()
		return Derivation{Regions: joined}, fmt.Errorf("%w: joined %d", ErrInsufficientRegions, len(joined))
	}

	names := region.FeatureNames()
	vitalityCol := len(names)

	X, err := matrix.NewDense(len(joined), len(names)+1)
	if err != nil {
		return Derivation{}, fmt.Errorf("allocating feature matrix: %w", err)
	}
	for i, r := range joined {
		fv := features[r]
		for j, name := range names {
			v, _ := fv.Value(name)
			if err := X.Set(i, j, v); err != nil {
				return Derivation{}, fmt.Errorf("setting %s/%s: %w", r, name, err)
			}
		}
		if err := X.Set(i, vitalityCol, vitality[r]); err != nil {
			return Derivation{}, fmt.Errorf("setting %s/vitality: %w", r, err)
		}
	}

	corr, means, stds, err := matrix.Correlation(X)
	if err != nil {
		return Derivation{}, fmt.Errorf("correlating features: %w", err)
	}

	d := Derivation{
		Weights:      WeightVector{},
		Correlations: make(map[string]float64, len(names)),
		Regions:      joined,
	}
	var total float64
	for j, name := range names {
		r, err := corr.At(j, vitalityCol)
		if err != nil {
			return Derivation{}, fmt.Errorf("reading correlation for %s: %w", name, err)
		}
		if math.IsNaN(r) || constantColumn(means[j], stds[j]) || constantColumn(means[vitalityCol], stds[vitalityCol]) {
			r = 0
		}
		d.Correlations[name] = r
		if r < 0 {
			d.Weights[name] = math.Abs(r)
			total += math.Abs(r)
		}
	}

	if len(d.Weights) == 0 {
		metrics.DerivationsTotal.WithLabelValues("no_negative_correlation").Inc()
		d.Weights = WeightVector{}
		return d, ErrNoNegativeCorrelation
	}
	for name, v := range d.Weights {
		d.Weights[name] = v / total
	}

	metrics.DerivationsTotal.WithLabelValues("ok").Inc()
	return d, nil
}

// constantColumn reports whether a column's spread is rounding noise.
func constantColumn(mean, std float64) bool {
	return std <= 1e-12*math.Max(1, math.Abs(mean))
}
