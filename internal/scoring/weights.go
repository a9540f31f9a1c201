package scoring

import (
	"fmt"
	"math"
	"sort"
)

// WeightVector maps a feature name to its share of the fatigue score.
// A usable vector is non-empty, non-negative, and sums to 1.0.
type WeightVector map[string]float64

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	var total float64
	for _, f := range w.Features() {
		total += w[f]
	}
	return total
}

// Features returns the weighted feature names in sorted order.
func (w WeightVector) Features() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w WeightVector) Validate() error {
	if len(w) == 0 {
		return ErrEmptyWeights
	}
	for name, v := range w {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("invalid weight for %s: %f", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("weights sum to %.12f, must sum to 1.0", w.Sum())
	}
	return nil
}

// Normalize rescales the weights so they sum to 1.0. Callers supplying
// hand-written weights (API, CLI) go through here before scoring.
func (w WeightVector) Normalize() (WeightVector, error) {
	sum := w.Sum()
	if len(w) == 0 || sum <= 0 {
		return nil, ErrEmptyWeights
	}
	out := make(WeightVector, len(w))
	for name, v := range w {
		if v < 0 {
			return nil, fmt.Errorf("negative weight for %s: %f", name, v)
		}
		out[name] = v / sum
	}
	return out, nil
}
