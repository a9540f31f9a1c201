package scoring

import "github.com/MikeSquared-Agency/tpfi/internal/region"

// ComputeFrontier returns the scored itineraries no other candidate dominates.
// Every feature is a cost, so lower is better on all dimensions. A candidate
// is dominated if another is <= on every feature and strictly lower on one.
// O(n^2) dominance check; candidate sets are bounded by the enumeration cap.
func ComputeFrontier(candidates []ScoredItinerary) []ScoredItinerary {
	if len(candidates) <= 1 {
		return candidates
	}

	var frontier []ScoredItinerary
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, candidates[i])
		}
	}
	return frontier
}

// dominates returns true if a dominates b.
func dominates(a, b ScoredItinerary) bool {
	strictly := false
	for _, f := range region.FeatureNames() {
		av, _ := region.RecordValue(a.Record, f)
		bv, _ := region.RecordValue(b.Record, f)
		if av > bv {
			return false
		}
		if av < bv {
			strictly = true
		}
	}
	return strictly
}
