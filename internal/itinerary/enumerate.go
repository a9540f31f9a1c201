package itinerary

import "math"

// preallocCap bounds the initial capacity of Enumerate's result slice.
const preallocCap = 1024

// PermutationCount returns n!/(n-k)!, or 0 when k > n or either is negative.
// Counts that do not fit in an int saturate at math.MaxInt.
func PermutationCount(n, k int) int {
	if n < 0 || k < 0 || k > n {
		return 0
	}
	count := 1
	for i := 0; i < k; i++ {
		f := n - i
		if count > math.MaxInt/f {
			return math.MaxInt
		}
		count *= f
	}
	return count
}

// Enumerate returns up to limit closed-loop itineraries visiting k of the
// given points, in lexicographic order of point indices. limit <= 0 means no cap.
// When len(points) < k the result is empty; callers treat that as
// insufficient points rather than an error.
func Enumerate(start Stop, points []Stop, k, limit int) []Itinerary {
	n := len(points)
	if k <= 0 || n < k {
		return nil
	}
	total := PermutationCount(n, k)
	if limit <= 0 || limit > total {
		limit = total
	}

	out := make([]Itinerary, 0, min(limit, preallocCap))
	used := make([]bool, n)
	idx := make([]int, 0, k)

	var walk func() bool
	walk = func() bool {
		if len(idx) == k {
			stops := make([]Stop, 0, k+2)
			stops = append(stops, start)
			for _, i := range idx {
				stops = append(stops, points[i])
			}
			stops = append(stops, start)
			out = append(out, Itinerary{Stops: stops})
			return len(out) < limit
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			idx = append(idx, i)
			more := walk()
			idx = idx[:len(idx)-1]
			used[i] = false
			if !more {
				return false
			}
		}
		return true
	}
	walk()
	return out
}

// EnumerateSizes runs Enumerate for each stop count in sizes, capping each size
// at limit. Only the first maxPoints points are considered (maxPoints <= 0 keeps all).
// Sizes larger than the available points are skipped.
func EnumerateSizes(start Stop, points []Stop, sizes []int, limit, maxPoints int) []Itinerary {
	if maxPoints > 0 && len(points) > maxPoints {
		points = points[:maxPoints]
	}
	var out []Itinerary
	for _, k := range sizes {
		out = append(out, Enumerate(start, points, k, limit)...)
	}
	return out
}
