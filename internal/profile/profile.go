// Package profile computes descriptive statistics for a region's POI set:
// density, category diversity, and spatial dispersion.
package profile

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Kakao category group codes counted by the profile.
const (
	CategoryAttraction = "AT4"
	CategoryCulture    = "CT1"
	CategoryMart       = "MT1"
	CategoryFood       = "FD6"
)

// Categories lists the codes used for diversity, in report order.
func Categories() []string {
	return []string{CategoryAttraction, CategoryCulture, CategoryMart, CategoryFood}
}

// Profile summarises one region.
type Profile struct {
	Region       string         `json:"region"`
	AreaKm2      float64        `json:"area_km2"`
	Counts       map[string]int `json:"counts"`
	Density      float64        `json:"density"`
	Diversity    float64        `json:"diversity"`
	DispersionKm float64        `json:"dispersion_km"`
}

// Density is attraction plus culture places per square kilometre; 0 for a non-positive area.
func Density(counts map[string]int, areaKm2 float64) float64 {
	if areaKm2 <= 0 {
		return 0
	}
	return float64(counts[CategoryAttraction]+counts[CategoryCulture]) / areaKm2
}

// Diversity is the Shannon entropy (bits) of the category distribution.
func Diversity(counts map[string]int) float64 {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		if n > 0 {
			keys = append(keys, k)
			total += n
		}
	}
	if total == 0 {
		return 0
	}
	sort.Strings(keys)
	var h float64
	for _, k := range keys {
		p := float64(counts[k]) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// Dispersion is the mean pairwise great-circle distance in kilometres; 0 for fewer than two points.
func Dispersion(points []orb.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			sum += geo.DistanceHaversine(points[i], points[j])
			pairs++
		}
	}
	return sum / float64(pairs) / 1000
}

// Build assembles a Profile from category counts and POI coordinates.
func Build(region string, areaKm2 float64, counts map[string]int, points []orb.Point) Profile {
	return Profile{
		Region:       region,
		AreaKm2:      areaKm2,
		Counts:       counts,
		Density:      Density(counts, areaKm2),
		Diversity:    Diversity(counts),
		DispersionKm: Dispersion(points),
	}
}
