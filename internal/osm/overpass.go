// Package osm collects points of interest from OpenStreetMap through the
// Overpass API.
package osm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
)

// Place is a named OSM node.
type Place struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Category string  `json:"category"`
}

func (p Place) Stop() itinerary.Stop {
	return itinerary.Stop{Name: p.Name, Lon: p.Lon, Lat: p.Lat}
}

type PlaceSource struct {
	client  *overpass.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewPlaceSource(endpoint string, maxParallel int, timeout time.Duration, logger *slog.Logger) *PlaceSource {
	if maxParallel <= 0 {
		maxParallel = 2
	}
	httpClient := &http.Client{Timeout: timeout}
	client := overpass.NewWithSettings(endpoint, maxParallel, httpClient)
	return &PlaceSource{client: &client, timeout: timeout, logger: logger}
}

// BuildQuery returns an Overpass QL query for named nodes carrying any of the
// given tag keys inside bound.
func BuildQuery(bound orb.Bound, tags []string) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon())
	var b strings.Builder
	b.WriteString("[out:json];\n(\n")
	for _, tag := range tags {
		fmt.Fprintf(&b, "  node[%q][\"name\"](%s);\n", tag, bbox)
	}
	b.WriteString(");\nout body;\n")
	return b.String()
}

// CollectPOIs returns named nodes inside bound sorted by OSM ID, so the
// enumerator sees a stable input order.
func (s *PlaceSource) CollectPOIs(ctx context.Context, bound orb.Bound, tags []string) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.client.Query(BuildQuery(bound, tags))
	if err != nil {
		metrics.PlaceRequestsTotal.WithLabelValues("overpass", "error").Inc()
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}
	metrics.PlaceRequestsTotal.WithLabelValues("overpass", "ok").Inc()

	places := make([]Place, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		name := node.Tags["name"]
		if name == "" {
			continue
		}
		places = append(places, Place{
			ID:       node.ID,
			Name:     name,
			Lon:      node.Lon,
			Lat:      node.Lat,
			Category: category(node.Tags, tags),
		})
	}
	sort.Slice(places, func(i, j int) bool { return places[i].ID < places[j].ID })

	s.logger.Debug("overpass places collected", "count", len(places), "bound", bound)
	return places, nil
}

// category reports the first matching tag as "key=value".
func category(nodeTags map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := nodeTags[k]; ok {
			return k + "=" + v
		}
	}
	return ""
}

// Stops converts places to itinerary stops, keeping order.
func Stops(places []Place) []itinerary.Stop {
	out := make([]itinerary.Stop, len(places))
	for i, p := range places {
		out[i] = p.Stop()
	}
	return out
}
