package pipeline

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geo"

	"github.com/MikeSquared-Agency/tpfi/internal/config"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/kakao"
	"github.com/MikeSquared-Agency/tpfi/internal/osm"
)

// Geocoder resolves a place name to a stop.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (itinerary.Stop, error)
}

// POISource lists candidate stops for a region around its start point.
type POISource interface {
	Points(ctx context.Context, region config.RegionConfig, start itinerary.Stop) ([]itinerary.Stop, error)
}

// KakaoPOIs searches "<region> <keyword>" on Kakao Local.
type KakaoPOIs struct {
	Client   kakao.Client
	Keywords []string
	Pages    int
	PageSize int
}

func (k *KakaoPOIs) Points(ctx context.Context, region config.RegionConfig, _ itinerary.Stop) ([]itinerary.Stop, error) {
	places, err := kakao.CollectPOIs(ctx, k.Client, region.Name, k.Keywords, k.Pages, k.PageSize)
	if err != nil {
		return nil, err
	}
	stops := make([]itinerary.Stop, len(places))
	for i, p := range places {
		stops[i] = p.Stop()
	}
	return stops, nil
}

// OverpassPOIs queries OSM nodes within RadiusM of the start point.
type OverpassPOIs struct {
	Source  *osm.PlaceSource
	Tags    []string
	RadiusM float64
}

func (o *OverpassPOIs) Points(ctx context.Context, _ config.RegionConfig, start itinerary.Stop) ([]itinerary.Stop, error) {
	bound := geo.NewBoundAroundPoint(start.Point(), o.RadiusM)
	places, err := o.Source.CollectPOIs(ctx, bound, o.Tags)
	if err != nil {
		return nil, err
	}
	return osm.Stops(places), nil
}

// NewPOISource picks the configured POI backend ("kakao" or "overpass").
func NewPOISource(cfg *config.Config, kc kakao.Client, ps *osm.PlaceSource) (POISource, error) {
	switch cfg.Analysis.POISource {
	case "", "kakao":
		return &KakaoPOIs{
			Client:   kc,
			Keywords: cfg.Analysis.POIKeywords,
			Pages:    cfg.Kakao.PagesPerQuery,
			PageSize: cfg.Kakao.PageSize,
		}, nil
	case "overpass", "osm":
		return &OverpassPOIs{Source: ps, Tags: cfg.Overpass.Tags, RadiusM: cfg.Overpass.RadiusM}, nil
	default:
		return nil, fmt.Errorf("unknown poi source %q", cfg.Analysis.POISource)
	}
}
