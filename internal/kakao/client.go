// Package kakao talks to the Kakao Local keyword search and Kakao Mobility
// directions APIs.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
)

var (
	ErrNotFound = errors.New("place not found")
	ErrNoRoute  = errors.New("no route between stops")
)

// walkGuideName marks walking segments in a directions response.
const walkGuideName = "도보"

// Place is one keyword search hit.
type Place struct {
	ID           string  `json:"id"`
	Name         string  `json:"place_name"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	CategoryName string  `json:"category_name"`
	CategoryCode string  `json:"category_group_code"`
}

// Stop converts the place into an itinerary stop.
func (p Place) Stop() itinerary.Stop {
	return itinerary.Stop{Name: p.Name, Lon: p.Lon, Lat: p.Lat}
}

type Client interface {
	SearchKeyword(ctx context.Context, query string, page, size int) ([]Place, error)
	Geocode(ctx context.Context, name string) (itinerary.Stop, error)
	CountPlaces(ctx context.Context, query, categoryCode string) (int, error)
	LegMetrics(ctx context.Context, origin, destination itinerary.Stop) (itinerary.LegMetrics, error)
}

type HTTPClient struct {
	localURL    string
	mobilityURL string
	restKey     string
	httpClient  *http.Client
}

func NewHTTPClient(localURL, mobilityURL, restKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		localURL:    localURL,
		mobilityURL: mobilityURL,
		restKey:     restKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.restKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("kakao GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

type keywordResponse struct {
	Documents []struct {
		ID           string `json:"id"`
		PlaceName    string `json:"place_name"`
		X            string `json:"x"`
		Y            string `json:"y"`
		CategoryName string `json:"category_name"`
		CategoryCode string `json:"category_group_code"`
	} `json:"documents"`
	Meta struct {
		TotalCount int  `json:"total_count"`
		IsEnd      bool `json:"is_end"`
	} `json:"meta"`
}

func (c *HTTPClient) keyword(ctx context.Context, params url.Values) (*keywordResponse, error) {
	data, err := c.doReq(ctx, c.localURL, "/v2/local/search/keyword.json", params)
	if err != nil {
		metrics.PlaceRequestsTotal.WithLabelValues("kakao", "error").Inc()
		return nil, err
	}
	var kr keywordResponse
	if err := json.Unmarshal(data, &kr); err != nil {
		metrics.PlaceRequestsTotal.WithLabelValues("kakao", "error").Inc()
		return nil, fmt.Errorf("decode keyword response: %w", err)
	}
	metrics.PlaceRequestsTotal.WithLabelValues("kakao", "ok").Inc()
	return &kr, nil
}

func (c *HTTPClient) SearchKeyword(ctx context.Context, query string, page, size int) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	kr, err := c.keyword(ctx, params)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(kr.Documents))
	for _, d := range kr.Documents {
		lon, errX := strconv.ParseFloat(d.X, 64)
		lat, errY := strconv.ParseFloat(d.Y, 64)
		if errX != nil || errY != nil {
			continue
		}
		places = append(places, Place{
			ID:           d.ID,
			Name:         d.PlaceName,
			Lon:          lon,
			Lat:          lat,
			CategoryName: d.CategoryName,
			CategoryCode: d.CategoryCode,
		})
	}
	return places, nil
}

// Geocode resolves a place name to its best keyword match.
func (c *HTTPClient) Geocode(ctx context.Context, name string) (itinerary.Stop, error) {
	places, err := c.SearchKeyword(ctx, name, 1, 1)
	if err != nil {
		return itinerary.Stop{}, err
	}
	if len(places) == 0 {
		return itinerary.Stop{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return places[0].Stop(), nil
}

// CountPlaces returns the total hit count for a query, optionally restricted
// to one category group code (AT4, CT1, MT1, FD6, ...).
func (c *HTTPClient) CountPlaces(ctx context.Context, query, categoryCode string) (int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("size", "1")
	if categoryCode != "" {
		params.Set("category_group_code", categoryCode)
	}
	kr, err := c.keyword(ctx, params)
	if err != nil {
		return 0, err
	}
	return kr.Meta.TotalCount, nil
}

type directionsResponse struct {
	Routes []struct {
		ResultCode int    `json:"result_code"`
		ResultMsg  string `json:"result_msg"`
		Summary    struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Fare     struct {
				Total float64 `json:"total"`
			} `json:"fare"`
		} `json:"summary"`
		Sections []struct {
			Guides []struct {
				Name     string  `json:"name"`
				Type     int     `json:"type"`
				Distance float64 `json:"distance"`
			} `json:"guides"`
		} `json:"sections"`
	} `json:"routes"`
}

// LegMetrics implements itinerary.LegProvider against the directions API.
// Walking distance is the sum of walking guides; transit guides (type 1 and 2)
// are counted and every boarding after the first is a transfer.
func (c *HTTPClient) LegMetrics(ctx context.Context, origin, destination itinerary.Stop) (itinerary.LegMetrics, error) {
	params := url.Values{}
	params.Set("origin", coord(origin))
	params.Set("destination", coord(destination))

	data, err := c.doReq(ctx, c.mobilityURL, "/v1/directions", params)
	if err != nil {
		return itinerary.LegMetrics{}, err
	}
	var dr directionsResponse
	if err := json.Unmarshal(data, &dr); err != nil {
		return itinerary.LegMetrics{}, fmt.Errorf("decode directions response: %w", err)
	}
	if len(dr.Routes) == 0 || dr.Routes[0].ResultCode != 0 {
		msg := ""
		if len(dr.Routes) > 0 {
			msg = dr.Routes[0].ResultMsg
		}
		return itinerary.LegMetrics{}, fmt.Errorf("%w: %s", ErrNoRoute, msg)
	}

	route := dr.Routes[0]
	var walk float64
	transit := 0
	for _, section := range route.Sections {
		for _, g := range section.Guides {
			if g.Name == walkGuideName {
				walk += g.Distance
			}
			if g.Type == 1 || g.Type == 2 {
				transit++
			}
		}
	}

	return itinerary.LegMetrics{
		DistanceM:     route.Summary.Distance,
		DurationS:     route.Summary.Duration,
		WalkDistanceM: walk,
		TransferCount: max(0, transit-1),
		Fare:          route.Summary.Fare.Total,
	}, nil
}

// CollectPOIs searches "<area> <keyword>" for each keyword and returns the
// places de-duplicated by ID in first-seen order.
func CollectPOIs(ctx context.Context, c Client, area string, keywords []string, pages, size int) ([]Place, error) {
	if pages <= 0 {
		pages = 1
	}
	seen := make(map[string]bool)
	var out []Place
	for _, kw := range keywords {
		for page := 1; page <= pages; page++ {
			places, err := c.SearchKeyword(ctx, area+" "+kw, page, size)
			if err != nil {
				return nil, fmt.Errorf("search %q page %d: %w", area+" "+kw, page, err)
			}
			for _, p := range places {
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
				out = append(out, p)
			}
			if len(places) < size {
				break
			}
		}
	}
	return out, nil
}

func coord(s itinerary.Stop) string {
	return strconv.FormatFloat(s.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(s.Lat, 'f', -1, 64)
}
