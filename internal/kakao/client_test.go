package kakao

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const keywordBody = `{
  "documents": [
    {"id": "1", "place_name": "명동성당", "x": "126.9870", "y": "37.5633", "category_name": "여행 > 관광,명소", "category_group_code": "AT4"},
    {"id": "2", "place_name": "남산타워", "x": "126.9882", "y": "37.5512", "category_name": "여행 > 관광,명소", "category_group_code": "AT4"},
    {"id": "3", "place_name": "broken", "x": "not-a-number", "y": "37.5"}
  ],
  "meta": {"total_count": 42, "is_end": true}
}`

const directionsBody = `{
  "routes": [{
    "result_code": 0,
    "result_msg": "길찾기 성공",
    "summary": {"distance": 5200, "duration": 1500, "fare": {"total": 1450}},
    "sections": [
      {"guides": [
        {"name": "도보", "type": 0, "distance": 300},
        {"name": "2호선", "type": 1, "distance": 3000},
        {"name": "도보", "type": 0, "distance": 150}
      ]},
      {"guides": [
        {"name": "472", "type": 2, "distance": 1500},
        {"name": "도보", "type": 0, "distance": 250}
      ]}
    ]
  }]
}`

func newServer(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, srv.URL, "test-key", 2*time.Second), srv
}

func TestSearchKeyword(t *testing.T) {
	var gotQuery, gotAuth string
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/local/search/keyword.json", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, keywordBody)
	})

	places, err := c.SearchKeyword(context.Background(), "서울 중구 관광지", 1, 15)
	require.NoError(t, err)
	assert.Equal(t, "서울 중구 관광지", gotQuery)
	assert.Equal(t, "KakaoAK test-key", gotAuth)
	require.Len(t, places, 2, "documents with bad coordinates are skipped")
	assert.Equal(t, "명동성당", places[0].Name)
	assert.Equal(t, 126.9870, places[0].Lon)
	assert.Equal(t, 37.5633, places[0].Lat)
	assert.Equal(t, "AT4", places[0].CategoryCode)
}

func TestGeocode(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "nowhere" {
			io.WriteString(w, `{"documents": [], "meta": {"total_count": 0}}`)
			return
		}
		io.WriteString(w, keywordBody)
	})

	stop, err := c.Geocode(context.Background(), "명동역")
	require.NoError(t, err)
	assert.Equal(t, itinerary.Stop{Name: "명동성당", Lon: 126.9870, Lat: 37.5633}, stop)

	_, err = c.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountPlaces(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CT1", r.URL.Query().Get("category_group_code"))
		io.WriteString(w, keywordBody)
	})
	n, err := c.CountPlaces(context.Background(), "서울 중구", "CT1")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestLegMetrics(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/directions", r.URL.Path)
		assert.Equal(t, "126.98,37.56", r.URL.Query().Get("origin"))
		assert.Equal(t, "127.01,37.5", r.URL.Query().Get("destination"))
		io.WriteString(w, directionsBody)
	})

	leg, err := c.LegMetrics(context.Background(),
		itinerary.Stop{Name: "a", Lon: 126.98, Lat: 37.56},
		itinerary.Stop{Name: "b", Lon: 127.01, Lat: 37.5})
	require.NoError(t, err)
	assert.Equal(t, 5200.0, leg.DistanceM)
	assert.Equal(t, 1500.0, leg.DurationS)
	assert.Equal(t, 700.0, leg.WalkDistanceM)
	assert.Equal(t, 1, leg.TransferCount)
	assert.Equal(t, 1450.0, leg.Fare)
}

func TestLegMetricsNoRoute(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"routes": [{"result_code": 104, "result_msg": "출발지와 도착지가 너무 가까움"}]}`)
	})
	_, err := c.LegMetrics(context.Background(), itinerary.Stop{}, itinerary.Stop{})
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestHTTPErrorIncludesStatus(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := c.LegMetrics(context.Background(), itinerary.Stop{}, itinerary.Stop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

// stubClient serves canned search pages keyed by query.
type stubClient struct {
	pages map[string][]Place
	legs  int
}

func (s *stubClient) SearchKeyword(_ context.Context, query string, page, _ int) ([]Place, error) {
	if strings.HasSuffix(query, "fail") {
		return nil, errors.New("boom")
	}
	if page > 1 {
		return nil, nil
	}
	return s.pages[query], nil
}

func (s *stubClient) Geocode(_ context.Context, name string) (itinerary.Stop, error) {
	return itinerary.Stop{Name: name}, nil
}

func (s *stubClient) CountPlaces(context.Context, string, string) (int, error) { return 7, nil }

func (s *stubClient) LegMetrics(context.Context, itinerary.Stop, itinerary.Stop) (itinerary.LegMetrics, error) {
	s.legs++
	return itinerary.LegMetrics{DistanceM: 1}, nil
}

func TestCollectPOIsDedupesInFirstSeenOrder(t *testing.T) {
	stub := &stubClient{pages: map[string][]Place{
		"강릉시 관광지": {{ID: "a", Name: "경포대"}, {ID: "b", Name: "오죽헌"}},
		"강릉시 맛집":  {{ID: "c", Name: "초당순두부"}, {ID: "a", Name: "경포대"}},
	}}

	places, err := CollectPOIs(context.Background(), stub, "강릉시", []string{"관광지", "맛집"}, 2, 15)
	require.NoError(t, err)
	var names []string
	for _, p := range places {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"경포대", "오죽헌", "초당순두부"}, names)

	_, err = CollectPOIs(context.Background(), stub, "강릉시", []string{"fail"}, 1, 15)
	assert.Error(t, err)
}

func TestCachedPlacesWithoutRedisPassesThrough(t *testing.T) {
	stub := &stubClient{}
	cp := NewCachedPlaces(stub, nil, 0, discardLogger())

	stop, err := cp.Geocode(context.Background(), "강릉역")
	require.NoError(t, err)
	assert.Equal(t, "강릉역", stop.Name)

	n, err := cp.CountPlaces(context.Background(), "강릉시", "AT4")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = cp.LegMetrics(context.Background(), itinerary.Stop{}, itinerary.Stop{})
	require.NoError(t, err)
	_, err = cp.LegMetrics(context.Background(), itinerary.Stop{}, itinerary.Stop{})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.legs, "leg lookups are never cached")
}

func TestCachedPlacesUnreachableRedisFallsBack(t *testing.T) {
	rc := OpenRedis("127.0.0.1:1", "", 0)
	defer rc.Close()
	cp := NewCachedPlaces(&stubClient{}, rc, time.Minute, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stop, err := cp.Geocode(ctx, "해운대해수욕장")
	require.NoError(t, err)
	assert.Equal(t, "해운대해수욕장", stop.Name)
}

func TestOpenRedisEmptyAddr(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))
}
