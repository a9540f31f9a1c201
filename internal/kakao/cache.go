package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/metrics"
)

// CachedPlaces caches keyword searches and geocoding in Redis. Leg lookups
// pass straight through to the wrapped client.
type CachedPlaces struct {
	inner  Client
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// OpenRedis connects to addr. An empty addr disables caching and returns nil.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func NewCachedPlaces(inner Client, rc *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedPlaces {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedPlaces{inner: inner, rc: rc, ttl: ttl, logger: logger}
}

func (c *CachedPlaces) SearchKeyword(ctx context.Context, query string, page, size int) ([]Place, error) {
	key := fmt.Sprintf("tpfi:kw:%s:%d:%d", query, page, size)
	var places []Place
	if c.get(ctx, key, &places) {
		return places, nil
	}
	places, err := c.inner.SearchKeyword(ctx, query, page, size)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, places)
	return places, nil
}

func (c *CachedPlaces) Geocode(ctx context.Context, name string) (itinerary.Stop, error) {
	key := "tpfi:geo:" + name
	var stop itinerary.Stop
	if c.get(ctx, key, &stop) {
		return stop, nil
	}
	stop, err := c.inner.Geocode(ctx, name)
	if err != nil {
		return itinerary.Stop{}, err
	}
	c.set(ctx, key, stop)
	return stop, nil
}

func (c *CachedPlaces) CountPlaces(ctx context.Context, query, categoryCode string) (int, error) {
	key := "tpfi:count:" + categoryCode + ":" + query
	var n int
	if c.get(ctx, key, &n) {
		return n, nil
	}
	n, err := c.inner.CountPlaces(ctx, query, categoryCode)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, n)
	return n, nil
}

func (c *CachedPlaces) LegMetrics(ctx context.Context, origin, destination itinerary.Stop) (itinerary.LegMetrics, error) {
	return c.inner.LegMetrics(ctx, origin, destination)
}

func (c *CachedPlaces) get(ctx context.Context, key string, dst any) bool {
	if c.rc == nil {
		return false
	}
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("place cache read failed", "key", key, "error", err)
		}
		metrics.PlaceCacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		metrics.PlaceCacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	metrics.PlaceCacheTotal.WithLabelValues("hit").Inc()
	return true
}

func (c *CachedPlaces) set(ctx context.Context, key string, v any) {
	if c.rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
		c.logger.Debug("place cache write failed", "key", key, "error", err)
	}
}
