// Package cache provides a read-through cache for the query API with Redis and
// in-memory backends.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/observability"
)

const summariesKey = "summaries"

// Cache is a byte-oriented key/value backend. Purge must advance Generation
// before it drops entries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Purge(ctx context.Context) error
	Generation(ctx context.Context) (uint64, error)
}

// Reader is the read side of the summary store.
type Reader interface {
	ListCitySummaries(ctx context.Context) ([]domain.CitySummary, error)
	GetCityDetail(ctx context.Context, city string) (domain.CityDetail, error)
	CheckReadiness(ctx context.Context) error
}

// CachedReader wraps a Reader with a Cache. Backend failures are logged and
// fall through to the store.
//
// Keys are scoped to the cache generation read before the store is queried.
// A read that overlaps a purge writes under the old generation, which no later
// lookup uses.
type CachedReader struct {
	inner   Reader
	cache   Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedReader creates a cache decorator around a store reader.
func NewCachedReader(inner Reader, cache Cache, logger *slog.Logger, metrics *observability.Metrics) *CachedReader {
	return &CachedReader{inner: inner, cache: cache, logger: logger, metrics: metrics}
}

func (c *CachedReader) ListCitySummaries(ctx context.Context) ([]domain.CitySummary, error) {
	key, cacheable := c.key(ctx, summariesKey)
	var summaries []domain.CitySummary
	if cacheable && c.lookup(ctx, key, &summaries) {
		return summaries, nil
	}
	summaries, err := c.inner.ListCitySummaries(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.store(ctx, key, summaries)
	}
	return summaries, nil
}

func (c *CachedReader) GetCityDetail(ctx context.Context, city string) (domain.CityDetail, error) {
	key, cacheable := c.key(ctx, "city:"+city)
	var detail domain.CityDetail
	if cacheable && c.lookup(ctx, key, &detail) {
		return detail, nil
	}
	detail, err := c.inner.GetCityDetail(ctx, city)
	if err != nil {
		return detail, err
	}
	// Unknown cities are not cached so a later ingest that adds them is visible
	// without waiting for a purge.
	if cacheable && detail.Summary != nil {
		c.store(ctx, key, detail)
	}
	return detail, nil
}

func (c *CachedReader) CheckReadiness(ctx context.Context) error {
	return c.inner.CheckReadiness(ctx)
}

// Purge drops every cached response.
func (c *CachedReader) Purge(ctx context.Context) error {
	return c.cache.Purge(ctx)
}

// key scopes name to the current generation. It reports false when the
// generation is unavailable and the request should bypass the cache.
func (c *CachedReader) key(ctx context.Context, name string) (string, bool) {
	gen, err := c.cache.Generation(ctx)
	if err != nil {
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache generation unavailable", "error", err)
		return "", false
	}
	return strconv.FormatUint(gen, 10) + ":" + name, true
}

func (c *CachedReader) lookup(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (c *CachedReader) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}
