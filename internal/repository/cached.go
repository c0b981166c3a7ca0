package repository

import (
	"context"
	"sync"
	"time"

	"station-climatology/internal/models"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// Invalidator is implemented by stores that hold derived state which can be dropped
type Invalidator interface {
	Invalidate()
}

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ttlCache is a map guarded by a RWMutex whose entries expire after ttl.
// A zero ttl keeps entries until Invalidate. With maxEntries > 0 the oldest entry is
// evicted to make room.
type ttlCache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func newTTLCache[V any](ttl time.Duration, maxEntries int) *ttlCache[V] {
	return &ttlCache[V]{
		entries:    make(map[string]cacheEntry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found {
		var zero V
		return zero, false
	}

	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		var zero V
		return zero, false
	}

	return entry.value, true
}

func (c *ttlCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}

func (c *ttlCache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.storedAt.Before(oldest) {
			oldestKey, oldest, first = key, entry.storedAt, false
		}
	}
	delete(c.entries, oldestKey)
}

func (c *ttlCache[V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[V])
}

func (c *ttlCache[V]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedCatalog memoizes the station list of an inner CatalogRepository
type CachedCatalog struct {
	inner   CatalogRepository
	cache   *ttlCache[[]*models.Station]
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

const catalogKey = "catalog"

// NewCachedCatalog wraps inner with a cache whose contents expire after ttl
func NewCachedCatalog(inner CatalogRepository, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   newTTLCache[[]*models.Station](ttl, 1),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListStations returns the cached catalog, loading it on a miss
func (c *CachedCatalog) ListStations(ctx context.Context) ([]*models.Station, error) {
	if stations, ok := c.cache.get(catalogKey); ok {
		c.metrics.RecordCacheLookup("catalog", true)
		return stations, nil
	}
	c.metrics.RecordCacheLookup("catalog", false)

	stations, err := c.inner.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.put(catalogKey, stations)
	c.logger.Debug(ctx, "[CACHE_CATALOG] Catalog loaded", logging.Fields{
		"stations": len(stations),
	})

	return stations, nil
}

// GetStation looks the station up in the cached catalog
func (c *CachedCatalog) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	stations, err := c.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	for _, station := range stations {
		if station.StationID == stationID {
			return station, nil
		}
	}

	return nil, StationNotFound(stationID)
}

// Invalidate drops the cached catalog
func (c *CachedCatalog) Invalidate() {
	c.cache.clear()
}

// CachedSeries memoizes per-station series of an inner SeriesRepository
type CachedSeries struct {
	inner   SeriesRepository
	cache   *ttlCache[[]models.DailyObservation]
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCachedSeries wraps inner with a cache of at most maxEntries stations (0 = unbounded)
func NewCachedSeries(inner SeriesRepository, ttl time.Duration, maxEntries int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CachedSeries {
	return &CachedSeries{
		inner:   inner,
		cache:   newTTLCache[[]models.DailyObservation](ttl, maxEntries),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetSeries returns the cached series of a station, loading it on a miss.
// Callers must not modify the returned slice.
func (c *CachedSeries) GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error) {
	if series, ok := c.cache.get(stationID); ok {
		c.metrics.RecordCacheLookup("series", true)
		return series, nil
	}
	c.metrics.RecordCacheLookup("series", false)

	series, err := c.inner.GetSeries(ctx, stationID)
	if err != nil {
		return nil, err
	}

	c.cache.put(stationID, series)
	c.logger.Debug(ctx, "[CACHE_SERIES] Series loaded", logging.Fields{
		"station_id":   stationID,
		"observations": len(series),
		"cached":       c.cache.len(),
	})

	return series, nil
}

// Invalidate drops every cached series
func (c *CachedSeries) Invalidate() {
	c.cache.clear()
}
