package services

import (
	"context"
	"sync"
	"time"

	"station-climatology/internal/filestore"
	"station-climatology/internal/repository"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// Reload triggers
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// DataStore is a backend that can re-read its source data
type DataStore interface {
	Reload(ctx context.Context) error
	Stats() filestore.Stats
}

// ReloadResult reports the outcome of a reload
type ReloadResult struct {
	Trigger     string           `json:"trigger"`
	Reloaded    bool             `json:"reloaded"`
	CachesReset int              `json:"caches_reset"`
	Duration    time.Duration    `json:"duration_ns"`
	Stats       *filestore.Stats `json:"stats,omitempty"`
}

// ReloadService refreshes the data store and clears the read caches in front of it
type ReloadService struct {
	store   DataStore
	caches  []repository.Invalidator
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu sync.Mutex
}

// NewReloadService creates a reload service. store may be nil when the backend has
// nothing to re-read; caches are still cleared.
func NewReloadService(store DataStore, caches []repository.Invalidator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ReloadService {
	return &ReloadService{
		store:   store,
		caches:  caches,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Reload re-reads the store, then invalidates the caches. Concurrent calls are serialized.
// Caches are left untouched when the store fails to reload.
func (s *ReloadService) Reload(ctx context.Context, trigger string) (*ReloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &ReloadResult{Trigger: trigger}

	if s.store != nil {
		if err := s.store.Reload(ctx); err != nil {
			s.metrics.RecordReload(trigger, err)
			s.logger.Error(ctx, "[RELOAD_FAILED] Data reload failed", logging.Fields{
				"trigger": trigger,
			}, err)
			return nil, err
		}
		stats := s.store.Stats()
		result.Reloaded = true
		result.Stats = &stats
	}

	for _, c := range s.caches {
		c.Invalidate()
	}
	result.CachesReset = len(s.caches)
	result.Duration = time.Since(start)

	s.metrics.RecordReload(trigger, nil)
	s.logger.Info(ctx, "[RELOAD_COMPLETE] Data reloaded", logging.Fields{
		"trigger":      trigger,
		"reloaded":     result.Reloaded,
		"caches_reset": result.CachesReset,
		"duration_ms":  result.Duration.Milliseconds(),
	})

	return result, nil
}

// Run reloads every interval until ctx is done. Failures are logged and the
// previous data stays in service.
func (s *ReloadService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "[RELOAD_SCHEDULE] Periodic reload enabled", logging.Fields{
		"interval": interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Reload(ctx, TriggerSchedule)
		}
	}
}
