// Package filestore serves the station catalog and daily series from CSV files held in memory.
//
// The catalog, the quality results and every series part file are read on Load. Reload reads
// them again and swaps the snapshot only when the new load succeeds, so readers never observe
// a partially loaded store.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"station-climatology/internal/models"
	"station-climatology/internal/repository"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// ErrNoSeriesFiles is returned when the series pattern matches no file
var ErrNoSeriesFiles = errors.New("no series files found")

// Config locates the source files
type Config struct {
	CatalogPath   string
	QualityPath   string
	SeriesPattern string // glob, e.g. "data/series_part_*.csv"
	Separator     rune   // 0 detects ',' or ';' from each header
	MaxParallel   int    // concurrent series file reads, 0 = unlimited
}

// Stats describes the loaded snapshot
type Stats struct {
	Stations     int       `json:"stations"`
	Unmatched    int       `json:"unmatched_catalog_rows"`
	SeriesFiles  int       `json:"series_files"`
	Observations int       `json:"observations"`
	Duplicates   int       `json:"duplicate_observations"`
	RejectedRows int       `json:"rejected_rows"`
	LoadedAt     time.Time `json:"loaded_at"`
	LoadDuration string    `json:"load_duration"`
	WithSeries   int       `json:"stations_with_series"`
}

type snapshot struct {
	stations []*models.Station
	byID     map[string]*models.Station
	series   map[string][]models.DailyObservation
	stats    Stats
}

// Store is an in-memory CatalogRepository and SeriesRepository
type Store struct {
	cfg     Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu   sync.RWMutex
	snap *snapshot
}

// New creates an empty store; call Load before serving reads
func New(cfg Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Store {
	return &Store{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsCollector,
		snap: &snapshot{
			byID:   map[string]*models.Station{},
			series: map[string][]models.DailyObservation{},
		},
	}
}

var (
	_ repository.CatalogRepository = (*Store)(nil)
	_ repository.SeriesRepository  = (*Store)(nil)
)

// Load reads every source file and installs the result
func (s *Store) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload reads every source file again. On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) error {
	timer := s.metrics.NewTimer(s.metrics.StoreReloadSeconds)

	snap, err := s.load(ctx)
	duration := timer.ObserveDuration()
	if err != nil {
		s.logger.Error(ctx, "[STORE_LOAD_ERROR] Failed to load data files", logging.Fields{
			"catalog": s.cfg.CatalogPath,
			"quality": s.cfg.QualityPath,
			"series":  s.cfg.SeriesPattern,
		}, err)
		return err
	}
	snap.stats.LoadDuration = duration.String()

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.metrics.StoreRecords.WithLabelValues("stations").Set(float64(snap.stats.Stations))
	s.metrics.StoreRecords.WithLabelValues("observations").Set(float64(snap.stats.Observations))
	s.metrics.StoreRecords.WithLabelValues("rejected").Set(float64(snap.stats.RejectedRows))

	s.logger.Info(ctx, "[STORE_LOADED] Data files loaded", logging.Fields{
		"stations":      snap.stats.Stations,
		"series_files":  snap.stats.SeriesFiles,
		"observations":  snap.stats.Observations,
		"rejected_rows": snap.stats.RejectedRows,
		"duplicates":    snap.stats.Duplicates,
		"duration_ms":   duration.Milliseconds(),
	})

	return nil
}

// Stats returns the statistics of the current snapshot
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.stats
}

// ListStations returns the catalog ordered by station ID
func (s *Store) ListStations(ctx context.Context) ([]*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.stations, nil
}

// GetStation returns a station or a *repository.NotFoundError
func (s *Store) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	station, ok := s.snap.byID[stationID]
	if !ok {
		return nil, repository.StationNotFound(stationID)
	}
	return station, nil
}

// GetSeries returns a station's series in date order. The slice is shared; do not modify it.
func (s *Store) GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.snap.series[stationID]
	if series == nil {
		return []models.DailyObservation{}, nil
	}
	return series, nil
}

// SeriesFiles returns the files matched by the series pattern in name order
func (s *Store) SeriesFiles() ([]string, error) {
	return MatchSeriesFiles(s.cfg.SeriesPattern)
}

// MatchSeriesFiles expands a series glob into file names in name order
func MatchSeriesFiles(pattern string) ([]string, error) {
	parts, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid series pattern %q: %w", pattern, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSeriesFiles, pattern)
	}
	sort.Strings(parts)
	return parts, nil
}

type seriesPart struct {
	observations []*models.DailyObservation
	rejected     int
}

func (s *Store) load(ctx context.Context) (*snapshot, error) {
	parts, err := MatchSeriesFiles(s.cfg.SeriesPattern)
	if err != nil {
		return nil, err
	}

	var (
		stations        []*models.Station
		quality         map[string]*models.QualityStats
		catalogRejected []RowError
		qualityRejected []RowError
		results         = make([]seriesPart, len(parts))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stations, catalogRejected, err = ReadFile(s.cfg.CatalogPath, s.cfg.Separator, ReadCatalog)
		return err
	})

	g.Go(func() error {
		var err error
		quality, qualityRejected, err = ReadFile(s.cfg.QualityPath, s.cfg.Separator, ReadQuality)
		return err
	})

	g.Go(func() error {
		sg, sctx := errgroup.WithContext(gctx)
		if s.cfg.MaxParallel > 0 {
			sg.SetLimit(s.cfg.MaxParallel)
		}
		for i, path := range parts {
			sg.Go(func() error {
				if err := sctx.Err(); err != nil {
					return err
				}
				obs, rejected, err := ReadFile(path, s.cfg.Separator, ReadSeries)
				if err != nil {
					return err
				}
				s.logRejected(sctx, path, rejected)
				results[i] = seriesPart{observations: obs, rejected: len(rejected)}
				return nil
			})
		}
		return sg.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logRejected(ctx, s.cfg.CatalogPath, catalogRejected)
	s.logRejected(ctx, s.cfg.QualityPath, qualityRejected)

	snap := &snapshot{
		byID:   make(map[string]*models.Station, len(stations)),
		series: make(map[string][]models.DailyObservation),
	}
	snap.stats.SeriesFiles = len(parts)
	snap.stats.RejectedRows = len(catalogRejected) + len(qualityRejected)

	// inner join of catalog and quality
	for _, station := range stations {
		q, ok := quality[station.StationID]
		if !ok {
			snap.stats.Unmatched++
			continue
		}
		joined := *station
		joined.QualityStats = *q
		snap.stations = append(snap.stations, &joined)
		snap.byID[joined.StationID] = &joined
	}
	sort.Slice(snap.stations, func(i, j int) bool {
		return snap.stations[i].StationID < snap.stations[j].StationID
	})
	snap.stats.Stations = len(snap.stations)

	// later rows override earlier rows for the same (station, date)
	type key struct {
		station string
		date    time.Time
	}
	positions := make(map[key]int)
	for _, part := range results {
		snap.stats.RejectedRows += part.rejected
		for _, obs := range part.observations {
			k := key{station: obs.StationID, date: obs.Date}
			if i, dup := positions[k]; dup {
				snap.series[obs.StationID][i] = *obs
				snap.stats.Duplicates++
				continue
			}
			positions[k] = len(snap.series[obs.StationID])
			snap.series[obs.StationID] = append(snap.series[obs.StationID], *obs)
		}
	}

	for id, series := range snap.series {
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		snap.stats.Observations += len(series)
		if _, ok := snap.byID[id]; ok {
			snap.stats.WithSeries++
		}
	}

	snap.stats.LoadedAt = time.Now().UTC()
	return snap, nil
}

func (s *Store) logRejected(ctx context.Context, path string, rejected []RowError) {
	if len(rejected) == 0 {
		return
	}

	first := rejected[0]
	s.logger.Warn(ctx, "[STORE_ROWS_REJECTED] Skipped malformed rows", logging.Fields{
		"file":      path,
		"rejected":  len(rejected),
		"first_row": first.Row,
		"reason":    first.Err.Error(),
	})
}

// ReadFile opens path and decodes it with read, prefixing errors with the file name
func ReadFile[T any](path string, sep rune, read func(io.Reader, rune) (T, []RowError, error)) (T, []RowError, error) {
	var zero T

	f, err := os.Open(path)
	if err != nil {
		return zero, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, rejected, err := read(f, sep)
	if err != nil {
		return zero, rejected, fmt.Errorf("%s: %w", path, err)
	}
	return out, rejected, nil
}
