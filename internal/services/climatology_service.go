package services

import (
	"context"
	"fmt"

	"station-climatology/internal/climatology"
	"station-climatology/internal/models"
	"station-climatology/internal/presentation"
	"station-climatology/internal/repository"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// PeriodInfo describes the years available for a station and the range selected by default
type PeriodInfo struct {
	StationID      string                `json:"station_id"`
	Bounds         climatology.YearRange `json:"bounds"`
	Default        climatology.YearRange `json:"default"`
	StandardPeriod climatology.YearRange `json:"standard_period"`
	Observations   int                   `json:"observations"`
}

// ClimatologyService runs the climatology pipeline for a station
type ClimatologyService struct {
	catalog repository.CatalogRepository
	series  repository.SeriesRepository
	locale  presentation.Locale
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClimatologyService creates a new climatology service
func NewClimatologyService(
	catalog repository.CatalogRepository,
	series repository.SeriesRepository,
	locale presentation.Locale,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimatologyService {
	return &ClimatologyService{
		catalog: catalog,
		series:  series,
		locale:  locale,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// loadSeries returns the station and its non-empty series
func (s *ClimatologyService) loadSeries(ctx context.Context, stationID string) (*models.Station, []models.DailyObservation, error) {
	station, err := s.catalog.GetStation(ctx, models.NormalizeStationID(stationID))
	if err != nil {
		return nil, nil, err
	}

	series, err := s.series.GetSeries(ctx, station.StationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load series: %w", err)
	}
	if len(series) == 0 {
		return nil, nil, climatology.ErrEmptySeries
	}

	return station, series, nil
}

// Period returns the year bounds of a station's series and the default range
func (s *ClimatologyService) Period(ctx context.Context, stationID string) (*PeriodInfo, error) {
	station, series, err := s.loadSeries(ctx, stationID)
	if err != nil {
		return nil, err
	}

	bounds, err := climatology.SeriesYearBounds(series)
	if err != nil {
		return nil, err
	}

	return &PeriodInfo{
		StationID:      station.StationID,
		Bounds:         bounds,
		Default:        climatology.DefaultRange(bounds),
		StandardPeriod: climatology.StandardPeriod,
		Observations:   len(series),
	}, nil
}

// Analyze runs the pipeline over r, or over the default range when r is nil
func (s *ClimatologyService) Analyze(ctx context.Context, stationID string, r *climatology.YearRange) (*climatology.Report, error) {
	_, report, err := s.analyze(ctx, stationID, r)
	return report, err
}

// Dashboard runs the pipeline and builds the dashboard view. An empty locale uses the
// service default.
func (s *ClimatologyService) Dashboard(ctx context.Context, stationID string, r *climatology.YearRange, locale presentation.Locale) (*presentation.Dashboard, error) {
	station, report, err := s.analyze(ctx, stationID, r)
	if err != nil {
		return nil, err
	}

	if locale == "" {
		locale = s.locale
	}
	return presentation.Build(station, report, locale), nil
}

func (s *ClimatologyService) analyze(ctx context.Context, stationID string, r *climatology.YearRange) (*models.Station, *climatology.Report, error) {
	station, series, err := s.loadSeries(ctx, stationID)
	if err != nil {
		return nil, nil, err
	}

	var selected climatology.YearRange
	if r != nil {
		selected = *r
	} else {
		bounds, err := climatology.SeriesYearBounds(series)
		if err != nil {
			return nil, nil, err
		}
		selected = climatology.DefaultRange(bounds)
	}

	timer := s.metrics.NewTimer(s.metrics.ClimatologyDuration)
	report, err := climatology.Analyze(series, selected)
	duration := timer.ObserveDuration()
	if err != nil {
		s.logger.Warn(ctx, "[CLIMATOLOGY_REJECTED] Climatology not computed", logging.Fields{
			"station_id": station.StationID,
			"start_year": selected.Start,
			"end_year":   selected.End,
			"reason":     err.Error(),
		})
		return nil, nil, err
	}

	if len(report.MissingMonths) > 0 {
		s.metrics.ClimatologyGaps.Add(float64(len(report.MissingMonths)))
	}

	s.logger.Debug(ctx, "[CLIMATOLOGY_COMPUTED] Climatology computed", logging.Fields{
		"station_id":      station.StationID,
		"start_year":      selected.Start,
		"end_year":        selected.End,
		"observations":    report.Observations,
		"missing_months":  len(report.MissingMonths),
		"standard_period": report.StandardPeriodComplete,
		"duration_ms":     duration.Milliseconds(),
	})

	return station, report, nil
}
