package services

import (
	"context"
	"fmt"
	"io"

	"station-climatology/internal/export"
	"station-climatology/internal/models"
	"station-climatology/internal/repository"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// ExportService writes a station's unmodified daily series as a file
type ExportService struct {
	catalog repository.CatalogRepository
	series  repository.SeriesRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewExportService creates a new export service
func NewExportService(catalog repository.CatalogRepository, series repository.SeriesRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ExportService {
	return &ExportService{
		catalog: catalog,
		series:  series,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Export writes the series of stationID to w and returns the download file name.
// The station is resolved before anything is written.
func (s *ExportService) Export(ctx context.Context, stationID string, format export.Format, w io.Writer) (string, error) {
	station, err := s.catalog.GetStation(ctx, models.NormalizeStationID(stationID))
	if err != nil {
		return "", err
	}

	series, err := s.series.GetSeries(ctx, station.StationID)
	if err != nil {
		return "", fmt.Errorf("failed to load series: %w", err)
	}

	if err := export.Write(w, format, series); err != nil {
		return "", err
	}

	s.metrics.ExportsTotal.WithLabelValues(string(format)).Inc()
	s.logger.Info(ctx, "[EXPORT_COMPLETE] Series exported", logging.Fields{
		"station_id":   station.StationID,
		"format":       string(format),
		"observations": len(series),
	})

	return export.FileName(station.StationID, format), nil
}
