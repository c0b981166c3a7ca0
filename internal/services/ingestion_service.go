package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"station-climatology/internal/filestore"
	"station-climatology/internal/models"
	"station-climatology/internal/repository"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

var observationColumns = []string{"station_id", "observation_date", "value", "is_synthetic"}

// BulkCopier streams rows into a table in one round trip
type BulkCopier interface {
	CopyRows(ctx context.Context, table string, columns []string, src database.CopySource) (int64, error)
}

// IngestionService loads catalog, quality and series files into the SQL store
type IngestionService struct {
	writer  repository.Writer
	copier  BulkCopier
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionOptions locates the source files and selects the write path
type IngestionOptions struct {
	CatalogPath   string
	QualityPath   string
	SeriesPattern string
	Separator     rune
	BatchSize     int
	// UseCopy streams series through COPY instead of batched upserts
	UseCopy bool
	// Replace deletes a station's stored series before loading it
	Replace bool
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	SkippedRecords    int
	StationsLoaded    int
	UnmatchedStations int
	DeletedRecords    int64
	Duration          time.Duration
	Errors            []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	SkippedRecords    int
}

// NewIngestionService creates a new ingestion service. copier may be nil when COPY is unavailable.
func NewIngestionService(writer repository.Writer, copier BulkCopier, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		writer:  writer,
		copier:  copier,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Ingest loads the catalog joined with quality results, then every series file.
// Observations for stations outside the loaded catalog are skipped. A failing series
// file is recorded in Errors and the remaining files are still processed.
func (s *IngestionService) Ingest(ctx context.Context, opts IngestionOptions) (*IngestionResult, error) {
	startTime := time.Now()

	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.UseCopy && s.copier == nil {
		return nil, fmt.Errorf("bulk copy requested but no copier is configured")
	}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"catalog":    opts.CatalogPath,
		"quality":    opts.QualityPath,
		"series":     opts.SeriesPattern,
		"batch_size": opts.BatchSize,
		"use_copy":   opts.UseCopy,
		"replace":    opts.Replace,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		Errors: make([]string, 0),
	}

	known, err := s.ingestCatalog(ctx, opts, result)
	if err != nil {
		s.metrics.RecordIngestionError("catalog_error")
		return nil, err
	}

	files, err := filestore.MatchSeriesFiles(opts.SeriesPattern)
	if err != nil {
		return nil, err
	}
	result.TotalFiles = len(files)

	s.logger.Info(ctx, "[INGEST_FILES] Found series files", logging.Fields{
		"file_count": len(files),
		"stations":   len(known),
		"stage":      "FILE_DISCOVERY",
	})

	if opts.Replace {
		for id := range known {
			n, err := s.writer.DeleteSeries(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to clear series for %s: %w", id, err)
			}
			result.DeletedRecords += n
		}
	}

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := s.ingestFile(ctx, filePath, known, opts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		result.TotalRecords += fileResult.TotalRecords
		result.SuccessfulRecords += fileResult.SuccessfulRecords
		result.FailedRecords += fileResult.FailedRecords
		result.SkippedRecords += fileResult.SkippedRecords

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":          filePath,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"failed_records":     fileResult.FailedRecords,
			"skipped_records":    fileResult.SkippedRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"stations_loaded":    result.StationsLoaded,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"skipped_records":    result.SkippedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// ingestCatalog upserts every catalog station that has a quality row and returns their identifiers
func (s *IngestionService) ingestCatalog(ctx context.Context, opts IngestionOptions, result *IngestionResult) (map[string]struct{}, error) {
	stations, rejected, err := filestore.ReadFile(opts.CatalogPath, opts.Separator, filestore.ReadCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	s.recordRejected(ctx, opts.CatalogPath, rejected, result)

	quality, rejected, err := filestore.ReadFile(opts.QualityPath, opts.Separator, filestore.ReadQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to read quality results: %w", err)
	}
	s.recordRejected(ctx, opts.QualityPath, rejected, result)

	known := make(map[string]struct{}, len(stations))
	for _, station := range stations {
		q, ok := quality[station.StationID]
		if !ok {
			result.UnmatchedStations++
			continue
		}
		if err := s.writer.UpsertStation(ctx, station); err != nil {
			return nil, fmt.Errorf("failed to store station %s: %w", station.StationID, err)
		}
		if err := s.writer.UpsertQuality(ctx, station.StationID, q); err != nil {
			return nil, fmt.Errorf("failed to store quality for %s: %w", station.StationID, err)
		}
		known[station.StationID] = struct{}{}
	}
	result.StationsLoaded = len(known)

	return known, nil
}

// ingestFile loads one series file
func (s *IngestionService) ingestFile(ctx context.Context, filePath string, known map[string]struct{}, opts IngestionOptions) (*FileIngestionResult, error) {
	observations, rejected, err := filestore.ReadFile(filePath, opts.Separator, filestore.ReadSeries)
	if err != nil {
		return nil, err
	}

	result := &FileIngestionResult{
		TotalRecords:  len(observations) + len(rejected),
		FailedRecords: len(rejected),
	}
	for range rejected {
		s.metrics.RecordIngestionError("parse_error")
	}

	accepted := make([]*models.DailyObservation, 0, len(observations))
	for _, obs := range observations {
		if _, ok := known[obs.StationID]; !ok {
			result.SkippedRecords++
			continue
		}
		accepted = append(accepted, obs)
	}

	if opts.UseCopy {
		n, err := s.copyObservations(ctx, dedupeObservations(accepted))
		if err != nil {
			return nil, err
		}
		result.SuccessfulRecords = int(n)
		return result, nil
	}

	for start := 0; start < len(accepted); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(accepted) {
			end = len(accepted)
		}
		if err := s.writer.InsertObservationsBatch(ctx, accepted[start:end]); err != nil {
			return nil, fmt.Errorf("failed to insert batch: %w", err)
		}
		result.SuccessfulRecords += end - start
	}

	return result, nil
}

func (s *IngestionService) copyObservations(ctx context.Context, observations []*models.DailyObservation) (int64, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	src := pgx.CopyFromSlice(len(observations), func(i int) ([]any, error) {
		obs := observations[i]
		return []any{obs.StationID, obs.Date, obs.Value, obs.IsSynthetic}, nil
	})

	n, err := s.copier.CopyRows(ctx, "daily_observations", observationColumns, src)
	if err != nil {
		return n, err
	}
	s.metrics.IngestionBatchSize.Observe(float64(n))
	s.metrics.IngestionRecordsTotal.Add(float64(n))
	return n, nil
}

func (s *IngestionService) recordRejected(ctx context.Context, path string, rejected []filestore.RowError, result *IngestionResult) {
	for _, r := range rejected {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, r))
		s.metrics.RecordIngestionError("parse_error")
	}
	if len(rejected) > 0 {
		s.logger.Warn(ctx, "[INGEST_ROWS_REJECTED] Rows rejected", logging.Fields{
			"file_path": path,
			"rejected":  len(rejected),
		})
	}
}

// dedupeObservations keeps the last row for each (station, date); COPY cannot upsert
func dedupeObservations(observations []*models.DailyObservation) []*models.DailyObservation {
	type key struct {
		station string
		date    time.Time
	}

	index := make(map[key]int, len(observations))
	out := make([]*models.DailyObservation, 0, len(observations))
	for _, obs := range observations {
		k := key{obs.StationID, obs.Date}
		if i, dup := index[k]; dup {
			out[i] = obs
			continue
		}
		index[k] = len(out)
		out = append(out, obs)
	}
	return out
}
