package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"station-climatology/internal/models"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// sqlRepository implements StationRepository on pkg/database.
// Queries use '?' placeholders and are rebound to the driver's style.
type sqlRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSQLRepository creates a repository backed by Postgres or SQLite
func NewSQLRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) StationRepository {
	return &sqlRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const stationColumns = `
	s.station_id, s.name, s.region, s.subregion,
	q.consistency, q.double_mass_r2, q.coefficient_of_variation, q.original_missing_pct,
	q.double_mass_adjusted, q.fill_method
`

// ListStations returns catalog entries joined with their quality statistics
func (r *sqlRepository) ListStations(ctx context.Context) ([]*models.Station, error) {
	query := `
		SELECT ` + stationColumns + `
		FROM stations s
		INNER JOIN station_quality q ON q.station_id = s.station_id
		ORDER BY s.station_id
	`

	var stations []*models.Station
	if err := r.db.SelectContext(ctx, "list_stations", &stations, query); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	return stations, nil
}

// GetStation retrieves a station by ID
func (r *sqlRepository) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	query := `
		SELECT ` + stationColumns + `
		FROM stations s
		INNER JOIN station_quality q ON q.station_id = s.station_id
		WHERE s.station_id = ?
	`

	var station models.Station
	err := r.db.GetContext(ctx, "get_station", &station, query, stationID)

	if err == sql.ErrNoRows {
		return nil, StationNotFound(stationID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}

	return &station, nil
}

// seriesRow is the scan target for daily_observations
type seriesRow struct {
	StationID   string  `db:"station_id"`
	Date        sqlDate `db:"observation_date"`
	Value       float64 `db:"value"`
	IsSynthetic bool    `db:"is_synthetic"`
}

// GetSeries retrieves a station's daily series ordered by date
func (r *sqlRepository) GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error) {
	query := `
		SELECT station_id, observation_date, value, is_synthetic
		FROM daily_observations
		WHERE station_id = ?
		ORDER BY observation_date
	`

	var rows []seriesRow
	if err := r.db.SelectContext(ctx, "get_series", &rows, query, stationID); err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	series := make([]models.DailyObservation, len(rows))
	for i, row := range rows {
		series[i] = models.DailyObservation{
			StationID:   row.StationID,
			Date:        row.Date.Time(),
			Value:       row.Value,
			IsSynthetic: row.IsSynthetic,
		}
	}

	return series, nil
}

// UpsertStation creates or updates a catalog entry
func (r *sqlRepository) UpsertStation(ctx context.Context, station *models.Station) error {
	query := `
		INSERT INTO stations (station_id, name, region, subregion)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (station_id) DO UPDATE SET
			name = EXCLUDED.name,
			region = EXCLUDED.region,
			subregion = EXCLUDED.subregion
	`

	_, err := r.db.ExecContext(ctx, "upsert_station", query,
		station.StationID,
		station.Name,
		station.Region,
		station.Subregion,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert station: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_STATION] Station upserted", logging.Fields{
		"station_id": station.StationID,
		"region":     station.Region,
	})

	return nil
}

// UpsertQuality creates or updates the quality statistics of a station
func (r *sqlRepository) UpsertQuality(ctx context.Context, stationID string, q *models.QualityStats) error {
	query := `
		INSERT INTO station_quality (
			station_id, consistency, double_mass_r2, coefficient_of_variation,
			original_missing_pct, double_mass_adjusted, fill_method
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (station_id) DO UPDATE SET
			consistency = EXCLUDED.consistency,
			double_mass_r2 = EXCLUDED.double_mass_r2,
			coefficient_of_variation = EXCLUDED.coefficient_of_variation,
			original_missing_pct = EXCLUDED.original_missing_pct,
			double_mass_adjusted = EXCLUDED.double_mass_adjusted,
			fill_method = EXCLUDED.fill_method
	`

	_, err := r.db.ExecContext(ctx, "upsert_quality", query,
		stationID,
		q.Consistency,
		q.DoubleMassR2,
		q.CoefficientOfVariation,
		q.OriginalMissingPct,
		q.DoubleMassAdjusted,
		q.FillMethod,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quality statistics: %w", err)
	}

	return nil
}

// InsertObservationsBatch writes observations in a single transaction.
// An existing (station, date) row is overwritten.
func (r *sqlRepository) InsertObservationsBatch(ctx context.Context, observations []*models.DailyObservation) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, tx.Rebind(`
		INSERT INTO daily_observations (station_id, observation_date, value, is_synthetic)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (station_id, observation_date) DO UPDATE SET
			value = EXCLUDED.value,
			is_synthetic = EXCLUDED.is_synthetic
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.StationID,
			obs.Date.Format(models.DateLayout),
			obs.Value,
			obs.IsSynthetic,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation %s/%s: %w",
				obs.StationID, obs.Date.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(observations)))

	return nil
}

// DeleteSeries removes every observation of a station and returns the number deleted
func (r *sqlRepository) DeleteSeries(ctx context.Context, stationID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "delete_series",
		`DELETE FROM daily_observations WHERE station_id = ?`, stationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete series: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return deleted, nil
}

// HealthCheck performs a repository health check
func (r *sqlRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// sqlDate scans DATE columns from either driver. lib/pq returns time.Time, SQLite may
// return the stored text.
type sqlDate time.Time

func (d *sqlDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = sqlDate(time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
}

func (d *sqlDate) parse(s string) error {
	t, err := models.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = sqlDate(t)
	return nil
}

// Time returns the date as a UTC midnight time.Time
func (d sqlDate) Time() time.Time {
	return time.Time(d)
}
