package repository

import (
	"context"
	"errors"
	"fmt"

	"station-climatology/internal/models"
)

// CatalogRepository provides read access to the station catalog
type CatalogRepository interface {
	// ListStations returns every station that has quality statistics, ordered by station ID
	ListStations(ctx context.Context) ([]*models.Station, error)
	// GetStation returns a single station or a *NotFoundError
	GetStation(ctx context.Context, stationID string) (*models.Station, error)
}

// SeriesRepository provides read access to daily series
type SeriesRepository interface {
	// GetSeries returns a station's observations in ascending date order.
	// A station without observations yields an empty slice.
	GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error)
}

// Writer loads catalog and series data into a store
type Writer interface {
	UpsertStation(ctx context.Context, station *models.Station) error
	UpsertQuality(ctx context.Context, stationID string, quality *models.QualityStats) error
	InsertObservationsBatch(ctx context.Context, observations []*models.DailyObservation) error
	DeleteSeries(ctx context.Context, stationID string) (int64, error)
}

// StationRepository is the full SQL-backed store
type StationRepository interface {
	CatalogRepository
	SeriesRepository
	Writer

	HealthCheck(ctx context.Context) error
}

// ResourceStation is the resource name used for unknown station identifiers
const ResourceStation = "station"

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// StationNotFound returns the error reported for an unknown station identifier
func StationNotFound(stationID string) error {
	return &NotFoundError{Resource: ResourceStation, ID: stationID}
}

// IsNotFound reports whether err wraps a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
