package services

import (
	"context"
	"fmt"
	"sort"

	"station-climatology/internal/models"
	"station-climatology/internal/repository"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// StationSummary is a catalog entry as listed in the station selector
type StationSummary struct {
	StationID string `json:"station_id"`
	Name      string `json:"name"`
	Region    string `json:"region"`
	Subregion string `json:"subregion"`
	Label     string `json:"label"`
}

// CatalogService browses the station catalog by region and sub-region
type CatalogService struct {
	catalog repository.CatalogRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog repository.CatalogRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Regions returns the distinct regions in sorted order
func (s *CatalogService) Regions(ctx context.Context) ([]string, error) {
	stations, err := s.catalog.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	return distinct(stations, func(st *models.Station) (string, bool) {
		return st.Region, true
	}), nil
}

// Subregions returns the distinct sub-regions of region in sorted order.
// An unknown region is a *repository.NotFoundError.
func (s *CatalogService) Subregions(ctx context.Context, region string) ([]string, error) {
	stations, err := s.catalog.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	subregions := distinct(stations, func(st *models.Station) (string, bool) {
		return st.Subregion, st.Region == region
	})
	if len(subregions) == 0 {
		return nil, &repository.NotFoundError{Resource: "region", ID: region}
	}

	return subregions, nil
}

// Stations lists the stations of a region and sub-region, ordered by label.
// Empty filters match every value.
func (s *CatalogService) Stations(ctx context.Context, region, subregion string) ([]StationSummary, error) {
	stations, err := s.catalog.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	summaries := make([]StationSummary, 0)
	for _, st := range stations {
		if region != "" && st.Region != region {
			continue
		}
		if subregion != "" && st.Subregion != subregion {
			continue
		}
		summaries = append(summaries, StationSummary{
			StationID: st.StationID,
			Name:      st.Name,
			Region:    st.Region,
			Subregion: st.Subregion,
			Label:     st.Label(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Label < summaries[j].Label
	})

	s.logger.Debug(ctx, "[CATALOG_STATIONS] Stations listed", logging.Fields{
		"region":    region,
		"subregion": subregion,
		"count":     len(summaries),
	})

	return summaries, nil
}

// Station returns one station with its quality statistics
func (s *CatalogService) Station(ctx context.Context, stationID string) (*models.Station, error) {
	return s.catalog.GetStation(ctx, models.NormalizeStationID(stationID))
}

func distinct(stations []*models.Station, key func(*models.Station) (string, bool)) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, st := range stations {
		v, ok := key(st)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
