package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"station-climatology/internal/models"
)

type countingStore struct {
	stations    []*models.Station
	series      map[string][]models.DailyObservation
	listCalls   int
	seriesCalls int
	err         error
}

func (s *countingStore) ListStations(ctx context.Context) ([]*models.Station, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.stations, nil
}

func (s *countingStore) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	for _, st := range s.stations {
		if st.StationID == stationID {
			return st, nil
		}
	}
	return nil, StationNotFound(stationID)
}

func (s *countingStore) GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error) {
	s.seriesCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.series[stationID], nil
}

func TestCachedCatalog(t *testing.T) {
	logger, collector := testDeps()
	inner := &countingStore{stations: []*models.Station{
		{StationID: "1", Name: "A"},
		{StationID: "2", Name: "B"},
	}}
	cached := NewCachedCatalog(inner, 0, logger, collector)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.ListStations(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if inner.listCalls != 1 {
		t.Errorf("inner called %d times, want 1", inner.listCalls)
	}

	st, err := cached.GetStation(ctx, "2")
	if err != nil || st.Name != "B" {
		t.Errorf("GetStation() = %v, %v", st, err)
	}
	if _, err := cached.GetStation(ctx, "9"); !IsNotFound(err) {
		t.Errorf("GetStation(9) error = %v, want NotFoundError", err)
	}
	if inner.listCalls != 1 {
		t.Errorf("GetStation bypassed the cache: %d calls", inner.listCalls)
	}

	cached.Invalidate()
	if _, err := cached.ListStations(ctx); err != nil {
		t.Fatal(err)
	}
	if inner.listCalls != 2 {
		t.Errorf("inner called %d times after Invalidate, want 2", inner.listCalls)
	}
}

func TestCachedCatalog_ErrorsAreNotCached(t *testing.T) {
	logger, collector := testDeps()
	inner := &countingStore{err: errors.New("boom")}
	cached := NewCachedCatalog(inner, 0, logger, collector)

	if _, err := cached.ListStations(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	inner.stations = []*models.Station{{StationID: "1"}}
	stations, err := cached.ListStations(context.Background())
	if err != nil || len(stations) != 1 {
		t.Errorf("ListStations() = %v, %v", stations, err)
	}
}

func TestCachedSeries_TTLAndEviction(t *testing.T) {
	logger, collector := testDeps()
	inner := &countingStore{series: map[string][]models.DailyObservation{
		"1": {{StationID: "1", Value: 1}},
		"2": {{StationID: "2", Value: 2}},
		"3": {{StationID: "3", Value: 3}},
	}}
	cached := NewCachedSeries(inner, time.Minute, 2, logger, collector)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cached.cache.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := cached.GetSeries(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if _, err := cached.GetSeries(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.GetSeries(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if inner.seriesCalls != 2 {
		t.Fatalf("inner called %d times, want 2", inner.seriesCalls)
	}

	// third station evicts the oldest entry ("1")
	now = now.Add(time.Second)
	if _, err := cached.GetSeries(ctx, "3"); err != nil {
		t.Fatal(err)
	}
	if cached.cache.len() != 2 {
		t.Errorf("cache holds %d entries, want 2", cached.cache.len())
	}
	if _, ok := cached.cache.get("1"); ok {
		t.Error("oldest entry was not evicted")
	}

	// expiry
	now = now.Add(2 * time.Minute)
	if _, err := cached.GetSeries(ctx, "3"); err != nil {
		t.Fatal(err)
	}
	if inner.seriesCalls != 4 {
		t.Errorf("inner called %d times, want 4 after expiry", inner.seriesCalls)
	}

	cached.Invalidate()
	if cached.cache.len() != 0 {
		t.Error("Invalidate left entries behind")
	}
}
