package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"station-climatology/internal/models"
	"station-climatology/internal/presentation"
	"station-climatology/internal/repository"
	"station-climatology/internal/services"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

type memStore struct {
	stations []*models.Station
	series   map[string][]models.DailyObservation
}

func (m *memStore) ListStations(ctx context.Context) ([]*models.Station, error) {
	return m.stations, nil
}

func (m *memStore) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	for _, st := range m.stations {
		if st.StationID == stationID {
			return st, nil
		}
	}
	return nil, repository.StationNotFound(stationID)
}

func (m *memStore) GetSeries(ctx context.Context, stationID string) ([]models.DailyObservation, error) {
	return m.series[stationID], nil
}

func testStore() *memStore {
	var series []models.DailyObservation
	for y := 1990; y <= 1992; y++ {
		for m := time.January; m <= time.December; m++ {
			series = append(series, models.DailyObservation{
				StationID: "100",
				Date:      time.Date(y, m, 10, 0, 0, 0, 0, time.UTC),
				Value:     float64(m) * 10,
			})
		}
	}

	return &memStore{
		stations: []*models.Station{
			{StationID: "100", Name: "EL RETIRO", Region: "Antioquia", Subregion: "Oriente"},
			{StationID: "200", Name: "ABEJORRAL", Region: "Antioquia", Subregion: "Oriente"},
		},
		series: map[string][]models.DailyObservation{"100": series},
	}
}

type testServer struct {
	router  *mux.Router
	metrics *metrics.Collector
}

func newTestServer(t *testing.T, health HealthFunc) *testServer {
	t.Helper()
	logger := logging.NewStructuredLogger("test", "0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	store := testStore()

	h := NewClimatologyHandler(
		services.NewCatalogService(store, logger, collector),
		services.NewClimatologyService(store, store, presentation.LocaleEN, logger, collector),
		services.NewExportService(store, store, logger, collector),
		services.NewReloadService(nil, nil, logger, collector),
		health,
		logger,
		collector,
	)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{router: router, metrics: collector}
}

func (s *testServer) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestClimatologyHandler_Routes(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name        string
		method      string
		target      string
		wantStatus  int
		checkValues func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "regions",
			target:     "/api/regions",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body struct {
					Data  []string `json:"data"`
					Total int      `json:"total"`
				}
				json.NewDecoder(rec.Body).Decode(&body)
				if body.Total != 1 || body.Data[0] != "Antioquia" {
					t.Errorf("body = %+v", body)
				}
			},
		},
		{name: "subregions", target: "/api/regions/Antioquia/subregions", wantStatus: http.StatusOK},
		{name: "unknown region", target: "/api/regions/Narnia/subregions", wantStatus: http.StatusNotFound},
		{
			name:       "stations",
			target:     "/api/stations?region=Antioquia&subregion=Oriente",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !strings.Contains(rec.Body.String(), `"label":"ABEJORRAL [200]"`) {
					t.Errorf("body = %s", rec.Body)
				}
			},
		},
		{name: "station", target: "/api/stations/100.0", wantStatus: http.StatusOK},
		{name: "unknown station", target: "/api/stations/999", wantStatus: http.StatusNotFound},
		{
			name:       "period",
			target:     "/api/stations/100/period",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body services.PeriodInfo
				json.NewDecoder(rec.Body).Decode(&body)
				if body.Bounds.Start != 1990 || body.Default.Start != 1991 || body.Default.End != 1992 {
					t.Errorf("period = %+v", body)
				}
			},
		},
		{name: "period without series", target: "/api/stations/200/period", wantStatus: http.StatusUnprocessableEntity},
		{
			name:       "climatology",
			target:     "/api/stations/100/climatology?start_year=1990&end_year=1992",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body struct {
					Climatology []models.ClimatologyRecord `json:"climatology"`
				}
				json.NewDecoder(rec.Body).Decode(&body)
				if len(body.Climatology) != 12 || body.Climatology[0].Years != 3 {
					t.Errorf("climatology = %+v", body.Climatology)
				}
			},
		},
		{name: "inverted range", target: "/api/stations/100/climatology?start_year=1992&end_year=1990", wantStatus: http.StatusBadRequest},
		{name: "half range", target: "/api/stations/100/climatology?start_year=1992", wantStatus: http.StatusBadRequest},
		{name: "non-numeric year", target: "/api/stations/100/climatology?start_year=x&end_year=1992", wantStatus: http.StatusBadRequest},
		{name: "range without data", target: "/api/stations/100/climatology?start_year=2000&end_year=2001", wantStatus: http.StatusUnprocessableEntity},
		{
			name:       "dashboard spanish",
			target:     "/api/stations/100/dashboard?lang=es",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body presentation.Dashboard
				json.NewDecoder(rec.Body).Decode(&body)
				if body.Locale != presentation.LocaleES || body.PeriodLabel != "1991-1992" {
					t.Errorf("dashboard = %+v", body)
				}
			},
		},
		{name: "dashboard bad lang", target: "/api/stations/100/dashboard?lang=fr", wantStatus: http.StatusBadRequest},
		{
			name:       "export csv",
			target:     "/api/stations/100/export",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="adjusted_series_100.csv"` {
					t.Errorf("Content-Disposition = %q", got)
				}
				lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
				if len(lines) != 37 || lines[1] != "1990-01-10,10,false" {
					t.Errorf("export has %d lines, first row %q", len(lines), lines[1])
				}
			},
		},
		{
			name:       "export xlsx",
			target:     "/api/stations/100/export?format=xlsx",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats") {
					t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
				}
			},
		},
		{name: "export bad format", target: "/api/stations/100/export?format=parquet", wantStatus: http.StatusBadRequest},
		{name: "export unknown station", target: "/api/stations/999/export", wantStatus: http.StatusNotFound},
		{name: "reload", method: http.MethodPost, target: "/api/admin/reload", wantStatus: http.StatusOK},
		{name: "reload wrong method", target: "/api/admin/reload", wantStatus: http.StatusMethodNotAllowed},
		{name: "health", target: "/health", wantStatus: http.StatusOK},
		{
			name:       "openapi",
			target:     "/api/docs/openapi.json",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var doc map[string]interface{}
				if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
					t.Fatal(err)
				}
				paths := doc["paths"].(map[string]interface{})
				if _, ok := paths["/api/stations/{id}/climatology"]; !ok {
					t.Error("climatology path missing from OpenAPI document")
				}
			},
		},
		{name: "swagger", target: "/api/docs", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := srv.do(method, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

func TestClimatologyHandler_ErrorBody(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/api/stations/999")
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != http.StatusNotFound || body.Error != "Not Found" || !strings.Contains(body.Message, "999") {
		t.Errorf("ErrorResponse = %+v", body)
	}

	got := testutil.ToFloat64(srv.metrics.APIErrorsTotal.WithLabelValues("not_found", "/api/stations/{id}"))
	if got != 1 {
		t.Errorf("APIErrorsTotal = %v, want 1", got)
	}
}

func TestClimatologyHandler_Middleware(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/health")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want caller's", got)
	}

	got := testutil.ToFloat64(srv.metrics.APIRequestsTotal.WithLabelValues("/health", "GET", "200"))
	if got != 2 {
		t.Errorf("APIRequestsTotal = %v, want 2", got)
	}
}

func TestClimatologyHandler_Unhealthy(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context) error { return errors.New("database unreachable") })

	rec := srv.do(http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "database unreachable") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: repository.StationNotFound("1"), want: http.StatusNotFound},
		{err: context.DeadlineExceeded, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
