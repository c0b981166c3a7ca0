package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"station-climatology/internal/climatology"
	"station-climatology/internal/export"
	"station-climatology/internal/presentation"
	"station-climatology/internal/repository"
	"station-climatology/internal/services"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// HealthFunc reports whether the backing store is usable
type HealthFunc func(ctx context.Context) error

// ClimatologyHandler handles catalog, climatology and export endpoints
type ClimatologyHandler struct {
	catalog     *services.CatalogService
	climatology *services.ClimatologyService
	exporter    *services.ExportService
	reloader    *services.ReloadService
	health      HealthFunc
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewClimatologyHandler creates a new climatology handler. health and reloader may be nil.
func NewClimatologyHandler(
	catalog *services.CatalogService,
	climatologyService *services.ClimatologyService,
	exporter *services.ExportService,
	reloader *services.ReloadService,
	health HealthFunc,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimatologyHandler {
	return &ClimatologyHandler{
		catalog:     catalog,
		climatology: climatologyService,
		exporter:    exporter,
		reloader:    reloader,
		health:      health,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ListResponse wraps a list with its length
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

// GetRegions handles GET /api/regions
func (h *ClimatologyHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.catalog.Regions(r.Context())
	if err != nil {
		h.handleError(w, r, "[API_GET_REGIONS_ERROR] Failed to list regions", err)
		return
	}
	h.sendJSON(w, ListResponse{Data: regions, Total: len(regions)}, http.StatusOK)
}

// GetSubregions handles GET /api/regions/{region}/subregions
func (h *ClimatologyHandler) GetSubregions(w http.ResponseWriter, r *http.Request) {
	region := mux.Vars(r)["region"]

	subregions, err := h.catalog.Subregions(r.Context(), region)
	if err != nil {
		h.handleError(w, r, "[API_GET_SUBREGIONS_ERROR] Failed to list subregions", err)
		return
	}
	h.sendJSON(w, ListResponse{Data: subregions, Total: len(subregions)}, http.StatusOK)
}

// GetStations handles GET /api/stations?region=&subregion=
func (h *ClimatologyHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stations, err := h.catalog.Stations(r.Context(), query.Get("region"), query.Get("subregion"))
	if err != nil {
		h.handleError(w, r, "[API_GET_STATIONS_ERROR] Failed to list stations", err)
		return
	}
	h.sendJSON(w, ListResponse{Data: stations, Total: len(stations)}, http.StatusOK)
}

// GetStation handles GET /api/stations/{id}
func (h *ClimatologyHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	station, err := h.catalog.Station(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, "[API_GET_STATION_ERROR] Failed to get station", err)
		return
	}
	h.sendJSON(w, station, http.StatusOK)
}

// GetPeriod handles GET /api/stations/{id}/period
func (h *ClimatologyHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	info, err := h.climatology.Period(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, "[API_GET_PERIOD_ERROR] Failed to get period", err)
		return
	}
	h.sendJSON(w, info, http.StatusOK)
}

// GetClimatology handles GET /api/stations/{id}/climatology?start_year=&end_year=
func (h *ClimatologyHandler) GetClimatology(w http.ResponseWriter, r *http.Request) {
	yr, err := parseYearRange(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.climatology.Analyze(r.Context(), mux.Vars(r)["id"], yr)
	if err != nil {
		h.handleError(w, r, "[API_GET_CLIMATOLOGY_ERROR] Failed to compute climatology", err)
		return
	}
	h.sendJSON(w, report, http.StatusOK)
}

// GetDashboard handles GET /api/stations/{id}/dashboard?start_year=&end_year=&lang=
func (h *ClimatologyHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	yr, err := parseYearRange(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	var locale presentation.Locale
	if lang := r.URL.Query().Get("lang"); lang != "" {
		locale, err = presentation.ParseLocale(lang)
		if err != nil {
			h.sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
	}

	dashboard, err := h.climatology.Dashboard(r.Context(), mux.Vars(r)["id"], yr, locale)
	if err != nil {
		h.handleError(w, r, "[API_GET_DASHBOARD_ERROR] Failed to build dashboard", err)
		return
	}
	h.sendJSON(w, dashboard, http.StatusOK)
}

// GetExport handles GET /api/stations/{id}/export?format=csv|xlsx
func (h *ClimatologyHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		h.handleError(w, r, "[API_EXPORT_ERROR] Invalid export format", err)
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	fileName, err := h.exporter.Export(r.Context(), mux.Vars(r)["id"], format, &buf)
	if err != nil {
		h.handleError(w, r, "[API_EXPORT_ERROR] Failed to export series", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// PostReload handles POST /api/admin/reload
func (h *ClimatologyHandler) PostReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.sendError(w, r, "reload is not available", http.StatusNotImplemented)
		return
	}

	result, err := h.reloader.Reload(r.Context(), services.TriggerManual)
	if err != nil {
		h.handleError(w, r, "[API_RELOAD_ERROR] Reload failed", err)
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ClimatologyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if h.health != nil {
		if err := h.health(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Store unhealthy", logging.Fields{
				"reason": err.Error(),
			})
			status["status"] = "unhealthy"
			status["reason"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// parseYearRange reads start_year and end_year; both absent selects the default range
func parseYearRange(r *http.Request) (*climatology.YearRange, error) {
	query := r.URL.Query()
	startStr, endStr := query.Get("start_year"), query.Get("end_year")

	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, errors.New("start_year and end_year must be given together")
	}

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid start_year %q, expected an integer year", startStr)
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid end_year %q, expected an integer year", endStr)
	}

	return &climatology.YearRange{Start: start, End: end}, nil
}

// statusFor maps a service error to an HTTP status and error type label
func statusFor(err error) (int, string) {
	var invalidRange *climatology.InvalidRangeError

	switch {
	case repository.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &invalidRange), errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, climatology.ErrEmptySeries), errors.Is(err, climatology.ErrEmptyAggregates):
		return http.StatusUnprocessableEntity, "no_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleError logs server-side failures and sends the mapped error response
func (h *ClimatologyHandler) handleError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	code, errType := statusFor(err)
	h.metrics.RecordAPIError(errType, routeTemplate(r))

	message := err.Error()
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), logMsg, logging.Fields{
			"path":   r.URL.Path,
			"status": code,
		}, err)
		if code == http.StatusInternalServerError {
			message = "internal server error"
		}
	}

	h.sendError(w, r, message, code)
}

// sendJSON sends a JSON response
func (h *ClimatologyHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ClimatologyHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all API routes and middleware
func (h *ClimatologyHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID, Instrument(h.logger, h.metrics))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/regions", h.GetRegions).Methods(http.MethodGet)
	api.HandleFunc("/regions/{region}/subregions", h.GetSubregions).Methods(http.MethodGet)
	api.HandleFunc("/stations", h.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}", h.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/period", h.GetPeriod).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/climatology", h.GetClimatology).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/export", h.GetExport).Methods(http.MethodGet)
	api.HandleFunc("/admin/reload", h.PostReload).Methods(http.MethodPost)
	api.HandleFunc("/docs", SwaggerUI).Methods(http.MethodGet)
	api.HandleFunc("/docs/openapi.json", OpenAPISpec).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}
