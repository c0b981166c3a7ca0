package handlers

import (
	"encoding/json"
	"net/http"
)

func pathParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      map[string]string{"type": "string"},
	}
}

func queryParam(name, description, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      map[string]string{"type": typ},
	}
}

func jsonResponse(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/" + schemaRef},
			},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, "Error")
}

func getOperation(summary, description string, params []map[string]interface{}, responses map[string]interface{}) map[string]interface{} {
	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return map[string]interface{}{"get": op}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Station Climatology API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	stationID := pathParam("id", "Station identifier")
	startYear := queryParam("start_year", "First year of the range, inclusive (requires end_year)", "integer")
	endYear := queryParam("end_year", "Last year of the range, inclusive (requires start_year)", "integer")

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Station Climatology API",
			"description": "Monthly precipitation climatology, extremes and regime for quality-controlled daily station series",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Station Climatology Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/regions": getOperation("List regions",
				"Distinct regions of the station catalog in sorted order", nil,
				map[string]interface{}{
					"200": jsonResponse("Region names", "StringList"),
				}),
			"/api/regions/{region}/subregions": getOperation("List sub-regions",
				"Distinct sub-regions of one region in sorted order",
				[]map[string]interface{}{pathParam("region", "Region name")},
				map[string]interface{}{
					"200": jsonResponse("Sub-region names", "StringList"),
					"404": errorResponse("Unknown region"),
				}),
			"/api/stations": getOperation("List stations",
				"Stations of a region and sub-region ordered by label",
				[]map[string]interface{}{
					queryParam("region", "Region filter", "string"),
					queryParam("subregion", "Sub-region filter", "string"),
				},
				map[string]interface{}{
					"200": jsonResponse("Station summaries", "StationList"),
				}),
			"/api/stations/{id}": getOperation("Get station",
				"Catalog entry and quality statistics of one station",
				[]map[string]interface{}{stationID},
				map[string]interface{}{
					"200": jsonResponse("Station", "Station"),
					"404": errorResponse("Unknown station"),
				}),
			"/api/stations/{id}/period": getOperation("Get available period",
				"Year bounds of the series and the default analysis range",
				[]map[string]interface{}{stationID},
				map[string]interface{}{
					"200": jsonResponse("Period", "Period"),
					"404": errorResponse("Unknown station"),
					"422": errorResponse("Station has no observations"),
				}),
			"/api/stations/{id}/climatology": getOperation("Compute climatology",
				"Monthly totals, climatology, extremes and regime over a year range",
				[]map[string]interface{}{stationID, startYear, endYear},
				map[string]interface{}{
					"200": jsonResponse("Climatology report", "Report"),
					"400": errorResponse("Invalid year range"),
					"404": errorResponse("Unknown station"),
					"422": errorResponse("No observations in range"),
				}),
			"/api/stations/{id}/dashboard": getOperation("Build dashboard",
				"Quality cards, seasonality chart and key metrics ready for display",
				[]map[string]interface{}{stationID, startYear, endYear, queryParam("lang", "Display language: en or es", "string")},
				map[string]interface{}{
					"200": jsonResponse("Dashboard", "Dashboard"),
					"400": errorResponse("Invalid year range or language"),
					"404": errorResponse("Unknown station"),
					"422": errorResponse("No observations in range"),
				}),
			"/api/stations/{id}/export": getOperation("Export series",
				"Download the full daily series as CSV or XLSX",
				[]map[string]interface{}{stationID, queryParam("format", "csv (default) or xlsx", "string")},
				map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Series file",
						"content": map[string]interface{}{
							"text/csv": map[string]interface{}{"schema": map[string]string{"type": "string"}},
							"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]interface{}{
								"schema": map[string]string{"type": "string", "format": "binary"},
							},
						},
					},
					"400": errorResponse("Unsupported format"),
					"404": errorResponse("Unknown station"),
				}),
			"/api/admin/reload": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Reload data",
					"description": "Re-read the source files and clear read caches",
					"responses": map[string]interface{}{
						"200": jsonResponse("Reload result", "ReloadResult"),
						"500": errorResponse("Reload failed, previous data kept"),
					},
				},
			},
			"/health": getOperation("Health check", "Check API and store health", nil,
				map[string]interface{}{
					"200": map[string]interface{}{"description": "Service is healthy"},
					"503": map[string]interface{}{"description": "Store is unavailable"},
				}),
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
				"StringList": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data":  map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
						"total": map[string]string{"type": "integer"},
					},
				},
				"StationList": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"station_id": map[string]string{"type": "string"},
									"name":       map[string]string{"type": "string"},
									"region":     map[string]string{"type": "string"},
									"subregion":  map[string]string{"type": "string"},
									"label":      map[string]string{"type": "string"},
								},
							},
						},
						"total": map[string]string{"type": "integer"},
					},
				},
				"Station": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"station_id": map[string]string{"type": "string"},
						"name":       map[string]string{"type": "string"},
						"region":     map[string]string{"type": "string"},
						"subregion":  map[string]string{"type": "string"},
						"quality": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"consistency":              map[string]string{"type": "string"},
								"double_mass_r2":           map[string]interface{}{"type": "number", "nullable": true},
								"coefficient_of_variation": map[string]interface{}{"type": "number", "nullable": true},
								"original_missing_pct":     map[string]interface{}{"type": "number", "nullable": true},
								"double_mass_adjusted":     map[string]string{"type": "boolean"},
								"fill_method":              map[string]string{"type": "string"},
							},
						},
					},
				},
				"YearRange": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"start": map[string]string{"type": "integer"},
						"end":   map[string]string{"type": "integer"},
					},
				},
				"Period": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"station_id":      map[string]string{"type": "string"},
						"bounds":          map[string]string{"$ref": "#/components/schemas/YearRange"},
						"default":         map[string]string{"$ref": "#/components/schemas/YearRange"},
						"standard_period": map[string]string{"$ref": "#/components/schemas/YearRange"},
						"observations":    map[string]string{"type": "integer"},
					},
				},
				"Report": map[string]interface{}{
					"type":        "object",
					"description": "Monthly totals, climatology records (month, mean, max, min, years), missing months, daily and monthly extremes and the wet/dry regime",
				},
				"Dashboard": map[string]interface{}{
					"type":        "object",
					"description": "Title, period label, quality cards, chart points with text labels, metric cards and gap notice",
				},
				"ReloadResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"trigger":      map[string]string{"type": "string"},
						"reloaded":     map[string]string{"type": "boolean"},
						"caches_reset": map[string]string{"type": "integer"},
						"duration_ns":  map[string]string{"type": "integer"},
						"stats":        map[string]string{"type": "object"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
