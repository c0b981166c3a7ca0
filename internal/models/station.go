package models

import "strings"

// Station is a monitoring station joined with its homogenization statistics
type Station struct {
	StationID string `json:"station_id" db:"station_id"`
	Name      string `json:"name" db:"name"`
	Region    string `json:"region" db:"region"`
	Subregion string `json:"subregion" db:"subregion"`

	QualityStats `json:"quality"`
}

// QualityStats holds the data-quality and homogenization results for a station's series.
// Numeric attributes are nil when the source did not report them.
type QualityStats struct {
	Consistency            string   `json:"consistency" db:"consistency"`
	DoubleMassR2           *float64 `json:"double_mass_r2" db:"double_mass_r2"`
	CoefficientOfVariation *float64 `json:"coefficient_of_variation" db:"coefficient_of_variation"`
	OriginalMissingPct     *float64 `json:"original_missing_pct" db:"original_missing_pct"`
	DoubleMassAdjusted     bool     `json:"double_mass_adjusted" db:"double_mass_adjusted"`
	FillMethod             string   `json:"fill_method" db:"fill_method"`
}

// Label returns the selector label used when browsing a sub-region, "NAME [ID]"
func (s *Station) Label() string {
	return s.Name + " [" + s.StationID + "]"
}

// NormalizeStationID trims whitespace and the ".0" suffix left behind when
// numeric station codes pass through a spreadsheet
func NormalizeStationID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimSuffix(id, ".0")
}
