package models

import (
	"strconv"
	"strings"
)

// RawStationRecord is a row of the station catalog file
type RawStationRecord struct {
	StationID string `csv:"station_id"`
	Name      string `csv:"name"`
	Region    string `csv:"region"`
	Subregion string `csv:"subregion"`
}

// RawQualityRecord is a row of the consistency/homogeneity results file
type RawQualityRecord struct {
	StationID              string `csv:"station_id"`
	Consistency            string `csv:"consistency"`
	DoubleMassR2           string `csv:"double_mass_r2"`
	CoefficientOfVariation string `csv:"coefficient_of_variation"`
	OriginalMissingPct     string `csv:"original_missing_pct"`
	DoubleMassAdjusted     string `csv:"double_mass_adjusted"`
	FillMethod             string `csv:"fill_method"`
}

// ToStation converts a catalog row to a Station without quality attributes
func (r *RawStationRecord) ToStation() (*Station, error) {
	id := NormalizeStationID(r.StationID)
	if id == "" {
		return nil, &ValidationError{Field: "station_id", Value: r.StationID, Message: "station_id is required"}
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Value: r.Name, Message: "station name is required"}
	}

	return &Station{
		StationID: id,
		Name:      name,
		Region:    strings.TrimSpace(r.Region),
		Subregion: strings.TrimSpace(r.Subregion),
	}, nil
}

// ToQuality converts a quality row. Blank and "N/A" numeric cells become nil.
func (r *RawQualityRecord) ToQuality() (string, *QualityStats, error) {
	id := NormalizeStationID(r.StationID)
	if id == "" {
		return "", nil, &ValidationError{Field: "station_id", Value: r.StationID, Message: "station_id is required"}
	}

	q := &QualityStats{
		Consistency: strings.TrimSpace(r.Consistency),
		FillMethod:  strings.TrimSpace(r.FillMethod),
	}

	var err error
	if q.DoubleMassR2, err = parseOptionalFloat("double_mass_r2", r.DoubleMassR2); err != nil {
		return "", nil, err
	}
	if q.CoefficientOfVariation, err = parseOptionalFloat("coefficient_of_variation", r.CoefficientOfVariation); err != nil {
		return "", nil, err
	}
	if q.OriginalMissingPct, err = parseOptionalFloat("original_missing_pct", r.OriginalMissingPct); err != nil {
		return "", nil, err
	}

	adjusted, err := ParseFlag(r.DoubleMassAdjusted)
	if err != nil {
		return "", nil, &ValidationError{Field: "double_mass_adjusted", Value: r.DoubleMassAdjusted, Message: "invalid adjustment flag"}
	}
	q.DoubleMassAdjusted = adjusted

	return id, q, nil
}

func parseOptionalFloat(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") || strings.EqualFold(s, "nan") {
		return nil, nil
	}

	// Decimal commas appear in workbooks exported with a Spanish locale
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Value: s, Message: "invalid numeric value"}
	}
	return &v, nil
}
