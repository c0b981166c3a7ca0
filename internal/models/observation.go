package models

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on every boundary of the system
const DateLayout = "2006-01-02"

// DailyObservation is one day of a station's series.
// IsSynthetic marks values produced by gap-filling rather than measured.
type DailyObservation struct {
	StationID   string    `json:"station_id"`
	Date        time.Time `json:"date"`
	Value       float64   `json:"value"`
	IsSynthetic bool      `json:"is_synthetic"`
}

// Year returns the calendar year of the observation
func (o DailyObservation) Year() int {
	return o.Date.Year()
}

// RawObservationRecord represents a single row of a series file.
// Used during loading and ingestion.
type RawObservationRecord struct {
	StationID   string `csv:"station_id"`
	Date        string `csv:"date"`
	Value       string `csv:"value"`
	IsSynthetic string `csv:"is_synthetic"`
}

// ToObservation converts RawObservationRecord to DailyObservation
func (r *RawObservationRecord) ToObservation() (*DailyObservation, error) {
	stationID := NormalizeStationID(r.StationID)
	if stationID == "" {
		return nil, &ValidationError{
			Field:   "station_id",
			Value:   r.StationID,
			Message: "station_id is required",
		}
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, &ValidationError{
			Field:   "date",
			Value:   r.Date,
			Message: "invalid date format, expected YYYY-MM-DD",
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil {
		return nil, &ValidationError{
			Field:   "value",
			Value:   r.Value,
			Message: "invalid numeric value",
		}
	}

	synthetic, err := ParseFlag(r.IsSynthetic)
	if err != nil {
		return nil, &ValidationError{
			Field:   "is_synthetic",
			Value:   r.IsSynthetic,
			Message: "invalid synthetic flag",
		}
	}

	return &DailyObservation{
		StationID:   stationID,
		Date:        date,
		Value:       value,
		IsSynthetic: synthetic,
	}, nil
}

// ParseDate parses a calendar date, accepting a trailing time component
// ("2006-01-02 00:00:00", RFC 3339) as written by dataframe exports
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// ParseFlag parses the boolean spellings found in the source workbooks.
// An empty value is false.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "f", "no", "n":
		return false, nil
	case "1", "true", "t", "yes", "y", "sí", "si", "s":
		return true, nil
	default:
		return false, strconv.ErrSyntax
	}
}
