// Package export writes one station's daily series as a downloadable file.
//
// The series is passed through unmodified except for presentation: dates are written as
// YYYY-MM-DD and values are rounded to two decimals.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"station-climatology/internal/climatology"
	"station-climatology/internal/models"
)

// Format is an export file type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for an unknown export format
var ErrUnsupportedFormat = errors.New("unsupported export format")

// SheetName is the worksheet holding the series in XLSX exports
const SheetName = "series"

// ParseFormat resolves a case-insensitive format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName returns the download name of a station's export
func FileName(stationID string, f Format) string {
	return fmt.Sprintf("adjusted_series_%s.%s", stationID, f)
}

// Row is one exported day
type Row struct {
	Date        string  `csv:"date"`
	Value       float64 `csv:"value"`
	IsSynthetic bool    `csv:"is_synthetic"`
}

// Rows converts a series to export rows in input order
func Rows(series []models.DailyObservation) []*Row {
	rows := make([]*Row, len(series))
	for i, obs := range series {
		rows[i] = &Row{
			Date:        obs.Date.Format(models.DateLayout),
			Value:       climatology.RoundTo(obs.Value, 2),
			IsSynthetic: obs.IsSynthetic,
		}
	}
	return rows
}

// Write encodes series to w in the requested format
func Write(w io.Writer, f Format, series []models.DailyObservation) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, series)
	case FormatXLSX:
		return WriteXLSX(w, series)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}
