package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"station-climatology/internal/models"
)

// WriteCSV writes the series with a date,value,is_synthetic header.
// An empty series produces the header alone.
func WriteCSV(w io.Writer, series []models.DailyObservation) error {
	if err := gocsv.Marshal(Rows(series), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
