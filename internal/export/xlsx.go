package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"station-climatology/internal/models"
)

var xlsxHeader = []interface{}{"date", "value", "is_synthetic"}

// WriteXLSX writes the series to a single-sheet workbook using the streaming writer
func WriteXLSX(w io.Writer, series []models.DailyObservation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", xlsxHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range Rows(series) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{row.Date, row.Value, row.IsSynthetic}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
