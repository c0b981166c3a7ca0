package climatology

import (
	"errors"
	"time"

	"station-climatology/internal/models"
)

// Report is the result of one pass of the pipeline for a station and year range
type Report struct {
	StationID              string                     `json:"station_id"`
	Range                  YearRange                  `json:"range"`
	StandardPeriodComplete bool                       `json:"standard_period_complete"`
	Observations           int                        `json:"observations"`
	SyntheticObservations  int                        `json:"synthetic_observations"`
	MonthlyTotals          []models.MonthlyAggregate  `json:"monthly_totals"`
	Climatology            []models.ClimatologyRecord `json:"climatology"`
	MissingMonths          []time.Month               `json:"missing_months,omitempty"`
	DailyExtreme           DailyExtreme               `json:"daily_extreme"`
	MonthlyExtreme         MonthlyExtreme             `json:"monthly_extreme"`
	Regime                 Regime                     `json:"regime"`
}

// Analyze filters series to r and derives every statistic from the filtered rows.
//
// An invalid range and an empty filtered series are returned as errors. Months without data
// do not fail the report: they are listed in MissingMonths and the regime is taken over the
// months that have data.
func Analyze(series []models.DailyObservation, r YearRange) (*Report, error) {
	filtered, err := FilterByYearRange(series, r)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		return nil, ErrEmptySeries
	}

	report := &Report{
		Range:                  r,
		StandardPeriodComplete: IsStandardPeriodComplete(filtered, r),
		Observations:           len(filtered),
		MonthlyTotals:          AggregateMonthlyTotals(filtered),
	}
	report.StationID = filtered[0].StationID

	for _, obs := range filtered {
		if obs.IsSynthetic {
			report.SyntheticObservations++
		}
	}

	records, err := ComputeClimatology(report.MonthlyTotals)
	var gaps *NoDataForMonthError
	switch {
	case errors.As(err, &gaps):
		report.MissingMonths = gaps.Months
	case err != nil:
		return nil, err
	}
	report.Climatology = records

	if report.DailyExtreme, err = FindDailyExtreme(filtered); err != nil {
		return nil, err
	}
	if report.MonthlyExtreme, err = FindMonthlyExtreme(report.MonthlyTotals); err != nil {
		return nil, err
	}
	if report.Regime, err = FindRegimeMonths(records); err != nil {
		return nil, err
	}

	return report, nil
}
