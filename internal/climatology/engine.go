// Package climatology turns a station's daily series into monthly totals, a monthly
// climatology over a year range, and the historical extremes derived from them.
//
// Every function is pure: inputs are never modified and results are freshly allocated.
// Values keep full precision; rounding for display belongs to the caller.
package climatology

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"station-climatology/internal/models"
)

// YearRange is an inclusive pair of calendar years
type YearRange struct {
	Start int `json:"start_year"`
	End   int `json:"end_year"`
}

// StandardPeriod is the 1991-2020 climatological normal
var StandardPeriod = YearRange{Start: 1991, End: 2020}

// Validate rejects ranges whose start is after their end
func (r YearRange) Validate() error {
	if r.Start > r.End {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Contains reports whether year lies in the range
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Years returns the number of calendar years covered by the range
func (r YearRange) Years() int {
	if r.Start > r.End {
		return 0
	}
	return r.End - r.Start + 1
}

// DailyExtreme is the largest single-day value of a series
type DailyExtreme struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// MonthlyExtreme is the largest monthly total of a series
type MonthlyExtreme struct {
	Value float64    `json:"value"`
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// Regime holds the months with the highest and lowest mean total
type Regime struct {
	Wettest time.Month `json:"wettest_month"`
	Driest  time.Month `json:"driest_month"`
}

// FilterByYearRange returns the observations whose year lies in r, in input order.
// Bounds outside the observed span simply select fewer rows.
func FilterByYearRange(series []models.DailyObservation, r YearRange) ([]models.DailyObservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	filtered := make([]models.DailyObservation, 0, len(series))
	for _, obs := range series {
		if r.Contains(obs.Date.Year()) {
			filtered = append(filtered, obs)
		}
	}
	return filtered, nil
}

// IsStandardPeriodComplete reports whether r is exactly 1991-2020 and every one of those
// years has at least one observation in filtered. Any other range is incomplete.
func IsStandardPeriodComplete(filtered []models.DailyObservation, r YearRange) bool {
	if r != StandardPeriod {
		return false
	}

	present := make(map[int]struct{}, StandardPeriod.Years())
	for _, obs := range filtered {
		present[obs.Date.Year()] = struct{}{}
	}

	for year := StandardPeriod.Start; year <= StandardPeriod.End; year++ {
		if _, ok := present[year]; !ok {
			return false
		}
	}
	return true
}

type yearMonth struct {
	year  int
	month time.Month
}

// AggregateMonthlyTotals sums daily values per (year, month). Only months with at least one
// observation produce a row; missing days are left out of the sum. Rows are sorted by year
// then month.
func AggregateMonthlyTotals(filtered []models.DailyObservation) []models.MonthlyAggregate {
	index := make(map[yearMonth]int)
	aggregates := make([]models.MonthlyAggregate, 0)

	for _, obs := range filtered {
		key := yearMonth{year: obs.Date.Year(), month: obs.Date.Month()}

		i, ok := index[key]
		if !ok {
			i = len(aggregates)
			index[key] = i
			aggregates = append(aggregates, models.MonthlyAggregate{Year: key.year, Month: key.month})
		}

		aggregates[i].Total += obs.Value
		aggregates[i].DaysObserved++
		if obs.IsSynthetic {
			aggregates[i].SyntheticDays++
		}
	}

	sort.Slice(aggregates, func(a, b int) bool {
		if aggregates[a].Year != aggregates[b].Year {
			return aggregates[a].Year < aggregates[b].Year
		}
		return aggregates[a].Month < aggregates[b].Month
	})

	return aggregates
}

// ComputeClimatology computes mean, max and min of the yearly totals of each calendar month.
//
// Records are returned for the months that have data, sorted by month. When some of the
// twelve months have no contributing year, those records are returned together with a
// *NoDataForMonthError naming the missing months; no zero or NaN stands in for them.
func ComputeClimatology(aggregates []models.MonthlyAggregate) ([]models.ClimatologyRecord, error) {
	if len(aggregates) == 0 {
		return nil, ErrEmptyAggregates
	}

	var totals [12][]float64
	for _, agg := range aggregates {
		totals[agg.Month-1] = append(totals[agg.Month-1], agg.Total)
	}

	records := make([]models.ClimatologyRecord, 0, 12)
	var missing []time.Month

	for i, values := range totals {
		month := time.Month(i + 1)
		if len(values) == 0 {
			missing = append(missing, month)
			continue
		}

		records = append(records, models.ClimatologyRecord{
			Month: month,
			Mean:  stat.Mean(values, nil),
			Max:   floats.Max(values),
			Min:   floats.Min(values),
			Years: len(values),
		})
	}

	if len(missing) > 0 {
		return records, &NoDataForMonthError{Months: missing}
	}
	return records, nil
}

// FindDailyExtreme returns the observation with the largest value, the earliest date
// winning ties.
func FindDailyExtreme(filtered []models.DailyObservation) (DailyExtreme, error) {
	if len(filtered) == 0 {
		return DailyExtreme{}, ErrEmptySeries
	}

	best := filtered[0]
	for _, obs := range filtered[1:] {
		if obs.Value > best.Value || (obs.Value == best.Value && obs.Date.Before(best.Date)) {
			best = obs
		}
	}

	return DailyExtreme{Value: best.Value, Date: best.Date}, nil
}

// FindMonthlyExtreme returns the largest monthly total, the earliest (year, month) winning ties
func FindMonthlyExtreme(aggregates []models.MonthlyAggregate) (MonthlyExtreme, error) {
	if len(aggregates) == 0 {
		return MonthlyExtreme{}, ErrEmptyAggregates
	}

	best := aggregates[0]
	for _, agg := range aggregates[1:] {
		if agg.Total > best.Total || (agg.Total == best.Total && earlier(agg, best)) {
			best = agg
		}
	}

	return MonthlyExtreme{Value: best.Total, Year: best.Year, Month: best.Month}, nil
}

func earlier(a, b models.MonthlyAggregate) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}

// FindRegimeMonths returns the months with the highest and lowest mean; the lowest month
// number wins ties on either side.
func FindRegimeMonths(records []models.ClimatologyRecord) (Regime, error) {
	if len(records) == 0 {
		return Regime{}, ErrEmptyClimatology
	}

	wet, dry := records[0], records[0]
	for _, rec := range records[1:] {
		if rec.Mean > wet.Mean || (rec.Mean == wet.Mean && rec.Month < wet.Month) {
			wet = rec
		}
		if rec.Mean < dry.Mean || (rec.Mean == dry.Mean && rec.Month < dry.Month) {
			dry = rec
		}
	}

	return Regime{Wettest: wet.Month, Driest: dry.Month}, nil
}

// SeriesYearBounds returns the first and last calendar year present in series
func SeriesYearBounds(series []models.DailyObservation) (YearRange, error) {
	if len(series) == 0 {
		return YearRange{}, ErrEmptySeries
	}

	bounds := YearRange{Start: series[0].Date.Year(), End: series[0].Date.Year()}
	for _, obs := range series[1:] {
		year := obs.Date.Year()
		bounds.Start = min(bounds.Start, year)
		bounds.End = max(bounds.End, year)
	}
	return bounds, nil
}

// DefaultRange intersects the observed bounds with the standard period. When they do not
// overlap the full observed bounds are used.
func DefaultRange(bounds YearRange) YearRange {
	r := YearRange{
		Start: max(bounds.Start, StandardPeriod.Start),
		End:   min(bounds.End, StandardPeriod.End),
	}
	if r.Start > r.End {
		return bounds
	}
	return r
}

// RoundTo rounds v half away from zero to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
