package climatology

import (
	"errors"
	"math"
	"testing"
	"time"

	"station-climatology/internal/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// constantSeries returns one observation per day in [from, to] with the same value
func constantSeries(stationID string, from, to time.Time, value float64) []models.DailyObservation {
	var series []models.DailyObservation
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		series = append(series, models.DailyObservation{StationID: stationID, Date: d, Value: value})
	}
	return series
}

// yearlySeries returns one observation on 15 January of every year in [start, end], skipping skip
func yearlySeries(start, end int, skip ...int) []models.DailyObservation {
	skipped := make(map[int]bool)
	for _, y := range skip {
		skipped[y] = true
	}

	var series []models.DailyObservation
	for y := start; y <= end; y++ {
		if skipped[y] {
			continue
		}
		series = append(series, models.DailyObservation{StationID: "A", Date: day(y, time.January, 15), Value: 1})
	}
	return series
}

func TestFilterByYearRange(t *testing.T) {
	series := constantSeries("A", day(1989, time.December, 30), day(1993, time.January, 2), 1)

	tests := []struct {
		name      string
		r         YearRange
		wantCount int
		wantErr   bool
	}{
		{name: "single year", r: YearRange{1990, 1990}, wantCount: 365},
		{name: "two years", r: YearRange{1991, 1992}, wantCount: 365 + 366},
		{name: "whole span", r: YearRange{1989, 1993}, wantCount: len(series)},
		{name: "partially outside span", r: YearRange{1980, 1989}, wantCount: 2},
		{name: "entirely outside span", r: YearRange{2000, 2010}, wantCount: 0},
		{name: "inverted range", r: YearRange{1993, 1990}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterByYearRange(series, tt.r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FilterByYearRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var rangeErr *InvalidRangeError
				if !errors.As(err, &rangeErr) {
					t.Errorf("error %T is not *InvalidRangeError", err)
				}
				return
			}
			if len(got) != tt.wantCount {
				t.Errorf("len = %d, want %d", len(got), tt.wantCount)
			}
			for _, obs := range got {
				if !tt.r.Contains(obs.Date.Year()) {
					t.Errorf("observation %v outside range %v", obs.Date, tt.r)
				}
			}
		})
	}
}

func TestFilterByYearRange_MonotonicInWidth(t *testing.T) {
	series := constantSeries("A", day(1985, time.March, 1), day(1995, time.October, 1), 2)

	previous := -1
	for width := 0; width <= 12; width++ {
		got, err := FilterByYearRange(series, YearRange{1990 - width, 1990 + width})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) < previous {
			t.Errorf("width %d returned %d rows, fewer than %d", width, len(got), previous)
		}
		previous = len(got)
	}
}

func TestFilterByYearRange_DoesNotModifyInput(t *testing.T) {
	series := constantSeries("A", day(2000, time.January, 1), day(2001, time.December, 31), 1)
	before := len(series)
	first := series[0]

	if _, err := FilterByYearRange(series, YearRange{2001, 2001}); err != nil {
		t.Fatal(err)
	}
	if len(series) != before || series[0] != first {
		t.Error("input series was modified")
	}
}

func TestIsStandardPeriodComplete(t *testing.T) {
	tests := []struct {
		name   string
		series []models.DailyObservation
		r      YearRange
		want   bool
	}{
		{name: "all thirty years present", series: yearlySeries(1991, 2020), r: YearRange{1991, 2020}, want: true},
		{name: "2005 missing", series: yearlySeries(1991, 2020, 2005), r: YearRange{1991, 2020}, want: false},
		{name: "first year missing", series: yearlySeries(1991, 2020, 1991), r: YearRange{1991, 2020}, want: false},
		{name: "ends in 2019", series: yearlySeries(1991, 2019), r: YearRange{1991, 2019}, want: false},
		{name: "starts in 1990", series: yearlySeries(1990, 2020), r: YearRange{1990, 2020}, want: false},
		{name: "dense but other range", series: yearlySeries(1981, 2010), r: YearRange{1981, 2010}, want: false},
		{name: "empty", series: nil, r: YearRange{1991, 2020}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, err := FilterByYearRange(tt.series, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			if got := IsStandardPeriodComplete(filtered, tt.r); got != tt.want {
				t.Errorf("IsStandardPeriodComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateMonthlyTotals_JanuaryExample(t *testing.T) {
	var series []models.DailyObservation
	for _, year := range []int{1991, 1992, 1993} {
		series = append(series, constantSeries("A", day(year, time.January, 1), day(year, time.January, 31), 10)...)
	}

	got := AggregateMonthlyTotals(series)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	for i, year := range []int{1991, 1992, 1993} {
		agg := got[i]
		if agg.Year != year || agg.Month != time.January {
			t.Errorf("row %d = (%d, %v), want (%d, January)", i, agg.Year, agg.Month, year)
		}
		if agg.Total != 310 {
			t.Errorf("row %d total = %v, want 310", i, agg.Total)
		}
		if agg.DaysObserved != 31 {
			t.Errorf("row %d days = %d, want 31", i, agg.DaysObserved)
		}
	}

	records, err := ComputeClimatology(got)
	var gaps *NoDataForMonthError
	if !errors.As(err, &gaps) {
		t.Fatalf("expected NoDataForMonthError, got %v", err)
	}
	if len(gaps.Months) != 11 {
		t.Errorf("missing months = %v, want 11", gaps.Months)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	jan := records[0]
	if jan.Month != time.January || jan.Mean != 310 || jan.Max != 310 || jan.Min != 310 {
		t.Errorf("January = %+v, want mean/max/min 310", jan)
	}
	if jan.Years != 3 {
		t.Errorf("Years = %d, want 3", jan.Years)
	}
}

func TestAggregateMonthlyTotals_Sparse(t *testing.T) {
	series := []models.DailyObservation{
		{Date: day(2001, time.March, 5), Value: 4},
		{Date: day(2000, time.March, 1), Value: 1.5},
		{Date: day(2000, time.March, 20), Value: 2.5, IsSynthetic: true},
		{Date: day(2000, time.May, 2), Value: 0},
	}

	got := AggregateMonthlyTotals(series)
	want := []models.MonthlyAggregate{
		{Year: 2000, Month: time.March, Total: 4, DaysObserved: 2, SyntheticDays: 1},
		{Year: 2000, Month: time.May, Total: 0, DaysObserved: 1},
		{Year: 2001, Month: time.March, Total: 4, DaysObserved: 1},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(AggregateMonthlyTotals(nil)) != 0 {
		t.Error("empty input should give no aggregates")
	}
}

func TestAggregateMonthlyTotals_ConservesYearlySums(t *testing.T) {
	var series []models.DailyObservation
	d := day(1995, time.January, 1)
	for i := 0; i < 3*365; i++ {
		if i%7 != 3 { // leave gaps
			series = append(series, models.DailyObservation{Date: d, Value: float64(i%13) * 0.7})
		}
		d = d.AddDate(0, 0, 1)
	}

	daily := make(map[int]float64)
	for _, obs := range series {
		daily[obs.Date.Year()] += obs.Value
	}

	monthly := make(map[int]float64)
	for _, agg := range AggregateMonthlyTotals(series) {
		monthly[agg.Year] += agg.Total
	}

	for year, sum := range daily {
		if math.Abs(monthly[year]-sum) > 1e-9 {
			t.Errorf("year %d: monthly sum %v, daily sum %v", year, monthly[year], sum)
		}
	}
}

func TestComputeClimatology(t *testing.T) {
	var aggregates []models.MonthlyAggregate
	for month := time.January; month <= time.December; month++ {
		aggregates = append(aggregates,
			models.MonthlyAggregate{Year: 2000, Month: month, Total: float64(month) * 10},
			models.MonthlyAggregate{Year: 2001, Month: month, Total: float64(month) * 20},
			models.MonthlyAggregate{Year: 2002, Month: month, Total: 0},
		)
	}

	records, err := ComputeClimatology(aggregates)
	if err != nil {
		t.Fatalf("ComputeClimatology() error = %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("records = %d, want 12", len(records))
	}

	for i, rec := range records {
		month := time.Month(i + 1)
		if rec.Month != month {
			t.Errorf("record %d month = %v, want %v", i, rec.Month, month)
		}
		wantMean := (float64(month)*10 + float64(month)*20) / 3
		if math.Abs(rec.Mean-wantMean) > 1e-9 {
			t.Errorf("%v mean = %v, want %v", month, rec.Mean, wantMean)
		}
		if rec.Max != float64(month)*20 {
			t.Errorf("%v max = %v", month, rec.Max)
		}
		if rec.Min != 0 {
			t.Errorf("%v min = %v, want 0", month, rec.Min)
		}
	}
}

func TestComputeClimatology_SingleYear(t *testing.T) {
	series := constantSeries("A", day(2010, time.January, 1), day(2010, time.December, 31), 1.3)
	records, err := ComputeClimatology(AggregateMonthlyTotals(series))
	if err != nil {
		t.Fatalf("ComputeClimatology() error = %v", err)
	}
	for _, rec := range records {
		if rec.Mean != rec.Max || rec.Mean != rec.Min {
			t.Errorf("%v: mean %v max %v min %v should be equal", rec.Month, rec.Mean, rec.Max, rec.Min)
		}
	}
}

func TestComputeClimatology_Empty(t *testing.T) {
	records, err := ComputeClimatology(nil)
	if !errors.Is(err, ErrEmptyAggregates) {
		t.Errorf("error = %v, want ErrEmptyAggregates", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestFindDailyExtreme(t *testing.T) {
	tests := []struct {
		name      string
		series    []models.DailyObservation
		wantValue float64
		wantDate  string
	}{
		{
			name: "earliest date among ties",
			series: []models.DailyObservation{
				{Date: day(2000, time.January, 1), Value: 5.0},
				{Date: day(2000, time.January, 2), Value: 9.0},
				{Date: day(2000, time.January, 3), Value: 9.0},
			},
			wantValue: 9.0,
			wantDate:  "2000-01-02",
		},
		{
			name: "unsorted input",
			series: []models.DailyObservation{
				{Date: day(2003, time.June, 9), Value: 42},
				{Date: day(1999, time.June, 9), Value: 42},
				{Date: day(2001, time.June, 9), Value: 7},
			},
			wantValue: 42,
			wantDate:  "1999-06-09",
		},
		{
			name:      "single row",
			series:    []models.DailyObservation{{Date: day(2010, time.May, 5), Value: 0}},
			wantValue: 0,
			wantDate:  "2010-05-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindDailyExtreme(tt.series)
			if err != nil {
				t.Fatalf("FindDailyExtreme() error = %v", err)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", got.Value, tt.wantValue)
			}
			if got.Date.Format(models.DateLayout) != tt.wantDate {
				t.Errorf("Date = %v, want %v", got.Date.Format(models.DateLayout), tt.wantDate)
			}
		})
	}
}

func TestFindDailyExtreme_Empty(t *testing.T) {
	got, err := FindDailyExtreme(nil)
	if !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("error = %v, want ErrEmptySeries", err)
	}
	if got != (DailyExtreme{}) {
		t.Errorf("got %+v alongside error", got)
	}
}

func TestFindMonthlyExtreme(t *testing.T) {
	aggregates := []models.MonthlyAggregate{
		{Year: 2001, Month: time.February, Total: 120},
		{Year: 2000, Month: time.November, Total: 300},
		{Year: 2000, Month: time.October, Total: 300},
		{Year: 1999, Month: time.April, Total: 100},
	}

	got, err := FindMonthlyExtreme(aggregates)
	if err != nil {
		t.Fatalf("FindMonthlyExtreme() error = %v", err)
	}
	want := MonthlyExtreme{Value: 300, Year: 2000, Month: time.October}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := FindMonthlyExtreme(nil); !errors.Is(err, ErrEmptyAggregates) {
		t.Errorf("error = %v, want ErrEmptyAggregates", err)
	}
}

func TestFindRegimeMonths(t *testing.T) {
	means := []float64{300, 50, 120, 80, 10, 0, 0, 40, 90, 200, 250, 280}
	var records []models.ClimatologyRecord
	for i, mean := range means {
		records = append(records, models.ClimatologyRecord{Month: time.Month(i + 1), Mean: mean})
	}

	got, err := FindRegimeMonths(records)
	if err != nil {
		t.Fatalf("FindRegimeMonths() error = %v", err)
	}
	if got.Wettest != time.January {
		t.Errorf("Wettest = %v, want January", got.Wettest)
	}
	if got.Driest != time.June {
		t.Errorf("Driest = %v, want June", got.Driest)
	}

	tied := []models.ClimatologyRecord{
		{Month: time.August, Mean: 10},
		{Month: time.March, Mean: 10},
	}
	got, err = FindRegimeMonths(tied)
	if err != nil {
		t.Fatal(err)
	}
	if got.Wettest != time.March || got.Driest != time.March {
		t.Errorf("ties = %+v, want March/March", got)
	}

	if _, err := FindRegimeMonths(nil); !errors.Is(err, ErrEmptyClimatology) {
		t.Errorf("error = %v, want ErrEmptyClimatology", err)
	}
}

func TestSeriesYearBoundsAndDefaultRange(t *testing.T) {
	series := []models.DailyObservation{
		{Date: day(2004, time.May, 1)},
		{Date: day(1978, time.May, 1)},
		{Date: day(2024, time.May, 1)},
	}

	bounds, err := SeriesYearBounds(series)
	if err != nil {
		t.Fatal(err)
	}
	if bounds != (YearRange{1978, 2024}) {
		t.Errorf("bounds = %+v", bounds)
	}

	tests := []struct {
		bounds YearRange
		want   YearRange
	}{
		{bounds: YearRange{1978, 2024}, want: YearRange{1991, 2020}},
		{bounds: YearRange{1995, 2024}, want: YearRange{1995, 2020}},
		{bounds: YearRange{1970, 2010}, want: YearRange{1991, 2010}},
		{bounds: YearRange{1960, 1980}, want: YearRange{1960, 1980}},
		{bounds: YearRange{2021, 2024}, want: YearRange{2021, 2024}},
	}
	for _, tt := range tests {
		if got := DefaultRange(tt.bounds); got != tt.want {
			t.Errorf("DefaultRange(%+v) = %+v, want %+v", tt.bounds, got, tt.want)
		}
	}

	if _, err := SeriesYearBounds(nil); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("error = %v, want ErrEmptySeries", err)
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{v: 310.04, places: 1, want: 310.0},
		{v: 12.25, places: 1, want: 12.3},
		{v: 2.375, places: 2, want: 2.38},
		{v: 99.5, places: 0, want: 100},
		{v: -1.25, places: 1, want: -1.3},
	}
	for _, tt := range tests {
		if got := RoundTo(tt.v, tt.places); got != tt.want {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
