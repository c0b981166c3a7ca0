// Package presentation turns a climatology report into the view model of the station dashboard.
// It performs all display rounding and formatting; chart rendering is left to the client.
package presentation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"station-climatology/internal/climatology"
	"station-climatology/internal/models"
)

// Card is a labelled value shown in the quality or metric panels
type Card struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Detail string `json:"detail,omitempty"`
}

// ChartPoint is one month of the seasonality chart. Values are nil for months without data.
type ChartPoint struct {
	Month     int      `json:"month"`
	Label     string   `json:"label"`
	Mean      *float64 `json:"mean"`
	Max       *float64 `json:"max"`
	Min       *float64 `json:"min"`
	MeanText  string   `json:"mean_text"`
	MaxText   string   `json:"max_text"`
	MinText   string   `json:"min_text"`
	NoData    bool     `json:"no_data"`
	YearCount int      `json:"years"`
}

// Chart holds the twelve monthly points and the series names
type Chart struct {
	MeanSeries string       `json:"mean_series"`
	MaxSeries  string       `json:"max_series"`
	MinSeries  string       `json:"min_series"`
	YAxisTitle string       `json:"y_axis_title"`
	Points     []ChartPoint `json:"points"`
}

// Dashboard is the complete view of one station over one year range
type Dashboard struct {
	StationID      string                `json:"station_id"`
	Title          string                `json:"title"`
	Subtitle       string                `json:"subtitle"`
	Period         climatology.YearRange `json:"period"`
	PeriodLabel    string                `json:"period_label"`
	StandardPeriod bool                  `json:"standard_period"`
	Notice         string                `json:"notice"`
	Quality        []Card                `json:"quality"`
	FillMethod     string                `json:"fill_method"`
	Chart          Chart                 `json:"chart"`
	Metrics        []Card                `json:"metrics"`
	Gaps           []string              `json:"gaps,omitempty"`
	GapNotice      string                `json:"gap_notice,omitempty"`
	Locale         Locale                `json:"locale"`
}

// Build assembles the dashboard of station from report
func Build(station *models.Station, report *climatology.Report, loc Locale) *Dashboard {
	l := labelsFor(loc)

	d := &Dashboard{
		StationID:      station.StationID,
		Title:          fmt.Sprintf(l.title, station.Name),
		Subtitle:       station.Subregion + ", " + station.Region,
		Period:         report.Range,
		PeriodLabel:    fmt.Sprintf("%d-%d", report.Range.Start, report.Range.End),
		StandardPeriod: report.StandardPeriodComplete,
		Quality:        qualityCards(&station.QualityStats, l),
		FillMethod:     station.FillMethod,
		Chart:          buildChart(report, loc, l),
		Metrics:        metricCards(report, loc, l),
		Locale:         loc,
	}

	if d.StandardPeriod {
		d.Notice = l.completeNormal
	} else {
		d.Notice = l.periodWarning
	}

	if d.FillMethod == "" {
		d.FillMethod = l.unknownMethod
	}

	for _, m := range report.MissingMonths {
		d.Gaps = append(d.Gaps, MonthName(m, loc))
	}
	if len(d.Gaps) > 0 {
		d.GapNotice = fmt.Sprintf(l.gapNotice, strings.Join(d.Gaps, ", "))
	}

	return d
}

func qualityCards(q *models.QualityStats, l *labels) []Card {
	consistency := q.Consistency
	if consistency == "" {
		consistency = l.notAvailable
	}

	adjustment := l.notRequired
	if q.DoubleMassAdjusted {
		adjustment = l.applied
	}

	missing := l.notAvailable
	if q.OriginalMissingPct != nil {
		missing = formatNumber(*q.OriginalMissingPct, 2) + " %"
	}

	return []Card{
		{Key: "consistency", Label: l.consistency, Value: consistency},
		{Key: "double_mass_r2", Label: l.doubleMassR2, Value: optional(q.DoubleMassR2, 4, l)},
		{Key: "coefficient_of_variation", Label: l.cv, Value: optional(q.CoefficientOfVariation, 4, l)},
		{Key: "original_missing_pct", Label: l.missingPct, Value: missing},
		{Key: "double_mass_adjusted", Label: l.adjustment, Value: adjustment},
	}
}

func optional(v *float64, places int, l *labels) string {
	if v == nil || math.IsNaN(*v) {
		return l.notAvailable
	}
	return formatNumber(*v, places)
}

// formatNumber rounds to at most places decimals without trailing zeros
func formatNumber(v float64, places int) string {
	return strconv.FormatFloat(climatology.RoundTo(v, places), 'f', -1, 64)
}

func buildChart(report *climatology.Report, loc Locale, l *labels) Chart {
	chart := Chart{
		MeanSeries: l.meanSeries,
		MaxSeries:  l.maxSeries,
		MinSeries:  l.minSeries,
		YAxisTitle: l.yAxis,
		Points:     make([]ChartPoint, 12),
	}

	for i := range chart.Points {
		month := time.Month(i + 1)
		chart.Points[i] = ChartPoint{Month: i + 1, Label: MonthName(month, loc), NoData: true}
	}

	for _, rec := range report.Climatology {
		p := &chart.Points[rec.Month-1]
		p.NoData = false
		p.YearCount = rec.Years
		p.Mean, p.MeanText = chartValue(rec.Mean)
		p.Max, p.MaxText = chartValue(rec.Max)
		p.Min, p.MinText = chartValue(rec.Min)
	}

	return chart
}

// chartValue returns v rounded to one decimal and its integer text label
func chartValue(v float64) (*float64, string) {
	rounded := climatology.RoundTo(v, 1)
	return &rounded, strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}

func metricCards(report *climatology.Report, loc Locale, l *labels) []Card {
	daily := report.DailyExtreme
	monthly := report.MonthlyExtreme

	return []Card{
		{
			Key:    "daily_max",
			Label:  l.dailyMax,
			Value:  fmt.Sprintf("%.1f mm", daily.Value),
			Detail: fmt.Sprintf(l.dateDetail, daily.Date.Format(models.DateLayout)),
		},
		{
			Key:    "monthly_max",
			Label:  l.monthlyMax,
			Value:  fmt.Sprintf("%.1f mm", monthly.Value),
			Detail: fmt.Sprintf(l.monthLabel, MonthName(monthly.Month, loc), monthly.Year),
		},
		{Key: "wet_regime", Label: l.wetRegime, Value: MonthName(report.Regime.Wettest, loc)},
		{Key: "dry_regime", Label: l.dryRegime, Value: MonthName(report.Regime.Driest, loc)},
	}
}
