package presentation

import (
	"testing"
	"time"

	"station-climatology/internal/climatology"
	"station-climatology/internal/models"
)

func ptr(v float64) *float64 { return &v }

func testStation() *models.Station {
	return &models.Station{
		StationID: "21205580",
		Name:      "EL TRAPICHE",
		Region:    "Antioquia",
		Subregion: "Medellín",
		QualityStats: models.QualityStats{
			Consistency:        "Alta",
			DoubleMassR2:       ptr(0.98761),
			OriginalMissingPct: ptr(4.2),
			DoubleMassAdjusted: true,
			FillMethod:         "IDW",
		},
	}
}

func testReport(t *testing.T, r climatology.YearRange) *climatology.Report {
	t.Helper()

	var series []models.DailyObservation
	for year := r.Start; year <= r.End; year++ {
		for _, month := range []time.Month{time.January, time.March} {
			series = append(series, models.DailyObservation{
				StationID: "21205580",
				Date:      time.Date(year, month, 10, 0, 0, 0, 0, time.UTC),
				Value:     float64(year-r.Start) + 10.26,
			})
		}
	}

	report, err := climatology.Analyze(series, r)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return report
}

func TestBuild(t *testing.T) {
	d := Build(testStation(), testReport(t, climatology.YearRange{Start: 2000, End: 2002}), LocaleEN)

	if d.Title != "Rainfall seasonality: EL TRAPICHE" || d.Subtitle != "Medellín, Antioquia" {
		t.Errorf("title = %q / %q", d.Title, d.Subtitle)
	}
	if d.PeriodLabel != "2000-2002" || d.StandardPeriod {
		t.Errorf("period = %q standard=%v", d.PeriodLabel, d.StandardPeriod)
	}
	if d.Notice != labelsFor(LocaleEN).periodWarning {
		t.Errorf("Notice = %q", d.Notice)
	}

	wantQuality := map[string]string{
		"consistency":              "Alta",
		"double_mass_r2":           "0.9876",
		"coefficient_of_variation": "N/A",
		"original_missing_pct":     "4.2 %",
		"double_mass_adjusted":     "Applied",
	}
	if len(d.Quality) != 5 {
		t.Fatalf("quality cards = %d, want 5", len(d.Quality))
	}
	for _, card := range d.Quality {
		if card.Value != wantQuality[card.Key] {
			t.Errorf("%s = %q, want %q", card.Key, card.Value, wantQuality[card.Key])
		}
	}
	if d.FillMethod != "IDW" {
		t.Errorf("FillMethod = %q", d.FillMethod)
	}

	if len(d.Chart.Points) != 12 {
		t.Fatalf("chart points = %d, want 12", len(d.Chart.Points))
	}
	jan := d.Chart.Points[0]
	if jan.Label != "January" || jan.NoData {
		t.Errorf("January point = %+v", jan)
	}
	// totals 10.26, 11.26, 12.26 -> mean 11.26
	if jan.Mean == nil || *jan.Mean != 11.3 || jan.MeanText != "11" {
		t.Errorf("January mean = %v %q", jan.Mean, jan.MeanText)
	}
	if *jan.Max != 12.3 || jan.MaxText != "12" || *jan.Min != 10.3 || jan.MinText != "10" {
		t.Errorf("January max/min = %v/%v", *jan.Max, *jan.Min)
	}
	feb := d.Chart.Points[1]
	if !feb.NoData || feb.Mean != nil {
		t.Errorf("February should be a gap: %+v", feb)
	}

	if len(d.Gaps) != 10 || d.Gaps[0] != "February" {
		t.Errorf("Gaps = %v", d.Gaps)
	}
	if d.GapNotice == "" {
		t.Error("GapNotice is empty")
	}

	metrics := map[string]Card{}
	for _, c := range d.Metrics {
		metrics[c.Key] = c
	}
	if c := metrics["daily_max"]; c.Value != "12.3 mm" || c.Detail != "Date: 2002-01-10" {
		t.Errorf("daily_max = %+v", c)
	}
	if c := metrics["monthly_max"]; c.Value != "12.3 mm" || c.Detail != "Month: January 2002" {
		t.Errorf("monthly_max = %+v", c)
	}
	if metrics["wet_regime"].Value != "January" || metrics["dry_regime"].Value != "January" {
		t.Errorf("regime = %q / %q", metrics["wet_regime"].Value, metrics["dry_regime"].Value)
	}
}

func TestBuild_StandardPeriodSpanish(t *testing.T) {
	station := testStation()
	station.QualityStats = models.QualityStats{}

	d := Build(station, testReport(t, climatology.StandardPeriod), LocaleES)

	if !d.StandardPeriod || d.Notice != "Serie con normal climatológica completa." {
		t.Errorf("standard = %v notice = %q", d.StandardPeriod, d.Notice)
	}
	if d.PeriodLabel != "1991-2020" {
		t.Errorf("PeriodLabel = %q", d.PeriodLabel)
	}
	for _, card := range d.Quality {
		switch card.Key {
		case "double_mass_adjusted":
			if card.Value != "No requerido" {
				t.Errorf("adjustment = %q", card.Value)
			}
		default:
			if card.Value != "N/A" {
				t.Errorf("%s = %q, want N/A", card.Key, card.Value)
			}
		}
	}
	if d.FillMethod != "Desconocido" {
		t.Errorf("FillMethod = %q", d.FillMethod)
	}
	if d.Chart.Points[2].Label != "Marzo" {
		t.Errorf("March label = %q", d.Chart.Points[2].Label)
	}
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		in      string
		want    Locale
		wantErr bool
	}{
		{in: "", want: LocaleEN},
		{in: "EN", want: LocaleEN},
		{in: "es", want: LocaleES},
		{in: "fr", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLocale(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLocale(%q) = %q, %v", tt.in, got, err)
		}
	}

	if MonthName(time.December, LocaleES) != "Diciembre" || MonthName(0, LocaleEN) != "" {
		t.Error("MonthName returned unexpected names")
	}
}
