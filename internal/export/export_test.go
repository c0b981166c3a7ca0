package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"station-climatology/internal/models"
)

func testSeries() []models.DailyObservation {
	return []models.DailyObservation{
		{StationID: "1", Date: time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC), Value: 12.3456},
		{StationID: "1", Date: time.Date(1991, 1, 2, 0, 0, 0, 0, time.UTC), Value: 0, IsSynthetic: true},
		{StationID: "1", Date: time.Date(1991, 1, 3, 0, 0, 0, 0, time.UTC), Value: 2.5},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: " XLSX ", want: FormatXLSX},
		{in: "parquet", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("21205580", FormatXLSX); got != "adjusted_series_21205580.xlsx" {
		t.Errorf("FileName() = %q", got)
	}
	if got := FileName("7", FormatCSV); got != "adjusted_series_7.csv" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, testSeries()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"date,value,is_synthetic",
		"1991-01-01,12.35,false",
		"1991-01-02,0,true",
		"1991-01-03,2.5,false",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteCSV_EmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "date,value,is_synthetic" {
		t.Errorf("output = %q, want header only", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, testSeries()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if strings.Join(rows[0], ",") != "date,value,is_synthetic" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "1991-01-01" || rows[1][1] != "12.35" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][2] != "TRUE" {
		t.Errorf("synthetic flag = %q, want TRUE", rows[2][2])
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("pdf"), testSeries()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Write() error = %v, want ErrUnsupportedFormat", err)
	}
}
