package filestore

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"station-climatology/internal/models"
)

// Required header columns per file kind
var (
	catalogColumns = []string{"station_id", "name", "region", "subregion"}
	qualityColumns = []string{
		"station_id", "consistency", "double_mass_r2", "coefficient_of_variation",
		"original_missing_pct", "double_mass_adjusted", "fill_method",
	}
	seriesColumns = []string{"station_id", "date", "value"}
)

// headerAliases maps the column names of the source workbooks to canonical names.
// Keys are lower-cased.
var headerAliases = map[string]string{
	"codigo":                        "station_id",
	"nombre":                        "name",
	"departamento":                  "region",
	"municipio":                     "subregion",
	"consistencia":                  "consistency",
	"r2_doblemasa":                  "double_mass_r2",
	"cv":                            "coefficient_of_variation",
	"vacios_originales_1991_2024_%": "original_missing_pct",
	"ajuste_doblemasa":              "double_mass_adjusted",
	"metodo_llenado":                "fill_method",
	"fecha":                         "date",
	"valor":                         "value",
	"es_relleno":                    "is_synthetic",
}

// HeaderError reports a file whose header lacks required columns
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// IsTransient returns false as the file must be fixed
func (e *HeaderError) IsTransient() bool {
	return false
}

// RowError describes a data row that was skipped
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// replayReader serves a normalized header before the remaining records of a csv.Reader.
// It satisfies gocsv.CSVReader.
type replayReader struct {
	header []string
	sent   bool
	r      *csv.Reader
}

func (rr *replayReader) Read() ([]string, error) {
	if !rr.sent {
		rr.sent = true
		return rr.header, nil
	}
	return rr.r.Read()
}

func (rr *replayReader) ReadAll() ([][]string, error) {
	records := make([][]string, 0, 1024)
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// normalizeHeader trims, lower-cases and resolves aliases of header names
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := headerAliases[name]; ok {
			name = canonical
		}
		out[i] = name
	}
	return out
}

// sniffSeparator picks ';' when the first line has semicolons and no commas
func sniffSeparator(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.IndexByte(peek, ';') >= 0 && bytes.IndexByte(peek, ',') < 0 {
		return ';'
	}
	return ','
}

// newCSVReader validates the header against required and returns a reader positioned at the
// first data row. A zero sep is detected from the header line.
func newCSVReader(in io.Reader, sep rune, required []string) (*replayReader, error) {
	br := bufio.NewReader(in)
	if sep == 0 {
		sep = sniffSeparator(br)
	}

	r := csv.NewReader(br)
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	header, err := r.Read()
	if err == io.EOF {
		return nil, &HeaderError{Missing: required}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header = normalizeHeader(header)
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}

	return &replayReader{header: header, r: r}, nil
}

// unmarshal decodes every row of in into out after header validation
func unmarshal(in io.Reader, sep rune, required []string, out interface{}) error {
	rr, err := newCSVReader(in, sep, required)
	if err != nil {
		return err
	}
	if err := gocsv.UnmarshalCSV(rr, out); err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	return nil
}

// ReadCatalog parses a station catalog. Rows that fail validation are skipped and returned
// as RowErrors; a repeated station identifier is a load error.
func ReadCatalog(in io.Reader, sep rune) ([]*models.Station, []RowError, error) {
	var rows []*models.RawStationRecord
	if err := unmarshal(in, sep, catalogColumns, &rows); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]int, len(rows))
	stations := make([]*models.Station, 0, len(rows))
	var rejected []RowError

	for i, row := range rows {
		line := i + 2
		station, err := row.ToStation()
		if err != nil {
			rejected = append(rejected, RowError{Row: line, Err: err})
			continue
		}
		if first, dup := seen[station.StationID]; dup {
			return nil, rejected, fmt.Errorf("duplicate station %s on rows %d and %d", station.StationID, first, line)
		}
		seen[station.StationID] = line
		stations = append(stations, station)
	}

	return stations, rejected, nil
}

// ReadQuality parses the consistency/homogeneity results keyed by station identifier
func ReadQuality(in io.Reader, sep rune) (map[string]*models.QualityStats, []RowError, error) {
	var rows []*models.RawQualityRecord
	if err := unmarshal(in, sep, qualityColumns, &rows); err != nil {
		return nil, nil, err
	}

	quality := make(map[string]*models.QualityStats, len(rows))
	var rejected []RowError

	for i, row := range rows {
		id, q, err := row.ToQuality()
		if err != nil {
			rejected = append(rejected, RowError{Row: i + 2, Err: err})
			continue
		}
		if _, dup := quality[id]; dup {
			return nil, rejected, fmt.Errorf("duplicate quality row for station %s on row %d", id, i+2)
		}
		quality[id] = q
	}

	return quality, rejected, nil
}

// ReadSeries parses one series file in row order
func ReadSeries(in io.Reader, sep rune) ([]*models.DailyObservation, []RowError, error) {
	var rows []*models.RawObservationRecord
	if err := unmarshal(in, sep, seriesColumns, &rows); err != nil {
		return nil, nil, err
	}

	observations := make([]*models.DailyObservation, 0, len(rows))
	var rejected []RowError

	for i, row := range rows {
		obs, err := row.ToObservation()
		if err != nil {
			rejected = append(rejected, RowError{Row: i + 2, Err: err})
			continue
		}
		observations = append(observations, obs)
	}

	return observations, rejected, nil
}
