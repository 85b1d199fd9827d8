// Package ingest turns hourly consumption spreadsheets into readings.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pvsizer/pvsizer/pkg/types"
)

var (
	// ErrNoValidData is returned when no row survives parsing.
	ErrNoValidData = errors.New("no valid data found")

	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrUnsupportedFormat is returned for file extensions with no parser.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Field is a column of the input.
type Field string

const (
	FieldEnergy Field = "energy"
	FieldHour   Field = "hour"
	FieldDay    Field = "day"
	FieldMonth  Field = "month"
	FieldYear   Field = "year"
)

// Synonyms lists the accepted header names per field, in priority order.
// Matching is case-insensitive and ignores repeated whitespace.
var Synonyms = map[Field][]string{
	FieldEnergy: {"energie (kwh)", "energie", "energy (kwh)", "energy", "consum", "kwh"},
	FieldHour:   {"ora", "hour"},
	FieldDay:    {"zi", "day"},
	FieldMonth:  {"luna", "month"},
	FieldYear:   {"an", "anul", "year"},
}

var requiredFields = []Field{FieldEnergy, FieldHour, FieldDay, FieldMonth}

var yearPattern = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)

// Options control parsing.
type Options struct {
	// Now supplies the year when neither a column nor a name has one.
	// Defaults to time.Now.
	Now time.Time

	// SheetName selects an XLSX sheet. Defaults to the first.
	SheetName string
}

// Result is the outcome of parsing a file.
type Result struct {
	Readings []types.Reading `json:"-"`

	// Dropped counts data rows that were skipped.
	Dropped int `json:"dropped"`

	// Sheet is the XLSX sheet that was read.
	Sheet string `json:"sheet,omitempty"`
}

// Parse reads name's contents from r with the parser matching its extension.
func Parse(name string, r io.Reader, opts Options) (Result, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return parseCSV(name, r, opts)
	case ".xlsx", ".xlsm":
		return parseXLSX(name, r, opts)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// columns maps each field to its index in a row, -1 when absent.
type columns map[Field]int

func resolveColumns(header []string) (columns, error) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		h = normalizeHeader(h)
		if _, ok := normalized[h]; !ok {
			normalized[h] = i
		}
	}

	cols := make(columns, len(Synonyms))
	for field, names := range Synonyms {
		cols[field] = -1
		for _, name := range names {
			if i, ok := normalized[name]; ok {
				cols[field] = i
				break
			}
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if cols[f] < 0 {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// fallbackYear looks for a plausible year in the given names, in order.
func fallbackYear(now time.Time, names ...string) int {
	for _, name := range names {
		for _, m := range yearPattern.FindAllStringSubmatch(name, -1) {
			y, err := strconv.Atoi(m[1])
			if err == nil && y >= types.MinReadingYear && y <= types.MaxReadingYear {
				return y
			}
		}
	}
	if now.IsZero() {
		now = time.Now()
	}
	return now.Year()
}

// readings converts data rows with resolved columns. Rows that are short,
// unparseable, out of range or have no consumption are dropped.
func readings(cols columns, rows [][]string, year int) Result {
	var res Result
	for _, row := range rows {
		if blank(row) {
			continue
		}
		r, ok := reading(cols, row, year)
		if !ok {
			res.Dropped++
			continue
		}
		res.Readings = append(res.Readings, r)
	}
	return res
}

func reading(cols columns, row []string, year int) (types.Reading, bool) {
	cell := func(f Field) string {
		i := cols[f]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	energy, err := parseNumber(cell(FieldEnergy))
	if err != nil || energy <= 0 {
		return types.Reading{}, false
	}
	r := types.Reading{EnergyKWH: energy, Year: year}
	for _, p := range []struct {
		field Field
		dst   *int
	}{
		{FieldHour, &r.Hour},
		{FieldDay, &r.Day},
		{FieldMonth, &r.Month},
	} {
		v, err := parseInt(cell(p.field))
		if err != nil {
			return types.Reading{}, false
		}
		*p.dst = v
	}
	if s := cell(FieldYear); s != "" {
		y, err := parseInt(s)
		if err != nil {
			return types.Reading{}, false
		}
		r.Year = y
	}
	if r.Validate() != nil {
		return types.Reading{}, false
	}
	return r, true
}

// parseNumber accepts a decimal comma when there is no decimal point.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}

// parseInt accepts integral values written as floats, like "3.0".
func parseInt(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return int(v), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func finish(res Result) (Result, error) {
	if len(res.Readings) == 0 {
		return res, ErrNoValidData
	}
	return res, nil
}
