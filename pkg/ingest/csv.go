package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
)

func parseCSV(name string, r io.Reader, opts Options) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read csv: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = sniffDelimiter(b)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return Result{}, ErrNoValidData
	}

	cols, err := resolveColumns(records[0])
	if err != nil {
		return Result{}, err
	}
	year := fallbackYear(opts.Now, filepath.Base(name))
	return finish(readings(cols, records[1:], year))
}

// sniffDelimiter picks ';' over ',' when the header line uses it, which is
// common for spreadsheets exported with a decimal comma.
func sniffDelimiter(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	if bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) {
		return '\t'
	}
	return ','
}
