package ingest

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

func parseXLSX(name string, r io.Reader, opts Options) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Result{}, ErrNoValidData
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	// skip leading empty rows above the header
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return Result{Sheet: sheet}, ErrNoValidData
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return Result{Sheet: sheet}, err
	}
	year := fallbackYear(opts.Now, sheet, filepath.Base(name))
	res := readings(cols, rows[1:], year)
	res.Sheet = sheet
	return finish(res)
}
