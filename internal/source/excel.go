// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
)

// ExcelSource reads one worksheet of an .xlsx workbook.
type ExcelSource struct {
	path  string
	sheet string
}

// NewExcelSource returns a source for sheet of the workbook at path. An
// empty sheet selects DefaultSheet.
func NewExcelSource(path, sheet string) *ExcelSource {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &ExcelSource{path: path, sheet: sheet}
}

// Name implements Source.
func (s *ExcelSource) Name() string { return "excel" }

// Load streams the worksheet row by row. Cells are read as raw values so
// numeric IDs are not reformatted; date cells arrive as serial numbers and
// are converted with the workbook's date system.
func (s *ExcelSource) Load(ctx context.Context) ([]basket.Transaction, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Warn().Err(cerr).Str("path", s.path).Msg("Failed to close workbook")
		}
	}()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	parseTime := func(v string) (time.Time, bool) {
		if serial, err := strconv.ParseFloat(v, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, date1904)
			return t, err == nil
		}
		return parseTimestamp(v)
	}

	rows, err := f.Rows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", s.sheet, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		cols    columns
		header  bool
		records []basket.Transaction
		line    int
	)
	for rows.Next() {
		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if !header {
			if len(row) == 0 {
				continue
			}
			if cols, err = mapHeader(row); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", s.sheet, err)
			}
			header = true
			continue
		}
		if isBlankRow(row) {
			continue
		}
		records = append(records, buildRecord(row, cols, parseTime))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q: %w", s.sheet, err)
	}
	if !header {
		return nil, fmt.Errorf("sheet %q has no header row", s.sheet)
	}

	logging.Ctx(ctx).Info().
		Str("path", s.path).
		Str("sheet", s.sheet).
		Int("records", len(records)).
		Msg("Loaded workbook")

	return records, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
