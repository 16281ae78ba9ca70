// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package source loads raw invoice lines from spreadsheets, CSV files and
// DuckDB. Every source maps columns by header name, so column order in the
// file does not matter, and reports blank cells through Transaction.Nulls
// instead of failing. Malformed rows are left for the cleaning stage to drop.
package source

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/validation"
)

// Source loads every transaction record of a dataset.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]basket.Transaction, error)
}

// Kind selects a Source implementation.
type Kind string

const (
	KindExcel  Kind = "excel"
	KindCSV    Kind = "csv"
	KindDuckDB Kind = "duckdb"
)

// DefaultSheet is the worksheet holding the 2010-2011 Online Retail II data.
const DefaultSheet = "Year 2010-2011"

// Config selects and configures a Source.
type Config struct {
	Kind Kind   `koanf:"kind" validate:"required,oneof=excel csv duckdb"`
	Path string `koanf:"path" validate:"required"`

	// Sheet is the worksheet name for Excel sources.
	Sheet string `koanf:"sheet"`

	// Query overrides the generated SELECT for DuckDB sources.
	Query string `koanf:"query"`

	// Table is read when Path is a DuckDB database and Query is empty.
	Table string `koanf:"table"`

	// Breaker wraps the source in a circuit breaker when enabled.
	Breaker BreakerConfig `koanf:"breaker"`
}

// New builds the Source described by cfg.
func New(cfg Config) (Source, error) {
	if err := validation.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	var src Source
	switch cfg.Kind {
	case KindExcel:
		src = NewExcelSource(cfg.Path, cfg.Sheet)
	case KindCSV:
		src = NewCSVSource(cfg.Path)
	case KindDuckDB:
		src = NewDuckDBSource(cfg.Path, cfg.Query, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}

	if cfg.Breaker.Enabled {
		src = NewBreakerSource(src, cfg.Breaker)
	}
	return src, nil
}

// column positions within a header row
type columns [8]int

var columnFields = [8]basket.Field{
	basket.FieldInvoice,
	basket.FieldStockCode,
	basket.FieldDescription,
	basket.FieldQuantity,
	basket.FieldInvoiceDate,
	basket.FieldPrice,
	basket.FieldCustomerID,
	basket.FieldCountry,
}

// headerAliases maps normalised header names to a column slot. Both the
// Online Retail II names and the older Online Retail names are accepted.
var headerAliases = map[string]int{
	"invoice":     0,
	"invoiceno":   0,
	"stockcode":   1,
	"description": 2,
	"quantity":    3,
	"invoicedate": 4,
	"price":       5,
	"unitprice":   5,
	"customerid":  6,
	"country":     7,
}

func normaliseHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name)
}

// mapHeader locates every column in header. All columns except customer ID
// are required.
func mapHeader(header []string) (columns, error) {
	var cols columns
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		if slot, ok := headerAliases[normaliseHeader(name)]; ok && cols[slot] < 0 {
			cols[slot] = i
		}
	}

	var missing []string
	for slot, idx := range cols {
		if idx < 0 && columnFields[slot] != basket.FieldCustomerID {
			missing = append(missing, columnFields[slot].String())
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// timestampLayouts are tried in order for textual invoice dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildRecord converts one row of cell strings. Blank or unparseable cells
// set the matching Nulls bit.
func buildRecord(row []string, cols columns, parseTime func(string) (time.Time, bool)) basket.Transaction {
	var t basket.Transaction
	cell := func(slot int) (string, bool) {
		idx := cols[slot]
		if idx < 0 || idx >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[idx])
		return v, v != ""
	}

	if v, ok := cell(0); ok {
		t.Invoice = v
	} else {
		t.Nulls |= basket.FieldInvoice
	}
	if v, ok := cell(1); ok {
		t.StockCode = v
	} else {
		t.Nulls |= basket.FieldStockCode
	}
	if v, ok := cell(2); ok {
		t.Description = v
	} else {
		t.Nulls |= basket.FieldDescription
	}
	t.Quantity = parseNumber(cell(3))
	if math.IsNaN(t.Quantity) {
		t.Nulls |= basket.FieldQuantity
	}
	if v, ok := cell(4); ok {
		if ts, ok := parseTime(v); ok {
			t.InvoiceDate = ts
		} else {
			t.Nulls |= basket.FieldInvoiceDate
		}
	} else {
		t.Nulls |= basket.FieldInvoiceDate
	}
	t.Price = parseNumber(cell(5))
	if math.IsNaN(t.Price) {
		t.Nulls |= basket.FieldPrice
	}
	if v, ok := cell(6); ok {
		t.CustomerID = normaliseID(v)
	} else {
		t.Nulls |= basket.FieldCustomerID
	}
	if v, ok := cell(7); ok {
		t.Country = v
	} else {
		t.Nulls |= basket.FieldCountry
	}
	return t
}

func parseNumber(s string, ok bool) float64 {
	if !ok {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// normaliseID drops the ".0" suffix spreadsheets add to integral IDs.
func normaliseID(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(s[:len(s)-2], 10, 64); err == nil {
			return s[:len(s)-2]
		}
	}
	return s
}
