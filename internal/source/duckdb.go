// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package source

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
)

// DefaultTable is read from DuckDB databases when no query or table is set.
const DefaultTable = "transactions"

// DuckDBSource reads transactions through DuckDB. Path is either a DuckDB
// database file, read with Query or Table, or a CSV or Parquet file that an
// in-memory database scans directly.
type DuckDBSource struct {
	path  string
	query string
	table string
}

// NewDuckDBSource returns a DuckDB backed source.
func NewDuckDBSource(path, query, table string) *DuckDBSource {
	return &DuckDBSource{path: path, query: query, table: table}
}

// Name implements Source.
func (s *DuckDBSource) Name() string { return "duckdb" }

// isDataFile reports whether path is scanned by a table function rather than
// attached as a database.
func isDataFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".parquet", ".gz":
		return true
	}
	return false
}

// statement returns the DSN to open and the SELECT to run.
func (s *DuckDBSource) statement() (dsn, query string) {
	dsn = ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false"
	if !isDataFile(s.path) {
		dsn = s.path + "?access_mode=read_only"
		if s.path == "" || s.path == ":memory:" {
			dsn = ":memory:"
		}
	}

	if s.query != "" {
		return dsn, s.query
	}
	if isDataFile(s.path) {
		literal := quoteLiteral(s.path)
		if strings.Contains(strings.ToLower(s.path), ".parquet") {
			return dsn, "SELECT * FROM read_parquet(" + literal + ")"
		}
		return dsn, "SELECT * FROM read_csv_auto(" + literal + ", header = true, all_varchar = true)"
	}
	table := s.table
	if table == "" {
		table = DefaultTable
	}
	return dsn, "SELECT * FROM " + quoteIdentifier(table)
}

// Load implements Source.
func (s *DuckDBSource) Load(ctx context.Context) ([]basket.Transaction, error) {
	dsn, query := s.statement()

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	records, err := queryTransactions(ctx, db, query)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("path", s.path).
		Int("records", len(records)).
		Msg("Loaded records through DuckDB")

	return records, nil
}

// queryTransactions runs query and maps its columns by name.
func queryTransactions(ctx context.Context, db *sql.DB, query string) ([]basket.Transaction, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	cols, err := mapHeader(names)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	cells := make([]string, len(names))

	var records []basket.Transaction
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(records)+1, err)
		}
		for i, v := range values {
			cells[i] = cellString(v)
		}
		records = append(records, buildRecord(cells, cols, parseTimestamp))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}

// cellString renders a scanned value the way buildRecord parses it. NULL
// becomes the empty string.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case interface{ Float64() float64 }:
		return strconv.FormatFloat(x.Float64(), 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
