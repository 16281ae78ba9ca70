// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"math/bits"
	"sort"
)

// Matrix is a dense binary invoice-by-product incidence table. Rows are
// unique invoices and columns unique product keys, both in ascending order.
// Every (invoice, key) combination has a value; combinations never ordered
// are 0.
//
// Storage is column-major: each column is a bitset over rows, so the support
// of an itemset is the popcount of the AND of its columns.
type Matrix struct {
	invoices []string
	keys     []string
	rowIndex map[string]int
	colIndex map[string]int
	cols     [][]uint64
	words    int
}

func newMatrix(invoices, keys []string) *Matrix {
	m := &Matrix{
		invoices: invoices,
		keys:     keys,
		rowIndex: make(map[string]int, len(invoices)),
		colIndex: make(map[string]int, len(keys)),
		cols:     make([][]uint64, len(keys)),
		words:    (len(invoices) + 63) / 64,
	}
	for i, inv := range invoices {
		m.rowIndex[inv] = i
	}
	for j, key := range keys {
		m.colIndex[key] = j
		m.cols[j] = make([]uint64, m.words)
	}
	return m
}

func (m *Matrix) set(row, col int) {
	m.cols[col][row/64] |= 1 << (uint(row) % 64)
}

// BuildMatrix pivots records of one country into a basket matrix. Records are
// grouped by (invoice, key) with key chosen by mode; a group whose summed
// Quantity is positive is encoded as 1. Rows and columns cover every invoice
// and key observed in the filtered records, so a key whose every group sums
// to zero or less still gets an all-zero column. No matching record yields an
// empty 0x0 matrix.
func BuildMatrix(records []Transaction, country string, mode KeyMode) *Matrix {
	type cell struct {
		invoice string
		key     string
	}

	sums := make(map[cell]float64)
	invoiceSet := make(map[string]struct{})
	keySet := make(map[string]struct{})

	for i := range records {
		t := &records[i]
		if t.Country != country {
			continue
		}
		key := mode.Key(t)
		sums[cell{invoice: t.Invoice, key: key}] += t.Quantity
		invoiceSet[t.Invoice] = struct{}{}
		keySet[key] = struct{}{}
	}

	m := newMatrix(sortedKeys(invoiceSet), sortedKeys(keySet))
	for c, qty := range sums {
		if qty > 0 {
			m.set(m.rowIndex[c.invoice], m.colIndex[c.key])
		}
	}
	return m
}

// NewMatrixFromBaskets builds a matrix from invoice -> product keys. Listing
// a key marks it present in that invoice.
func NewMatrixFromBaskets(baskets map[string][]string) *Matrix {
	invoiceSet := make(map[string]struct{}, len(baskets))
	keySet := make(map[string]struct{})
	for inv, items := range baskets {
		invoiceSet[inv] = struct{}{}
		for _, item := range items {
			keySet[item] = struct{}{}
		}
	}

	m := newMatrix(sortedKeys(invoiceSet), sortedKeys(keySet))
	for inv, items := range baskets {
		row := m.rowIndex[inv]
		for _, item := range items {
			m.set(row, m.colIndex[item])
		}
	}
	return m
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rows returns the number of invoices.
func (m *Matrix) Rows() int { return len(m.invoices) }

// Cols returns the number of product keys.
func (m *Matrix) Cols() int { return len(m.keys) }

// Words returns the length of every column bitset.
func (m *Matrix) Words() int { return m.words }

// Invoices returns a copy of the row labels.
func (m *Matrix) Invoices() []string {
	return append([]string(nil), m.invoices...)
}

// Keys returns a copy of the column labels.
func (m *Matrix) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Key returns the label of column j.
func (m *Matrix) Key(j int) string { return m.keys[j] }

// Column returns the bitset of column j. The slice is shared with the matrix
// and must not be modified.
func (m *Matrix) Column(j int) []uint64 { return m.cols[j] }

// ColumnCount returns the number of invoices containing key j.
func (m *Matrix) ColumnCount(j int) int {
	n := 0
	for _, w := range m.cols[j] {
		n += bits.OnesCount64(w)
	}
	return n
}

// Value returns the incidence of key in invoice: 1 if the invoice ordered a
// positive quantity of it, otherwise 0. Unknown labels are 0.
func (m *Matrix) Value(invoice, key string) uint8 {
	row, ok := m.rowIndex[invoice]
	if !ok {
		return 0
	}
	col, ok := m.colIndex[key]
	if !ok {
		return 0
	}
	return uint8(m.cols[col][row/64] >> (uint(row) % 64) & 1)
}

// Density returns the fraction of cells set to 1.
func (m *Matrix) Density() float64 {
	cells := m.Rows() * m.Cols()
	if cells == 0 {
		return 0
	}
	ones := 0
	for j := range m.cols {
		ones += m.ColumnCount(j)
	}
	return float64(ones) / float64(cells)
}
