// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"reflect"
	"testing"
)

func TestBuildMatrix(t *testing.T) {
	t.Parallel()

	records := []Transaction{
		line("536527", "21987", 6, 0.85),
		line("536527", "21989", 12, 0.85),
		line("536527", "21987", 6, 0.85), // same group, summed
		line("536840", "21988", 4, 0.85),
		line("536840", "21989", 4, 0.85),
		line("536900", "22326", -2, 2.95), // only non-positive quantity
	}
	france := line("536370", "22728", 24, 3.75)
	france.Country = "France"
	records = append(records, france)

	m := BuildMatrix(records, "Germany", KeyStockCode)

	if got, want := m.Invoices(), []string{"536527", "536840", "536900"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Invoices() = %v, want %v", got, want)
	}
	if got, want := m.Keys(), []string{"21987", "21988", "21989", "22326"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	tests := []struct {
		invoice string
		key     string
		want    uint8
	}{
		{"536527", "21987", 1},
		{"536527", "21988", 0},
		{"536527", "21989", 1},
		{"536840", "21987", 0},
		{"536840", "21988", 1},
		{"536900", "22326", 0},
		{"536370", "22728", 0}, // other country
		{"999999", "21987", 0},
	}
	for _, tt := range tests {
		if got := m.Value(tt.invoice, tt.key); got != tt.want {
			t.Errorf("Value(%s, %s) = %d, want %d", tt.invoice, tt.key, got, tt.want)
		}
	}

	if got := m.ColumnCount(2); got != 2 {
		t.Errorf("ColumnCount(21989) = %d, want 2", got)
	}
}

func TestBuildMatrix_DescriptionKeys(t *testing.T) {
	t.Parallel()

	a := line("1", "21987", 1, 1)
	a.Description = "PACK OF 6 SKULL PAPER CUPS"
	b := line("1", "21989", 1, 1)
	b.Description = "PACK OF 20 SKULL PAPER NAPKINS"

	m := BuildMatrix([]Transaction{a, b}, "Germany", KeyDescription)

	want := []string{"PACK OF 20 SKULL PAPER NAPKINS", "PACK OF 6 SKULL PAPER CUPS"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestBuildMatrix_Empty(t *testing.T) {
	t.Parallel()

	m := BuildMatrix([]Transaction{line("1", "21987", 1, 1)}, "Spain", KeyStockCode)
	if m.Rows() != 0 || m.Cols() != 0 {
		t.Errorf("matrix = %dx%d, want 0x0", m.Rows(), m.Cols())
	}
	if m.Density() != 0 {
		t.Errorf("Density() = %v, want 0", m.Density())
	}
}

func TestNewMatrixFromBaskets(t *testing.T) {
	t.Parallel()

	// 70 invoices spans two bitset words.
	baskets := make(map[string][]string, 70)
	for i := 0; i < 70; i++ {
		inv := string(rune('A'+i/26)) + string(rune('a'+i%26))
		if i%2 == 0 {
			baskets[inv] = []string{"X", "Y"}
		} else {
			baskets[inv] = []string{"X"}
		}
	}

	m := NewMatrixFromBaskets(baskets)

	if m.Words() != 2 {
		t.Errorf("Words() = %d, want 2", m.Words())
	}
	if got := m.ColumnCount(0); got != 70 {
		t.Errorf("ColumnCount(X) = %d, want 70", got)
	}
	if got := m.ColumnCount(1); got != 35 {
		t.Errorf("ColumnCount(Y) = %d, want 35", got)
	}
	if got := m.Density(); !almostEqual(got, 105.0/140.0) {
		t.Errorf("Density() = %v, want %v", got, 105.0/140.0)
	}
}
