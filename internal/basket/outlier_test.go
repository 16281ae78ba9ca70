// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuantile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sorted []float64
		q      float64
		want   float64
	}{
		{"single", []float64{7}, 0.5, 7},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"interpolated", []float64{0, 10}, 0.25, 2.5},
		{"p99 of five", []float64{1, 2, 3, 4, 100}, 0.99, 96.16},
		{"p01 of five", []float64{1, 2, 3, 4, 100}, 0.01, 1.04},
		{"min", []float64{3, 4}, 0, 3},
		{"max", []float64{3, 4}, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Quantile(tt.sorted, tt.q); !almostEqual(got, tt.want) {
				t.Errorf("Quantile(%v, %v) = %v, want %v", tt.sorted, tt.q, got, tt.want)
			}
		})
	}

	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Error("Quantile(nil) should be NaN")
	}
}

func TestOutlierThresholds(t *testing.T) {
	t.Parallel()

	values := []float64{100, 4, 1, 3, 2}
	b, ok := OutlierThresholds(values, 0.01, 0.99, 1.5)
	if !ok {
		t.Fatal("OutlierThresholds() ok = false")
	}

	iqr := 96.16 - 1.04
	if !almostEqual(b.Low, 1.04-1.5*iqr) || !almostEqual(b.High, 96.16+1.5*iqr) {
		t.Errorf("bounds = %+v, want [%v, %v]", b, 1.04-1.5*iqr, 96.16+1.5*iqr)
	}
	if values[0] != 100 {
		t.Error("OutlierThresholds must not reorder its input")
	}

	if _, ok := OutlierThresholds(nil, 0.01, 0.99, 1.5); ok {
		t.Error("empty input should report ok = false")
	}
}

func TestCapOutliers(t *testing.T) {
	t.Parallel()

	values := []float64{-5, 0, 5, 10, 15}
	n := CapOutliers(values, Bounds{Low: 0, High: 10})

	if n != 2 {
		t.Errorf("CapOutliers() = %d, want 2", n)
	}
	want := []float64{0, 0, 5, 10, 10}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestCapping_Idempotent(t *testing.T) {
	t.Parallel()

	records := make([]Transaction, 0, 203)
	for i := 1; i <= 200; i++ {
		records = append(records, line("5370", "22423", float64(i%24+1), 0.5+float64(i%9)))
	}
	records = append(records,
		line("5371", "22423", 80995, 2.08),
		line("5372", "22423", 12, 38970),
		line("5373", "22423", 3, 0.001),
	)

	once, _ := Clean(records, DefaultCleanOptions())
	twice, report := Clean(once, DefaultCleanOptions())

	if len(once) != len(twice) {
		t.Fatalf("second pass dropped rows: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Quantity != twice[i].Quantity || once[i].Price != twice[i].Price {
			t.Errorf("row %d changed on second pass: %+v -> %+v", i, once[i], twice[i])
		}
	}
	if report.Capped[FieldQuantity] != 0 || report.Capped[FieldPrice] != 0 {
		t.Errorf("second pass capped values: %v", report.Capped)
	}
}
