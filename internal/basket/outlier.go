// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"math"
	"sort"
)

// Bounds is a closed interval values are capped into.
type Bounds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Clamp returns v limited to [b.Low, b.High].
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Low {
		return b.Low
	}
	if v > b.High {
		return b.High
	}
	return v
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between the two closest ranks: position (n-1)*q. sorted must be ascending.
// An empty slice yields NaN.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// OutlierThresholds computes capping bounds for values: with ql and qh the
// lowQ and highQ quantiles and IQR = qh - ql, the bounds are
// [ql - multiplier*IQR, qh + multiplier*IQR]. ok is false for empty input.
func OutlierThresholds(values []float64, lowQ, highQ, multiplier float64) (b Bounds, ok bool) {
	if len(values) == 0 {
		return Bounds{}, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := Quantile(sorted, lowQ)
	q3 := Quantile(sorted, highQ)
	iqr := q3 - q1

	return Bounds{Low: q1 - multiplier*iqr, High: q3 + multiplier*iqr}, true
}

// CapOutliers clamps values into b in place and returns how many changed.
func CapOutliers(values []float64, b Bounds) int {
	capped := 0
	for i, v := range values {
		if c := b.Clamp(v); c != v {
			values[i] = c
			capped++
		}
	}
	return capped
}
