// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"math"
	"strings"
)

// CleanOptions configures the cleaning rules.
type CleanOptions struct {
	// ExcludedStockCode is the exact product code of administrative charge
	// lines ("POST" postage in the Online Retail II data).
	ExcludedStockCode string `json:"excluded_stock_code" koanf:"excluded_stock_code"`

	// CancellationMarker marks cancelled invoices when it appears anywhere in
	// the invoice identifier. Matching is case-sensitive.
	CancellationMarker string `json:"cancellation_marker" koanf:"cancellation_marker" validate:"required"`

	// MissingInvoiceIsCancellation classifies rows without an invoice
	// identifier as cancellations. Such rows are dropped either way; the flag
	// only decides which reason they are reported under.
	MissingInvoiceIsCancellation bool `json:"missing_invoice_is_cancellation" koanf:"missing_invoice_is_cancellation"`

	// LowerQuantile and UpperQuantile bracket the range used for capping.
	LowerQuantile float64 `json:"lower_quantile" koanf:"lower_quantile" validate:"gte=0,lte=1"`
	UpperQuantile float64 `json:"upper_quantile" koanf:"upper_quantile" validate:"gte=0,lte=1"`

	// IQRMultiplier widens the capping range beyond the quantiles.
	IQRMultiplier float64 `json:"iqr_multiplier" koanf:"iqr_multiplier" validate:"gte=0"`
}

// DefaultCleanOptions returns the rules used for the Online Retail II data.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		ExcludedStockCode:  "POST",
		CancellationMarker: "C",
		LowerQuantile:      0.01,
		UpperQuantile:      0.99,
		IQRMultiplier:      1.5,
	}
}

// Validate checks the options and returns a *ConfigurationError on failure.
func (o *CleanOptions) Validate() error {
	if o.CancellationMarker == "" {
		return configErrorf("cancellation_marker", "must not be empty")
	}
	if o.LowerQuantile < 0 || o.LowerQuantile > 1 {
		return configErrorf("lower_quantile", "must be between 0 and 1, got %f", o.LowerQuantile)
	}
	if o.UpperQuantile < 0 || o.UpperQuantile > 1 {
		return configErrorf("upper_quantile", "must be between 0 and 1, got %f", o.UpperQuantile)
	}
	if o.LowerQuantile > o.UpperQuantile {
		return configErrorf("lower_quantile", "must not exceed upper_quantile (%f > %f)", o.LowerQuantile, o.UpperQuantile)
	}
	if o.IQRMultiplier < 0 || math.IsNaN(o.IQRMultiplier) {
		return configErrorf("iqr_multiplier", "must be non-negative, got %f", o.IQRMultiplier)
	}
	return nil
}

// DropReason says why a record was removed during cleaning.
type DropReason string

const (
	DropNonProduct          DropReason = "non_product"
	DropMissingField        DropReason = "missing_field"
	DropCancelled           DropReason = "cancelled"
	DropNonPositiveQuantity DropReason = "non_positive_quantity"
	DropNonPositivePrice    DropReason = "non_positive_price"
)

// DropReasons lists every reason in the order the rules are applied.
var DropReasons = []DropReason{
	DropNonProduct,
	DropMissingField,
	DropCancelled,
	DropNonPositiveQuantity,
	DropNonPositivePrice,
}

// CleanReport summarises one cleaning pass. Bad rows are filtered and
// counted here rather than returned as errors.
type CleanReport struct {
	Input   int                `json:"input"`
	Output  int                `json:"output"`
	Dropped map[DropReason]int `json:"dropped"`

	QuantityBounds Bounds `json:"quantity_bounds"`
	PriceBounds    Bounds `json:"price_bounds"`

	// Capped counts capped values per column (FieldQuantity, FieldPrice).
	Capped map[Field]int `json:"capped"`
}

// TotalDropped returns the number of records removed for any reason.
func (r *CleanReport) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// IsCancellation reports whether invoice denotes a cancelled invoice.
// Missing identifiers match only when opts.MissingInvoiceIsCancellation is set.
func IsCancellation(invoice string, opts *CleanOptions) bool {
	if invoice == "" {
		return opts.MissingInvoiceIsCancellation
	}
	return strings.Contains(invoice, opts.CancellationMarker)
}

// dropReason returns the first rule that rejects t, or "" if t is kept.
func dropReason(t *Transaction, opts *CleanOptions) DropReason {
	if opts.ExcludedStockCode != "" && t.StockCode == opts.ExcludedStockCode {
		return DropNonProduct
	}
	if missing := t.Missing(); missing != 0 {
		if missing&FieldInvoice != 0 && opts.MissingInvoiceIsCancellation {
			return DropCancelled
		}
		return DropMissingField
	}
	if IsCancellation(t.Invoice, opts) {
		return DropCancelled
	}
	if !(t.Quantity > 0) {
		return DropNonPositiveQuantity
	}
	if !(t.Price > 0) {
		return DropNonPositivePrice
	}
	return ""
}

// Clean filters records and caps Quantity and Price outliers. The input slice
// is never modified; the cleaned records are a new slice. Every returned
// record has Quantity > 0, Price > 0, no missing field, a non-cancelled
// invoice and a product stock code.
//
// Capping runs after filtering and computes its bounds from the surviving
// rows: Quantity first, then Price. Options are assumed valid.
func Clean(records []Transaction, opts CleanOptions) ([]Transaction, CleanReport) {
	report := CleanReport{
		Input:   len(records),
		Dropped: make(map[DropReason]int, len(DropReasons)),
		Capped:  make(map[Field]int, 2),
	}

	cleaned := make([]Transaction, 0, len(records))
	for i := range records {
		if reason := dropReason(&records[i], &opts); reason != "" {
			report.Dropped[reason]++
			continue
		}
		t := records[i]
		t.Nulls = 0
		cleaned = append(cleaned, t)
	}
	report.Output = len(cleaned)

	report.QuantityBounds, report.Capped[FieldQuantity] = capColumn(cleaned, &opts,
		func(t *Transaction) *float64 { return &t.Quantity })
	report.PriceBounds, report.Capped[FieldPrice] = capColumn(cleaned, &opts,
		func(t *Transaction) *float64 { return &t.Price })

	return cleaned, report
}

// capColumn caps one numeric column of records in place.
func capColumn(records []Transaction, opts *CleanOptions, column func(*Transaction) *float64) (Bounds, int) {
	values := make([]float64, len(records))
	for i := range records {
		values[i] = *column(&records[i])
	}

	bounds, ok := OutlierThresholds(values, opts.LowerQuantile, opts.UpperQuantile, opts.IQRMultiplier)
	if !ok {
		return Bounds{}, 0
	}

	capped := CapOutliers(values, bounds)
	if capped > 0 {
		for i := range records {
			*column(&records[i]) = values[i]
		}
	}
	return bounds, capped
}
