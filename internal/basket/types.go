// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Field identifies one column of a transaction record. Fields are bit flags so
// that a record can carry the set of columns that were null in the source.
type Field uint8

const (
	// FieldInvoice is the invoice identifier column.
	FieldInvoice Field = 1 << iota
	// FieldStockCode is the product code column.
	FieldStockCode
	// FieldDescription is the product description column.
	FieldDescription
	// FieldQuantity is the quantity column.
	FieldQuantity
	// FieldInvoiceDate is the invoice timestamp column.
	FieldInvoiceDate
	// FieldPrice is the unit price column.
	FieldPrice
	// FieldCustomerID is the customer identifier column.
	FieldCustomerID
	// FieldCountry is the country column.
	FieldCountry
)

// String returns the column name used in reports and metrics.
func (f Field) String() string {
	switch f {
	case FieldInvoice:
		return "invoice"
	case FieldStockCode:
		return "stock_code"
	case FieldDescription:
		return "description"
	case FieldQuantity:
		return "quantity"
	case FieldInvoiceDate:
		return "invoice_date"
	case FieldPrice:
		return "price"
	case FieldCustomerID:
		return "customer_id"
	case FieldCountry:
		return "country"
	default:
		return "unknown"
	}
}

// Transaction is one line of a sales invoice.
type Transaction struct {
	// Invoice is the invoice identifier. Cancellations carry a marker
	// character (normally "C") in the identifier.
	Invoice string `json:"invoice"`

	// StockCode is the product identifier.
	StockCode string `json:"stock_code"`

	// Description is the product name.
	Description string `json:"description"`

	// Quantity is the number of units on the line. It is integral in the
	// source data but outlier capping may write a fractional bound into it.
	Quantity float64 `json:"quantity"`

	// InvoiceDate is when the invoice was issued. Not used by mining.
	InvoiceDate time.Time `json:"invoice_date"`

	// Price is the unit price.
	Price float64 `json:"price"`

	// CustomerID is the customer identifier.
	CustomerID string `json:"customer_id,omitempty"`

	// Country is the market the invoice belongs to.
	Country string `json:"country"`

	// Nulls records which columns were null in the source row.
	Nulls Field `json:"-"`
}

// Missing returns the set of fields that are null or empty.
func (t *Transaction) Missing() Field {
	missing := t.Nulls
	if t.Invoice == "" {
		missing |= FieldInvoice
	}
	if t.StockCode == "" {
		missing |= FieldStockCode
	}
	if t.Description == "" {
		missing |= FieldDescription
	}
	if math.IsNaN(t.Quantity) {
		missing |= FieldQuantity
	}
	if t.InvoiceDate.IsZero() {
		missing |= FieldInvoiceDate
	}
	if math.IsNaN(t.Price) {
		missing |= FieldPrice
	}
	if t.CustomerID == "" {
		missing |= FieldCustomerID
	}
	if t.Country == "" {
		missing |= FieldCountry
	}
	return missing
}

// HasMissing reports whether any field is null or empty.
func (t *Transaction) HasMissing() bool {
	return t.Missing() != 0
}

// KeyMode selects which product attribute becomes a basket matrix column.
type KeyMode string

const (
	// KeyStockCode keys columns by product identifier.
	KeyStockCode KeyMode = "stock_code"
	// KeyDescription keys columns by product description.
	KeyDescription KeyMode = "description"
)

// Key returns the column key of t under mode.
func (m KeyMode) Key(t *Transaction) string {
	if m == KeyDescription {
		return t.Description
	}
	return t.StockCode
}

// Valid reports whether m is a known key mode.
func (m KeyMode) Valid() bool {
	return m == KeyStockCode || m == KeyDescription
}

// Metric names a rule interestingness measure used for rule filtering.
type Metric string

const (
	MetricSupport    Metric = "support"
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricLeverage   Metric = "leverage"
	MetricConviction Metric = "conviction"
)

// ParseMetric converts a case-insensitive metric name.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case MetricSupport, MetricConfidence, MetricLift, MetricLeverage, MetricConviction:
		return m, nil
	default:
		return "", &ConfigurationError{Field: "metric", Reason: fmt.Sprintf("unknown metric %q", name)}
	}
}

// Itemset is a set of product keys with the fraction of invoices containing
// all of them. Items are held in basket matrix column order.
type Itemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
}

// Len returns the number of items.
func (s Itemset) Len() int {
	return len(s.Items)
}

// Rule is an association rule Antecedent -> Consequent derived from one
// frequent itemset.
type Rule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`

	AntecedentSupport float64 `json:"antecedent_support"`
	ConsequentSupport float64 `json:"consequent_support"`

	// Support is the support of Antecedent ∪ Consequent.
	Support float64 `json:"support"`

	// Confidence is Support / AntecedentSupport.
	Confidence float64 `json:"confidence"`

	// Lift is Confidence / ConsequentSupport.
	Lift float64 `json:"lift"`

	// Leverage is Support - AntecedentSupport*ConsequentSupport.
	Leverage float64 `json:"leverage"`

	// Conviction is (1 - ConsequentSupport) / (1 - Confidence). It is +Inf
	// when Confidence is 1.
	Conviction float64 `json:"conviction"`
}

// Value returns the rule's value for metric m.
func (r *Rule) Value(m Metric) float64 {
	switch m {
	case MetricConfidence:
		return r.Confidence
	case MetricLift:
		return r.Lift
	case MetricLeverage:
		return r.Leverage
	case MetricConviction:
		return r.Conviction
	default:
		return r.Support
	}
}

// String renders the rule as "{a, b} -> {c}".
func (r *Rule) String() string {
	return "{" + strings.Join(r.Antecedent, ", ") + "} -> {" + strings.Join(r.Consequent, ", ") + "}"
}

// HasAntecedent reports whether key appears in the rule's antecedent.
func (r *Rule) HasAntecedent(key string) bool {
	for _, item := range r.Antecedent {
		if item == key {
			return true
		}
	}
	return false
}
