// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package basket

// Describe returns the first description recorded for productID in dataset
// order, or a *NotFoundError.
func Describe(records []Transaction, productID string) (string, error) {
	for i := range records {
		if records[i].StockCode == productID {
			return records[i].Description, nil
		}
	}
	return "", &NotFoundError{ProductID: productID}
}

// Catalog indexes the first description of every stock code so that repeated
// lookups do not rescan the dataset. It is immutable after construction.
type Catalog struct {
	names map[string]string
}

// NewCatalog builds a catalog from records. Earlier records win.
func NewCatalog(records []Transaction) *Catalog {
	c := &Catalog{names: make(map[string]string)}
	for i := range records {
		if _, seen := c.names[records[i].StockCode]; !seen {
			c.names[records[i].StockCode] = records[i].Description
		}
	}
	return c
}

// Describe returns the description of productID or a *NotFoundError.
func (c *Catalog) Describe(productID string) (string, error) {
	if name, ok := c.names[productID]; ok {
		return name, nil
	}
	return "", &NotFoundError{ProductID: productID}
}

// Len returns the number of distinct products.
func (c *Catalog) Len() int {
	return len(c.names)
}
