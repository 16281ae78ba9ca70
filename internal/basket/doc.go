// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package basket holds the transaction data model and the data preparation
// stages that precede rule mining.
//
// # Cleaning
//
// Clean applies, in order:
//
//  1. drop administrative charge lines (StockCode == "POST")
//  2. drop rows with any missing field
//  3. drop cancelled invoices (Invoice contains "C")
//  4. drop rows with Quantity <= 0, then Price <= 0
//  5. cap Quantity, then Price, into [q01 - 1.5*IQR, q99 + 1.5*IQR]
//
// Dropped rows are counted in a CleanReport. They are never errors.
//
// # Basket Matrix
//
// BuildMatrix filters one country and pivots the cleaned lines into a dense
// invoice x product incidence table keyed by stock code or description:
//
//	            21987  21988  21989
//	536527        1      0      1
//	536840        0      1      1
//
// # Product Lookup
//
// Describe and Catalog map a stock code to its first recorded description and
// return a *NotFoundError for unknown codes.
package basket
