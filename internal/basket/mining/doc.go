// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package mining finds frequent itemsets in a basket matrix and derives
// association rules from them.
//
// Metrics for a rule A -> C, with s(X) the fraction of invoices containing X:
//
//	support    = s(A ∪ C)
//	confidence = s(A ∪ C) / s(A)
//	lift       = confidence / s(C)
//	leverage   = s(A ∪ C) - s(A)·s(C)
//	conviction = (1 - s(C)) / (1 - confidence)
//
// Both stages are deterministic: given the same matrix and thresholds they
// return the same itemsets and rules in the same order.
package mining
