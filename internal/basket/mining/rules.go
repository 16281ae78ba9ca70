// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package mining

import (
	"fmt"
	"math"
	"strings"

	"github.com/tomtom215/basketrules/internal/basket"
)

// itemsKey joins item keys with a separator that cannot occur in the source
// spreadsheet's text cells.
func itemsKey(items []string) string {
	return strings.Join(items, "\x00")
}

// GenerateRules derives association rules from frequent itemsets.
//
// Every itemset of size k >= 2 is split into (antecedent, consequent) pairs:
// antecedent sizes run from k-1 down to 1 and, for each size, antecedents are
// the combinations of the itemset's items in item order. The consequent holds
// the remaining items, also in item order. Rules are emitted in that order and
// kept when their value for metric is at least minThreshold.
//
// itemsets must be downward closed (every subset of an itemset is present),
// which Apriori output always is. A missing subset is reported as an error.
// An empty input yields an empty slice.
func GenerateRules(itemsets []basket.Itemset, metric basket.Metric, minThreshold float64) ([]basket.Rule, error) {
	if _, err := basket.ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if math.IsNaN(minThreshold) {
		return nil, &basket.ConfigurationError{Field: "min_threshold", Reason: "must be a number"}
	}

	supports := make(map[string]float64, len(itemsets))
	for i := range itemsets {
		supports[itemsKey(itemsets[i].Items)] = itemsets[i].Support
	}

	lookup := func(items []string) (float64, error) {
		s, ok := supports[itemsKey(items)]
		if !ok {
			return 0, fmt.Errorf("itemset {%s} missing from frequent itemsets", strings.Join(items, ", "))
		}
		return s, nil
	}

	rules := []basket.Rule{}
	for i := range itemsets {
		items := itemsets[i].Items
		k := len(items)
		if k < 2 {
			continue
		}
		sAC := itemsets[i].Support

		for r := k - 1; r >= 1; r-- {
			var err error
			forEachCombination(k, r, func(chosen []bool) bool {
				antecedent := make([]string, 0, r)
				consequent := make([]string, 0, k-r)
				for idx, item := range items {
					if chosen[idx] {
						antecedent = append(antecedent, item)
					} else {
						consequent = append(consequent, item)
					}
				}

				var sA, sC float64
				if sA, err = lookup(antecedent); err != nil {
					return false
				}
				if sC, err = lookup(consequent); err != nil {
					return false
				}

				rule := newRule(antecedent, consequent, sA, sC, sAC)
				if rule.Value(metric) >= minThreshold {
					rules = append(rules, rule)
				}
				return true
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return rules, nil
}

func newRule(antecedent, consequent []string, sA, sC, sAC float64) basket.Rule {
	confidence := sAC / sA
	conviction := math.Inf(1)
	if confidence < 1 {
		conviction = (1 - sC) / (1 - confidence)
	}

	return basket.Rule{
		Antecedent:        antecedent,
		Consequent:        consequent,
		AntecedentSupport: sA,
		ConsequentSupport: sC,
		Support:           sAC,
		Confidence:        confidence,
		Lift:              confidence / sC,
		Leverage:          sAC - sA*sC,
		Conviction:        conviction,
	}
}

// forEachCombination calls fn for every r-combination of n positions in
// lexicographic order. chosen marks the selected positions and is reused
// between calls. Iteration stops when fn returns false.
func forEachCombination(n, r int, fn func(chosen []bool) bool) {
	if r <= 0 || r > n {
		return
	}

	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	chosen := make([]bool, n)

	for {
		for i := range chosen {
			chosen[i] = false
		}
		for _, p := range idx {
			chosen[p] = true
		}
		if !fn(chosen) {
			return
		}

		// Advance the rightmost index that can still move.
		i := r - 1
		for i >= 0 && idx[i] == n-r+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < r; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
