// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"sort"

	"github.com/tomtom215/basketrules/internal/basket"
)

// RecommenderOptions configures a Recommender.
type RecommenderOptions struct {
	// Deduplicate skips products already present in the result.
	Deduplicate bool
}

// Recommender answers recommendation queries against one rule set.
// It is immutable after construction.
type Recommender struct {
	rules []basket.Rule

	// byAntecedent maps a product to the positions of the rules whose
	// antecedent contains it, ascending, so that each bucket is already in
	// lift order.
	byAntecedent map[string][]int

	opts RecommenderOptions
}

// NewRecommender copies rules, sorts them by lift descending and indexes
// them by antecedent item. Rules with equal lift keep their input order.
func NewRecommender(rules []basket.Rule, opts RecommenderOptions) *Recommender {
	sorted := make([]basket.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Lift > sorted[j].Lift
	})

	index := make(map[string][]int)
	for pos := range sorted {
		for _, item := range sorted[pos].Antecedent {
			bucket := index[item]
			// An item appears at most once per antecedent, but guard
			// against duplicated input.
			if n := len(bucket); n > 0 && bucket[n-1] == pos {
				continue
			}
			index[item] = append(bucket, pos)
		}
	}

	return &Recommender{rules: sorted, byAntecedent: index, opts: opts}
}

// Recommend returns up to count product identifiers for productID. An unknown
// product or a non-positive count yields an empty, non-nil slice.
func (r *Recommender) Recommend(productID string, count int) []string {
	scored := r.RecommendScored(productID, count)
	ids := make([]string, len(scored))
	for i := range scored {
		ids[i] = scored[i].ProductID
	}
	return ids
}

// RecommendScored is Recommend with the metrics of the rule behind each
// recommendation.
func (r *Recommender) RecommendScored(productID string, count int) []RecommendedItem {
	if count <= 0 {
		return []RecommendedItem{}
	}
	positions := r.byAntecedent[productID]
	out := make([]RecommendedItem, 0, min(count, len(positions)))

	var seen map[string]struct{}
	if r.opts.Deduplicate {
		seen = make(map[string]struct{}, count)
	}

	for _, pos := range positions {
		if len(out) >= count {
			break
		}
		rule := &r.rules[pos]
		if len(rule.Consequent) == 0 {
			continue
		}
		product := rule.Consequent[0]
		if seen != nil {
			if _, dup := seen[product]; dup {
				continue
			}
			seen[product] = struct{}{}
		}
		out = append(out, RecommendedItem{
			ProductID:  product,
			Antecedent: append([]string(nil), rule.Antecedent...),
			Support:    rule.Support,
			Confidence: rule.Confidence,
			Lift:       rule.Lift,
		})
	}
	return out
}

// Rules returns the rules in recommendation order. The slice must not be
// modified.
func (r *Recommender) Rules() []basket.Rule {
	return r.rules
}

// Len returns the number of rules.
func (r *Recommender) Len() int {
	return len(r.rules)
}

// Recommend sorts rules by lift and walks them for productID. Callers that
// query the same rules repeatedly should build a Recommender once instead.
func Recommend(rules []basket.Rule, productID string, count int) []string {
	return NewRecommender(rules, RecommenderOptions{}).Recommend(productID, count)
}
