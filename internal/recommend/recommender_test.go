// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"reflect"
	"testing"

	"github.com/tomtom215/basketrules/internal/basket"
)

func rule(antecedent, consequent []string, lift float64) basket.Rule {
	return basket.Rule{
		Antecedent: antecedent,
		Consequent: consequent,
		Support:    0.1,
		Confidence: 0.5,
		Lift:       lift,
	}
}

func TestRecommender_TopLiftConsequent(t *testing.T) {
	t.Parallel()

	rules := []basket.Rule{
		rule([]string{"A"}, []string{"C"}, 1.2),
		rule([]string{"A"}, []string{"B"}, 3.5),
		rule([]string{"D"}, []string{"A"}, 9.0),
	}

	if got := Recommend(rules, "A", 1); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Recommend(A, 1) = %v, want [B]", got)
	}
	if got := Recommend(rules, "A", 5); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("Recommend(A, 5) = %v, want [B C]", got)
	}
}

func TestRecommender_Ordering(t *testing.T) {
	t.Parallel()

	rules := []basket.Rule{
		rule([]string{"A"}, []string{"X"}, 2.0),
		rule([]string{"A", "B"}, []string{"Y", "Z"}, 4.0),
		rule([]string{"B"}, []string{"W"}, 4.0),
		rule([]string{"A"}, []string{"V"}, 2.0),
	}
	r := NewRecommender(rules, RecommenderOptions{})

	tests := []struct {
		name    string
		product string
		count   int
		want    []string
	}{
		{"multi-item antecedent matches", "A", 10, []string{"Y", "X", "V"}},
		{"equal lift keeps input order", "B", 10, []string{"Y", "W"}},
		{"count truncates", "A", 2, []string{"Y", "X"}},
		{"consequent item is not an antecedent", "Y", 3, []string{}},
		{"unknown product", "nope", 3, []string{}},
		{"zero count", "A", 0, []string{}},
		{"negative count", "A", -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Recommend(tt.product, tt.count)
			if got == nil {
				t.Fatal("Recommend() returned nil, want empty slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Recommend(%q, %d) = %v, want %v", tt.product, tt.count, got, tt.want)
			}
			if tt.count >= 0 && len(got) > tt.count {
				t.Errorf("returned %d items for count %d", len(got), tt.count)
			}
		})
	}
}

func TestRecommender_Deduplicate(t *testing.T) {
	t.Parallel()

	rules := []basket.Rule{
		rule([]string{"A"}, []string{"B"}, 5),
		rule([]string{"A", "C"}, []string{"B"}, 4),
		rule([]string{"A"}, []string{"C"}, 3),
	}

	plain := NewRecommender(rules, RecommenderOptions{}).Recommend("A", 3)
	if !reflect.DeepEqual(plain, []string{"B", "B", "C"}) {
		t.Errorf("without dedupe = %v, want [B B C]", plain)
	}

	dedup := NewRecommender(rules, RecommenderOptions{Deduplicate: true}).Recommend("A", 3)
	if !reflect.DeepEqual(dedup, []string{"B", "C"}) {
		t.Errorf("with dedupe = %v, want [B C]", dedup)
	}
}

func TestRecommender_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rules := []basket.Rule{
		rule([]string{"A"}, []string{"B"}, 1),
		rule([]string{"A"}, []string{"C"}, 2),
	}
	r := NewRecommender(rules, RecommenderOptions{})

	if rules[0].Consequent[0] != "B" {
		t.Error("input rules were reordered")
	}
	if r.Len() != 2 || r.Rules()[0].Consequent[0] != "C" {
		t.Errorf("Rules()[0] = %s, want highest lift first", r.Rules()[0].String())
	}
}

func TestRecommender_Scored(t *testing.T) {
	t.Parallel()

	r := NewRecommender([]basket.Rule{
		{Antecedent: []string{"21987"}, Consequent: []string{"21989"}, Support: 0.2, Confidence: 0.8, Lift: 3.1},
	}, RecommenderOptions{})

	items := r.RecommendScored("21987", 1)
	if len(items) != 1 {
		t.Fatalf("RecommendScored() = %d items, want 1", len(items))
	}
	item := items[0]
	if item.ProductID != "21989" || item.Lift != 3.1 || item.Confidence != 0.8 || item.Support != 0.2 {
		t.Errorf("RecommendScored() = %+v", item)
	}
	if !reflect.DeepEqual(item.Antecedent, []string{"21987"}) {
		t.Errorf("Antecedent = %v, want [21987]", item.Antecedent)
	}
}

func TestRecommender_Empty(t *testing.T) {
	t.Parallel()

	r := NewRecommender(nil, RecommenderOptions{})
	if got := r.Recommend("A", 3); len(got) != 0 {
		t.Errorf("Recommend() on empty rules = %v, want empty", got)
	}
}
