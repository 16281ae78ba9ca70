// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
)

var testDate = time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)

func txn(invoice, code, country string) basket.Transaction {
	return basket.Transaction{
		Invoice:     invoice,
		StockCode:   code,
		Description: "ITEM " + code,
		Quantity:    1,
		InvoiceDate: testDate,
		Price:       1,
		CustomerID:  "12662",
		Country:     country,
	}
}

// scenarioRecords yields the baskets I1:{A,B} I2:{A,B} I3:{A,C} for Germany
// once cleaned, plus rows the cleaner must drop and a French invoice.
func scenarioRecords() []basket.Transaction {
	records := []basket.Transaction{
		txn("I1", "A", "Germany"),
		txn("I1", "B", "Germany"),
		txn("I2", "A", "Germany"),
		txn("I2", "B", "Germany"),
		txn("I3", "A", "Germany"),
		txn("I3", "C", "Germany"),
		txn("I1", "POST", "Germany"),
		txn("CI4", "C", "Germany"),
		txn("F1", "A", "France"),
		txn("F1", "D", "France"),
	}
	noCustomer := txn("I5", "D", "Germany")
	noCustomer.CustomerID = ""
	return append(records, noCustomer)
}

func scenarioConfig() *Config {
	cfg := DefaultConfig()
	cfg.Mining.MinSupport = 0.5
	return cfg
}

func newTestPipeline(t *testing.T, cfg *Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, logging.NewTestLogger(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return p
}

func TestPipeline_Scenario(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, scenarioConfig())
	models, report, err := p.Run(context.Background(), scenarioRecords())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Input != 11 || report.Output != 8 {
		t.Errorf("report = %d in / %d out, want 11 / 8", report.Input, report.Output)
	}
	if report.Dropped[basket.DropNonProduct] != 1 || report.Dropped[basket.DropCancelled] != 1 || report.Dropped[basket.DropMissingField] != 1 {
		t.Errorf("Dropped = %v", report.Dropped)
	}

	model := models["Germany"]
	if model == nil {
		t.Fatal("no Germany model")
	}
	if model.Invoices != 3 || model.Products != 3 {
		t.Errorf("matrix = %d x %d, want 3 x 3", model.Invoices, model.Products)
	}

	wantItemsets := [][]string{{"A"}, {"B"}, {"A", "B"}}
	if len(model.Itemsets) != len(wantItemsets) {
		t.Fatalf("itemsets = %v, want %v", model.Itemsets, wantItemsets)
	}
	for i, want := range wantItemsets {
		if !reflect.DeepEqual(model.Itemsets[i].Items, want) {
			t.Errorf("itemsets[%d] = %v, want %v", i, model.Itemsets[i].Items, want)
		}
	}

	if got := model.Recommender.Recommend("A", 1); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Recommend(A, 1) = %v, want [B]", got)
	}
	if got := model.Recommender.Recommend("D", 1); len(got) != 0 {
		t.Errorf("Recommend(D, 1) = %v, French basket leaked into Germany", got)
	}

	stats := model.Stats()
	if stats.Itemsets != 3 || stats.Rules != 2 {
		t.Errorf("Stats() = %+v, want 3 itemsets and 2 rules", stats)
	}
}

func TestPipeline_EmptyDataset(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, DefaultConfig())

	// Only rows that cleaning removes.
	records := []basket.Transaction{txn("C1", "A", "Germany"), txn("I1", "POST", "Germany")}

	models, report, err := p.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Output != 0 {
		t.Fatalf("Output = %d, want 0", report.Output)
	}

	model := models["Germany"]
	if len(model.Itemsets) != 0 || len(model.Rules) != 0 {
		t.Errorf("got %d itemsets and %d rules, want none", len(model.Itemsets), len(model.Rules))
	}
	for _, id := range []string{"A", "POST", ""} {
		if got := model.Recommender.Recommend(id, 5); len(got) != 0 {
			t.Errorf("Recommend(%q) = %v, want empty", id, got)
		}
	}
}

func TestPipeline_IndependentConfigs(t *testing.T) {
	t.Parallel()

	records := scenarioRecords()

	germany := newTestPipeline(t, scenarioConfig())
	franceCfg := scenarioConfig()
	franceCfg.Countries = []string{"France"}
	france := newTestPipeline(t, franceCfg)

	gModels, _, err := germany.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Germany Run() error = %v", err)
	}
	fModels, _, err := france.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("France Run() error = %v", err)
	}

	if _, ok := gModels["France"]; ok {
		t.Error("Germany pipeline built a France model")
	}
	if got := fModels["France"].Recommender.Recommend("A", 1); !reflect.DeepEqual(got, []string{"D"}) {
		t.Errorf("France Recommend(A, 1) = %v, want [D]", got)
	}
	if got := gModels["Germany"].Recommender.Recommend("A", 1); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Germany Recommend(A, 1) = %v, want [B]", got)
	}
}

func TestPipeline_DescriptionKeys(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.KeyMode = basket.KeyDescription
	p := newTestPipeline(t, cfg)

	models, _, err := p.Run(context.Background(), scenarioRecords())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := models["Germany"].Recommender.Recommend("ITEM A", 1)
	if !reflect.DeepEqual(got, []string{"ITEM B"}) {
		t.Errorf("Recommend(ITEM A, 1) = %v, want [ITEM B]", got)
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, scenarioConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := p.Run(ctx, scenarioRecords()); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestNewPipeline_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mining.MinSupport = -0.1

	_, err := NewPipeline(cfg, logging.NewTestLogger(&bytes.Buffer{}))
	if !errors.Is(err, basket.ErrInvalidConfig) {
		t.Fatalf("NewPipeline() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "min_support") {
		t.Errorf("error %q does not name the field", err)
	}
}

func TestPipeline_LogsRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := NewPipeline(scenarioConfig(), logging.NewTestLogger(&buf))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	ctx := logging.ContextWithRunID(context.Background(), "run12345")
	if _, _, err := p.Run(ctx, scenarioRecords()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"run_id":"run12345"`) {
		t.Errorf("log output missing run_id: %s", buf.String())
	}
}
