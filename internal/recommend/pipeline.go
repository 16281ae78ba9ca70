// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/basket/mining"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/metrics"
	"github.com/tomtom215/basketrules/internal/tracing"
)

// Model is everything mined for one market.
type Model struct {
	Country     string
	Invoices    int
	Products    int
	Itemsets    []basket.Itemset
	Rules       []basket.Rule
	Recommender *Recommender
	BuiltAt     time.Time
}

// Stats summarises the model.
func (m *Model) Stats() ModelStats {
	return ModelStats{
		Invoices: m.Invoices,
		Products: m.Products,
		Itemsets: len(m.Itemsets),
		Rules:    len(m.Rules),
		BuiltAt:  m.BuiltAt,
	}
}

// Pipeline runs clean, matrix, itemset and rule stages with one Config.
// A Pipeline holds no mutable state and may be shared between goroutines.
type Pipeline struct {
	cfg    *Config
	logger zerolog.Logger
}

// NewPipeline validates cfg and returns a pipeline bound to a copy of it.
func NewPipeline(cfg *Config, logger zerolog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		cfg:    cfg.Clone(),
		logger: logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() *Config {
	return p.cfg.Clone()
}

// Clean applies the cleaning rules and records drop and cap counts.
func (p *Pipeline) Clean(ctx context.Context, records []basket.Transaction) ([]basket.Transaction, basket.CleanReport) {
	start := time.Now()
	_, span := tracing.Start(ctx, "clean", attribute.Int("records.input", len(records)))
	cleaned, report := basket.Clean(records, p.cfg.Cleaning)
	span.SetAttributes(
		attribute.Int("records.output", report.Output),
		attribute.Int("records.dropped", report.TotalDropped()),
	)
	tracing.End(span, nil)
	metrics.RecordStage("clean", time.Since(start))

	dropped := make(map[string]int, len(report.Dropped))
	for reason, n := range report.Dropped {
		dropped[string(reason)] = n
	}
	capped := make(map[string]int, len(report.Capped))
	for field, n := range report.Capped {
		capped[field.String()] = n
	}
	metrics.RecordCleaning(dropped, capped)

	p.log(ctx).Info().
		Int("input", report.Input).
		Int("output", report.Output).
		Int("dropped", report.TotalDropped()).
		Interface("dropped_by_reason", dropped).
		Float64("quantity_low", report.QuantityBounds.Low).
		Float64("quantity_high", report.QuantityBounds.High).
		Float64("price_low", report.PriceBounds.Low).
		Float64("price_high", report.PriceBounds.High).
		Dur("duration", time.Since(start)).
		Msg("Cleaned transaction records")

	return cleaned, report
}

// Build mines a model for one market from already cleaned records.
func (p *Pipeline) Build(ctx context.Context, cleaned []basket.Transaction, country string) (model *Model, err error) {
	ctx, span := tracing.Start(ctx, "build", attribute.String("country", country))
	defer func() { tracing.End(span, err) }()

	logger := p.log(ctx).With().Str("country", country).Logger()

	start := time.Now()
	matrix := basket.BuildMatrix(cleaned, country, p.cfg.KeyMode)
	metrics.RecordStage("matrix", time.Since(start))
	logger.Debug().
		Int("invoices", matrix.Rows()).
		Int("products", matrix.Cols()).
		Float64("density", matrix.Density()).
		Msg("Built basket matrix")

	start = time.Now()
	itemsets, err := mining.Apriori(ctx, matrix, p.cfg.MiningOptions())
	if err != nil {
		return nil, fmt.Errorf("mine itemsets for %s: %w", country, err)
	}
	metrics.RecordStage("itemsets", time.Since(start))

	start = time.Now()
	rules, err := mining.GenerateRules(itemsets, p.cfg.Mining.Metric, p.cfg.Mining.MinThreshold)
	if err != nil {
		return nil, fmt.Errorf("generate rules for %s: %w", country, err)
	}
	metrics.RecordStage("rules", time.Since(start))

	start = time.Now()
	rec := NewRecommender(rules, RecommenderOptions{Deduplicate: p.cfg.Recommend.Deduplicate})
	metrics.RecordStage("index", time.Since(start))

	model = &Model{
		Country:     country,
		Invoices:    matrix.Rows(),
		Products:    matrix.Cols(),
		Itemsets:    itemsets,
		Rules:       rules,
		Recommender: rec,
		BuiltAt:     time.Now(),
	}
	metrics.RecordModel(country, model.Invoices, model.Products, len(itemsets), len(rules))
	span.SetAttributes(
		attribute.Int("invoices", model.Invoices),
		attribute.Int("products", model.Products),
		attribute.Int("itemsets", len(itemsets)),
		attribute.Int("rules", len(rules)),
	)

	logger.Info().
		Int("invoices", model.Invoices).
		Int("products", model.Products).
		Int("itemsets", len(itemsets)).
		Int("rules", len(rules)).
		Msg("Built association rule model")

	return model, nil
}

// Run cleans records and builds a model for every configured market.
func (p *Pipeline) Run(ctx context.Context, records []basket.Transaction) (map[string]*Model, basket.CleanReport, error) {
	cleaned, report := p.Clean(ctx, records)
	models := make(map[string]*Model, len(p.cfg.Countries))
	for _, country := range p.cfg.Countries {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		model, err := p.Build(ctx, cleaned, country)
		if err != nil {
			return nil, report, err
		}
		models[country] = model
	}
	return models, report, nil
}

func (p *Pipeline) log(ctx context.Context) *zerolog.Logger {
	logger := p.logger
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	return &logger
}
