// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/cache"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/metrics"
	"github.com/tomtom215/basketrules/internal/tracing"
)

// Engine owns the published models and serves recommendation queries.
type Engine struct {
	cfg      *Config
	logger   zerolog.Logger
	pipeline *Pipeline

	// mu guards the published state below.
	mu      sync.RWMutex
	source  DataSource
	models  map[string]*Model
	catalog *basket.Catalog
	version int
	status  TrainingStatus

	// trainMu serialises training runs.
	trainMu sync.Mutex

	cache *cache.Cache[*Response]

	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	errorCount    atomic.Int64
	trainingCount atomic.Int64
}

// NewEngine validates cfg and returns an untrained engine.
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pipeline, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg.Clone(),
		logger:   logger.With().Str("component", "recommend_engine").Logger(),
		pipeline: pipeline,
		models:   make(map[string]*Model),
		status:   TrainingStatus{Countries: make(map[string]ModelStats)},
	}
	if cfg.Cache.Enabled {
		e.cache = cache.New[*Response](cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	return e, nil
}

// SetDataSource sets the source Train loads records from.
func (e *Engine) SetDataSource(src DataSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = src
}

// Train loads, cleans and mines every configured market, then publishes the
// new models together. On failure the previous models stay in place.
func (e *Engine) Train(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	e.mu.Lock()
	e.status.IsTraining = true
	src := e.source
	e.mu.Unlock()

	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewRunID(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Training.Timeout)
	defer cancel()

	runID := logging.RunIDFromContext(ctx)
	logger := e.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	ctx, span := tracing.Start(ctx, "train",
		attribute.String("run_id", runID),
		attribute.StringSlice("countries", e.cfg.Countries),
	)
	models, catalog, loaded, cleaned, err := e.train(ctx, src)
	span.SetAttributes(attribute.Int("records.loaded", loaded), attribute.Int("records.cleaned", cleaned))
	tracing.End(span, err)
	duration := time.Since(start)

	e.mu.Lock()
	e.status.IsTraining = false
	e.status.LastTrainingDurationMS = duration.Milliseconds()
	if err != nil {
		e.status.LastError = err.Error()
		e.mu.Unlock()

		e.trainingCount.Add(1)
		metrics.RecordTraining(duration, 0, err)
		logger.Error().Err(err).Dur("duration", duration).Msg("Training failed")
		return err
	}

	e.models = models
	e.catalog = catalog
	e.version++
	version := e.version
	e.status.ModelVersion = version
	e.status.LastTrainedAt = time.Now()
	e.status.LastError = ""
	e.status.RecordsLoaded = loaded
	e.status.RecordsCleaned = cleaned
	e.status.Countries = make(map[string]ModelStats, len(models))
	for country, model := range models {
		e.status.Countries[country] = model.Stats()
	}
	e.mu.Unlock()

	if e.cache != nil {
		e.cache.Clear()
	}

	e.trainingCount.Add(1)
	metrics.RecordTraining(duration, version, nil)
	logger.Info().
		Int("version", version).
		Int("records_loaded", loaded).
		Int("records_cleaned", cleaned).
		Int("markets", len(models)).
		Dur("duration", duration).
		Msg("Training completed")

	return nil
}

func (e *Engine) train(ctx context.Context, src DataSource) (map[string]*Model, *basket.Catalog, int, int, error) {
	if src == nil {
		return nil, nil, 0, 0, ErrNoDataSource
	}

	loadStart := time.Now()
	loadCtx, span := tracing.Start(ctx, "load", attribute.String("source", src.Name()))
	records, err := src.Load(loadCtx)
	span.SetAttributes(attribute.Int("records", len(records)))
	tracing.End(span, err)
	metrics.RecordSourceLoad(src.Name(), time.Since(loadStart), len(records), err)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("load records from %s: %w", src.Name(), err)
	}

	cleaned, report := e.pipeline.Clean(ctx, records)
	if report.Output < e.cfg.Training.MinRecords {
		return nil, nil, len(records), report.Output, fmt.Errorf("%w: got %d, need %d",
			ErrInsufficientData, report.Output, e.cfg.Training.MinRecords)
	}

	models := make(map[string]*Model, len(e.cfg.Countries))
	for _, country := range e.cfg.Countries {
		if err := ctx.Err(); err != nil {
			return nil, nil, len(records), report.Output, err
		}
		model, err := e.pipeline.Build(ctx, cleaned, country)
		if err != nil {
			return nil, nil, len(records), report.Output, err
		}
		models[country] = model
	}

	return models, basket.NewCatalog(cleaned), len(records), report.Output, nil
}

// cacheParams is hashed into the response cache key.
type cacheParams struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
	Country   string `json:"country"`
	Version   int    `json:"version"`
}

// Recommend returns up to req.Count products bought together with
// req.ProductID in req.Country.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if req.QueryID == "" {
		req.QueryID = logging.QueryIDFromContext(ctx)
		if req.QueryID == "" {
			req.QueryID = logging.GenerateQueryID()
		}
	}
	e.prepareRequest(&req)
	logger := e.logger.With().Str("query_id", req.QueryID).Str("country", req.Country).Logger()

	e.mu.RLock()
	model, ok := e.models[req.Country]
	trained := e.version > 0
	version := e.version
	trainedAt := e.status.LastTrainedAt
	catalog := e.catalog
	e.mu.RUnlock()

	if !trained {
		e.recordError(req.Country)
		return nil, ErrNotTrained
	}
	if !ok {
		e.recordError(req.Country)
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarket, req.Country)
	}

	var key string
	if e.cache != nil && req.Count > 0 {
		key = cache.GenerateKey("recommend", cacheParams{
			ProductID: req.ProductID,
			Count:     req.Count,
			Country:   req.Country,
			Version:   version,
		})
		if cached, hit := e.cache.Get(key); hit {
			e.cacheHits.Add(1)
			metrics.RecordRecommendation(req.Country, resultLabel(cached), true)

			resp := *cached
			resp.Items = append([]RecommendedItem(nil), cached.Items...)
			resp.Metadata.QueryID = req.QueryID
			resp.Metadata.CacheHit = true
			resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
			resp.Metadata.Timestamp = time.Now()
			return &resp, nil
		}
		e.cacheMisses.Add(1)
	}

	items := model.Recommender.RecommendScored(req.ProductID, req.Count)
	for i := range items {
		if name, err := catalog.Describe(items[i].ProductID); err == nil {
			items[i].Description = name
		}
	}

	resp := &Response{
		Items: items,
		Metadata: ResponseMetadata{
			QueryID:      req.QueryID,
			ProductID:    req.ProductID,
			Country:      req.Country,
			Count:        req.Count,
			ModelVersion: version,
			TrainedAt:    trainedAt,
			LatencyMS:    time.Since(start).Milliseconds(),
			Timestamp:    time.Now(),
		},
	}

	if key != "" {
		stored := *resp
		stored.Items = append([]RecommendedItem(nil), items...)
		e.cache.Set(key, &stored)
	}
	metrics.RecordRecommendation(req.Country, resultLabel(resp), false)

	logger.Debug().
		Str("product_id", req.ProductID).
		Int("count", req.Count).
		Int("returned", len(items)).
		Msg("Served recommendations")

	return resp, nil
}

// prepareRequest fills defaults and clips the count.
func (e *Engine) prepareRequest(req *Request) {
	if req.Country == "" {
		req.Country = e.cfg.DefaultCountry()
	}
	switch {
	case req.Count == 0:
		req.Count = e.cfg.Limits.DefaultCount
	case req.Count < 0:
		req.Count = 0
	case req.Count > e.cfg.Limits.MaxCount:
		req.Count = e.cfg.Limits.MaxCount
	}
}

func (e *Engine) recordError(country string) {
	e.errorCount.Add(1)
	metrics.RecordRecommendation(country, "error", false)
}

func resultLabel(resp *Response) string {
	if len(resp.Items) == 0 {
		return "empty"
	}
	return "hit"
}

// Describe returns the description of productID from the cleaned dataset of
// the last training run.
func (e *Engine) Describe(ctx context.Context, productID string) (string, error) {
	e.mu.RLock()
	catalog := e.catalog
	e.mu.RUnlock()

	if catalog == nil {
		return "", ErrNotTrained
	}
	name, err := catalog.Describe(productID)
	if errors.Is(err, basket.ErrNotFound) {
		logging.Ctx(ctx).Debug().Str("product_id", productID).Msg("Product not in catalog")
	}
	return name, err
}

// Rules returns the rules of country in recommendation order.
func (e *Engine) Rules(country string) ([]basket.Rule, error) {
	if country == "" {
		country = e.cfg.DefaultCountry()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.version == 0 {
		return nil, ErrNotTrained
	}
	model, ok := e.models[country]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarket, country)
	}
	return append([]basket.Rule(nil), model.Recommender.Rules()...), nil
}

// Model returns the published model of country, or nil.
func (e *Engine) Model(country string) *Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.models[country]
}

// Countries returns the configured markets in configuration order.
func (e *Engine) Countries() []string {
	return append([]string(nil), e.cfg.Countries...)
}

// Status returns a snapshot of the training state.
func (e *Engine) Status() TrainingStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := e.status
	status.Countries = make(map[string]ModelStats, len(e.status.Countries))
	for country, stats := range e.status.Countries {
		status.Countries[country] = stats
	}
	return status
}

// GetMetrics returns the engine counters.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		RequestCount:  e.requestCount.Load(),
		CacheHits:     e.cacheHits.Load(),
		CacheMisses:   e.cacheMisses.Load(),
		ErrorCount:    e.errorCount.Load(),
		TrainingCount: e.trainingCount.Load(),
	}
}

// Close releases the response cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
