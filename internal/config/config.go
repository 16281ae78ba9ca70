// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package config loads the application configuration.
//
// Configuration is layered with koanf. Later layers win:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file from CONFIG_PATH or DefaultConfigPaths
//  3. Environment variables listed in envMappings
//
// Example config.yaml:
//
//	data:
//	  kind: excel
//	  path: datasets/online_retail_II.xlsx
//	  sheet: Year 2010-2011
//	mining:
//	  countries: [Germany]
//	  min_support: 0.01
//	recommend:
//	  queries:
//	    - {product_id: "21987", count: 1}
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/recommend"
	"github.com/tomtom215/basketrules/internal/source"
	"github.com/tomtom215/basketrules/internal/tracing"
	"github.com/tomtom215/basketrules/internal/validation"
)

// Config is the complete application configuration.
type Config struct {
	Data      source.Config       `koanf:"data"`
	Mining    MiningConfig        `koanf:"mining"`
	Cleaning  basket.CleanOptions `koanf:"cleaning"`
	Recommend RecommendConfig     `koanf:"recommend"`
	Training  TrainingConfig      `koanf:"training"`
	Schedule  ScheduleConfig      `koanf:"schedule"`
	Logging   LoggingConfig       `koanf:"logging"`
	Tracing   tracing.Config      `koanf:"tracing"`
}

// MiningConfig holds market selection and rule mining thresholds.
type MiningConfig struct {
	Countries    []string `koanf:"countries" validate:"min=1,dive,required"`
	MinSupport   float64  `koanf:"min_support" validate:"gt=0,lte=1"`
	Metric       string   `koanf:"metric" validate:"required,metric"`
	MinThreshold float64  `koanf:"min_threshold"`
	KeyMode      string   `koanf:"key_mode" validate:"keymode"`
	MaxLen       int      `koanf:"max_len" validate:"gte=0"`
	Workers      int      `koanf:"workers" validate:"gte=0"`
}

// Query is one product whose recommendations are reported after training.
type Query struct {
	ProductID string `koanf:"product_id" validate:"required"`

	// Count 0 selects recommend.default_count.
	Count   int    `koanf:"count" validate:"gte=0"`
	Country string `koanf:"country"`
}

// RecommendConfig holds query limits, caching and the report queries.
type RecommendConfig struct {
	DefaultCount    int           `koanf:"default_count" validate:"gte=1"`
	MaxCount        int           `koanf:"max_count" validate:"gtefield=DefaultCount"`
	Deduplicate     bool          `koanf:"deduplicate"`
	CacheEnabled    bool          `koanf:"cache_enabled"`
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	CacheMaxEntries int           `koanf:"cache_max_entries" validate:"gte=0"`
	Queries         []Query       `koanf:"queries" validate:"dive"`
}

// TrainingConfig holds training run limits.
type TrainingConfig struct {
	MinRecords int           `koanf:"min_records" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
}

// ScheduleConfig controls periodic retraining.
type ScheduleConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval" validate:"gt=0"`
	TrainOnStartup bool          `koanf:"train_on_startup"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig reproduces the German market analysis of the Online Retail
// II workbook.
func defaultConfig() *Config {
	return &Config{
		Data: source.Config{
			Kind:    source.KindExcel,
			Path:    "datasets/online_retail_II.xlsx",
			Sheet:   source.DefaultSheet,
			Breaker: source.DefaultBreakerConfig(),
		},
		Mining: MiningConfig{
			Countries:    []string{"Germany"},
			MinSupport:   0.01,
			Metric:       string(basket.MetricSupport),
			MinThreshold: 0.01,
			KeyMode:      string(basket.KeyStockCode),
		},
		Cleaning: basket.DefaultCleanOptions(),
		Recommend: RecommendConfig{
			DefaultCount:    1,
			MaxCount:        100,
			CacheEnabled:    true,
			CacheTTL:        5 * time.Minute,
			CacheMaxEntries: 10000,
			Queries: []Query{
				{ProductID: "21987", Count: 1},
				{ProductID: "23235", Count: 2},
				{ProductID: "22747", Count: 3},
			},
		},
		Training: TrainingConfig{
			MinRecords: 0,
			Timeout:    30 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Interval:       24 * time.Hour,
			TrainOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks the configuration. Struct tags are checked first, then
// the engine's own threshold rules.
func (c *Config) Validate() error {
	c.normalise()
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalise() {
	c.Mining.Metric = strings.ToLower(strings.TrimSpace(c.Mining.Metric))
	c.Mining.KeyMode = strings.ToLower(strings.TrimSpace(c.Mining.KeyMode))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Tracing.Exporter = strings.ToLower(c.Tracing.Exporter)
}

// EngineConfig converts the application configuration into a validated
// recommend.Config.
func (c *Config) EngineConfig() (*recommend.Config, error) {
	metric, err := basket.ParseMetric(c.Mining.Metric)
	if err != nil {
		return nil, err
	}

	cfg := recommend.DefaultConfig()
	cfg.Countries = append([]string(nil), c.Mining.Countries...)
	cfg.KeyMode = basket.KeyMode(c.Mining.KeyMode)
	cfg.Cleaning = c.Cleaning
	cfg.Mining = recommend.MiningConfig{
		MinSupport:   c.Mining.MinSupport,
		Metric:       metric,
		MinThreshold: c.Mining.MinThreshold,
		MaxLen:       c.Mining.MaxLen,
		Workers:      c.Mining.Workers,
	}
	cfg.Recommend.Deduplicate = c.Recommend.Deduplicate
	cfg.Training = recommend.TrainingConfig{
		MinRecords: c.Training.MinRecords,
		Timeout:    c.Training.Timeout,
	}
	cfg.Limits = recommend.LimitsConfig{
		DefaultCount: c.Recommend.DefaultCount,
		MaxCount:     c.Recommend.MaxCount,
	}
	cfg.Cache = recommend.CacheConfig{
		Enabled:    c.Recommend.CacheEnabled,
		TTL:        c.Recommend.CacheTTL,
		MaxEntries: c.Recommend.CacheMaxEntries,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() logging.Config {
	opts := logging.DefaultConfig()
	opts.Level = c.Logging.Level
	opts.Format = c.Logging.Format
	opts.Caller = c.Logging.Caller
	opts.Output = os.Stderr
	return opts
}

// String summarises the configuration for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("data=%s:%s countries=%v min_support=%g metric=%s min_threshold=%g",
		c.Data.Kind, c.Data.Path, c.Mining.Countries, c.Mining.MinSupport, c.Mining.Metric, c.Mining.MinThreshold)
}
