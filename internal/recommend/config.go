// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/basket/mining"
)

// Config is the explicit configuration passed through every pipeline stage.
// Two pipelines with different Configs never share state.
type Config struct {
	// Countries lists the markets to build models for. The first entry is
	// the default market for requests that do not name one.
	Countries []string `json:"countries"`

	// KeyMode selects stock codes or descriptions as basket matrix columns.
	KeyMode basket.KeyMode `json:"key_mode"`

	// Cleaning configures the data cleaning rules.
	Cleaning basket.CleanOptions `json:"cleaning"`

	// Mining configures itemset mining and rule filtering.
	Mining MiningConfig `json:"mining"`

	// Recommend configures the recommendation walk.
	Recommend RecommendConfig `json:"recommend"`

	// Training contains training run parameters.
	Training TrainingConfig `json:"training"`

	// Limits contains request limits.
	Limits LimitsConfig `json:"limits"`

	// Cache contains response caching parameters.
	Cache CacheConfig `json:"cache"`
}

// MiningConfig contains itemset and rule thresholds.
type MiningConfig struct {
	// MinSupport is the minimum itemset support, in (0, 1].
	// Default: 0.01.
	MinSupport float64 `json:"min_support"`

	// Metric is the rule measure compared against MinThreshold.
	// Default: support.
	Metric basket.Metric `json:"metric"`

	// MinThreshold is the minimum value of Metric for a rule to be kept.
	// Default: 0.01.
	MinThreshold float64 `json:"min_threshold"`

	// MaxLen bounds itemset size; 0 is unbounded.
	MaxLen int `json:"max_len"`

	// Workers is the support counting parallelism; 0 uses every CPU.
	Workers int `json:"workers"`
}

// RecommendConfig contains recommendation walk options.
type RecommendConfig struct {
	// Deduplicate drops products already recommended earlier in the same
	// result. Default: false, repeated products are returned as found.
	Deduplicate bool `json:"deduplicate"`
}

// TrainingConfig contains training run parameters.
type TrainingConfig struct {
	// MinRecords is the minimum number of cleaned records required to
	// publish new models. 0 disables the check, so an empty dataset
	// publishes empty models. Default: 0.
	MinRecords int `json:"min_records"`

	// Timeout bounds one training run. Default: 30m.
	Timeout time.Duration `json:"timeout"`
}

// LimitsConfig contains request limits.
type LimitsConfig struct {
	// DefaultCount is used when a request asks for 0 recommendations.
	// Default: 1.
	DefaultCount int `json:"default_count"`

	// MaxCount caps the count of a single request. Default: 100.
	MaxCount int `json:"max_count"`
}

// CacheConfig contains response caching parameters.
type CacheConfig struct {
	// Enabled controls whether responses are cached. Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the response time-to-live. Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries bounds the cache size. Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns the configuration of the German market analysis of
// the Online Retail II dataset.
func DefaultConfig() *Config {
	return &Config{
		Countries: []string{"Germany"},
		KeyMode:   basket.KeyStockCode,
		Cleaning:  basket.DefaultCleanOptions(),
		Mining: MiningConfig{
			MinSupport:   0.01,
			Metric:       basket.MetricSupport,
			MinThreshold: 0.01,
		},
		Training: TrainingConfig{
			MinRecords: 0,
			Timeout:    30 * time.Minute,
		},
		Limits: LimitsConfig{
			DefaultCount: 1,
			MaxCount:     100,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks every threshold and returns a *basket.ConfigurationError
// for the first invalid one.
func (c *Config) Validate() error {
	if len(c.Countries) == 0 {
		return &basket.ConfigurationError{Field: "countries", Reason: "at least one country is required"}
	}
	seen := make(map[string]struct{}, len(c.Countries))
	for _, country := range c.Countries {
		if strings.TrimSpace(country) == "" {
			return &basket.ConfigurationError{Field: "countries", Reason: "country names must not be empty"}
		}
		if _, dup := seen[country]; dup {
			return &basket.ConfigurationError{Field: "countries", Reason: fmt.Sprintf("duplicate country %q", country)}
		}
		seen[country] = struct{}{}
	}

	if !c.KeyMode.Valid() {
		return &basket.ConfigurationError{Field: "key_mode", Reason: fmt.Sprintf("unknown key mode %q", c.KeyMode)}
	}
	if err := c.Cleaning.Validate(); err != nil {
		return err
	}
	opts := c.MiningOptions()
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := basket.ParseMetric(string(c.Mining.Metric)); err != nil {
		return err
	}
	if math.IsNaN(c.Mining.MinThreshold) {
		return &basket.ConfigurationError{Field: "min_threshold", Reason: "must be a number"}
	}
	if c.Mining.Metric != basket.MetricLeverage && c.Mining.MinThreshold < 0 {
		return &basket.ConfigurationError{
			Field:  "min_threshold",
			Reason: fmt.Sprintf("must be non-negative for %s, got %f", c.Mining.Metric, c.Mining.MinThreshold),
		}
	}

	if c.Training.MinRecords < 0 {
		return &basket.ConfigurationError{Field: "training.min_records", Reason: fmt.Sprintf("must be non-negative, got %d", c.Training.MinRecords)}
	}
	if c.Training.Timeout <= 0 {
		return &basket.ConfigurationError{Field: "training.timeout", Reason: fmt.Sprintf("must be positive, got %s", c.Training.Timeout)}
	}
	if c.Limits.DefaultCount < 1 {
		return &basket.ConfigurationError{Field: "limits.default_count", Reason: fmt.Sprintf("must be positive, got %d", c.Limits.DefaultCount)}
	}
	if c.Limits.MaxCount < c.Limits.DefaultCount {
		return &basket.ConfigurationError{
			Field:  "limits.max_count",
			Reason: fmt.Sprintf("must be at least default_count (%d), got %d", c.Limits.DefaultCount, c.Limits.MaxCount),
		}
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return &basket.ConfigurationError{Field: "cache.ttl", Reason: fmt.Sprintf("must be positive when caching is enabled, got %s", c.Cache.TTL)}
	}
	if c.Cache.MaxEntries < 0 {
		return &basket.ConfigurationError{Field: "cache.max_entries", Reason: fmt.Sprintf("must be non-negative, got %d", c.Cache.MaxEntries)}
	}

	return nil
}

// MiningOptions returns the itemset mining options.
func (c *Config) MiningOptions() mining.Options {
	return mining.Options{
		MinSupport: c.Mining.MinSupport,
		MaxLen:     c.Mining.MaxLen,
		Workers:    c.Mining.Workers,
	}
}

// DefaultCountry returns the market used when a request names none.
func (c *Config) DefaultCountry() string {
	if len(c.Countries) == 0 {
		return ""
	}
	return c.Countries[0]
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Countries = append([]string(nil), c.Countries...)
	return &clone
}
