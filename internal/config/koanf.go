// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/basketrules/config.yaml",
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"mining.countries",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Data source
	"data_kind":                 "data.kind",
	"data_path":                 "data.path",
	"data_sheet":                "data.sheet",
	"data_query":                "data.query",
	"data_table":                "data.table",
	"data_breaker_enabled":      "data.breaker.enabled",
	"data_breaker_max_failures": "data.breaker.max_failures",
	"data_breaker_timeout":      "data.breaker.timeout",

	// Mining
	"mining_countries":     "mining.countries",
	"mining_min_support":   "mining.min_support",
	"mining_metric":        "mining.metric",
	"mining_min_threshold": "mining.min_threshold",
	"mining_key_mode":      "mining.key_mode",
	"mining_max_len":       "mining.max_len",
	"mining_workers":       "mining.workers",

	// Cleaning
	"cleaning_excluded_stock_code":             "cleaning.excluded_stock_code",
	"cleaning_cancellation_marker":             "cleaning.cancellation_marker",
	"cleaning_missing_invoice_is_cancellation": "cleaning.missing_invoice_is_cancellation",
	"cleaning_lower_quantile":                  "cleaning.lower_quantile",
	"cleaning_upper_quantile":                  "cleaning.upper_quantile",
	"cleaning_iqr_multiplier":                  "cleaning.iqr_multiplier",

	// Recommendations
	"recommend_default_count":     "recommend.default_count",
	"recommend_max_count":         "recommend.max_count",
	"recommend_deduplicate":       "recommend.deduplicate",
	"recommend_cache_enabled":     "recommend.cache_enabled",
	"recommend_cache_ttl":         "recommend.cache_ttl",
	"recommend_cache_max_entries": "recommend.cache_max_entries",

	// Training and scheduling
	"training_min_records":      "training.min_records",
	"training_timeout":          "training.timeout",
	"schedule_enabled":          "schedule.enabled",
	"schedule_interval":         "schedule.interval",
	"schedule_train_on_startup": "schedule.train_on_startup",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Tracing
	"tracing_enabled":      "tracing.enabled",
	"tracing_exporter":     "tracing.exporter",
	"tracing_sample_ratio": "tracing.sample_ratio",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
