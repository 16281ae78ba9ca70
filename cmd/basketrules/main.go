// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package main is the basketrules command.
//
// basketrules loads the Online Retail II transactions, cleans them, mines
// association rules per market and logs product recommendations for the
// configured basket products:
//
//  1. Configuration: defaults, config.yaml, environment (koanf)
//  2. Source: Excel workbook, CSV file or DuckDB query
//  3. Engine: clean, pivot, Apriori, rules, lift-ordered recommender
//  4. Report: one log line per recommend.queries entry
//
// Training runs and pipeline stages emit OpenTelemetry spans when
// tracing.enabled is set.
//
// With schedule.enabled the process stays up and retrains every
// schedule.interval under a suture supervisor until SIGINT or SIGTERM.
//
// # Example Usage
//
//	export DATA_PATH=datasets/online_retail_II.xlsx
//	export MINING_COUNTRIES="Germany,France"
//	./basketrules
//
//	export DATA_KIND=duckdb
//	export DATA_PATH=retail.parquet
//	export SCHEDULE_ENABLED=true
//	./basketrules
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/basketrules/internal/config"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/recommend"
	"github.com/tomtom215/basketrules/internal/source"
	"github.com/tomtom215/basketrules/internal/supervisor"
	"github.com/tomtom215/basketrules/internal/supervisor/services"
	"github.com/tomtom215/basketrules/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LoggingOptions())
	logging.Info().Str("config", cfg.String()).Msg("Starting basketrules")

	shutdownTracing, err := tracing.Init(cfg.Tracing, os.Stderr)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := run(ctx, cfg)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownTracing(flushCtx); err != nil {
		logging.Warn().Err(err).Msg("Failed to flush traces")
	}
	cancel()

	if runErr != nil {
		logging.Fatal().Err(runErr).Msg("basketrules failed")
	}
	logging.Info().Msg("basketrules stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.WithComponent("basketrules")

	src, err := source.New(cfg.Data)
	if err != nil {
		return err
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := recommend.NewEngine(engineCfg, logging.WithComponent("recommend"))
	if err != nil {
		return err
	}
	defer engine.Close()
	engine.SetDataSource(src)

	report := func(ctx context.Context) {
		_, _ = runQueries(ctx, engine, cfg.Recommend.Queries, logger)
	}

	if !cfg.Schedule.Enabled {
		if err := engine.Train(ctx); err != nil {
			return err
		}
		_, err := runQueries(ctx, engine, cfg.Recommend.Queries, logger)
		return err
	}

	// Scheduled mode: the first training happens inside the retrain service
	// when train_on_startup is set, otherwise here.
	if !cfg.Schedule.TrainOnStartup {
		if err := engine.Train(ctx); err != nil {
			return err
		}
		report(ctx)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddTrainingService(services.NewRetrainService(engine, services.RetrainServiceConfig{
		TrainOnStartup: cfg.Schedule.TrainOnStartup,
		Interval:       cfg.Schedule.Interval,
		OnTrained:      report,
	}, logging.WithComponent("supervisor")))

	logger.Info().Dur("interval", cfg.Schedule.Interval).Msg("Scheduled retraining enabled")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logger.Warn().Int("unstopped", len(unstopped)).Msg("Services did not stop within the shutdown timeout")
	}
	return nil
}
