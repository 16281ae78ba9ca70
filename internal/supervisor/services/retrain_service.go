// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package services provides suture services for the supervisor tree.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrules/internal/recommend"
)

// DefaultRetrainInterval is used when RetrainServiceConfig.Interval is not
// positive.
const DefaultRetrainInterval = 24 * time.Hour

// Trainer rebuilds the rule models. *recommend.Engine satisfies it.
type Trainer interface {
	Train(ctx context.Context) error
}

// RetrainServiceConfig configures RetrainService.
type RetrainServiceConfig struct {
	// TrainOnStartup trains once as soon as the service starts.
	TrainOnStartup bool

	// Interval between scheduled training runs.
	Interval time.Duration

	// OnTrained, when set, is called after every successful run.
	OnTrained func(ctx context.Context)
}

// RetrainService retrains the rule models on a fixed schedule. Training
// failures are logged and retried at the next tick; they never stop the
// service, so the previous models keep serving.
type RetrainService struct {
	trainer Trainer
	config  RetrainServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewRetrainService creates a retrain service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetrainService(trainer Trainer, cfg RetrainServiceConfig, logger zerolog.Logger) *RetrainService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetrainInterval
	}
	return &RetrainService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "retrain").Logger(),
		name:    "retrain-service",
	}
}

// Serve implements suture.Service.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("interval", s.config.Interval).
		Msg("retrain service starting")

	if s.config.TrainOnStartup {
		s.runOnce(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retrain service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx, "schedule")
		}
	}
}

func (s *RetrainService) runOnce(ctx context.Context, trigger string) {
	start := time.Now()
	err := s.trainer.Train(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Str("trigger", trigger).
			Dur("duration", time.Since(start)).
			Msg("models retrained")
		if s.config.OnTrained != nil {
			s.config.OnTrained(ctx)
		}
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("training already running, skipped")
	case ctx.Err() != nil:
		// Shutdown interrupted the run; Serve returns on the next select.
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("training failed, keeping previous models")
	}
}

// String returns the service name for suture's logs.
func (s *RetrainService) String() string {
	return s.name
}
