// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package source

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a Source.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxFailures is the number of consecutive failed loads that opens the
	// circuit. Default: 3.
	MaxFailures uint32 `koanf:"max_failures" validate:"gte=0"`

	// Timeout is how long the circuit stays open before a trial load.
	// Default: 5m.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// DefaultBreakerConfig returns a disabled breaker with the default limits.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 3, Timeout: 5 * time.Minute}
}

// BreakerSource stops hammering a failing source. While the circuit is open
// Load fails fast with gobreaker.ErrOpenState and training keeps the models
// it already has.
type BreakerSource struct {
	inner Source
	cb    *gobreaker.CircuitBreaker[[]basket.Transaction]
	name  string
}

// NewBreakerSource wraps inner.
func NewBreakerSource(inner Source, cfg BreakerConfig) *BreakerSource {
	defaults := DefaultBreakerConfig()
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	name := inner.Name() + "-source"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]basket.Transaction](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.MaxFailures
			if trip {
				logging.Warn().
					Str("breaker", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), stateValue(to))
		},
		// Cancellation says nothing about the health of the source.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerSource{inner: inner, cb: cb, name: name}
}

// Name implements Source.
func (b *BreakerSource) Name() string { return b.inner.Name() }

// Load implements Source.
func (b *BreakerSource) Load(ctx context.Context) ([]basket.Transaction, error) {
	records, err := b.cb.Execute(func() ([]basket.Transaction, error) {
		return b.inner.Load(ctx)
	})
	switch {
	case err == nil:
		metrics.RecordCircuitBreakerRequest(b.name, "success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerRequest(b.name, "rejected")
		logging.Ctx(ctx).Warn().Err(err).Str("breaker", b.name).Msg("Load rejected by circuit breaker")
	default:
		metrics.RecordCircuitBreakerRequest(b.name, "failure")
	}
	return records, err
}

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
