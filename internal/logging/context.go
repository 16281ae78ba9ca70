// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// runIDKey identifies one training run (load, clean, mine, publish).
	runIDKey contextKey = "run_id"

	// queryIDKey identifies one recommendation or lookup call.
	queryIDKey contextKey = "query_id"

	loggerKey contextKey = "logger"
)

// GenerateRunID returns the first 8 characters of a UUID.
func GenerateRunID() string {
	return uuid.New().String()[:8]
}

// GenerateQueryID returns a full UUID.
func GenerateQueryID() string {
	return uuid.New().String()
}

// ContextWithRunID returns a copy of ctx carrying the given run ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithNewRunID returns a copy of ctx carrying a freshly generated run ID.
func ContextWithNewRunID(ctx context.Context) context.Context {
	return ContextWithRunID(ctx, GenerateRunID())
}

// RunIDFromContext returns the run ID stored in ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithQueryID returns a copy of ctx carrying the given query ID.
func ContextWithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey, id)
}

// ContextWithNewQueryID returns a copy of ctx carrying a freshly generated query ID.
func ContextWithNewQueryID(ctx context.Context) context.Context {
	return ContextWithQueryID(ctx, GenerateQueryID())
}

// QueryIDFromContext returns the query ID stored in ctx, or "".
func QueryIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(queryIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, falling back to the
// global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with run_id and query_id fields added from ctx.
//
//	logging.Ctx(ctx).Info().Msg("Mining itemsets")
//	// {"level":"info","run_id":"1f0c2a9b","message":"Mining itemsets"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with the ctx fields pre-populated.
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if runID := RunIDFromContext(ctx); runID != "" {
		logCtx = logCtx.Str("run_id", runID)
	}
	if queryID := QueryIDFromContext(ctx); queryID != "" {
		logCtx = logCtx.Str("query_id", queryID)
	}

	return logCtx
}
