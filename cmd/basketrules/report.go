// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/config"
	"github.com/tomtom215/basketrules/internal/logging"
	"github.com/tomtom215/basketrules/internal/recommend"
)

// recommender is the part of *recommend.Engine the report needs.
type recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Describe(ctx context.Context, productID string) (string, error)
}

// queryResult is one reported basket product.
type queryResult struct {
	Query       config.Query
	Description string
	Response    *recommend.Response
}

// runQueries answers every configured query. A query that fails is logged
// and skipped; the error for the first failure is returned after all
// queries have run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func runQueries(ctx context.Context, engine recommender, queries []config.Query, logger zerolog.Logger) ([]queryResult, error) {
	results := make([]queryResult, 0, len(queries))
	var firstErr error

	for _, q := range queries {
		qctx := logging.ContextWithNewQueryID(ctx)

		resp, err := engine.Recommend(qctx, recommend.Request{
			ProductID: q.ProductID,
			Count:     q.Count,
			Country:   q.Country,
		})
		if err != nil {
			logger.Error().Err(err).Str("product_id", q.ProductID).Msg("recommendation failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		desc, err := engine.Describe(qctx, q.ProductID)
		switch {
		case errors.Is(err, basket.ErrNotFound):
			logger.Warn().Err(err).Str("product_id", q.ProductID).Msg("product not in catalog")
		case err != nil:
			logger.Warn().Err(err).Str("product_id", q.ProductID).Msg("product lookup failed")
		}

		results = append(results, queryResult{Query: q, Description: desc, Response: resp})
		logResult(logger, results[len(results)-1])
	}
	return results, firstErr
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func logResult(logger zerolog.Logger, r queryResult) {
	items := zerolog.Arr()
	for _, it := range r.Response.Items {
		items.Dict(zerolog.Dict().
			Str("product_id", it.ProductID).
			Str("description", it.Description).
			Strs("antecedent", it.Antecedent).
			Float64("lift", it.Lift).
			Float64("confidence", it.Confidence))
	}

	logger.Info().
		Str("query_id", r.Response.Metadata.QueryID).
		Str("country", r.Response.Metadata.Country).
		Str("product_id", r.Query.ProductID).
		Str("description", r.Description).
		Int("count", r.Response.Metadata.Count).
		Strs("recommended", r.Response.ProductIDs()).
		Array("items", items).
		Msg("Basket recommendations")
}
