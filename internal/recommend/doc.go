// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

// Package recommend turns association rules into product recommendations.
//
// # Architecture
//
//	DataSource ─► Pipeline.Clean ─► per country: Pipeline.Build ─► Model
//	                                  (matrix ─► itemsets ─► rules ─► Recommender)
//
// A Recommender holds one immutable rule set sorted by lift, highest first,
// with ties kept in rule generation order. An index from product to the rules
// whose antecedent contains it makes each query a walk over one bucket. For
// every matching rule the first item of its consequent is recommended, until
// the requested count is reached. Repeated products are kept unless
// deduplication is configured.
//
// The Engine owns the current model per country. Train loads and cleans the
// dataset once, builds every configured market independently, then publishes
// all models at once and clears the response cache. Each run emits a train
// span with load, clean and per-country build children.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), logger)
//	engine.SetDataSource(src)
//	if err := engine.Train(ctx); err != nil { ... }
//
//	resp, err := engine.Recommend(ctx, recommend.Request{ProductID: "21987", Count: 1})
//
// # Thread Safety
//
// Recommender and Model values are immutable and safe for concurrent use.
// The Engine serialises training and lets queries run against the previously
// published models while a retrain is in progress.
package recommend
