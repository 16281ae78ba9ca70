// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
)

var (
	// ErrTrainingInProgress is returned by Train while another run holds
	// the training lock.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNotTrained is returned by queries issued before the first
	// successful training run.
	ErrNotTrained = errors.New("model not trained")

	// ErrUnknownMarket is returned when a request names a country that has
	// no model.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrNoDataSource is returned by Train when no source is configured.
	ErrNoDataSource = errors.New("no data source configured")

	// ErrInsufficientData is returned by Train when cleaning leaves fewer
	// records than Training.MinRecords.
	ErrInsufficientData = errors.New("insufficient records after cleaning")
)

// DataSource loads raw transaction records.
type DataSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Load returns every record of the dataset in file order.
	Load(ctx context.Context) ([]basket.Transaction, error)
}

// Request is one recommendation query.
type Request struct {
	// ProductID is the product the recommendations are for.
	ProductID string `json:"product_id"`

	// Count is the maximum number of recommendations. 0 means "use
	// Limits.DefaultCount", not "none": ask for a negative count to get an
	// empty result. Counts above Limits.MaxCount are clipped.
	Count int `json:"count"`

	// Country selects the market model. Empty selects the default market.
	Country string `json:"country,omitempty"`

	// QueryID correlates logs. One is generated when empty.
	QueryID string `json:"query_id,omitempty"`
}

// Response contains the recommendations for one Request.
type Response struct {
	Items    []RecommendedItem `json:"items"`
	Metadata ResponseMetadata  `json:"metadata"`
}

// ProductIDs returns the recommended product identifiers in order.
func (r *Response) ProductIDs() []string {
	ids := make([]string, len(r.Items))
	for i := range r.Items {
		ids[i] = r.Items[i].ProductID
	}
	return ids
}

// RecommendedItem is one recommended product with the rule that produced it.
type RecommendedItem struct {
	ProductID   string   `json:"product_id"`
	Description string   `json:"description,omitempty"`
	Antecedent  []string `json:"antecedent"`
	Support     float64  `json:"support"`
	Confidence  float64  `json:"confidence"`
	Lift        float64  `json:"lift"`
}

// ResponseMetadata contains information about how a response was produced.
type ResponseMetadata struct {
	QueryID      string    `json:"query_id"`
	ProductID    string    `json:"product_id"`
	Country      string    `json:"country"`
	Count        int       `json:"count"`
	ModelVersion int       `json:"model_version"`
	TrainedAt    time.Time `json:"trained_at"`
	CacheHit     bool      `json:"cache_hit"`
	LatencyMS    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// ModelStats describes the published model of one market.
type ModelStats struct {
	Invoices int       `json:"invoices"`
	Products int       `json:"products"`
	Itemsets int       `json:"itemsets"`
	Rules    int       `json:"rules"`
	BuiltAt  time.Time `json:"built_at"`
}

// TrainingStatus contains the current training state.
type TrainingStatus struct {
	IsTraining             bool                  `json:"is_training"`
	ModelVersion           int                   `json:"model_version"`
	LastTrainedAt          time.Time             `json:"last_trained_at"`
	LastTrainingDurationMS int64                 `json:"last_training_duration_ms"`
	LastError              string                `json:"last_error,omitempty"`
	RecordsLoaded          int                   `json:"records_loaded"`
	RecordsCleaned         int                   `json:"records_cleaned"`
	Countries              map[string]ModelStats `json:"countries"`
}

// Metrics contains engine counters.
type Metrics struct {
	RequestCount  int64 `json:"request_count"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	ErrorCount    int64 `json:"error_count"`
	TrainingCount int64 `json:"training_count"`
}
