// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package recommend

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/basketrules/internal/basket"
	"github.com/tomtom215/basketrules/internal/logging"
)

// mockSource is an in-memory DataSource.
type mockSource struct {
	mu      sync.Mutex
	records []basket.Transaction
	err     error
	loads   atomic.Int32

	// block, when set, is waited on inside Load.
	block chan struct{}
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Load(ctx context.Context) ([]basket.Transaction, error) {
	m.loads.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]basket.Transaction(nil), m.records...), nil
}

func (m *mockSource) set(records []basket.Transaction, err error) {
	m.mu.Lock()
	m.records, m.err = records, err
	m.mu.Unlock()
}

func newTestEngine(t *testing.T, cfg *Config, src DataSource) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, logging.NewTestLogger(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	if src != nil {
		e.SetDataSource(src)
	}
	return e
}

func trainedEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, scenarioConfig(), &mockSource{records: scenarioRecords()})
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return e
}

func TestEngine_TrainAndRecommend(t *testing.T) {
	t.Parallel()

	e := trainedEngine(t)

	resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Count: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got := resp.ProductIDs(); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Recommend(A, 1) = %v, want [B]", got)
	}
	if resp.Items[0].Description != "ITEM B" {
		t.Errorf("Description = %q, want ITEM B", resp.Items[0].Description)
	}

	md := resp.Metadata
	if md.Country != "Germany" || md.ModelVersion != 1 || md.Count != 1 || md.QueryID == "" {
		t.Errorf("Metadata = %+v", md)
	}
	if md.CacheHit {
		t.Error("first request should not be a cache hit")
	}

	status := e.Status()
	if status.ModelVersion != 1 || status.IsTraining || status.LastError != "" {
		t.Errorf("Status() = %+v", status)
	}
	if status.RecordsLoaded != 11 || status.RecordsCleaned != 8 {
		t.Errorf("records = %d / %d, want 11 / 8", status.RecordsLoaded, status.RecordsCleaned)
	}
	if status.Countries["Germany"].Rules != 2 {
		t.Errorf("Germany stats = %+v", status.Countries["Germany"])
	}
}

func TestEngine_RequestDefaults(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Limits.MaxCount = 2
	e := newTestEngine(t, cfg, &mockSource{records: scenarioRecords()})
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	tests := []struct {
		name      string
		count     int
		wantCount int
		wantLen   int
	}{
		{"zero uses default", 0, 1, 1},
		{"clipped to max", 50, 2, 1},
		{"negative is empty", -3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Count: tt.count})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if resp.Metadata.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", resp.Metadata.Count, tt.wantCount)
			}
			if len(resp.Items) != tt.wantLen {
				t.Errorf("len(Items) = %d, want %d", len(resp.Items), tt.wantLen)
			}
		})
	}
}

func TestEngine_UnknownProduct(t *testing.T) {
	t.Parallel()

	e := trainedEngine(t)

	resp, err := e.Recommend(context.Background(), Request{ProductID: "99999", Count: 3})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("Items = %v, want empty", resp.Items)
	}

	_, err = e.Describe(context.Background(), "99999")
	if !errors.Is(err, basket.ErrNotFound) {
		t.Errorf("Describe() error = %v, want ErrNotFound", err)
	}
	var nf *basket.NotFoundError
	if !errors.As(err, &nf) || nf.ProductID != "99999" {
		t.Errorf("Describe() error = %#v, want *NotFoundError for 99999", err)
	}

	name, err := e.Describe(context.Background(), "C")
	if err != nil || name != "ITEM C" {
		t.Errorf("Describe(C) = %q, %v", name, err)
	}
}

func TestEngine_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not trained", func(t *testing.T) {
		e := newTestEngine(t, scenarioConfig(), nil)
		if _, err := e.Recommend(context.Background(), Request{ProductID: "A"}); !errors.Is(err, ErrNotTrained) {
			t.Errorf("Recommend() error = %v, want ErrNotTrained", err)
		}
		if _, err := e.Describe(context.Background(), "A"); !errors.Is(err, ErrNotTrained) {
			t.Errorf("Describe() error = %v, want ErrNotTrained", err)
		}
		if _, err := e.Rules(""); !errors.Is(err, ErrNotTrained) {
			t.Errorf("Rules() error = %v, want ErrNotTrained", err)
		}
	})

	t.Run("no source", func(t *testing.T) {
		e := newTestEngine(t, scenarioConfig(), nil)
		if err := e.Train(context.Background()); !errors.Is(err, ErrNoDataSource) {
			t.Errorf("Train() error = %v, want ErrNoDataSource", err)
		}
	})

	t.Run("unknown market", func(t *testing.T) {
		e := trainedEngine(t)
		_, err := e.Recommend(context.Background(), Request{ProductID: "A", Country: "Narnia"})
		if !errors.Is(err, ErrUnknownMarket) {
			t.Errorf("Recommend() error = %v, want ErrUnknownMarket", err)
		}
		if e.GetMetrics().ErrorCount != 1 {
			t.Errorf("ErrorCount = %d, want 1", e.GetMetrics().ErrorCount)
		}
	})

	t.Run("insufficient data", func(t *testing.T) {
		cfg := scenarioConfig()
		cfg.Training.MinRecords = 1
		src := &mockSource{records: []basket.Transaction{txn("C1", "A", "Germany")}}
		e := newTestEngine(t, cfg, src)
		if err := e.Train(context.Background()); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("Train() error = %v, want ErrInsufficientData", err)
		}
		if e.Status().LastError == "" {
			t.Error("LastError not recorded")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mining.MinSupport = 2
		if _, err := NewEngine(cfg, logging.NewTestLogger(&bytes.Buffer{})); !errors.Is(err, basket.ErrInvalidConfig) {
			t.Errorf("NewEngine() error = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestEngine_EmptyDataset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []basket.Transaction
	}{
		{"no records", nil},
		{"everything cleaned away", []basket.Transaction{txn("C1", "A", "Germany"), txn("I1", "POST", "Germany")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.Countries = []string{"Germany", "France"}
			e := newTestEngine(t, cfg, &mockSource{records: tt.records})
			if err := e.Train(context.Background()); err != nil {
				t.Fatalf("Train() error = %v", err)
			}

			for _, country := range cfg.Countries {
				resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Count: 3, Country: country})
				if err != nil {
					t.Fatalf("Recommend(%s) error = %v", country, err)
				}
				if resp.Items == nil || len(resp.Items) != 0 {
					t.Errorf("Recommend(%s) items = %v, want empty", country, resp.Items)
				}
			}

			status := e.Status()
			if status.ModelVersion != 1 || status.RecordsCleaned != 0 {
				t.Errorf("Status() = %+v, want version 1 with no cleaned records", status)
			}
			if _, err := e.Describe(context.Background(), "A"); !errors.Is(err, basket.ErrNotFound) {
				t.Errorf("Describe() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestEngine_FailedTrainingKeepsModels(t *testing.T) {
	t.Parallel()

	src := &mockSource{records: scenarioRecords()}
	e := newTestEngine(t, scenarioConfig(), src)
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	loadErr := errors.New("workbook locked")
	src.set(nil, loadErr)
	if err := e.Train(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("Train() error = %v, want %v", err, loadErr)
	}

	if e.Status().ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, failed run must not bump it", e.Status().ModelVersion)
	}
	resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Count: 1})
	if err != nil || !reflect.DeepEqual(resp.ProductIDs(), []string{"B"}) {
		t.Errorf("Recommend() after failed retrain = %v, %v", resp, err)
	}
	if e.GetMetrics().TrainingCount != 2 {
		t.Errorf("TrainingCount = %d, want 2", e.GetMetrics().TrainingCount)
	}
}

func TestEngine_Cache(t *testing.T) {
	t.Parallel()

	src := &mockSource{records: scenarioRecords()}
	e := newTestEngine(t, scenarioConfig(), src)
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	req := Request{ProductID: "A", Count: 2}
	first, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	second, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second identical request should hit the cache")
	}
	if !reflect.DeepEqual(first.ProductIDs(), second.ProductIDs()) {
		t.Errorf("cached items %v differ from %v", second.ProductIDs(), first.ProductIDs())
	}

	m := e.GetMetrics()
	if m.CacheHits != 1 || m.CacheMisses != 1 || m.RequestCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}

	// Retraining publishes a new version and clears the cache.
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	third, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if third.Metadata.CacheHit || third.Metadata.ModelVersion != 2 {
		t.Errorf("after retrain: CacheHit=%v version=%d", third.Metadata.CacheHit, third.Metadata.ModelVersion)
	}
}

func TestEngine_CacheDisabled(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Cache.Enabled = false
	e := newTestEngine(t, cfg, &mockSource{records: scenarioRecords()})
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		resp, err := e.Recommend(context.Background(), Request{ProductID: "A"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if resp.Metadata.CacheHit {
			t.Error("cache hit with caching disabled")
		}
	}
}

func TestEngine_ConcurrentTraining(t *testing.T) {
	t.Parallel()

	src := &mockSource{records: scenarioRecords(), block: make(chan struct{})}
	e := newTestEngine(t, scenarioConfig(), src)

	done := make(chan error, 1)
	go func() { done <- e.Train(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for src.loads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first training run never started")
		}
		time.Sleep(time.Millisecond)
	}

	if !e.Status().IsTraining {
		t.Error("IsTraining = false during a run")
	}
	if err := e.Train(context.Background()); !errors.Is(err, ErrTrainingInProgress) {
		t.Errorf("concurrent Train() error = %v, want ErrTrainingInProgress", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("first Train() error = %v", err)
	}
}

func TestEngine_ConcurrentQueries(t *testing.T) {
	t.Parallel()

	e := trainedEngine(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Count: 1 + i%3})
				if err != nil {
					errs <- err
					return
				}
				if len(resp.Items) > 1+i%3 {
					errs <- errors.New("more items than requested")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.Train(context.Background()); err != nil && !errors.Is(err, ErrTrainingInProgress) {
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestEngine_MultipleMarkets(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Countries = []string{"Germany", "France"}
	e := newTestEngine(t, cfg, &mockSource{records: scenarioRecords()})
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if got := e.Countries(); !reflect.DeepEqual(got, []string{"Germany", "France"}) {
		t.Errorf("Countries() = %v", got)
	}

	resp, err := e.Recommend(context.Background(), Request{ProductID: "A", Country: "France"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got := resp.ProductIDs(); !reflect.DeepEqual(got, []string{"D"}) {
		t.Errorf("France Recommend(A) = %v, want [D]", got)
	}

	rules, err := e.Rules("France")
	if err != nil || len(rules) != 2 {
		t.Errorf("Rules(France) = %d rules, %v", len(rules), err)
	}
	if e.Model("Germany") == nil || e.Model("Spain") != nil {
		t.Error("Model() lookup mismatch")
	}
}
