// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

package mining

import (
	"context"
	"fmt"
	"math/bits"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/basketrules/internal/basket"
)

// Options configures frequent itemset mining.
type Options struct {
	// MinSupport is the minimum fraction of invoices an itemset must appear
	// in. Must be in (0, 1].
	MinSupport float64 `json:"min_support"`

	// MaxLen bounds itemset size. 0 means unbounded.
	MaxLen int `json:"max_len"`

	// Workers is the number of goroutines counting support within one
	// level. 0 uses runtime.NumCPU().
	Workers int `json:"workers"`
}

// DefaultOptions returns MinSupport 0.01 with unbounded length.
func DefaultOptions() Options {
	return Options{MinSupport: 0.01}
}

// Validate returns a *basket.ConfigurationError for out-of-range options.
func (o *Options) Validate() error {
	if !(o.MinSupport > 0 && o.MinSupport <= 1) {
		return &basket.ConfigurationError{
			Field:  "min_support",
			Reason: fmt.Sprintf("must be in (0, 1], got %f", o.MinSupport),
		}
	}
	if o.MaxLen < 0 {
		return &basket.ConfigurationError{Field: "max_len", Reason: fmt.Sprintf("must be non-negative, got %d", o.MaxLen)}
	}
	if o.Workers < 0 {
		return &basket.ConfigurationError{Field: "workers", Reason: fmt.Sprintf("must be non-negative, got %d", o.Workers)}
	}
	return nil
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// frequent is a frequent itemset of the current level with its row bitset.
type frequent struct {
	cols  []int
	rows  []uint64
	count int
}

// candidate joins two frequent itemsets of the previous level sharing every
// item but the last.
type candidate struct {
	left  int
	last  int
	rows  []uint64
	count int
}

// countChunk is the number of candidates between context checks.
const countChunk = 256

// Apriori mines every itemset whose support is at least opts.MinSupport.
//
// Candidates of size k+1 are built by joining frequent k-itemsets that share
// their first k-1 columns, then discarded unless every k-subset is frequent.
// Support counting within a level runs on opts.Workers goroutines; each
// candidate owns its result slot so the output order does not depend on
// scheduling.
//
// Itemsets are returned by size, then in lexicographic column order, which is
// the order a brute-force enumeration of column combinations produces. Items
// within an itemset follow column order. A matrix with no rows, no columns or
// no frequent item yields an empty slice and a nil error.
func Apriori(ctx context.Context, m *basket.Matrix, opts Options) ([]basket.Itemset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := []basket.Itemset{}
	n := m.Rows()
	if n == 0 || m.Cols() == 0 {
		return result, nil
	}

	isFrequent := func(count int) bool {
		return float64(count)/float64(n) >= opts.MinSupport
	}

	level := make([]frequent, 0, m.Cols())
	for j := 0; j < m.Cols(); j++ {
		if count := m.ColumnCount(j); isFrequent(count) {
			level = append(level, frequent{cols: []int{j}, rows: m.Column(j), count: count})
		}
	}

	for size := 1; len(level) > 0; size++ {
		for i := range level {
			result = append(result, toItemset(m, level[i].cols, level[i].count, n))
		}
		if opts.MaxLen > 0 && size >= opts.MaxLen {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := generateCandidates(level)
		if len(candidates) == 0 {
			break
		}
		if err := countCandidates(ctx, m, level, candidates, opts.workers(), isFrequent); err != nil {
			return nil, err
		}

		next := make([]frequent, 0, len(candidates))
		for i := range candidates {
			c := &candidates[i]
			if c.rows == nil {
				continue
			}
			cols := make([]int, len(level[c.left].cols)+1)
			copy(cols, level[c.left].cols)
			cols[len(cols)-1] = c.last
			next = append(next, frequent{cols: cols, rows: c.rows, count: c.count})
		}
		level = next
	}

	return result, nil
}

// generateCandidates performs the prefix join and subset pruning. level is in
// lexicographic order, so itemsets sharing a prefix are adjacent and the
// candidates come out in lexicographic order too.
func generateCandidates(level []frequent) []candidate {
	known := make(map[string]struct{}, len(level))
	for i := range level {
		known[colsKey(level[i].cols)] = struct{}{}
	}

	var candidates []candidate
	subset := make([]int, 0, 8)

	for i := 0; i < len(level); i++ {
		a := level[i].cols
		prefix := a[:len(a)-1]
		for j := i + 1; j < len(level); j++ {
			b := level[j].cols
			if !slices.Equal(prefix, b[:len(b)-1]) {
				break
			}

			joined := append(append(make([]int, 0, len(a)+1), a...), b[len(b)-1])
			if !allSubsetsFrequent(joined, known, subset) {
				continue
			}
			candidates = append(candidates, candidate{left: i, last: b[len(b)-1]})
		}
	}
	return candidates
}

// allSubsetsFrequent checks the k-subsets of joined that drop one of the
// first k-1 items; the two join parents are frequent already.
func allSubsetsFrequent(joined []int, known map[string]struct{}, scratch []int) bool {
	for skip := 0; skip < len(joined)-2; skip++ {
		scratch = scratch[:0]
		for idx, col := range joined {
			if idx != skip {
				scratch = append(scratch, col)
			}
		}
		if _, ok := known[colsKey(scratch)]; !ok {
			return false
		}
	}
	return true
}

func countCandidates(ctx context.Context, m *basket.Matrix, level []frequent, candidates []candidate, workers int, isFrequent func(int) bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(candidates) + workers - 1) / workers
	if chunk < countChunk {
		chunk = countChunk
	}

	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%countChunk == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				c := &candidates[i]
				left := level[c.left].rows
				right := m.Column(c.last)

				c.count = popcountAnd(left, right)
				if isFrequent(c.count) {
					c.rows = andBits(left, right)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func popcountAnd(a, b []uint64) int {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] & b[i])
	}
	return n
}

func andBits(a, b []uint64) []uint64 {
	out := make([]uint64, len(a))
	for i := range a {
		out[i] = a[i] & b[i]
	}
	return out
}

func toItemset(m *basket.Matrix, cols []int, count, rows int) basket.Itemset {
	items := make([]string, len(cols))
	for i, c := range cols {
		items[i] = m.Key(c)
	}
	return basket.Itemset{Items: items, Support: float64(count) / float64(rows)}
}

func colsKey(cols []int) string {
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", c)
	}
	return sb.String()
}
