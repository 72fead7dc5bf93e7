// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package metrics derives speedup, scalability and efficiency tables from
// raw benchmark tables.
//
// Ratios whose baseline row is missing are NaN rather than errors; the
// derived table still carries every selected row.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/rs/zerolog/log"
)

// Derived metric columns.
const (
	ColSpeedup                  = "speedup"
	ColStrongScalability        = "strong_scalability"
	ColWeakScalability          = "weak_scalability"
	ColQuadraticWeakScalability = "quadratic_weak_scalability"
	ColEfficiency               = "efficiency"
)

// Scheduling policy codes used by the harness.
const (
	SequentialPolicy = 0
	ChunkedPolicy    = 3
)

// DefaultMaxN bounds the weak scalability walks.
const DefaultMaxN = 8000

// Key selects one experiment configuration.
type Key struct {
	N        int
	TileSize int
	Policy   int
	// ChunkSize is only compared when Policy is ChunkedPolicy.
	ChunkSize int
	// KeepColumns leaves the selection columns in the derived table.
	KeepColumns bool
}

// NewKey returns a key with the default chunk size of 1.
func NewKey(n, tileSize, policy int) Key {
	return Key{N: n, TileSize: tileSize, Policy: policy, ChunkSize: 1}
}

func (k Key) String() string {
	s := fmt.Sprintf("N=%d tile=%d policy=%d", k.N, k.TileSize, k.Policy)
	if k.Policy == ChunkedPolicy {
		s += fmt.Sprintf(" chunk=%d", k.ChunkSize)
	}
	return s
}

// Keys lists the parallel configurations present in t, ordered by N,
// tile size, policy and chunk size. Sequential runs are not listed. A
// missing optional column takes its default value.
func Keys(t *bench.Table) ([]Key, error) {
	ns, err := t.Ints(bench.ColN)
	if err != nil {
		return nil, err
	}
	col := func(name string, def int) ([]int, error) {
		if !t.Has(name) {
			vals := make([]int, len(ns))
			for i := range vals {
				vals[i] = def
			}
			return vals, nil
		}
		return t.Ints(name)
	}
	tiles, err := col(bench.ColTileSize, 1)
	if err != nil {
		return nil, err
	}
	policies, err := col(bench.ColPolicy, 1)
	if err != nil {
		return nil, err
	}
	chunks, err := col(bench.ColChunkSize, 1)
	if err != nil {
		return nil, err
	}

	seen := make(map[Key]bool)
	var keys []Key
	for i := range ns {
		if policies[i] == SequentialPolicy {
			continue
		}
		k := NewKey(ns[i], tiles[i], policies[i])
		if k.Policy == ChunkedPolicy {
			k.ChunkSize = chunks[i]
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.N != b.N {
			return a.N < b.N
		}
		if a.TileSize != b.TileSize {
			return a.TileSize < b.TileSize
		}
		if a.Policy != b.Policy {
			return a.Policy < b.Policy
		}
		return a.ChunkSize < b.ChunkSize
	})
	return keys, nil
}

// conds returns the equality conditions for the key. The chunk size is
// only part of the key for the chunked policy.
func (k Key) conds(withN bool) []bench.Cond {
	var conds []bench.Cond
	if withN {
		conds = append(conds, bench.Eq(bench.ColN, k.N))
	}
	conds = append(conds,
		bench.Eq(bench.ColTileSize, k.TileSize),
		bench.Eq(bench.ColPolicy, k.Policy))
	if k.Policy == ChunkedPolicy {
		conds = append(conds, bench.Eq(bench.ColChunkSize, k.ChunkSize))
	}
	return conds
}

func (k Key) drop(t *bench.Table, cols ...string) *bench.Table {
	if k.KeepColumns {
		return t
	}
	return t.Drop(cols...)
}

var keyColumns = []string{bench.ColN, bench.ColTileSize, bench.ColPolicy, bench.ColChunkSize}

// Options tune derivations that need more than a key.
type Options struct {
	// BaselineTime, when positive, is the sequential time used for
	// speedup and efficiency instead of looking it up in the table.
	BaselineTime float64
	// MaxN bounds the weak scalability walks; DefaultMaxN when zero.
	MaxN int
}

// firstTime returns the time of the first row of t, or NaN if t is empty.
func firstTime(t *bench.Table, what string) (float64, error) {
	times, err := t.Floats(bench.ColTime)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		log.Warn().Str("baseline", what).Msg("no baseline row, ratios are undefined")
		return math.NaN(), nil
	}
	if len(times) > 1 {
		log.Debug().Str("baseline", what).Int("rows", len(times)).Msg("several baseline rows, using the first")
	}
	return times[0], nil
}

// ratios returns f(time[i], nworkers[i]) for every row.
func ratios(t *bench.Table, f func(time float64, workers int) float64) ([]float64, error) {
	times, err := t.Floats(bench.ColTime)
	if err != nil {
		return nil, err
	}
	workers, err := t.Ints(bench.ColWorkers)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(times))
	for i := range times {
		out[i] = f(times[i], workers[i])
	}
	return out, nil
}

func withRatios(t *bench.Table, col string, f func(time float64, workers int) float64) (*bench.Table, error) {
	vals, err := ratios(t, f)
	if err != nil {
		return nil, err
	}
	return t.With(col, vals)
}

// Speedup compares the parallel runs selected by key with the untiled
// sequential run of the same size, whatever tiling and policy the key
// names. The sequential rows come first in the result so that their
// speedup of 1 anchors the series.
func Speedup(t *bench.Table, key Key, opts Options) (*bench.Table, error) {
	minWorkers := 1
	if opts.BaselineTime > 0 {
		minWorkers = 0
	}
	par, err := t.Filter(append(key.conds(true), bench.Gt(bench.ColWorkers, minWorkers))...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting parallel runs")
	}

	rows, baseline := par, opts.BaselineTime
	if baseline <= 0 {
		conds := []bench.Cond{
			bench.Eq(bench.ColN, key.N),
			bench.Eq(bench.ColTileSize, 1),
			bench.Eq(bench.ColPolicy, SequentialPolicy),
		}
		if !t.Has(bench.ColPolicy) {
			// Without a policy column the sequential run is the
			// single worker one.
			conds = append(conds, bench.Eq(bench.ColWorkers, 1))
		}
		seq, err := t.Filter(conds...)
		if err != nil {
			return nil, errors.Wrap(err, "selecting sequential run")
		}
		if baseline, err = firstTime(seq, "sequential"); err != nil {
			return nil, err
		}
		if rows, err = bench.Concat(seq, par); err != nil {
			return nil, err
		}
	}

	out, err := withRatios(rows, ColSpeedup, func(time float64, _ int) float64 {
		return baseline / time
	})
	if err != nil {
		return nil, err
	}
	return key.drop(out, keyColumns...), nil
}

// StrongScalability compares every worker count of one configuration
// with the single worker run of that same configuration.
func StrongScalability(t *bench.Table, key Key) (*bench.Table, error) {
	rows, err := t.Filter(key.conds(true)...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting runs")
	}
	single, err := rows.Filter(bench.Eq(bench.ColWorkers, 1))
	if err != nil {
		return nil, err
	}
	baseline, err := firstTime(single, "single worker")
	if err != nil {
		return nil, err
	}
	out, err := withRatios(rows, ColStrongScalability, func(time float64, _ int) float64 {
		return baseline / time
	})
	if err != nil {
		return nil, err
	}
	return key.drop(out, keyColumns...), nil
}

// weakWalk collects the single worker run of size key.N followed by the
// runs of size m*key.N on m workers, where m = scale(p) for p = 2, 3, ...
// while m*key.N <= maxN. Missing points are skipped.
func weakWalk(t *bench.Table, key Key, maxN int, scale func(p int) int) (*bench.Table, error) {
	if key.N <= 0 {
		return nil, errors.Newf("weak scalability needs a positive base size, got %d", key.N)
	}
	if maxN <= 0 {
		maxN = DefaultMaxN
	}
	rows, err := t.Filter(key.conds(false)...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting runs")
	}
	seed, err := rows.Filter(bench.Eq(bench.ColN, key.N), bench.Eq(bench.ColWorkers, 1))
	if err != nil {
		return nil, err
	}
	parts := []*bench.Table{seed}
	for p := 2; scale(p)*key.N <= maxN; p++ {
		m := scale(p)
		point, err := rows.Filter(bench.Eq(bench.ColN, m*key.N), bench.Eq(bench.ColWorkers, m))
		if err != nil {
			return nil, err
		}
		if point.Len() > 0 {
			parts = append(parts, point)
		}
	}
	return bench.Concat(parts...)
}

func weakRatio(baseline float64) func(float64, int) float64 {
	return func(time float64, workers int) float64 {
		return baseline * float64(workers) / time
	}
}

// WeakScalability grows the problem size linearly with the worker count.
// Besides weak_scalability it reports quadratic_weak_scalability, the same
// ratio scaled by the worker count, for workloads whose cost grows with
// the square of the size.
func WeakScalability(t *bench.Table, key Key, maxN int) (*bench.Table, error) {
	rows, err := weakWalk(t, key, maxN, func(p int) int { return p })
	if err != nil {
		return nil, err
	}
	seed, err := rows.Filter(bench.Eq(bench.ColN, key.N), bench.Eq(bench.ColWorkers, 1))
	if err != nil {
		return nil, err
	}
	baseline, err := firstTime(seed, "single worker")
	if err != nil {
		return nil, err
	}
	weak, err := ratios(rows, weakRatio(baseline))
	if err != nil {
		return nil, err
	}
	workers, err := rows.Ints(bench.ColWorkers)
	if err != nil {
		return nil, err
	}
	quad := make([]float64, len(weak))
	for i := range weak {
		quad[i] = weak[i] * float64(workers[i])
	}
	out, err := rows.With(ColWeakScalability, weak)
	if err != nil {
		return nil, err
	}
	if out, err = out.With(ColQuadraticWeakScalability, quad); err != nil {
		return nil, err
	}
	return key.drop(out, bench.ColTileSize, bench.ColPolicy, bench.ColChunkSize), nil
}

// QuadraticWeakScalability grows the worker count and the problem size
// by p², keeping the per-worker cost of a quadratic algorithm constant.
func QuadraticWeakScalability(t *bench.Table, key Key, maxN int) (*bench.Table, error) {
	rows, err := weakWalk(t, key, maxN, func(p int) int { return p * p })
	if err != nil {
		return nil, err
	}
	seed, err := rows.Filter(bench.Eq(bench.ColN, key.N), bench.Eq(bench.ColWorkers, 1))
	if err != nil {
		return nil, err
	}
	baseline, err := firstTime(seed, "single worker")
	if err != nil {
		return nil, err
	}
	out, err := withRatios(rows, ColWeakScalability, weakRatio(baseline))
	if err != nil {
		return nil, err
	}
	return key.drop(out, bench.ColTileSize, bench.ColPolicy, bench.ColChunkSize), nil
}

// Efficiency is speedup per worker, as a percentage of linear scaling.
func Efficiency(t *bench.Table, key Key, opts Options) (*bench.Table, error) {
	sp, err := Speedup(t, key, opts)
	if err != nil {
		return nil, err
	}
	speedups, err := sp.Floats(ColSpeedup)
	if err != nil {
		return nil, err
	}
	workers, err := sp.Ints(bench.ColWorkers)
	if err != nil {
		return nil, err
	}
	eff := make([]float64, len(speedups))
	for i := range speedups {
		eff[i] = speedups[i] / float64(workers[i]) * 100
	}
	return sp.With(ColEfficiency, eff)
}

// Derive computes the table for kind.
func Derive(t *bench.Table, kind Kind, key Key, opts Options) (*bench.Table, error) {
	switch kind {
	case KindSpeedup:
		return Speedup(t, key, opts)
	case KindStrongScalability:
		return StrongScalability(t, key)
	case KindWeakScalability:
		return WeakScalability(t, key, opts.MaxN)
	case KindQuadraticWeakScalability:
		return QuadraticWeakScalability(t, key, opts.MaxN)
	case KindEfficiency:
		return Efficiency(t, key, opts)
	}
	return nil, errors.Newf("unknown metric kind %d", kind)
}
