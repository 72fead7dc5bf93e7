// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package cluster builds comparison tables across the files of a cluster
// experiment, where each file holds the runs of one problem size on one
// node count.
//
// Every file named by the Plan must exist: a missing one fails the whole
// table with ErrMissingFile.
package cluster

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/rs/zerolog/log"
)

// ColScalability holds the weak scalability of cluster runs.
const ColScalability = "scalability"

// weakPolicy is the scheduling policy of the weak scalability runs.
const weakPolicy = 1

// sequentialPolicy marks the sequential baseline run, which the cluster
// comparisons leave out.
const sequentialPolicy = 0

const seriesCol = "series"

// TimeColumn names the time series of one problem size in wide tables.
func TimeColumn(size int) string { return fmt.Sprintf("time_%d", size) }

// ScalabilityColumn names the scalability series of one problem size.
func ScalabilityColumn(size int) string { return fmt.Sprintf("scalability_%d", size) }

// EfficiencyColumn names the efficiency series of one problem size.
func EfficiencyColumn(size int) string { return fmt.Sprintf("efficiency_%d", size) }

// WeakColumn names the weak scalability series of one workers-per-node
// value.
func WeakColumn(wpn int) string { return fmt.Sprintf("scalability_%dwpn", wpn) }

// Aggregator builds comparison tables over the datasets of a Plan.
type Aggregator struct {
	Source Source
	Plan   Plan
}

// New returns an aggregator over src. Empty sets in plan take their
// default values.
func New(src Source, plan Plan) *Aggregator {
	return &Aggregator{Source: src, Plan: plan.WithDefaults()}
}

// series loads one dataset and keeps cols of the rows matching conds.
func (a *Aggregator) series(size, nodes int, conds []bench.Cond, cols ...string) (*bench.Table, error) {
	t, err := a.Source.Load(size, nodes)
	if err != nil {
		return nil, err
	}
	sel, err := t.Filter(conds...)
	if err != nil {
		return nil, errors.Wrapf(err, "size %d on %d nodes", size, nodes)
	}
	if sel.Len() == 0 {
		log.Debug().Int("size", size).Int("nodes", nodes).Msg("no matching runs")
	}
	return sel.Keep(cols...)
}

func runConds(workers, tile int) []bench.Cond {
	return []bench.Cond{
		bench.Eq(bench.ColWorkers, workers),
		bench.Eq(bench.ColTileSize, tile),
		bench.Ne(bench.ColPolicy, sequentialPolicy),
	}
}

// CompareOverSizes returns the (N, time) series of a fixed node count,
// one row per problem size of the plan.
func (a *Aggregator) CompareOverSizes(nodes, wpn, tile int) (*bench.Table, error) {
	parts := make([]*bench.Table, 0, len(a.Plan.Sizes))
	for _, size := range a.Plan.Sizes {
		s, err := a.series(size, nodes, runConds(wpn*nodes, tile), bench.ColN, bench.ColTime)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return bench.Concat(parts...)
}

// CompareOverNodes returns the (nworkers, time) series of a fixed problem
// size, one row per node count of the plan. With several workers per node
// the single worker run of the one node file comes first, so the series
// always starts at one worker.
func (a *Aggregator) CompareOverNodes(n, wpn, tile int) (*bench.Table, error) {
	var parts []*bench.Table
	if wpn > 1 {
		base, err := a.series(n, 1, runConds(1, tile), bench.ColWorkers, bench.ColTime)
		if err != nil {
			return nil, err
		}
		parts = append(parts, base)
	}
	for _, nodes := range a.Plan.Nodes {
		s, err := a.series(n, nodes, runConds(nodes*wpn, tile), bench.ColWorkers, bench.ColTime)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return bench.Concat(parts...)
}

// CompareOverFixedNodes returns a wide table with one time_{N} column per
// problem size, aligned on nworkers.
func (a *Aggregator) CompareOverFixedNodes(nodes, tile int) (*bench.Table, error) {
	parts := make([]*bench.Table, 0, len(a.Plan.Sizes))
	labels := make([]string, 0, len(a.Plan.Sizes))
	for _, size := range a.Plan.Sizes {
		conds := []bench.Cond{bench.Eq(bench.ColTileSize, tile), bench.Ne(bench.ColPolicy, sequentialPolicy)}
		s, err := a.series(size, nodes, conds, bench.ColWorkers, bench.ColTime)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
		labels = append(labels, TimeColumn(size))
	}
	return align(parts, labels, bench.ColWorkers, bench.ColTime)
}

// ScalabilityOverSizesFixedWPN compares the node series of every problem
// size at wpn workers per node and derives scalability and efficiency
// for each.
func (a *Aggregator) ScalabilityOverSizesFixedWPN(wpn, tile int) (*bench.Table, error) {
	parts := make([]*bench.Table, 0, len(a.Plan.Sizes))
	labels := make([]string, 0, len(a.Plan.Sizes))
	for _, size := range a.Plan.Sizes {
		s, err := a.CompareOverNodes(size, wpn, tile)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
		labels = append(labels, TimeColumn(size))
	}
	wide, err := align(parts, labels, bench.ColWorkers, bench.ColTime)
	if err != nil {
		return nil, err
	}
	return withScalability(wide, a.Plan.Sizes)
}

// ScalabilityOverSizesFixedNodes derives scalability and efficiency from
// CompareOverFixedNodes.
func (a *Aggregator) ScalabilityOverSizesFixedNodes(nodes, tile int) (*bench.Table, error) {
	wide, err := a.CompareOverFixedNodes(nodes, tile)
	if err != nil {
		return nil, err
	}
	return withScalability(wide, a.Plan.Sizes)
}

// WeakScalability walks the weak pairs of the plan at wpn workers per
// node. The scalability column is time / nworkers².
func (a *Aggregator) WeakScalability(wpn, tile int) (*bench.Table, error) {
	parts := make([]*bench.Table, 0, len(a.Plan.WeakPairs))
	for _, wp := range a.Plan.WeakPairs {
		conds := append(runConds(wp.Nodes*wpn, tile), bench.Eq(bench.ColPolicy, weakPolicy))
		s, err := a.series(wp.Size, wp.Nodes, conds, bench.ColN, bench.ColWorkers, bench.ColTime)
		if err != nil {
			return nil, err
		}
		nodes := make([]int, s.Len())
		for i := range nodes {
			nodes[i] = wp.Nodes
		}
		if s, err = s.With(bench.ColNodes, nodes); err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	rows, err := bench.Concat(parts...)
	if err != nil {
		return nil, err
	}
	if rows, err = rows.Keep(bench.ColN, bench.ColNodes, bench.ColWorkers, bench.ColTime); err != nil {
		return nil, err
	}

	times, err := rows.Floats(bench.ColTime)
	if err != nil {
		return nil, err
	}
	workers, err := rows.Ints(bench.ColWorkers)
	if err != nil {
		return nil, err
	}
	scal := make([]float64, len(times))
	for i := range times {
		scal[i] = times[i] / float64(workers[i]*workers[i])
	}
	return rows.With(ColScalability, scal)
}

// WeakScalabilityComparison aligns the weak scalability series of every
// workers-per-node value of the plan on N.
func (a *Aggregator) WeakScalabilityComparison(tile int) (*bench.Table, error) {
	parts := make([]*bench.Table, 0, len(a.Plan.WorkersPerNode))
	labels := make([]string, 0, len(a.Plan.WorkersPerNode))
	for _, wpn := range a.Plan.WorkersPerNode {
		ws, err := a.WeakScalability(wpn, tile)
		if err != nil {
			return nil, err
		}
		s, err := ws.Keep(bench.ColN, ColScalability)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
		labels = append(labels, WeakColumn(wpn))
	}
	return align(parts, labels, bench.ColN, ColScalability)
}

// align turns parts, each holding an axis and a value column, into one
// wide table with a column per label, sorted by axis. Within a part only
// the first row of each axis value is kept. Cells with no run are NaN.
func align(parts []*bench.Table, labels []string, axis, value string) (*bench.Table, error) {
	tagged := make([]*bench.Table, len(parts))
	present := make([]map[int]bool, len(parts))
	for i, p := range parts {
		first, keys, err := firstPerAxis(p, axis, labels[i])
		if err != nil {
			return nil, err
		}
		present[i] = keys
		tag := make([]string, first.Len())
		for j := range tag {
			tag[j] = labels[i]
		}
		if tagged[i], err = first.With(seriesCol, tag); err != nil {
			return nil, err
		}
	}
	long, err := bench.Concat(tagged...)
	if err != nil {
		return nil, err
	}
	wide, err := long.Pivot(seriesCol, value)
	if err != nil {
		return nil, err
	}
	wide = wide.SortBy(axis)
	axisVals, err := wide.Ints(axis)
	if err != nil {
		return nil, err
	}

	for i, label := range labels {
		vals := make([]float64, wide.Len())
		if wide.Has(label) {
			if vals, err = wide.Floats(label); err != nil {
				return nil, err
			}
		}
		// Pivot fills the missing cells with zero.
		for r, x := range axisVals {
			if !present[i][x] {
				vals[r] = math.NaN()
			}
		}
		if wide, err = wide.With(label, vals); err != nil {
			return nil, err
		}
	}
	return wide.Keep(append([]string{axis}, labels...)...)
}

// firstPerAxis keeps the first row of every axis value of t and returns
// the set of axis values it holds.
func firstPerAxis(t *bench.Table, axis, label string) (*bench.Table, map[int]bool, error) {
	vals, err := t.Ints(axis)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[int]bool, len(vals))
	rows := make([]int, 0, len(vals))
	for r, v := range vals {
		if seen[v] {
			log.Warn().Str("series", label).Str("axis", axis).Int("value", v).Msg("duplicate run, keeping the first")
			continue
		}
		seen[v] = true
		rows = append(rows, r)
	}
	if len(rows) == len(vals) {
		return t, seen, nil
	}
	return t.Select(rows), seen, nil
}

// withScalability adds scalability_{N} = time[0] / time[k] and
// efficiency_{N} = scalability / nworkers * 100 for every size.
func withScalability(wide *bench.Table, sizes []int) (*bench.Table, error) {
	workers, err := wide.Ints(bench.ColWorkers)
	if err != nil {
		return nil, err
	}
	out := wide
	for _, size := range sizes {
		times, err := wide.Floats(TimeColumn(size))
		if err != nil {
			return nil, err
		}
		base := math.NaN()
		if len(times) > 0 {
			base = times[0]
		}
		if math.IsNaN(base) {
			log.Warn().Int("size", size).Msg("no run at the smallest worker count, scalability is undefined")
		}
		scal := make([]float64, len(times))
		eff := make([]float64, len(times))
		for i, t := range times {
			scal[i] = base / t
			eff[i] = scal[i] / float64(workers[i]) * 100
		}
		if out, err = out.With(ScalabilityColumn(size), scal); err != nil {
			return nil, err
		}
		if out, err = out.With(EfficiencyColumn(size), eff); err != nil {
			return nil, err
		}
	}
	return out, nil
}
