// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wavefront = `N,nworkers,policy,tileSize,chunkSize,time
1000,1,0,1,1,100
1000,1,1,4,1,110
1000,2,1,4,1,55
1000,4,1,4,1,25
1000,2,3,4,8,60
1000,2,3,4,16,70
1000,1,3,4,8,120
2000,1,0,1,1,400
2000,1,1,4,1,420
2000,2,1,4,1,210
4000,4,1,4,1,440
`

func parse(t *testing.T, s string) *bench.Table {
	tab, err := bench.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return tab
}

func floats(t *testing.T, tab *bench.Table, col string) []float64 {
	vals, err := tab.Floats(col)
	require.NoError(t, err)
	return vals
}

func ints(t *testing.T, tab *bench.Table, col string) []int {
	vals, err := tab.Ints(col)
	require.NoError(t, err)
	return vals
}

func TestSpeedup(t *testing.T) {
	raw := parse(t, wavefront)
	sp, err := Speedup(raw, NewKey(1000, 4, 1), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"nworkers", "time", "speedup"}, sp.Columns())
	assert.Equal(t, []int{1, 2, 4}, ints(t, sp, bench.ColWorkers))
	times := floats(t, sp, bench.ColTime)
	speedups := floats(t, sp, ColSpeedup)
	for i := range times {
		assert.Equal(t, 100/times[i], speedups[i])
	}
	assert.Equal(t, 1.0, speedups[0])
	assert.Equal(t, 4.0, speedups[2])
}

func TestSpeedupChunked(t *testing.T) {
	raw := parse(t, wavefront)
	key := NewKey(1000, 4, ChunkedPolicy)
	key.ChunkSize = 16
	sp, err := Speedup(raw, key, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 70}, floats(t, sp, bench.ColTime))

	// The chunk size is ignored for unchunked policies.
	key = NewKey(1000, 4, 1)
	key.ChunkSize = 16
	sp, err = Speedup(raw, key, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, sp.Len())
}

func TestSpeedupScalarBaseline(t *testing.T) {
	raw := parse(t, wavefront)
	sp, err := Speedup(raw, NewKey(1000, 4, 1), Options{BaselineTime: 220})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, ints(t, sp, bench.ColWorkers))
	assert.Equal(t, []float64{2, 4, 8.8}, floats(t, sp, ColSpeedup))
}

func TestSpeedupMissingBaseline(t *testing.T) {
	raw := parse(t, wavefront)
	sp, err := Speedup(raw, NewKey(4000, 4, 1), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, sp.Len())
	assert.True(t, math.IsNaN(floats(t, sp, ColSpeedup)[0]))
}

func TestSpeedupKeepColumns(t *testing.T) {
	raw := parse(t, wavefront)
	key := NewKey(2000, 4, 1)
	key.KeepColumns = true
	sp, err := Speedup(raw, key, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"N", "nworkers", "policy", "tileSize", "chunkSize", "time", "speedup"}, sp.Columns())
	assert.Equal(t, []float64{1, 400.0 / 210.0}, floats(t, sp, ColSpeedup))
}

func TestStrongScalability(t *testing.T) {
	raw := parse(t, wavefront)
	ss, err := StrongScalability(raw, NewKey(1000, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, ints(t, ss, bench.ColWorkers))
	vals := floats(t, ss, ColStrongScalability)
	assert.Equal(t, 1.0, vals[0])
	assert.Equal(t, 2.0, vals[1])
	assert.InDelta(t, 4.4, vals[2], 1e-12)
}

func TestStrongScalabilityChunked(t *testing.T) {
	raw := parse(t, wavefront)
	key := NewKey(1000, 4, ChunkedPolicy)
	key.ChunkSize = 8
	ss, err := StrongScalability(raw, key)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, ints(t, ss, bench.ColWorkers))
	assert.Equal(t, []float64{2, 1}, floats(t, ss, ColStrongScalability))
}

func TestStrongScalabilityMissingBaseline(t *testing.T) {
	raw := parse(t, wavefront)
	ss, err := StrongScalability(raw, NewKey(4000, 4, 1))
	require.NoError(t, err)
	require.Equal(t, 1, ss.Len())
	assert.True(t, math.IsNaN(floats(t, ss, ColStrongScalability)[0]))

	ss, err = StrongScalability(raw, NewKey(123, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Len())
}

const weakSeries = `N,nworkers,policy,tileSize,time
1000,1,1,1,10.0
2000,2,1,1,10.0
4000,4,1,1,12.0
2000,1,1,1,30.0
4000,2,1,1,25.0
`

func TestWeakScalability(t *testing.T) {
	raw := parse(t, weakSeries)
	ws, err := WeakScalability(raw, NewKey(1000, 1, 1), 4000)
	require.NoError(t, err)
	require.Equal(t, 3, ws.Len())
	assert.Equal(t, []int{1000, 2000, 4000}, ints(t, ws, bench.ColN))
	assert.Equal(t, []int{1, 2, 4}, ints(t, ws, bench.ColWorkers))

	weak := floats(t, ws, ColWeakScalability)
	assert.Equal(t, 1.0, weak[0])
	assert.Equal(t, 2.0, weak[1])
	assert.Equal(t, 10.0*4/12.0, weak[2])

	quad := floats(t, ws, ColQuadraticWeakScalability)
	assert.Equal(t, []float64{1, 4, weak[2] * 4}, quad)
	assert.Equal(t, []string{"N", "nworkers", "time", "weak_scalability", "quadratic_weak_scalability"}, ws.Columns())
}

func TestWeakScalabilityCeiling(t *testing.T) {
	raw := parse(t, weakSeries)
	ws, err := WeakScalability(raw, NewKey(1000, 1, 1), 3999)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 2000}, ints(t, ws, bench.ColN))

	ws, err = WeakScalability(raw, NewKey(1000, 1, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ws.Len())

	_, err = WeakScalability(raw, NewKey(0, 1, 1), 4000)
	assert.Error(t, err)
}

func TestWeakScalabilityGaps(t *testing.T) {
	raw := parse(t, `N,nworkers,policy,tileSize,time
1000,1,1,1,10.0
3000,3,1,1,11.0
`)
	ws, err := WeakScalability(raw, NewKey(1000, 1, 1), 8000)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ints(t, ws, bench.ColWorkers))
}

func TestQuadraticWeakScalability(t *testing.T) {
	raw := parse(t, `N,nworkers,policy,tileSize,time
1000,1,1,1,10.0
2000,2,1,1,10.0
4000,4,1,1,20.0
9000,9,1,1,30.0
`)
	qs, err := QuadraticWeakScalability(raw, NewKey(1000, 1, 1), 9000)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9}, ints(t, qs, bench.ColWorkers))
	assert.Equal(t, []float64{1, 2, 3}, floats(t, qs, ColWeakScalability))

	qs, err = QuadraticWeakScalability(raw, NewKey(1000, 1, 1), 8999)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, ints(t, qs, bench.ColWorkers))
}

func TestEfficiency(t *testing.T) {
	raw := parse(t, wavefront)
	eff, err := Efficiency(raw, NewKey(1000, 4, 1), Options{})
	require.NoError(t, err)
	speedups := floats(t, eff, ColSpeedup)
	workers := ints(t, eff, bench.ColWorkers)
	vals := floats(t, eff, ColEfficiency)
	for i := range vals {
		assert.Equal(t, speedups[i]/float64(workers[i])*100, vals[i])
	}
	assert.Equal(t, 100.0, vals[0])
	assert.Equal(t, 100.0, vals[2])
}

func TestMissingOptionalColumns(t *testing.T) {
	raw := parse(t, `N,nworkers,policy,tileSize,time
1000,1,0,1,8
1000,2,1,1,4
1000,4,1,1,2
`)
	for _, kind := range Kinds {
		_, err := Derive(raw, kind, NewKey(1000, 1, 1), Options{MaxN: 4000})
		assert.NoError(t, err, kind.String())
	}

	// No policy column: the single worker run is the baseline.
	mpi := parse(t, `N,nworkers,tileSize,MPITime,time
1000,1,1,7.5,8
1000,2,1,3.5,4
`)
	sp, err := Speedup(mpi, NewKey(1000, 1, 1), Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, floats(t, sp, ColSpeedup))
	assert.Equal(t, []string{"nworkers", "MPITime", "time", "speedup"}, sp.Columns())
}

func TestDerivationsDoNotMutateInput(t *testing.T) {
	raw := parse(t, wavefront)
	cols := raw.Columns()
	times := floats(t, raw, bench.ColTime)

	_, err := Speedup(raw, NewKey(1000, 4, 1), Options{})
	require.NoError(t, err)
	_, err = StrongScalability(raw, NewKey(1000, 4, 1))
	require.NoError(t, err)
	_, err = Efficiency(raw, NewKey(1000, 4, 1), Options{})
	require.NoError(t, err)

	assert.Equal(t, cols, raw.Columns())
	assert.Equal(t, times, floats(t, raw, bench.ColTime))
	assert.Equal(t, 11, raw.Len())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("strong")
	require.NoError(t, err)
	assert.Equal(t, KindStrongScalability, got)
	got, err = ParseKind("Quadratic-Weak-Scalability")
	require.NoError(t, err)
	assert.Equal(t, KindQuadraticWeakScalability, got)
	_, err = ParseKind("throughput")
	assert.Error(t, err)

	assert.Equal(t, ColWeakScalability, KindQuadraticWeakScalability.Column())
}

func TestSummarize(t *testing.T) {
	raw := parse(t, wavefront)
	sp, err := Speedup(raw, NewKey(1000, 4, 1), Options{})
	require.NoError(t, err)
	s, err := Summarize(sp, ColSpeedup)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, (1+100.0/55+4)/3, s.Mean, 1e-12)

	sp, err = Speedup(raw, NewKey(4000, 4, 1), Options{})
	require.NoError(t, err)
	s, err = Summarize(sp, ColSpeedup)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)
	assert.True(t, math.IsNaN(s.Max))
}

func TestKeys(t *testing.T) {
	keys, err := Keys(parse(t, wavefront))
	require.NoError(t, err)
	chunk := func(n, c int) Key {
		k := NewKey(n, 4, ChunkedPolicy)
		k.ChunkSize = c
		return k
	}
	assert.Equal(t, []Key{
		NewKey(1000, 4, 1), chunk(1000, 8), chunk(1000, 16), NewKey(2000, 4, 1), NewKey(4000, 4, 1),
	}, keys)
	assert.Equal(t, "N=1000 tile=4 policy=3 chunk=8", keys[1].String())
	assert.Equal(t, "N=2000 tile=4 policy=1", keys[3].String())

	// Without a policy column every configuration is parallel.
	keys, err = Keys(parse(t, "N,nworkers,tileSize,time\n1000,1,1,8\n1000,2,1,4\n2000,2,8,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []Key{NewKey(1000, 1, 1), NewKey(2000, 8, 1)}, keys)
}
