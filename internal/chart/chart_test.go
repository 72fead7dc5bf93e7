// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func TestFromTable(t *testing.T) {
	tab, err := bench.Parse(strings.NewReader("N,nworkers,time,speedup\n1000,1,10,1\n1000,2,5,\n1000,4,2.5,4\n"))
	require.NoError(t, err)

	s, err := FromTable(tab, "speedup", bench.ColWorkers, "speedup")
	require.NoError(t, err)
	assert.Equal(t, "speedup", s.Name)
	assert.Equal(t, plotter.XYs{{X: 1, Y: 1}, {X: 4, Y: 4}}, s.XY)

	_, err = FromTable(tab, "x", bench.ColWorkers, "efficiency")
	assert.True(t, errors.Is(err, bench.ErrMissingColumn))
}

func TestFromWide(t *testing.T) {
	tab, err := bench.Parse(strings.NewReader("N,nworkers,time,time_1000,time_2000\n1,1,1,10,40\n1,2,1,6,\n"))
	require.NoError(t, err)
	series, err := FromWide(tab, bench.ColWorkers, "time_1000", "time_2000")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Len(t, series[0].XY, 2)
	assert.Len(t, series[1].XY, 1)
	assert.Equal(t, "time_2000", series[1].Name)
}

func TestRender(t *testing.T) {
	series := []Series{
		{Name: "tile 1", XY: plotter.XYs{{X: 1, Y: 1}, {X: 2, Y: 1.9}, {X: 4, Y: 3.5}}},
		{Name: "empty"},
	}
	for _, kind := range []Kind{KindLine, KindLinePoints, KindScatter} {
		p, err := Render(series, Options{Kind: kind, Title: "Speedup", XTicks: []float64{1, 2, 4}})
		require.NoError(t, err, string(kind))
		assert.Equal(t, "Speedup", p.Title.Text)
	}

	_, err := Render([]Series{{Name: "empty"}}, Options{})
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestDraw(t *testing.T) {
	series := []Series{{Name: "a", XY: plotter.XYs{{X: 1, Y: 100}, {X: 2, Y: 95}}}}
	path := filepath.Join(t.TempDir(), "plots", "efficiency.png")

	got, err := Draw(series, Options{Save: path, YTicks: []float64{0, 50, 100}})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	got, err = Draw(series, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDrawShow(t *testing.T) {
	series := []Series{{Name: "a", XY: plotter.XYs{{X: 1, Y: 1}}}}
	got, err := Draw(series, Options{Show: true})
	require.NoError(t, err)
	defer os.Remove(got)
	assert.Equal(t, ".png", filepath.Ext(got))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindLinePoints, k)
	k, err = ParseKind("Scatter")
	require.NoError(t, err)
	assert.Equal(t, KindScatter, k)
	_, err = ParseKind("bar")
	assert.Error(t, err)
}
