// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package chart renders metric series as gonum line charts.
package chart

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Kind is the chart type.
type Kind string

// Supported chart types.
const (
	KindLine       Kind = "line"
	KindLinePoints Kind = "linepoints"
	KindScatter    Kind = "scatter"
)

// ParseKind validates a chart type name. The empty string is a line
// chart with points.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindLinePoints, nil
	case KindLine, KindLinePoints, KindScatter:
		return k, nil
	}
	return "", errors.Newf("unknown chart kind %q", s)
}

// ErrNoData is returned when every series is empty.
var ErrNoData = errors.New("no data to plot")

// Default image size.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Options configure a chart.
type Options struct {
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	XTicks []float64
	YTicks []float64
	// Show asks for the chart to be displayed. Draw writes it to a
	// temporary PNG when Save is empty.
	Show bool
	// Save is the output path; the image format follows its extension.
	Save   string
	Width  vg.Length
	Height vg.Length
}

// Series is one named line.
type Series struct {
	Name string
	XY   plotter.XYs
}

// FromTable extracts columns x and y of t as a series. Rows where either
// value is NaN or infinite are skipped.
func FromTable(t *bench.Table, name, x, y string) (Series, error) {
	xs, err := t.Floats(x)
	if err != nil {
		return Series{}, err
	}
	ys, err := t.Floats(y)
	if err != nil {
		return Series{}, err
	}
	s := Series{Name: name, XY: make(plotter.XYs, 0, len(xs))}
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		s.XY = append(s.XY, plotter.XY{X: xs[i], Y: ys[i]})
	}
	return s, nil
}

// FromWide extracts one series per column of a wide table, all sharing
// the x column. Series are named after their column.
func FromWide(t *bench.Table, x string, cols ...string) ([]Series, error) {
	out := make([]Series, 0, len(cols))
	for _, col := range cols {
		s, err := FromTable(t, col, x, col)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ticks(vals []float64) plot.ConstantTicks {
	ts := make(plot.ConstantTicks, len(vals))
	for i, v := range vals {
		ts[i] = plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return ts
}

// Render builds a plot of series. Empty series are skipped; if nothing is
// left ErrNoData is returned.
func Render(series []Series, opts Options) (*plot.Plot, error) {
	kind := opts.Kind
	if kind == "" {
		kind = KindLinePoints
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	if len(opts.XTicks) > 0 {
		p.X.Tick.Marker = ticks(opts.XTicks)
	}
	if len(opts.YTicks) > 0 {
		p.Y.Tick.Marker = ticks(opts.YTicks)
	}

	drawn := 0
	for i, s := range series {
		if len(s.XY) == 0 {
			log.Debug().Str("series", s.Name).Msg("empty series skipped")
			continue
		}
		var thumbs []plot.Thumbnailer
		if kind != KindScatter {
			l, err := plotter.NewLine(s.XY)
			if err != nil {
				return nil, errors.Wrapf(err, "series %s", s.Name)
			}
			l.Color = plotutil.Color(i)
			l.Dashes = plotutil.Dashes(i)
			p.Add(l)
			thumbs = append(thumbs, l)
		}
		if kind != KindLine {
			sc, err := plotter.NewScatter(s.XY)
			if err != nil {
				return nil, errors.Wrapf(err, "series %s", s.Name)
			}
			sc.GlyphStyle.Color = plotutil.Color(i)
			sc.GlyphStyle.Shape = plotutil.Shape(i)
			p.Add(sc)
			thumbs = append(thumbs, sc)
		}
		if s.Name != "" {
			p.Legend.Add(s.Name, thumbs...)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoData
	}
	return p, nil
}

// Draw renders series and writes the image. It returns the written path:
// opts.Save, or a temporary PNG when only Show is set. Nothing is written
// when neither is set.
func Draw(series []Series, opts Options) (string, error) {
	if opts.Save == "" && !opts.Show {
		return "", nil
	}
	p, err := Render(series, opts)
	if err != nil {
		return "", err
	}
	path := opts.Save
	if path == "" {
		f, err := os.CreateTemp("", "scaling-report-*.png")
		if err != nil {
			return "", err
		}
		path = f.Name()
		if err := f.Close(); err != nil {
			return "", err
		}
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	w, h := opts.Width, opts.Height
	if w == 0 {
		w = DefaultWidth
	}
	if h == 0 {
		h = DefaultHeight
	}
	if err := p.Save(w, h, path); err != nil {
		return "", errors.Wrapf(err, "cannot save chart to %s", path)
	}
	log.Debug().Str("file", path).Msg("chart written")
	return path, nil
}
