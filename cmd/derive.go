// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/cockroachlabs/scaling-report/internal/chart"
	"github.com/cockroachlabs/scaling-report/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var deriveKey metrics.Key
var deriveOpts metrics.Options
var exportDir string
var exportBase string

// Chart flags shared by derive, cluster and analyze.
var chartKind string
var chartPath string
var chartShow bool
var chartTitle string
var chartXLabel string
var chartYLabel string
var chartXTicks []float64
var chartYTicks []float64

// deriveCmd represents the derive command
var deriveCmd = &cobra.Command{
	Use:   "derive <metric> <file.csv>",
	Short: "Derives one metric from a benchmark results file",
	Long: `Derives speedup, strong_scalability, weak_scalability,
quadratic_weak_scalability or efficiency for one experiment configuration
and prints the derived table.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := metrics.ParseKind(args[0])
		if err != nil {
			return err
		}
		return deriveMetric(kind, args[1])
	},
}

func addChartFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&chartKind, "kind", "linepoints", "chart type: line, linepoints or scatter")
	cmd.Flags().StringVar(&chartPath, "plot", "", "save a chart to this path (png, svg, pdf)")
	cmd.Flags().BoolVar(&chartShow, "show", false, "open the chart in the system image viewer")
	cmd.Flags().StringVar(&chartTitle, "title", "", "chart title")
	cmd.Flags().StringVar(&chartXLabel, "xlabel", "", "x axis label")
	cmd.Flags().StringVar(&chartYLabel, "ylabel", "", "y axis label")
	cmd.Flags().Float64SliceVar(&chartXTicks, "xticks", nil, "x axis ticks")
	cmd.Flags().Float64SliceVar(&chartYTicks, "yticks", nil, "y axis ticks")
}

func init() {
	rootCmd.AddCommand(deriveCmd)

	deriveCmd.Flags().IntVar(&deriveKey.N, "n", 0, "problem size")
	deriveCmd.Flags().IntVar(&deriveKey.TileSize, "tile-size", 1, "tile size")
	deriveCmd.Flags().IntVar(&deriveKey.Policy, "policy", 1, "scheduling policy")
	deriveCmd.Flags().IntVar(&deriveKey.ChunkSize, "chunk-size", 1, "chunk size, used by the chunked policy only")
	deriveCmd.Flags().BoolVar(&deriveKey.KeepColumns, "keep-columns", false, "keep the selection columns in the output")
	deriveCmd.Flags().Float64Var(&deriveOpts.BaselineTime, "baseline-time", 0,
		"sequential time used for speedup instead of the sequential run")
	deriveCmd.Flags().Int("max-n", metrics.DefaultMaxN, "largest problem size of the weak scalability walks")
	deriveCmd.Flags().Int("digits", metrics.DefaultDigits, "significant digits of exported values")
	deriveCmd.Flags().StringVar(&exportDir, "export-dir", "", "write the rounded table as CSV into this directory")
	deriveCmd.Flags().StringVar(&exportBase, "base", "", "base name of the exported file (default: input file name)")
	addChartFlags(deriveCmd)
	_ = deriveCmd.MarkFlagRequired("n")

	_ = viper.BindPFlag("maxN", deriveCmd.Flags().Lookup("max-n"))
	_ = viper.BindPFlag("digits", deriveCmd.Flags().Lookup("digits"))
}

func fileStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func chartOptions(title, xlabel, ylabel string) (chart.Options, error) {
	kind, err := chart.ParseKind(chartKind)
	if err != nil {
		return chart.Options{}, err
	}
	opts := chart.Options{
		Kind:   kind,
		Title:  title,
		XLabel: xlabel,
		YLabel: ylabel,
		XTicks: chartXTicks,
		YTicks: chartYTicks,
		Show:   chartShow,
		Save:   chartPath,
	}
	if chartTitle != "" {
		opts.Title = chartTitle
	}
	if chartXLabel != "" {
		opts.XLabel = chartXLabel
	}
	if chartYLabel != "" {
		opts.YLabel = chartYLabel
	}
	return opts, nil
}

// drawChart writes the chart and opens it when asked to.
func drawChart(series []chart.Series, opts chart.Options) error {
	p, err := chart.Draw(series, opts)
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			log.Warn().Msg("nothing to plot")
			return nil
		}
		return err
	}
	if p == "" {
		return nil
	}
	log.Info().Str("file", p).Msg("chart written")
	if opts.Show {
		return showImage(p)
	}
	return nil
}

func deriveMetric(kind metrics.Kind, file string) error {
	log.Info().Str("file", file).Stringer("metric", kind).Msg("Analyzing")
	t, err := bench.Load(file)
	if err != nil {
		return err
	}
	opts := deriveOpts
	opts.MaxN = viper.GetInt("maxN")
	out, err := metrics.Derive(t, kind, deriveKey, opts)
	if err != nil {
		return err
	}
	if out.Len() == 0 {
		log.Warn().Str("key", deriveKey.String()).Msg("no runs match")
	}
	if err := out.Fprint(os.Stdout); err != nil {
		return err
	}

	if exportDir != "" {
		base := exportBase
		if base == "" {
			base = fileStem(file)
		}
		p, err := metrics.Export(exportDir, base, kind, deriveKey, out, viper.GetInt("digits"))
		if err != nil {
			return err
		}
		log.Info().Str("file", p).Msg("exported")
	}

	if chartPath == "" && !chartShow {
		return nil
	}
	x := bench.ColWorkers
	if !out.Has(x) {
		x = bench.ColN
	}
	s, err := chart.FromTable(out, deriveKey.String(), x, kind.Column())
	if err != nil {
		return err
	}
	copts, err := chartOptions(kind.Label(), "Number of workers", kind.Label())
	if err != nil {
		return err
	}
	return drawChart([]chart.Series{s}, copts)
}
