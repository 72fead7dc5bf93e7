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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/cockroachlabs/scaling-report/internal/chart"
	"github.com/cockroachlabs/scaling-report/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var analyzeMetrics []string

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <folder>",
	Short: "Analyzes every benchmark results file in a folder",
	Long: `Derives the selected metrics for every configuration found in each CSV
file of a folder, draws one chart per file and metric next to the file, and
writes one summary CSV per metric`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeResults(args[0])
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeMetrics, "metrics",
		[]string{metrics.KindSpeedup.String(), metrics.KindEfficiency.String()}, "metrics to derive")
	addChartFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// resultsAnalyzer is an interface responsible for analyzing benchmark results.
type resultsAnalyzer interface {
	io.Closer
	Analyze(file string, t *bench.Table) error
}

const summaryCSVHeader = "File,N,TileSize,Policy,ChunkSize,Count,Min,Max,Mean,GeoMean"

// metricAnalyzer derives one metric for every configuration of a file.
// Close writes the per configuration summaries.
type metricAnalyzer struct {
	kind metrics.Kind
	rows [][]string
}

var _ resultsAnalyzer = &metricAnalyzer{}

func newMetricAnalyzer(kind metrics.Kind) resultsAnalyzer {
	return &metricAnalyzer{kind: kind}
}

func summaryFields(file string, key metrics.Key, s metrics.Summary) []string {
	f := bench.FormatFloat
	return []string{
		filepath.Base(file),
		strconv.Itoa(key.N),
		strconv.Itoa(key.TileSize),
		strconv.Itoa(key.Policy),
		strconv.Itoa(key.ChunkSize),
		strconv.Itoa(s.Count),
		f(metrics.RoundSignificant(s.Min, viper.GetInt("digits"))),
		f(metrics.RoundSignificant(s.Max, viper.GetInt("digits"))),
		f(metrics.RoundSignificant(s.Mean, viper.GetInt("digits"))),
		f(metrics.RoundSignificant(s.GeoMean, viper.GetInt("digits"))),
	}
}

func (m *metricAnalyzer) Analyze(file string, t *bench.Table) error {
	keys, err := metrics.Keys(t)
	if err != nil {
		return err
	}
	col := m.kind.Column()
	series := make([]chart.Series, 0, len(keys))
	for _, key := range keys {
		out, err := metrics.Derive(t, m.kind, key, metrics.Options{MaxN: viper.GetInt("maxN")})
		if err != nil {
			return errors.Wrapf(err, "%s of %s", m.kind, key)
		}
		s, err := chart.FromTable(out, key.String(), bench.ColWorkers, col)
		if err != nil {
			return err
		}
		series = append(series, s)

		sum, err := metrics.Summarize(out, col)
		if err != nil {
			return err
		}
		m.rows = append(m.rows, summaryFields(file, key, sum))
	}

	opts, err := chartOptions(m.kind.Label(), "Number of workers", m.kind.Label())
	if err != nil {
		return err
	}
	opts.Show = false
	opts.Save = filepath.Join(filepath.Dir(file), fmt.Sprintf("%s_%s.png", fileStem(file), m.kind))
	return drawChart(series, opts)
}

func (m *metricAnalyzer) Close() (err error) {
	fileName, err := ResultsFile(fmt.Sprintf("%s-summary.csv", m.kind), "analyze")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := fmt.Fprintf(f, "%s\n", summaryCSVHeader); err != nil {
		return errors.Wrapf(err, "cannot write summary header to %s", fileName)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(m.rows); err != nil {
		return errors.Wrapf(err, "cannot write summary to %s", fileName)
	}
	log.Info().Str("file", fileName).Int("rows", len(m.rows)).Msg("summary written")
	return nil
}

func analyzeResults(folder string) error {
	files, err := filepath.Glob(filepath.Join(folder, "*.csv"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	var analyzers []resultsAnalyzer
	for _, name := range analyzeMetrics {
		kind, err := metrics.ParseKind(name)
		if err != nil {
			return err
		}
		analyzers = append(analyzers, newMetricAnalyzer(kind))
	}

	for _, file := range files {
		log.Info().Str("file", file).Msg("Analyzing")
		t, err := bench.Load(file)
		if err != nil {
			if errors.Is(err, bench.ErrMissingColumn) {
				log.Warn().Err(err).Str("file", file).Msg("skipping, not a results file")
				continue
			}
			return err
		}
		for _, a := range analyzers {
			if err := a.Analyze(file, t); err != nil {
				return errors.Wrapf(err, "analyzing %s", file)
			}
		}
	}

	for _, a := range analyzers {
		if err := a.Close(); err != nil {
			return err
		}
	}
	return nil
}
