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
	"fmt"
	"os"
	"strings"

	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/cockroachlabs/scaling-report/internal/chart"
	"github.com/cockroachlabs/scaling-report/internal/cluster"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clusterNodes int
var clusterWPN int
var clusterN int
var clusterTile int
var clusterOut string

// clusterCmd groups the cluster comparisons.
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Compares cluster runs across problem sizes and node counts",
	Long: `Builds comparison tables from the dataset of a cluster experiment,
one CSV file per problem size and node count.`,
}

// clusterOp is one comparison. Its table is plotted as one series per
// column starting with prefix, against axis.
type clusterOp struct {
	use    string
	short  string
	axis   string
	prefix string
	ylabel string
	build  func(a *cluster.Aggregator) (*bench.Table, error)
}

var clusterOps = []clusterOp{
	{
		use:    "sizes",
		short:  "Time per problem size at a fixed node count",
		axis:   bench.ColN,
		prefix: bench.ColTime,
		ylabel: "Time (ms)",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.CompareOverSizes(clusterNodes, clusterWPN, clusterTile)
		},
	},
	{
		use:    "nodes",
		short:  "Time per node count at a fixed problem size",
		axis:   bench.ColWorkers,
		prefix: bench.ColTime,
		ylabel: "Time (ms)",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.CompareOverNodes(clusterN, clusterWPN, clusterTile)
		},
	},
	{
		use:    "fixed-nodes",
		short:  "Time per worker count for every problem size at a fixed node count",
		axis:   bench.ColWorkers,
		prefix: "time_",
		ylabel: "Time (ms)",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.CompareOverFixedNodes(clusterNodes, clusterTile)
		},
	},
	{
		use:    "scalability-wpn",
		short:  "Scalability and efficiency over node counts at fixed workers per node",
		axis:   bench.ColWorkers,
		prefix: "scalability_",
		ylabel: "Scalability",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.ScalabilityOverSizesFixedWPN(clusterWPN, clusterTile)
		},
	},
	{
		use:    "scalability-nodes",
		short:  "Scalability and efficiency over worker counts at a fixed node count",
		axis:   bench.ColWorkers,
		prefix: "scalability_",
		ylabel: "Scalability",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.ScalabilityOverSizesFixedNodes(clusterNodes, clusterTile)
		},
	},
	{
		use:    "weak",
		short:  "Weak scalability over the weak pairs of the plan",
		axis:   bench.ColN,
		prefix: cluster.ColScalability,
		ylabel: "Time / workers²",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.WeakScalability(clusterWPN, clusterTile)
		},
	},
	{
		use:    "weak-comparison",
		short:  "Weak scalability for every workers-per-node value",
		axis:   bench.ColN,
		prefix: "scalability_",
		ylabel: "Time / workers²",
		build: func(a *cluster.Aggregator) (*bench.Table, error) {
			return a.WeakScalabilityComparison(clusterTile)
		},
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.PersistentFlags().String("data-dir", ".", "directory holding the cluster dataset")
	clusterCmd.PersistentFlags().String("pattern", cluster.DefaultPattern,
		"dataset file name template, with {{.N}} and {{.Nodes}}")
	clusterCmd.PersistentFlags().IntVar(&clusterNodes, "nodes", 1, "node count")
	clusterCmd.PersistentFlags().IntVar(&clusterWPN, "wpn", 1, "workers per node")
	clusterCmd.PersistentFlags().IntVar(&clusterN, "n", 1000, "problem size")
	clusterCmd.PersistentFlags().IntVar(&clusterTile, "tile-size", 1, "tile size")
	clusterCmd.PersistentFlags().StringVar(&clusterOut, "out", "",
		"CSV output path (default: <output-dir>/<report-version>/results/cluster/<command>.csv)")
	_ = viper.BindPFlag("dataDir", clusterCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("filePattern", clusterCmd.PersistentFlags().Lookup("pattern"))

	for _, op := range clusterOps {
		op := op
		cmd := &cobra.Command{
			Use:   op.use,
			Short: op.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runClusterOp(op)
			},
		}
		addChartFlags(cmd)
		clusterCmd.AddCommand(cmd)
	}
}

func newAggregator() (*cluster.Aggregator, error) {
	plan, err := loadPlan()
	if err != nil {
		return nil, err
	}
	src, err := cluster.NewDirSource(viper.GetString("dataDir"), viper.GetString("filePattern"))
	if err != nil {
		return nil, err
	}
	return cluster.New(src, plan), nil
}

func seriesColumns(t *bench.Table, axis, prefix string) []string {
	return seriesColumnsOf(t.Columns(), axis, prefix)
}

func seriesColumnsOf(columns []string, axis, prefix string) []string {
	var cols []string
	for _, col := range columns {
		if col != axis && strings.HasPrefix(col, prefix) {
			cols = append(cols, col)
		}
	}
	return cols
}

func writeTable(t *bench.Table, path string) (err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return t.WriteCSV(f)
}

func runClusterOp(op clusterOp) error {
	a, err := newAggregator()
	if err != nil {
		return err
	}
	log.Info().Str("dir", viper.GetString("dataDir")).Str("comparison", op.use).Msg("Analyzing")
	t, err := op.build(a)
	if err != nil {
		return err
	}
	if err := t.Fprint(os.Stdout); err != nil {
		return err
	}

	out := clusterOut
	if out == "" {
		if out, err = ResultsFile(fmt.Sprintf("%s.csv", op.use), "cluster"); err != nil {
			return err
		}
	}
	if err := writeTable(t, out); err != nil {
		return err
	}
	log.Info().Str("file", out).Msg("results written")

	if chartPath == "" && !chartShow {
		return nil
	}
	series, err := chart.FromWide(t, op.axis, seriesColumns(t, op.axis, op.prefix)...)
	if err != nil {
		return err
	}
	xlabel := "Number of workers"
	if op.axis == bench.ColN {
		xlabel = "Problem size"
	}
	opts, err := chartOptions(op.short, xlabel, op.ylabel)
	if err != nil {
		return err
	}
	return drawChart(series, opts)
}
