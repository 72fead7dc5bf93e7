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
	"bytes"
	"io"
	"os"
	"path"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/cluster"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var harness string
var hostfile string
var tileSizes []int
var scriptName string

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generates the driver script running the cluster experiment plan.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan()
		if err != nil {
			return err
		}
		return generateDriverScript(plan)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&harness, "harness", "./UTWBPWMPI",
		"MPI benchmark binary, invoked as <harness> N tileSize policy")
	generateCmd.Flags().StringVar(&hostfile, "hostfile", "hosts", "mpirun host file")
	generateCmd.Flags().IntSliceVar(&tileSizes, "tile-sizes", []int{1}, "tile sizes to run")
	generateCmd.Flags().StringVar(&scriptName, "script", "cluster.sh", "name of the generated script")
}

// harnessOutput is the file the harness appends its CSV rows to.
const harnessOutput = "output_results_mpi.txt"

const harnessHeader = "N,policy,nworkers,tileSize,MPITime,time"

type runData struct {
	Size     int
	Nodes    int
	WPN      int
	Workers  int
	TileSize int
}

type datasetData struct {
	Size  int
	Nodes int
	File  string
	// Sequential is set on the one node dataset, which also holds the
	// sequential baseline.
	Sequential bool
	Runs       []runData
}

type scriptData struct {
	Harness  string
	Hostfile string
	Output   string
	Header   string
	DataDir  string
	Datasets []datasetData
}

const driverTemplate = `#!/bin/bash

HARNESS="{{.Harness}}"
HOSTFILE="{{.Hostfile}}"
DATA_DIR="{{.DataDir}}"

set -ex
scriptName=$(basename ${0%.*})
logdir="$(dirname $0)/../logs/${scriptName}"
mkdir -p "$logdir" "$DATA_DIR"

# Redirect stdout and stderr into script log file
exec &> >(tee -a "$logdir/driver.log")

# Run one configuration; the harness appends a row to {{.Output}}.
function run() {
  local wpn=$1 workers=$2
  shift 2
  mpirun -np "$workers" --hostfile "$HOSTFILE" --map-by "ppr:${wpn}:node" "$HARNESS" "$@"
}
{{range .Datasets}}
# {{.Size}} size on {{.Nodes}} nodes
rm -f "{{$.Output}}"
echo "{{$.Header}}" > "{{$.Output}}"
{{- if .Sequential}}
run 1 1 {{.Size}} 1 0
{{- end}}
{{- range .Runs}}
run {{.WPN}} {{.Workers}} {{.Size}} {{.TileSize}} 1
{{- end}}
mv "{{$.Output}}" "$DATA_DIR/{{.File}}"
{{end}}`

// driverScript renders the driver for plan.
func driverScript(w io.Writer, plan cluster.Plan, src *cluster.DirSource, tiles []int) error {
	data := scriptData{
		Harness:  harness,
		Hostfile: hostfile,
		Output:   harnessOutput,
		Header:   harnessHeader,
		DataDir:  src.Dir,
	}
	for _, size := range plan.Sizes {
		for _, nodes := range plan.Nodes {
			p, err := src.Path(size, nodes)
			if err != nil {
				return err
			}
			ds := datasetData{
				Size:       size,
				Nodes:      nodes,
				File:       path.Base(p),
				Sequential: nodes == 1,
			}
			for _, wpn := range plan.WorkersPerNode {
				for _, tile := range tiles {
					ds.Runs = append(ds.Runs, runData{
						Size:     size,
						Nodes:    nodes,
						WPN:      wpn,
						Workers:  nodes * wpn,
						TileSize: tile,
					})
				}
			}
			data.Datasets = append(data.Datasets, ds)
		}
	}
	// Single worker runs for every tile size, used as the baseline of the
	// node comparisons.
	for i := range data.Datasets {
		ds := &data.Datasets[i]
		if !ds.Sequential {
			continue
		}
		hasSingle := make(map[int]bool)
		for _, r := range ds.Runs {
			if r.Workers == 1 {
				hasSingle[r.TileSize] = true
			}
		}
		for _, tile := range tiles {
			if !hasSingle[tile] {
				ds.Runs = append([]runData{{Size: ds.Size, Nodes: 1, WPN: 1, Workers: 1, TileSize: tile}}, ds.Runs...)
			}
		}
	}

	scriptTemplate := template.Must(template.New("script").Parse(driverTemplate))
	return scriptTemplate.Execute(w, data)
}

func generateDriverScript(plan cluster.Plan) error {
	src, err := cluster.NewDirSource(viper.GetString("dataDir"), viper.GetString("filePattern"))
	if err != nil {
		return err
	}
	scriptDir := path.Join(baseOutputDir, reportVersion, "scripts")
	if err := makeAllDirs(scriptDir, path.Join(baseOutputDir, reportVersion, "logs")); err != nil {
		return err
	}

	buf := bytes.NewBuffer(nil)
	if err := driverScript(buf, plan, src, tileSizes); err != nil {
		return errors.Wrap(err, "error rendering driver script")
	}
	file := path.Join(scriptDir, scriptName)
	if err := os.WriteFile(file, buf.Bytes(), 0755); err != nil {
		return err
	}
	log.Info().Str("file", file).Int("datasets", len(plan.Sizes)*len(plan.Nodes)).Msg("driver script written")
	return nil
}
