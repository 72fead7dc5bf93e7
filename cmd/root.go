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
	"path"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/cluster"
	"github.com/cockroachlabs/scaling-report/internal/metrics"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SCALING_REPORT"

var cfgFile string
var cfgErr error
var logLevel string
var reportVersion string
var baseOutputDir string

func makeAllDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ResultsFile returns the path of fname under the results directory of
// the current report, creating the directories on the way.
func ResultsFile(fname string, subdirs ...string) (string, error) {
	pieces := append([]string{baseOutputDir, reportVersion, "results"}, subdirs...)
	p := path.Join(pieces...)
	if err := makeAllDirs(p); err != nil {
		return "", err
	}
	return filepath.Join(p, fname), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scaling-report",
	Short: "Derives speedup and scalability reports from benchmark results",
	Long: `Post-processes the CSV files written by the parallel benchmark harness:
derives speedup, strong and weak scalability and efficiency, compares
cluster runs across sizes and node counts, and renders charts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		if cfgErr != nil {
			return cfgErr
		}
		if f := viper.ConfigFileUsed(); f != "" {
			log.Debug().Str("file", f).Msg("using config file")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.scaling-report.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&reportVersion, "report-version", "r",
		time.Now().Format("20060102"), "subdirectory for report data")
	rootCmd.PersistentFlags().StringVarP(&baseOutputDir, "output-dir", "o",
		"./report-data", "directory to emit results and scripts")

	plan := cluster.DefaultPlan()
	viper.SetDefault("dataDir", ".")
	viper.SetDefault("filePattern", cluster.DefaultPattern)
	viper.SetDefault("sizes", plan.Sizes)
	viper.SetDefault("nodes", plan.Nodes)
	viper.SetDefault("workersPerNode", plan.WorkersPerNode)
	viper.SetDefault("weakPairs", plan.WeakPairs)
	viper.SetDefault("maxN", metrics.DefaultMaxN)
	viper.SetDefault("digits", metrics.DefaultDigits)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			cfgErr = err
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".scaling-report")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			cfgErr = errors.Wrapf(err, "error reading config")
		}
	}
}

func setupLogging() error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", logLevel)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return nil
}

// loadPlan returns the cluster plan from the configuration.
func loadPlan() (cluster.Plan, error) {
	var p cluster.Plan
	if err := viper.Unmarshal(&p); err != nil {
		return p, errors.Wrap(err, "invalid cluster plan")
	}
	p = p.WithDefaults()
	return p, p.Validate()
}
