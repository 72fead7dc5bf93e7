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
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean <file>...",
	Short: "Rewrites raw harness output as plain CSV, in place",
	Long: `Keeps the header line and every other line after it, cutting the unit
suffix off each kept line. Diagnostic lines interleaved by the harness are
dropped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, file := range args {
			log.Info().Str("file", file).Msg("Cleaning")
			if err := bench.CleanFile(file); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
