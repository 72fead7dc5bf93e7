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
	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/sheets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var spreadsheetID string
var sheetRange string
var withHeader bool
var sheetsConfig sheets.Config

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <file.csv>",
	Short: "Appends a CSV file to a Google spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishFile(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "ID of the spreadsheet to append to")
	publishCmd.Flags().StringVar(&sheetRange, "range", "", "range to append to, e.g. Speedup!A:D")
	publishCmd.Flags().BoolVar(&withHeader, "with-header", false, "append the header row too")
	publishCmd.Flags().StringVar(&sheetsConfig.CredentialsFile, "credentials", sheets.DefaultCredentialsFile,
		"OAuth client secret file")
	publishCmd.Flags().StringVar(&sheetsConfig.TokenFile, "token", sheets.DefaultTokenFile,
		"cached OAuth token file")
	_ = publishCmd.MarkFlagRequired("spreadsheet")
	_ = publishCmd.MarkFlagRequired("range")
}

func publishFile(ctx context.Context, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := sheets.ReadRecords(file, withHeader)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.Newf("%s has no rows to publish", file)
	}
	srv, err := sheets.NewService(ctx, sheetsConfig)
	if err != nil {
		return err
	}
	resp, err := sheets.Append(ctx, srv, spreadsheetID, sheetRange, records)
	if err != nil {
		return err
	}
	log.Info().Str("file", file).Str("range", resp.TableRange).Int("rows", len(records)).Msg("published")
	return nil
}
