// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package sheets appends CSV results to a Google spreadsheet.
package sheets

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/context"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Default credential locations, relative to the working directory.
const (
	DefaultCredentialsFile = "./credentials.json"
	DefaultTokenFile       = "token.json"
)

// If modifying this scope, delete the previously saved token file.
const scope = "https://www.googleapis.com/auth/spreadsheets"

// Config locates the OAuth client secret and the cached token.
type Config struct {
	CredentialsFile string
	TokenFile       string
	// In and Out carry the interactive authorization prompt; standard
	// input and output when nil.
	In  io.Reader
	Out io.Writer
}

func (c Config) withDefaults() (Config, error) {
	if c.CredentialsFile == "" {
		c.CredentialsFile = DefaultCredentialsFile
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	var err error
	if c.CredentialsFile, err = homedir.Expand(c.CredentialsFile); err != nil {
		return c, err
	}
	if c.TokenFile, err = homedir.Expand(c.TokenFile); err != nil {
		return c, err
	}
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	return c, nil
}

// getClient retrieves a token, saves it, then returns the generated client.
// The token file stores the user's access and refresh tokens and is created
// when the authorization flow completes for the first time.
func getClient(ctx context.Context, config *oauth2.Config, c Config) (*http.Client, error) {
	tok, err := tokenFromFile(c.TokenFile)
	if err != nil {
		if tok, err = tokenFromWeb(ctx, config, c.In, c.Out); err != nil {
			return nil, err
		}
		if err := saveToken(c.TokenFile, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

// tokenFromWeb requests a token from the web.
func tokenFromWeb(
	ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer,
) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return nil, errors.Wrap(err, "unable to read authorization code")
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve token from web")
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path.
func saveToken(path string, token *oauth2.Token) error {
	log.Info().Str("file", path).Msg("saving credential file")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to cache oauth token")
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// NewService returns an authorized Sheets client.
func NewService(ctx context.Context, c Config) (*sheets.Service, error) {
	c, err := c.withDefaults()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read client secret file %s", c.CredentialsFile)
	}
	config, err := google.ConfigFromJSON(b, scope)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse client secret file to config")
	}
	client, err := getClient(ctx, config, c)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve Sheets client")
	}
	return srv, nil
}

// Values converts string records to the cell values the API expects.
func Values(records [][]string) [][]interface{} {
	s := make([][]interface{}, len(records))
	for i, v := range records {
		s[i] = make([]interface{}, len(v))
		for j, w := range v {
			s[i][j] = w
		}
	}
	return s
}

// ReadRecords reads a CSV file, dropping its header row unless
// withHeader is set.
func ReadRecords(path string, withHeader bool) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing %s", path)
	}
	if !withHeader && len(records) > 0 {
		records = records[1:]
	}
	return records, nil
}

// Append inserts records after the last row of ssRange in the spreadsheet.
func Append(
	ctx context.Context, srv *sheets.Service, spreadsheetID, ssRange string, records [][]string,
) (*sheets.AppendValuesResponse, error) {
	vr := sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         Values(records),
	}
	resp, err := srv.Spreadsheets.Values.Append(spreadsheetID, ssRange, &vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "appending %d rows to %s", len(records), ssRange)
	}
	return resp, nil
}
