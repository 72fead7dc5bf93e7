// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package sheets

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

func TestValues(t *testing.T) {
	got := Values([][]string{{"nworkers", "speedup"}, {"2", "1.818"}})
	assert.Equal(t, [][]interface{}{{"nworkers", "speedup"}, {"2", "1.818"}}, got)
	assert.Empty(t, Values(nil))
}

func TestReadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speedup.csv")
	require.NoError(t, os.WriteFile(path, []byte("nworkers,speedup\n1,1\n2,1.818\n"), 0644))

	rows, err := ReadRecords(path, false)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "1"}, {"2", "1.818"}}, rows)

	rows, err = ReadRecords(path, true)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = ReadRecords(filepath.Join(t.TempDir(), "nope.csv"), false)
	assert.Error(t, err)
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Unix(1600000000, 0).UTC()}
	require.NoError(t, saveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestNewServiceMissingCredentials(t *testing.T) {
	_, err := NewService(context.Background(), Config{
		CredentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client secret")
}

func TestAppend(t *testing.T) {
	var got sheets.ValueRange
	var path, inputOption string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		inputOption = r.URL.Query().Get("valueInputOption")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-id","tableRange":"Speedup!A1:B3"}`))
	}))
	defer ts.Close()

	ctx := context.Background()
	srv, err := sheets.NewService(ctx, option.WithEndpoint(ts.URL+"/"), option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	resp, err := Append(ctx, srv, "sheet-id", "Speedup!A:B", [][]string{{"2", "1.818"}, {"4", "3.5"}})
	require.NoError(t, err)
	assert.Equal(t, "Speedup!A1:B3", resp.TableRange)

	assert.True(t, strings.HasPrefix(path, "/v4/spreadsheets/sheet-id/values/"), path)
	assert.True(t, strings.HasSuffix(path, ":append"), path)
	assert.Equal(t, "RAW", inputOption)
	assert.Equal(t, "ROWS", got.MajorDimension)
	assert.Equal(t, [][]interface{}{{"2", "1.818"}, {"4", "3.5"}}, got.Values)
}
