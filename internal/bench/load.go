// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package bench

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/cockroachdb/errors"
)

// Parse reads a CSV table with a header row. Every required column must
// be present.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}
	return FromRecords(records[0], records[1:])
}

// FromRecords builds a table from a header and string rows, converting
// columns that are entirely numeric.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, errors.Newf("row %d has %d fields, header has %d", i+1, len(row), len(cols))
		}
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	t := New(table.TableFromStrings(cols, rows, true))
	for _, col := range RequiredColumns {
		if !t.Has(col) {
			return nil, missing(col)
		}
	}
	return t, nil
}

// Load reads the CSV file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing %s", path)
	}
	return t, nil
}

// cleanTrim is the number of trailing characters each kept data line
// loses, not counting the line terminator.
const cleanTrim = 2

// Clean rewrites raw harness output as a plain CSV. The harness writes a
// header, then alternates one data line with one diagnostic line; data
// lines end with a unit suffix that is cut off.
func Clean(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)

	first := true
	i := 0
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
			continue
		}
		if i%2 == 0 {
			if len(line) >= cleanTrim {
				line = line[:len(line)-cleanTrim]
			} else {
				line = ""
			}
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		i++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

// CleanFile applies Clean to path in place.
func CleanFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sb strings.Builder
	if err := Clean(strings.NewReader(string(data)), &sb); err != nil {
		return errors.Wrapf(err, "cleaning %s", path)
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// WriteCSV writes t with its header row.
func (t *Table) WriteCSV(w io.Writer) error {
	header, rows := t.Records()
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	// WriteAll flushes.
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
