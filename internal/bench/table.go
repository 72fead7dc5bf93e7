// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package bench holds benchmark measurements produced by the experiment
// harness as immutable tables.
//
// Tables coming from different harnesses do not share a schema: some lack
// a policy column, most lack chunkSize. Callers are expected to ask Has
// before relying on an optional column, and Filter and Drop skip absent
// columns on their own.
package bench

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/table"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// Column names written by the harness.
const (
	ColN         = "N"
	ColTileSize  = "tileSize"
	ColPolicy    = "policy"
	ColChunkSize = "chunkSize"
	ColWorkers   = "nworkers"
	ColTime      = "time"
	ColNodes     = "nnodes"
	ColChecksum  = "checksum"
	ColMPITime   = "MPITime"
)

// intColumns are kept as []int; every other numeric column is []float64.
var intColumns = map[string]bool{
	ColN:         true,
	ColTileSize:  true,
	ColPolicy:    true,
	ColChunkSize: true,
	ColWorkers:   true,
	ColNodes:     true,
}

// RequiredColumns must be present in every table read from disk.
var RequiredColumns = []string{ColN, ColWorkers, ColTime}

// ErrMissingColumn is returned when a column that an operation cannot do
// without is absent.
var ErrMissingColumn = errors.New("missing column")

// Table is an immutable table of benchmark records. The zero value and
// nil are both the empty table. Every method returning a *Table returns a
// new value and leaves the receiver untouched.
type Table struct {
	t *table.Table
}

// New wraps t. Integer key columns are converted to []int and all other
// numeric columns to []float64.
func New(t *table.Table) *Table {
	if t == nil {
		return &Table{t: new(table.Table)}
	}
	return &Table{t: normalize(t)}
}

func (t *Table) raw() *table.Table {
	if t == nil || t.t == nil {
		return new(table.Table)
	}
	return t.t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.raw().Len()
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.raw().Columns()...)
}

// Has reports whether t has column col.
func (t *Table) Has(col string) bool {
	return t.raw().Column(col) != nil
}

func missing(col string) error {
	return errors.Mark(errors.Newf("column %q not found", col), ErrMissingColumn)
}

// Ints returns a copy of integer column col.
func (t *Table) Ints(col string) ([]int, error) {
	switch c := t.raw().Column(col).(type) {
	case nil:
		return nil, missing(col)
	case []int:
		return append([]int(nil), c...), nil
	case []float64:
		out := make([]int, len(c))
		for i, v := range c {
			out[i] = int(v)
		}
		return out, nil
	default:
		return nil, errors.Newf("column %q is not numeric", col)
	}
}

// Floats returns a copy of numeric column col as float64 values.
func (t *Table) Floats(col string) ([]float64, error) {
	switch c := t.raw().Column(col).(type) {
	case nil:
		return nil, missing(col)
	case []float64:
		return append([]float64(nil), c...), nil
	case []int:
		out := make([]float64, len(c))
		for i, v := range c {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, errors.Newf("column %q is not numeric", col)
	}
}

// Cond is a row predicate on one integer column.
type Cond struct {
	Col   string
	desc  string
	match func(int) bool
}

func (c Cond) String() string {
	return c.Col + c.desc
}

// Eq matches rows where col == v.
func Eq(col string, v int) Cond {
	return Cond{Col: col, desc: fmt.Sprintf("==%d", v), match: func(x int) bool { return x == v }}
}

// Gt matches rows where col > v.
func Gt(col string, v int) Cond {
	return Cond{Col: col, desc: fmt.Sprintf(">%d", v), match: func(x int) bool { return x > v }}
}

// Ne matches rows where col != v.
func Ne(col string, v int) Cond {
	return Cond{Col: col, desc: fmt.Sprintf("!=%d", v), match: func(x int) bool { return x != v }}
}

// Filter returns the rows matching all conds. A condition on a column
// that t does not have is skipped.
func (t *Table) Filter(conds ...Cond) (*Table, error) {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	for _, c := range conds {
		if !t.Has(c.Col) {
			log.Debug().Str("cond", c.String()).Msg("column absent, condition skipped")
			continue
		}
		vals, err := t.Ints(c.Col)
		if err != nil {
			return nil, errors.Wrapf(err, "filtering on %s", c)
		}
		kept := rows[:0]
		for _, r := range rows {
			if c.match(vals[r]) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	return t.Select(rows), nil
}

// Select returns the rows at the given indexes, in that order.
func (t *Table) Select(rows []int) *Table {
	src := t.raw()
	var b table.Builder
	for _, col := range src.Columns() {
		b.Add(col, slice.Select(src.Column(col), rows))
	}
	return &Table{t: b.Done()}
}

// Drop removes the named columns that are present and ignores the rest.
func (t *Table) Drop(cols ...string) *Table {
	b := table.NewBuilder(t.raw())
	for _, col := range cols {
		if b.Has(col) {
			b.Add(col, nil)
		}
	}
	return &Table{t: b.Done()}
}

// Keep returns only the named columns, in the given order.
func (t *Table) Keep(cols ...string) (*Table, error) {
	src := t.raw()
	var b table.Builder
	for _, col := range cols {
		data := src.Column(col)
		if data == nil {
			return nil, missing(col)
		}
		b.Add(col, data)
	}
	return &Table{t: b.Done()}, nil
}

// With returns t with column col set to data, replacing any existing
// column of that name. data must be a slice with one element per row.
func (t *Table) With(col string, data table.Slice) (*Table, error) {
	src := t.raw()
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return nil, errors.Newf("column %q: %T is not a slice", col, data)
	}
	if len(src.Columns()) > 0 && rv.Len() != src.Len() {
		return nil, errors.Newf("column %q has %d values, table has %d rows", col, rv.Len(), src.Len())
	}
	return &Table{t: table.NewBuilder(src).Add(col, data).Done()}, nil
}

// SortBy returns t sorted by the named columns. Absent columns are
// ignored.
func (t *Table) SortBy(cols ...string) *Table {
	var present []string
	for _, col := range cols {
		if t.Has(col) {
			present = append(present, col)
		}
	}
	if len(present) == 0 || t.Len() == 0 {
		return t
	}
	return &Table{t: table.Flatten(table.SortBy(t.raw(), present...))}
}

// Pivot turns the distinct values of string column label into columns
// holding the matching values of column value. Rows are grouped by the
// remaining columns. Cells with no input row hold the zero value.
func (t *Table) Pivot(label, value string) (*Table, error) {
	src := t.raw()
	if _, ok := src.Column(label).([]string); !ok {
		return nil, errors.Newf("pivot label %q must be a string column", label)
	}
	if !t.Has(value) {
		return nil, missing(value)
	}
	if src.Len() == 0 {
		return t.Drop(label, value), nil
	}
	return &Table{t: table.Flatten(table.Pivot(src, label, value))}, nil
}

// Concat returns the rows of all ts in order. Tables without columns are
// ignored; all others must share the same column set. A column whose type
// differs between inputs is accepted only when the odd ones out are empty.
func Concat(ts ...*Table) (*Table, error) {
	var parts []*table.Table
	for _, t := range ts {
		if r := t.raw(); len(r.Columns()) > 0 {
			parts = append(parts, r)
		}
	}
	switch len(parts) {
	case 0:
		return New(nil), nil
	case 1:
		return &Table{t: parts[0]}, nil
	}

	cols := parts[0].Columns()
	for i, p := range parts[1:] {
		if len(p.Columns()) != len(cols) {
			return nil, errors.Newf("cannot concatenate tables 0 and %d: columns %q vs %q", i+1, cols, p.Columns())
		}
		for _, col := range cols {
			if p.Column(col) == nil {
				return nil, errors.Newf("cannot concatenate tables 0 and %d: %q missing", i+1, col)
			}
		}
	}

	var b table.Builder
	for _, col := range cols {
		var typ reflect.Type
		var seqs []slice.T
		for _, p := range parts {
			if p.Len() == 0 {
				continue
			}
			seq := p.Column(col)
			if typ == nil {
				typ = reflect.TypeOf(seq)
			} else if reflect.TypeOf(seq) != typ {
				return nil, errors.Newf("column %q has mismatched types %s and %T", col, typ, seq)
			}
			seqs = append(seqs, seq)
		}
		if len(seqs) == 0 {
			b.Add(col, parts[0].Column(col))
			continue
		}
		b.Add(col, slice.Concat(seqs...))
	}
	return &Table{t: b.Done()}, nil
}

// Records renders t as a header and string rows. Floats use the shortest
// representation; NaN is an empty cell.
func (t *Table) Records() ([]string, [][]string) {
	src := t.raw()
	header := t.Columns()
	rows := make([][]string, src.Len())
	for i := range rows {
		rows[i] = make([]string, len(header))
	}
	for j, col := range header {
		switch c := src.Column(col).(type) {
		case []int:
			for i, v := range c {
				rows[i][j] = strconv.Itoa(v)
			}
		case []float64:
			for i, v := range c {
				rows[i][j] = FormatFloat(v)
			}
		case []string:
			for i, v := range c {
				rows[i][j] = v
			}
		default:
			rv := reflect.ValueOf(c)
			for i := 0; i < rv.Len(); i++ {
				rows[i][j] = fmt.Sprint(rv.Index(i).Interface())
			}
		}
	}
	return header, rows
}

// FormatFloat formats v for CSV output.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Fprint writes t as an aligned text table.
func (t *Table) Fprint(w io.Writer) error {
	src := t.raw()
	formats := make([]string, len(src.Columns()))
	for i, col := range src.Columns() {
		formats[i] = "%v"
		if _, ok := src.Column(col).([]float64); ok {
			formats[i] = "%.6g"
		}
	}
	return table.Fprint(w, src, formats...)
}

func normalize(t *table.Table) *table.Table {
	var b table.Builder
	for _, col := range t.Columns() {
		data := t.Column(col)
		if intColumns[col] {
			b.Add(col, toInts(data))
		} else {
			b.Add(col, toFloats(data))
		}
	}
	return b.Done()
}

func toInts(data table.Slice) table.Slice {
	switch c := data.(type) {
	case []float64:
		out := make([]int, len(c))
		for i, v := range c {
			out[i] = int(v)
		}
		return out
	case []string:
		if len(c) == 0 {
			return []int{}
		}
		if vals, ok := parseFloats(c); ok {
			out := make([]int, len(vals))
			for i, v := range vals {
				if math.IsNaN(v) {
					return data
				}
				out[i] = int(v)
			}
			return out
		}
	}
	return data
}

func toFloats(data table.Slice) table.Slice {
	switch c := data.(type) {
	case []int:
		out := make([]float64, len(c))
		for i, v := range c {
			out[i] = float64(v)
		}
		return out
	case []string:
		if len(c) == 0 {
			return []float64{}
		}
		if vals, ok := parseFloats(c); ok {
			return vals
		}
	}
	return data
}

// parseFloats parses a column with empty cells, which read back as NaN.
// A column with no value at all is left alone.
func parseFloats(c []string) ([]float64, bool) {
	out := make([]float64, len(c))
	seen := false
	for i, v := range c {
		if v == "" {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
		seen = true
	}
	return out, seen
}
