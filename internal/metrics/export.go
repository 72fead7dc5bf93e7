// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package metrics

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachlabs/scaling-report/internal/bench"
)

// DefaultDigits is the number of significant digits kept on export.
const DefaultDigits = 4

// roundedColumns are rounded by Round when present.
var roundedColumns = []string{
	ColSpeedup,
	ColEfficiency,
	ColStrongScalability,
	ColWeakScalability,
	bench.ColTime,
}

// RoundSignificant rounds v to digits significant digits, ties to even.
// Zero, NaN and infinities are returned unchanged.
func RoundSignificant(v float64, digits int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	decimals := digits - int(math.Floor(math.Log10(math.Abs(v)))) - 1
	if decimals >= 0 {
		scale := math.Pow(10, float64(decimals))
		return math.RoundToEven(v*scale) / scale
	}
	scale := math.Pow(10, float64(-decimals))
	return math.RoundToEven(v/scale) * scale
}

// Round returns t with its metric and time columns rounded.
func Round(t *bench.Table, digits int) (*bench.Table, error) {
	for _, col := range roundedColumns {
		if !t.Has(col) {
			continue
		}
		vals, err := t.Floats(col)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = RoundSignificant(v, digits)
		}
		if t, err = t.With(col, vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ExportName is the file name used for a derived table.
func ExportName(base string, kind Kind, key Key) string {
	return fmt.Sprintf("%s_%s_%d_%d_%d_%d.csv", base, kind, key.N, key.Policy, key.TileSize, key.ChunkSize)
}

// Export rounds t and writes it as CSV into dir, returning the file path.
func Export(dir, base string, kind Kind, key Key, t *bench.Table, digits int) (_ string, err error) {
	rounded, err := Round(t, digits)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportName(base, kind, key))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := rounded.WriteCSV(f); err != nil {
		return "", errors.Wrapf(err, "cannot write %s", path)
	}
	return path, nil
}
