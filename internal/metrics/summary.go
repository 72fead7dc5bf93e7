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
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/cockroachlabs/scaling-report/internal/bench"
)

// Summary condenses one metric column.
type Summary struct {
	Count   int
	Min     float64
	Max     float64
	Mean    float64
	GeoMean float64
}

// Summarize ignores undefined and non-positive values; the geometric mean
// is meaningless for them.
func Summarize(t *bench.Table, col string) (Summary, error) {
	vals, err := t.Floats(col)
	if err != nil {
		return Summary{}, err
	}
	xs := vals[:0]
	for _, v := range vals {
		if v > 0 && !math.IsInf(v, 0) {
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		nan := math.NaN()
		return Summary{Min: nan, Max: nan, Mean: nan, GeoMean: nan}, nil
	}
	s := Summary{Count: len(xs)}
	s.Min, s.Max = stats.Bounds(xs)
	s.Mean = stats.Mean(xs)
	s.GeoMean = stats.GeoMean(xs)
	return s, nil
}
