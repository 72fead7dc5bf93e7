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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundSignificant(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{0.0001234, 0.0001234},
		{1234.5678, 1235},
		{0, 0},
		{-1234.5678, -1235},
		{12345678, 12350000},
		{1.818181818, 1.818},
		{100, 100},
	} {
		assert.Equal(t, tc.want, RoundSignificant(tc.in, 4), "%v", tc.in)
	}
	// Ties go to the even neighbour.
	assert.Equal(t, 2.0, RoundSignificant(2.5, 1))
	assert.Equal(t, 4.0, RoundSignificant(3.5, 1))
	assert.True(t, math.IsNaN(RoundSignificant(math.NaN(), 4)))
	assert.True(t, math.IsInf(RoundSignificant(math.Inf(1), 4), 1))
}

func TestExport(t *testing.T) {
	raw := parse(t, wavefront)
	key := NewKey(1000, 4, 1)
	sp, err := Speedup(raw, key, Options{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	path, err := Export(dir, "results", KindSpeedup, key, sp, DefaultDigits)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results_speedup_1000_1_4_1.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nworkers,time,speedup\n1,100,1\n2,55,1.818\n4,25,4\n", string(data))

	// The exported table is rounded, the derived one is not.
	vals := floats(t, sp, ColSpeedup)
	assert.Equal(t, 100.0/55, vals[1])
}

func TestExportUndefined(t *testing.T) {
	raw := parse(t, wavefront)
	key := NewKey(4000, 4, 1)
	ss, err := StrongScalability(raw, key)
	require.NoError(t, err)

	path, err := Export(t.TempDir(), "results", KindStrongScalability, key, ss, DefaultDigits)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nworkers,time,strong_scalability\n4,440,\n", string(data))
}

func TestExportName(t *testing.T) {
	key := NewKey(2000, 8, ChunkedPolicy)
	key.ChunkSize = 16
	assert.Equal(t, "wf_efficiency_2000_3_8_16.csv", ExportName("wf", KindEfficiency, key))
}
