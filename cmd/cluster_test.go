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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeriesColumns(t *testing.T) {
	assert.Equal(t, []string{"time_1000", "time_2000"},
		seriesColumnsOf([]string{"nworkers", "time_1000", "time_2000", "scalability_1000"}, "nworkers", "time_"))
}
