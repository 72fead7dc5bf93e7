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

func TestViewerCommand(t *testing.T) {
	name, args := viewerCommand("darwin", "a.png")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"a.png"}, args)

	name, args = viewerCommand("windows", "a.png")
	assert.Equal(t, "cmd", name)
	assert.Equal(t, []string{"/c", "start", "", "a.png"}, args)

	name, _ = viewerCommand("linux", "a.png")
	assert.Equal(t, "xdg-open", name)
}
