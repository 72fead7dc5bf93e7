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
	"os/exec"
	"runtime"

	"github.com/cockroachdb/errors"
)

// viewerCommand returns the command opening file in the platform viewer.
func viewerCommand(goos, file string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{file}
	case "windows":
		return "cmd", []string{"/c", "start", "", file}
	}
	return "xdg-open", []string{file}
}

// showImage opens file without waiting for the viewer to exit.
func showImage(file string) error {
	name, args := viewerCommand(runtime.GOOS, file)
	if err := exec.Command(name, args...).Start(); err != nil {
		return errors.Wrapf(err, "cannot open %s with %s", file, name)
	}
	return nil
}
