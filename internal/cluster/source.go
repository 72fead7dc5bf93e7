// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package cluster

import (
	"bytes"
	"path/filepath"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	"github.com/cockroachlabs/scaling-report/internal/bench"
	"github.com/rs/zerolog/log"
)

// DefaultPattern names the file holding the runs of one problem size on
// one node count.
const DefaultPattern = "output_results_mpi_spmcluster_{{.N}}size_{{.Nodes}}nodes.csv"

// ErrMissingFile marks a dataset file that the plan expects but that does
// not exist.
var ErrMissingFile = errors.New("missing dataset file")

// Source provides the raw table of one (size, nodes) experiment.
type Source interface {
	Load(size, nodes int) (*bench.Table, error)
}

// DirSource loads datasets from CSV files in a directory.
type DirSource struct {
	Dir     string
	pattern *template.Template
}

// NewDirSource returns a source reading files named by pattern, a
// text/template executed with .N and .Nodes.
func NewDirSource(dir, pattern string) (*DirSource, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	tmpl, err := template.New("dataset").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file pattern %q", pattern)
	}
	return &DirSource{Dir: dir, pattern: tmpl}, nil
}

// Path returns the file holding the (size, nodes) experiment.
func (s *DirSource) Path(size, nodes int) (string, error) {
	var buf bytes.Buffer
	err := s.pattern.Execute(&buf, struct{ N, Nodes int }{size, nodes})
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, buf.String()), nil
}

// Load implements Source.
func (s *DirSource) Load(size, nodes int) (*bench.Table, error) {
	path, err := s.Path(size, nodes)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("file", path).Msg("loading dataset")
	t, err := bench.Load(path)
	if err != nil {
		if oserror.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "size %d on %d nodes", size, nodes), ErrMissingFile)
		}
		return nil, err
	}
	return t, nil
}
