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

import "github.com/cockroachdb/errors"

// WeakPair matches a problem size with the node count it runs on in the
// weak scalability series.
type WeakPair struct {
	Size  int `mapstructure:"size"`
	Nodes int `mapstructure:"nodes"`
}

// Plan is the closed set of experiments that make up a cluster run. Every
// combination it names must have a dataset file.
type Plan struct {
	Sizes          []int      `mapstructure:"sizes"`
	Nodes          []int      `mapstructure:"nodes"`
	WorkersPerNode []int      `mapstructure:"workersPerNode"`
	WeakPairs      []WeakPair `mapstructure:"weakPairs"`
}

// DefaultPlan returns the plan of the reference cluster experiment.
func DefaultPlan() Plan {
	return Plan{
		Sizes:          []int{1000, 2000, 4000, 6000, 8000, 10000},
		Nodes:          []int{1, 2, 4, 8},
		WorkersPerNode: []int{1, 2, 4, 8},
		WeakPairs: []WeakPair{
			{Size: 1000, Nodes: 1},
			{Size: 2000, Nodes: 2},
			{Size: 4000, Nodes: 4},
			{Size: 8000, Nodes: 8},
		},
	}
}

// WithDefaults fills the empty sets of p from DefaultPlan.
func (p Plan) WithDefaults() Plan {
	d := DefaultPlan()
	if len(p.Sizes) == 0 {
		p.Sizes = d.Sizes
	}
	if len(p.Nodes) == 0 {
		p.Nodes = d.Nodes
	}
	if len(p.WorkersPerNode) == 0 {
		p.WorkersPerNode = d.WorkersPerNode
	}
	if len(p.WeakPairs) == 0 {
		p.WeakPairs = d.WeakPairs
	}
	return p
}

// Validate checks that every count in p is positive.
func (p Plan) Validate() error {
	check := func(what string, vals []int) error {
		for _, v := range vals {
			if v <= 0 {
				return errors.Newf("%s must be positive, got %d", what, v)
			}
		}
		return nil
	}
	if err := check("sizes", p.Sizes); err != nil {
		return err
	}
	if err := check("nodes", p.Nodes); err != nil {
		return err
	}
	if err := check("workers per node", p.WorkersPerNode); err != nil {
		return err
	}
	for _, wp := range p.WeakPairs {
		if wp.Size <= 0 || wp.Nodes <= 0 {
			return errors.Newf("invalid weak pair %d:%d", wp.Size, wp.Nodes)
		}
	}
	return nil
}
