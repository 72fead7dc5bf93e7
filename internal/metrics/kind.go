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
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind names a derived metric.
type Kind int

const (
	KindSpeedup Kind = iota
	KindStrongScalability
	KindWeakScalability
	KindQuadraticWeakScalability
	KindEfficiency
)

// Kinds lists every metric kind.
var Kinds = []Kind{
	KindSpeedup,
	KindStrongScalability,
	KindWeakScalability,
	KindQuadraticWeakScalability,
	KindEfficiency,
}

var kindNames = map[Kind]string{
	KindSpeedup:                  "speedup",
	KindStrongScalability:        "strong_scalability",
	KindWeakScalability:          "weak_scalability",
	KindQuadraticWeakScalability: "quadratic_weak_scalability",
	KindEfficiency:               "efficiency",
}

var kindAliases = map[string]Kind{
	"strong": KindStrongScalability,
	"weak":   KindWeakScalability,
	"qweak":  KindQuadraticWeakScalability,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind accepts the metric name or its short alias.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return 0, errors.Newf("unknown metric %q", s)
}

// Column is the derived column plotted for k. The quadratic walk reports
// its ratio in the weak_scalability column.
func (k Kind) Column() string {
	switch k {
	case KindSpeedup:
		return ColSpeedup
	case KindStrongScalability:
		return ColStrongScalability
	case KindEfficiency:
		return ColEfficiency
	}
	return ColWeakScalability
}

// Label is a human readable axis label for k.
func (k Kind) Label() string {
	switch k {
	case KindSpeedup:
		return "Speedup"
	case KindStrongScalability:
		return "Strong scalability"
	case KindWeakScalability:
		return "Weak scalability"
	case KindQuadraticWeakScalability:
		return "Quadratic weak scalability"
	case KindEfficiency:
		return "Efficiency (%)"
	}
	return k.String()
}
