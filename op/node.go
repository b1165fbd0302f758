// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package op

import (
	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/port"
)

// Node is one operator instance in the graph: its kind, its ports, and the
// kind-specific extra state (constant value/display name, integrate's owned
// variable and coupling state).
type Node struct {
	ID   int
	Kind Kind

	// port layout: OutPort is always present; InPorts has len == Arity(Kind)
	// (for Integrate, a single InPort that receives the integrand).
	OutPort port.ID
	InPorts []port.ID

	// Constant-only.
	ConstValue float64
	DisplayName string

	// Integrate-only: the name of the owned integral variable and whether
	// the operator is coupled to it (§4.10). In the coupled state OutPort
	// equals the variable's own output port; the compiler does not care
	// either way, per the state-machine invariant.
	IntegralVar string
	Coupled     bool

	// Diagnostics (§6): canvas position reported to display_error_item.
	X, Y float64
}

// Validate checks kind-specific invariants that are cheap to assert eagerly
// rather than discover mid-compile.
func (n *Node) Validate() {
	if n.Kind == Constant && n.InPorts != nil {
		chk.Panic("constant operator must have no inputs")
	}
	if n.Kind == Integrate && len(n.InPorts) != 1 {
		chk.Panic("integrate operator must have exactly one input")
	}
}

// EffectiveBodmas returns the BODMAS level to use when rendering this node,
// applying the constant-display-name special case.
func (n *Node) EffectiveBodmas() int {
	if n.Kind == Constant {
		return ConstantBodmas(n.DisplayName)
	}
	return Bodmas(n.Kind)
}

// IsSource reports whether n is a root of the operator-ordering DFS: arity 0
// or Integrate (§4.6 phase 3, GLOSSARY "Source operator").
func (n *Node) IsSource() bool {
	return Arity(n.Kind) == 0 || n.Kind == Integrate
}
