// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package equation implements the graph-to-DAG compiler, the evaluator and
// the analytic Jacobian (§4.6, §4.7). Grounded on fem/domain.go's phased
// assembly pipeline and fem/fem.go's staged Run loop.
package equation

import (
	"github.com/hrnd-minsky/simcore/godley"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
	"github.com/hrnd-minsky/simcore/varmgr"
)

// GodleyColumn binds one Godley table column to its stock variable.
type GodleyColumn struct {
	StockName string
	Index     int // 0-based data column index within the table
}

// GodleyModel pairs a parsed Godley table with the per-column stock bindings
// derived from its row-0 headings.
type GodleyModel struct {
	Table   *godley.Table
	Columns []GodleyColumn
	X, Y    float64 // canvas position, for diagnostics
}

// Network is everything the equation compiler consumes: the port/wire
// graph, the operator nodes, the variable manager, and the Godley tables.
// It is the in-memory model the orchestrator (package minsky) owns.
type Network struct {
	Graph   *port.Graph
	Vars    *varmgr.Manager
	Store   *value.Store
	Ops     map[int]*op.Node
	Godleys []*GodleyModel

	nextOpID int
}

// NewNetwork returns an empty network over the given stores.
func NewNetwork(store *value.Store, graph *port.Graph, vars *varmgr.Manager) *Network {
	return &Network{Graph: graph, Vars: vars, Store: store, Ops: make(map[int]*op.Node)}
}

// AddOperator creates a new operator node of kind k and allocates its ports.
func (n *Network) AddOperator(k op.Kind) *op.Node {
	n.nextOpID++
	node := &op.Node{ID: n.nextOpID, Kind: k}
	node.OutPort = n.Graph.AddPort(node, false, false)
	arity := op.Arity(k)
	multi := op.IsFoldable(k)
	for i := 0; i < arity; i++ {
		node.InPorts = append(node.InPorts, n.Graph.AddPort(node, true, multi))
	}
	node.Validate()
	n.Ops[node.ID] = node
	return node
}

// operatorOwning returns the operator node owning p, if p belongs to one.
func (n *Network) operatorOwning(p port.ID) (*op.Node, bool) {
	pp := n.Graph.Port(p)
	if pp == nil {
		return nil, false
	}
	node, ok := pp.Owner.(*op.Node)
	return node, ok
}

// portRole reports which operator (if any) a port belongs to, and whether
// it's that operator's output port.
func (n *Network) portRole(p port.ID) (node *op.Node, isOut bool, ok bool) {
	node, ok = n.operatorOwning(p)
	if !ok {
		return nil, false, false
	}
	return node, node.OutPort == p, true
}

// AddGodleyModel registers a Godley table and derives its column bindings.
func (n *Network) AddGodleyModel(t *godley.Table, x, y float64) *GodleyModel {
	gm := &GodleyModel{Table: t, X: x, Y: y}
	for i, name := range t.ColumnVariables() {
		gm.Columns = append(gm.Columns, GodleyColumn{StockName: name, Index: i})
		n.Store.AddVariable(value.Stock, name)
	}
	n.Godleys = append(n.Godleys, gm)
	return gm
}
