// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equation

import (
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
)

// CompileError carries the canvas coordinates of the offending node so the
// orchestrator can invoke the diagnostic sink (§6, §7) before propagating.
type CompileError struct {
	Msg  string
	X, Y float64
}

func (e *CompileError) Error() string { return e.Msg }

// operationalEdges builds the adjacency list for the §4.6 phase-1 cycle
// check: wires, plus internal port->port edges for every non-integrate
// operator and every LHS (flow/temp) variable. Integrate contributes no
// internal edge, since it legitimately closes feedback loops through state.
func (n *Network) operationalEdges() map[port.ID][]port.ID {
	adj := make(map[port.ID][]port.ID)
	add := func(from, to port.ID) { adj[from] = append(adj[from], to) }

	for _, w := range n.allWires() {
		add(w.From, w.To)
	}
	for _, node := range n.Ops {
		if node.Kind == op.Integrate {
			continue
		}
		for _, in := range node.InPorts {
			add(in, node.OutPort)
		}
	}
	for _, v := range n.Vars.All() {
		if v.InPort != 0 && v.OutPort != 0 && v.Slot.Kind.IsLHS() {
			add(v.InPort, v.OutPort)
		}
	}
	return adj
}

func (n *Network) allWires() []*port.Wire {
	var out []*port.Wire
	seen := make(map[port.ID]bool)
	for _, node := range n.Ops {
		for _, w := range n.Graph.OutgoingWires(node.OutPort) {
			if !seen[w.ID] {
				seen[w.ID] = true
				out = append(out, w)
			}
		}
	}
	for _, v := range n.Vars.All() {
		if v.OutPort != 0 {
			for _, w := range n.Graph.OutgoingWires(v.OutPort) {
				if !seen[w.ID] {
					seen[w.ID] = true
					out = append(out, w)
				}
			}
		}
	}
	return out
}

// checkAcyclic performs the depth-first traversal of §4.6 phase 1, failing
// with a CompileError carrying the offending node's coordinates if the
// non-integrate subgraph contains a cycle.
func (n *Network) checkAcyclic() error {
	adj := n.operationalEdges()
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[port.ID]int)

	var visit func(p port.ID) error
	visit = func(p port.ID) error {
		color[p] = gray
		for _, next := range adj[p] {
			switch color[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				x, y := n.coordsOfPort(next)
				return &CompileError{Msg: "cyclic network detected", X: x, Y: y}
			}
		}
		color[p] = black
		return nil
	}

	// start from every port that isn't itself an input (i.e. output ports),
	// matching "depth-first traversal from every non-input port".
	for _, node := range n.Ops {
		if color[node.OutPort] == white {
			if err := visit(node.OutPort); err != nil {
				return err
			}
		}
	}
	for _, v := range n.Vars.All() {
		if v.OutPort != 0 && color[v.OutPort] == white {
			if err := visit(v.OutPort); err != nil {
				return err
			}
		}
	}
	return nil
}

// coordsOfPort returns the canvas coordinates of the operator owning p, for
// diagnostic reporting. Ports not owned by an operator (variables carry no
// coordinates) report the origin.
func (n *Network) coordsOfPort(p port.ID) (x, y float64) {
	if node, ok := n.operatorOwning(p); ok {
		return node.X, node.Y
	}
	return 0, 0
}
