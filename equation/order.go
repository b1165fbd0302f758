// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equation

import (
	"sort"

	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
)

// followVariableChain walks forward from a wire landing on an LHS variable's
// input, through that variable's outgoing wires, until it reaches an
// operator's input port (or runs out of wire, or loops back on itself).
func (n *Network) followVariableChain(startVarOut port.ID) []*op.Node {
	var targets []*op.Node
	visited := make(map[port.ID]bool)
	var walk func(out port.ID)
	walk = func(out port.ID) {
		if visited[out] {
			return
		}
		visited[out] = true
		for _, w := range n.Graph.OutgoingWires(out) {
			if node, isOut, ok := n.portRole(w.To); ok && !isOut {
				targets = append(targets, node)
				continue
			}
			if v := n.Vars.GetByPort(w.To); v != nil && v.OutPort != 0 {
				walk(v.OutPort)
			}
		}
	}
	walk(startVarOut)
	return targets
}

// buildComputationGraph builds the operator->operator dependency edges used
// to order evaluation (§4.6 phase 3).
func (n *Network) buildComputationGraph() map[int][]int {
	deps := make(map[int][]int) // op.ID -> ops that must run AFTER it... stored as successors
	addEdge := func(from, to *op.Node) {
		deps[from.ID] = append(deps[from.ID], to.ID)
	}

	for _, w := range n.allWires() {
		fromNode, fromIsOut, fromIsOp := n.portRole(w.From)
		toNode, toIsOut, toIsOp := n.portRole(w.To)
		if fromIsOp && toIsOp && fromIsOut && !toIsOut {
			fromIsInteg := fromNode.Kind == op.Integrate
			toIsInteg := toNode.Kind == op.Integrate
			if fromIsInteg != toIsInteg {
				continue // integrate breaks the dependency
			}
			addEdge(fromNode, toNode)
			continue
		}
		if fromIsOp && fromIsOut {
			if v := n.Vars.GetByPort(w.To); v != nil && v.Slot.Kind.IsLHS() && v.OutPort != 0 {
				for _, target := range n.followVariableChain(v.OutPort) {
					addEdge(fromNode, target)
				}
			}
		}
	}
	return deps
}

// Ordering is the result of phase 3: operators sorted by increasing
// dependency level.
type Ordering struct {
	Sorted []*op.Node
	Level  map[int]int
}

// computeOrdering assigns DFS levels starting from source operators (arity 0
// or integrate) and sorts operators by increasing level. Any operator never
// reached from a source is reported via a CompileError naming its
// coordinates ("not all operations are wired").
func (n *Network) computeOrdering() (*Ordering, error) {
	deps := n.buildComputationGraph()
	level := make(map[int]int)
	visited := make(map[int]bool)

	var assign func(id int, lvl int)
	assign = func(id int, lvl int) {
		if visited[id] && level[id] >= lvl {
			return
		}
		visited[id] = true
		level[id] = lvl
		for _, succ := range deps[id] {
			assign(succ, lvl+1)
		}
	}

	var sources []*op.Node
	for _, node := range n.Ops {
		if node.IsSource() {
			sources = append(sources, node)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	for _, s := range sources {
		assign(s.ID, 0)
	}

	for _, node := range n.Ops {
		if !visited[node.ID] {
			return nil, &CompileError{Msg: "not all operations are wired", X: node.X, Y: node.Y}
		}
	}

	ord := &Ordering{Level: level}
	ids := make([]int, 0, len(n.Ops))
	for id := range n.Ops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if level[ids[i]] != level[ids[j]] {
			return level[ids[i]] < level[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		ord.Sorted = append(ord.Sorted, n.Ops[id])
	}
	return ord, nil
}
