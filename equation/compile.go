// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equation

import (
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
	"github.com/hrnd-minsky/simcore/varmgr"
)

// Sink is the diagnostic callback (§6): on any compile failure tied to a
// specific node, the core invokes it with that node's canvas coordinates
// before returning the error.
type Sink func(x, y float64)

// collectSinks walks forward from outPort, following wires directly into
// operator input ports (terminal) and, when a wire lands on a variable's
// input, continuing through that variable's own output wires (§4.6 phase 6,
// "sinks reachable through variable chains").
func (n *Network) collectSinks(outPort port.ID) (varSinks []*varmgr.Variable, opSinks []port.ID) {
	visited := make(map[port.ID]bool)
	var walk func(p port.ID)
	walk = func(p port.ID) {
		if visited[p] {
			return
		}
		visited[p] = true
		for _, w := range n.Graph.OutgoingWires(p) {
			if _, isOut, ok := n.portRole(w.To); ok && !isOut {
				opSinks = append(opSinks, w.To)
				continue
			}
			if v := n.Vars.GetByPort(w.To); v != nil {
				varSinks = append(varSinks, v)
				if v.OutPort != 0 {
					walk(v.OutPort)
				}
			}
		}
	}
	walk(outPort)
	return
}

// compiler holds the mutable state threaded through one ConstructEquations
// call.
type compiler struct {
	net        *Network
	program    []EvalOp
	inputFrom  map[port.ID]*value.Slot
	extraCopy  map[int][]EvalOp // flow slot index -> deferred copy ops
	identity   map[float64]*value.Slot
}

// ConstructEquations is the entry point for §4.6: it validates the graph is
// acyclic modulo integrate loops, orders the operators, propagates values
// through the inputFrom table (inserting copies and multi-input folds as
// needed), pre-seeds integrals, and emits the final Program. On failure it
// calls sink with the offending node's coordinates before returning the
// error (§6, §7).
func (n *Network) ConstructEquations(sink Sink) (*Program, error) {
	if err := n.checkAcyclic(); err != nil {
		reportTo(sink, err)
		return nil, err
	}

	n.Store.Reset() // phase 2: gc temp slots, reallocate dense arrays

	ordering, err := n.computeOrdering()
	if err != nil {
		reportTo(sink, err)
		return nil, err
	}

	c := &compiler{
		net:       n,
		inputFrom: make(map[port.ID]*value.Slot),
		extraCopy: make(map[int][]EvalOp),
		identity:  make(map[float64]*value.Slot),
	}

	// phase 4 (direct sources): seed inputFrom and register variable-to-
	// variable copies for every variable whose value is available
	// independent of operator ordering.
	for _, v := range n.Vars.All() {
		if v.OutPort == 0 {
			continue
		}
		varSinks, opSinks := n.collectSinks(v.OutPort)
		for _, p := range opSinks {
			if err := c.bind(p, v.Slot); err != nil {
				reportTo(sink, err)
				return nil, err
			}
		}
		for _, dest := range varSinks {
			if dest.Slot == v.Slot {
				continue // same shared slot, e.g. two instances of one name
			}
			c.registerVariableCopy(v, dest)
		}
	}

	// phase 5: pre-seed integrals (stock side known immediately).
	var integrals []Integral
	integIdx := make(map[int]int) // op.Node.ID -> index into integrals
	for _, node := range ordering.Sorted {
		if node.Kind != op.Integrate {
			continue
		}
		sl := n.Store.Lookup(node.IntegralVar)
		if sl == nil {
			err := &CompileError{Msg: "integrate operator has no integral variable", X: node.X, Y: node.Y}
			reportTo(sink, err)
			return nil, err
		}
		integIdx[node.ID] = len(integrals)
		integrals = append(integrals, Integral{Stock: sl, Owner: node})
	}

	// phase 6: emit the program in sorted order.
	for _, node := range ordering.Sorted {
		if err := c.drainExtraOpsFor(node); err != nil {
			reportTo(sink, err)
			return nil, err
		}

		var outSlot *value.Slot
		if node.Kind == op.Integrate {
			outSlot = n.Store.Lookup(node.IntegralVar)
		} else {
			evalOp, slot, err := c.emit(node)
			if err != nil {
				reportTo(sink, err)
				return nil, err
			}
			c.program = append(c.program, evalOp)
			c.drain(slot.Idx)
			outSlot = slot
		}

		varSinks, opSinks := n.collectSinks(node.OutPort)
		for _, p := range opSinks {
			if err := c.bind(p, outSlot); err != nil {
				reportTo(sink, err)
				return nil, err
			}
		}
		for _, dest := range varSinks {
			if dest.Slot == outSlot {
				continue
			}
			c.emitImmediateOrDeferredCopy(outSlot, dest)
		}
		c.drain(outSlot.Idx)
	}

	// finalize integrals: read off whatever fed each integrate operator's
	// single input port.
	for _, node := range ordering.Sorted {
		if node.Kind != op.Integrate {
			continue
		}
		idx, ok := integIdx[node.ID]
		if !ok {
			continue
		}
		sl, ok := c.inputFrom[node.InPorts[0]]
		if !ok {
			err := &CompileError{Msg: "undefined input to integrate operator", X: node.X, Y: node.Y}
			reportTo(sink, err)
			return nil, err
		}
		integrals[idx].Input = sl
		integrals[idx].InputIsFlow = !sl.Kind.BackedByStock()
	}

	p := &Program{Ops: c.program, Integrals: integrals, Store: n.Store, Godleys: n.Godleys}
	p.Reset()
	return p, nil
}

func reportTo(sink Sink, err error) {
	if sink == nil {
		return
	}
	if ce, ok := err.(*CompileError); ok {
		sink(ce.X, ce.Y)
	}
}

// bind implements the §4.6 phase-4 "inputFrom" rule: first writer wins;
// a second, different writer to the same port triggers a multi-input fold
// if the owning operator is foldable, otherwise it's an error.
func (c *compiler) bind(p port.ID, slot *value.Slot) error {
	existing, ok := c.inputFrom[p]
	if !ok {
		c.inputFrom[p] = slot
		return nil
	}
	if existing == slot {
		return nil
	}
	node, _ := c.net.operatorOwning(p)
	if node == nil || !op.IsFoldable(node.Kind) {
		x, y := 0.0, 0.0
		if node != nil {
			x, y = node.X, node.Y
		}
		return &CompileError{Msg: "too many inputs to operator", X: x, Y: y}
	}
	temp := c.net.Store.AllocTemp(node.Kind.String() + "_fold")
	c.net.Store.AllocateNewTemp(temp)
	c.program = append(c.program, EvalOp{
		Kind: op.FoldKind(node.Kind), Out: temp.Idx,
		In1: existing.Idx, Flow1: !existing.Kind.BackedByStock(),
		In2: slot.Idx, Flow2: !slot.Kind.BackedByStock(),
		State: node,
	})
	c.inputFrom[p] = temp
	return nil
}

// drainExtraOpsFor is a no-op placeholder kept to mirror §4.6 phase 6's
// "first drain any extraOps registered against it" step; in this
// implementation folds are appended to the program the instant bind()
// detects them, so there is nothing left to drain lazily.
func (c *compiler) drainExtraOpsFor(*op.Node) error { return nil }

// registerVariableCopy implements the wire-connects-two-LHS-variables case
// of phase 4: if the source is itself driven by an incoming wire (so its
// value matures during compilation) the copy is deferred until that slot is
// produced; otherwise (a stock, or an unwired flow variable sitting at its
// declared init) it is safe to copy immediately, at the program head.
func (c *compiler) registerVariableCopy(src, dest *varmgr.Variable) {
	if src.Slot.Kind.IsLHS() && src.InPort != 0 && c.net.Graph.IncomingWire(src.InPort) != nil {
		c.extraCopy[src.Slot.Idx] = append(c.extraCopy[src.Slot.Idx], EvalOp{
			Kind: op.Copy, Out: dest.Slot.Idx, In1: src.Slot.Idx, Flow1: !src.Slot.Kind.BackedByStock(),
		})
		return
	}
	c.program = append([]EvalOp{{
		Kind: op.Copy, Out: dest.Slot.Idx, In1: src.Slot.Idx, Flow1: !src.Slot.Kind.BackedByStock(),
	}}, c.program...)
}

// emitImmediateOrDeferredCopy mirrors registerVariableCopy for an operator
// output that feeds more than one LHS sink: the chosen sink becomes `out`;
// every extra sink gets a copy emitted right after `out` is produced.
func (c *compiler) emitImmediateOrDeferredCopy(src *value.Slot, dest *varmgr.Variable) {
	c.extraCopy[src.Idx] = append(c.extraCopy[src.Idx], EvalOp{
		Kind: op.Copy, Out: dest.Slot.Idx, In1: src.Idx, Flow1: !src.Kind.BackedByStock(),
	})
}

// drain appends and recursively drains every copy op registered against
// flow-slot index idx (§4.6 phase 6: "drain and emit any extraCopies[out],
// and recursively drain copies transitively triggered").
func (c *compiler) drain(idx int) {
	ops := c.extraCopy[idx]
	delete(c.extraCopy, idx)
	for _, o := range ops {
		c.program = append(c.program, o)
		c.drain(o.Out)
	}
}

// emit builds the EvalOp for a non-integrate operator: it resolves each
// input from inputFrom (injecting the operator's identity if a foldable
// input was left unwired, erroring otherwise), and chooses its output slot
// among its LHS sinks (or allocates a fresh TempFlow).
func (c *compiler) emit(node *op.Node) (EvalOp, *value.Slot, error) {
	evalOp := EvalOp{Kind: node.Kind, State: node}
	arity := op.Arity(node.Kind)
	ins := [2]struct {
		idx  int
		flow bool
	}{}
	for i := 0; i < arity; i++ {
		p := node.InPorts[i]
		sl, ok := c.inputFrom[p]
		if !ok {
			v, hasIdent := op.Identity(node.Kind)
			if !hasIdent {
				return EvalOp{}, nil, &CompileError{Msg: "undefined input to operator", X: node.X, Y: node.Y}
			}
			sl = c.identitySlot(v)
		}
		ins[i].idx, ins[i].flow = sl.Idx, !sl.Kind.BackedByStock()
	}
	evalOp.In1, evalOp.Flow1 = ins[0].idx, ins[0].flow
	evalOp.In2, evalOp.Flow2 = ins[1].idx, ins[1].flow

	varSinks, _ := c.net.collectSinks(node.OutPort)
	var outSlot *value.Slot
	for _, v := range varSinks {
		if v.Slot.Kind.IsLHS() {
			outSlot = v.Slot
			break
		}
	}
	if outSlot == nil {
		tmp := c.net.Store.AllocTemp(node.Kind.String())
		c.net.Store.AllocateNewTemp(tmp)
		outSlot = tmp
	}
	evalOp.Out = outSlot.Idx
	return evalOp, outSlot, nil
}

// identitySlot returns a shared, reset-stable slot holding v (0 or 1),
// allocating it on first use.
func (c *compiler) identitySlot(v float64) *value.Slot {
	if sl, ok := c.identity[v]; ok {
		return sl
	}
	sl := c.net.Store.AllocTemp("identity")
	sl.Init = v
	c.net.Store.AllocateNewTemp(sl)
	c.net.Store.Flows[sl.Idx] = v
	c.identity[v] = sl
	return sl
}
