// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package port implements the typed port/wire graph store: directed
// connectivity between operator, variable and Godley-column endpoints.
package port

// ID identifies a port or a wire within one Graph. Zero is never issued.
type ID int

// Port is a typed endpoint attached to a single owning item.
type Port struct {
	ID         ID
	Owner      interface{} // opaque back-reference to the owning operator/variable/column
	IsInput    bool
	MultiWire  bool // true only for inputs of commutative/associative operators
	X, Y       float64
}

// Wire is an ordered (From,To) pair: From is an output port, To is an input port.
type Wire struct {
	ID   ID
	From ID
	To   ID
}

// Graph owns all ports and wires for one model. It has no notion of operator
// semantics; the equation compiler interprets connectivity.
type Graph struct {
	ports    map[ID]*Port
	wires    map[ID]*Wire
	outgoing map[ID][]ID // port -> wire ids leaving it
	incoming map[ID][]ID // port -> wire ids arriving at it
	nextID   ID

	// OnWireDeleted is invoked after a wire ending at an input port is
	// removed, so the variable manager can clear that port's "input wired"
	// bookkeeping (§4.1, §4.2).
	OnWireDeleted func(toPort ID)
	// OnWireAdded is invoked after a wire is successfully added.
	OnWireAdded func(toPort ID)
}

// NewGraph returns an empty port/wire store.
func NewGraph() *Graph {
	return &Graph{
		ports:    make(map[ID]*Port),
		wires:    make(map[ID]*Wire),
		outgoing: make(map[ID][]ID),
		incoming: make(map[ID][]ID),
	}
}

func (g *Graph) alloc() ID {
	g.nextID++
	return g.nextID
}

// AddPort registers a new port and returns its id.
func (g *Graph) AddPort(owner interface{}, isInput, multiWire bool) ID {
	id := g.alloc()
	g.ports[id] = &Port{ID: id, Owner: owner, IsInput: isInput, MultiWire: multiWire}
	return id
}

// Port returns the port for id, or nil.
func (g *Graph) Port(id ID) *Port { return g.ports[id] }

// MovePort updates a port's canvas position. Purely cosmetic: it has no
// effect on graph topology or equation construction (§1 Non-goals; the core
// only needs coordinates to hand back to the diagnostic sink, §6).
func (g *Graph) MovePort(id ID, x, y float64) {
	if p, ok := g.ports[id]; ok {
		p.X, p.Y = x, y
	}
}

// DeletePort removes a port and every wire attached to it.
func (g *Graph) DeletePort(id ID) {
	for _, wid := range append([]ID(nil), g.outgoing[id]...) {
		g.DeleteWire(wid)
	}
	for _, wid := range append([]ID(nil), g.incoming[id]...) {
		g.DeleteWire(wid)
	}
	delete(g.ports, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
}

// AddWire attempts to add a wire from -> to, applying the policy in §4.1.
// On any violation it returns ID(-1): wiring is a user action and must be
// non-fatal (§7 API misuse).
func (g *Graph) AddWire(from, to ID) ID {
	fp, ok1 := g.ports[from]
	tp, ok2 := g.ports[to]
	if !ok1 || !ok2 {
		return -1
	}
	if fp.IsInput || !tp.IsInput {
		return -1
	}
	if len(g.incoming[to]) > 0 && !tp.MultiWire {
		return -1
	}
	for _, wid := range g.outgoing[from] {
		if w := g.wires[wid]; w != nil && w.To == to {
			return -1 // duplicate (from,to) pair
		}
	}
	if fp.Owner != nil && tp.Owner != nil && fp.Owner == tp.Owner {
		return -1 // self-loop on the same operator
	}
	id := g.alloc()
	w := &Wire{ID: id, From: from, To: to}
	g.wires[id] = w
	g.outgoing[from] = append(g.outgoing[from], id)
	g.incoming[to] = append(g.incoming[to], id)
	if g.OnWireAdded != nil {
		g.OnWireAdded(to)
	}
	return id
}

// DeleteWire removes a wire. If it ended at an input, OnWireDeleted fires so
// the variable manager can re-evaluate that port's "input wired" flag.
func (g *Graph) DeleteWire(id ID) {
	w, ok := g.wires[id]
	if !ok {
		return
	}
	g.outgoing[w.From] = removeID(g.outgoing[w.From], id)
	g.incoming[w.To] = removeID(g.incoming[w.To], id)
	delete(g.wires, id)
	if g.OnWireDeleted != nil {
		g.OnWireDeleted(w.To)
	}
}

func removeID(s []ID, id ID) []ID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Wire returns the wire for id, or nil.
func (g *Graph) Wire(id ID) *Wire { return g.wires[id] }

// WiresAttachedTo returns every wire id touching port (incoming or outgoing).
func (g *Graph) WiresAttachedTo(id ID) []ID {
	out := append([]ID(nil), g.outgoing[id]...)
	out = append(out, g.incoming[id]...)
	return out
}

// IncomingWire returns the single incoming wire at to, if any (nil if none).
// Callers that reach here on a multi-wire input should use IncomingWires.
func (g *Graph) IncomingWire(to ID) *Wire {
	ids := g.incoming[to]
	if len(ids) == 0 {
		return nil
	}
	return g.wires[ids[0]]
}

// IncomingWires returns every wire arriving at to, in insertion order.
func (g *Graph) IncomingWires(to ID) []*Wire {
	ids := g.incoming[to]
	out := make([]*Wire, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.wires[id])
	}
	return out
}

// OutgoingWires returns every wire leaving from, in insertion order.
func (g *Graph) OutgoingWires(from ID) []*Wire {
	ids := g.outgoing[from]
	out := make([]*Wire, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.wires[id])
	}
	return out
}
