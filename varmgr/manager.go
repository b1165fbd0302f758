// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package varmgr maps graph endpoints to named storage slots and tracks
// which variable names currently have a wired input (§4.2). Grounded on
// the teacher's registry-by-name pattern in ele/factory.go.
package varmgr

import (
	"sort"

	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
)

// Variable is one visual variable instance: it shares a value.Slot with
// every other visual instance of the same name (§3: "Names are non-empty
// and unique across the whole model").
type Variable struct {
	ID      int
	Name    string
	Slot    *value.Slot
	InPort  port.ID // 0 if the variable has no input (e.g. a stock, or a
	// coupled integral's owned variable)
	OutPort port.ID
}

// Manager owns the Variable instances, the shared value.Store, and the
// input-wired bookkeeping hooked into the port graph's add/delete-wire
// callbacks.
type Manager struct {
	store   *value.Store
	graph   *port.Graph
	byID    map[int]*Variable
	byPort  map[port.ID]*Variable
	wired   map[string]bool // name -> has at least one wired input
	nextID  int
}

// NewManager wires itself into graph's OnWireAdded/OnWireDeleted hooks to
// maintain the §4.2 invariant incrementally.
func NewManager(store *value.Store, graph *port.Graph) *Manager {
	m := &Manager{
		store:  store,
		graph:  graph,
		byID:   make(map[int]*Variable),
		byPort: make(map[port.ID]*Variable),
		wired:  make(map[string]bool),
	}
	graph.OnWireAdded = func(to port.ID) { m.recomputeWired(to) }
	graph.OnWireDeleted = func(to port.ID) { m.recomputeWired(to) }
	return m
}

func (m *Manager) recomputeWired(to port.ID) {
	v, ok := m.byPort[to]
	if !ok || v.InPort != to {
		return
	}
	wired := false
	for _, other := range m.byID {
		if other.Name == v.Name && other.InPort != 0 && len(m.graph.IncomingWires(other.InPort)) > 0 {
			wired = true
			break
		}
	}
	m.wired[v.Name] = wired
}

// AddVariable creates a new visual Variable of the given kind and name,
// sharing the value.Store slot for that name.
func (m *Manager) AddVariable(kind value.Kind, name string) *Variable {
	m.nextID++
	sl := m.store.AddVariable(kind, name)
	v := &Variable{ID: m.nextID, Name: name, Slot: sl}
	m.byID[v.ID] = v
	if _, ok := m.wired[name]; !ok {
		m.wired[name] = false
	}
	return v
}

// NewVariable creates a variable reusing an existing name's kind if already
// known, defaulting to Flow otherwise (§4.2).
func (m *Manager) NewVariable(name string) *Variable {
	kind := value.Flow
	if sl := m.store.Lookup(name); sl != nil {
		kind = sl.Kind
	}
	return m.AddVariable(kind, name)
}

// BindPorts attaches port ids to v and registers them for GetByPort lookup.
func (m *Manager) BindPorts(v *Variable, in, out port.ID) {
	v.InPort, v.OutPort = in, out
	if in != 0 {
		m.byPort[in] = v
	}
	if out != 0 {
		m.byPort[out] = v
	}
}

// Erase removes a variable instance (not necessarily its shared slot, which
// may still be referenced by other visual instances of the same name).
func (m *Manager) Erase(id int) {
	v, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byPort, v.InPort)
	delete(m.byPort, v.OutPort)
	delete(m.byID, id)
}

// GetByPort returns the Variable owning port p, or nil.
func (m *Manager) GetByPort(p port.ID) *Variable { return m.byPort[p] }

// ByName returns the lowest-id Variable instance sharing name, or nil if
// none has been added yet. Deterministic regardless of map iteration order.
func (m *Manager) ByName(name string) *Variable {
	var best *Variable
	for _, v := range m.byID {
		if v.Name != name {
			continue
		}
		if best == nil || v.ID < best.ID {
			best = v
		}
	}
	return best
}

// WireToVariable returns the incoming wire id for name's canonical instance,
// or -1 if none or not wired.
func (m *Manager) WireToVariable(name string) port.ID {
	v := m.ByName(name)
	if v == nil || v.InPort == 0 {
		return -1
	}
	if w := m.graph.IncomingWire(v.InPort); w != nil {
		return w.ID
	}
	return -1
}

// InputWired reports whether any wire currently ends at any variable named
// name (§4.2 invariant).
func (m *Manager) InputWired(name string) bool { return m.wired[name] }

// All returns every variable instance, ordered by id so that compilation is
// deterministic (§8 invariant 1) regardless of Go's randomized map order.
func (m *Manager) All() []*Variable {
	out := make([]*Variable, 0, len(m.byID))
	for _, v := range m.byID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
