// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package minsky ties the graph, the compiled equations and the
// integration driver into the single top-level object a host embeds (§2,
// §6, §7). Grounded on fem/fem.go's FEM struct: one struct holding the
// input, the derived numerical state, and the solver, with a narrow
// Run-shaped entry point.
package minsky

import (
	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/equation"
	"github.com/hrnd-minsky/simcore/godley"
	"github.com/hrnd-minsky/simcore/integrate"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/schema"
	"github.com/hrnd-minsky/simcore/value"
	"github.com/hrnd-minsky/simcore/varmgr"
)

// Model holds all data for one running simulation: the editable graph, the
// compiled program derived from it, and the driver stepping that program
// (§2, §5: one Model per simulation, nothing shared across instances).
type Model struct {
	Net    *equation.Network
	Prog   *equation.Program
	Driver *integrate.Driver
	Params integrate.Params
	Zoom   float64

	// resetNeeded mirrors §7's "a raised error during step leaves
	// reset_needed = true so the next attempt recompiles" state machine.
	resetNeeded bool

	// OnError is the diagnostic sink (§6 display_error_item): invoked with
	// canvas coordinates whenever compilation or evaluation fails at a
	// specific node. May be nil.
	OnError func(x, y float64)
}

// New returns an empty model ready for graph construction.
func New() *Model {
	store := value.NewStore()
	graph := port.NewGraph()
	vars := varmgr.NewManager(store, graph)
	return &Model{
		Net:    equation.NewNetwork(store, graph, vars),
		Params: integrate.DefaultParams(),
		Zoom:   1,
	}
}

// Reset recompiles the equations from the current graph and rebuilds the
// integration driver over them (§7). This is the only place
// ConstructEquations is called; every public entry point below funnels
// through it whenever resetNeeded is set.
func (m *Model) Reset() error {
	prog, err := m.Net.ConstructEquations(m.sink())
	if err != nil {
		m.resetNeeded = true
		return err
	}
	m.Prog = prog
	m.Driver = integrate.NewDriver(prog, m.Params, prog.NameOfStock)
	m.Driver.Reset(prog.Store.Stocks)
	m.resetNeeded = false
	return nil
}

func (m *Model) sink() equation.Sink {
	if m.OnError == nil {
		return nil
	}
	return equation.Sink(m.OnError)
}

// Step advances the simulation clock by whatever params.StepsPerCall
// internal macro sub-steps of width params.StepMax produce (§4.8, §7) — it
// takes no target duration, matching the original's parameterless step().
// If a previous call left reset_needed set, or the graph was never
// compiled, it recompiles first. On an evaluation failure reset_needed is
// (re)set so the next Step also recompiles, matching the original's
// recovery contract.
func (m *Model) Step() error {
	if m.resetNeeded || m.Prog == nil {
		if err := m.Reset(); err != nil {
			return err
		}
	}
	y, err := m.Driver.Step()
	if err != nil {
		m.resetNeeded = true
		if _, ok := err.(*integrate.NonFiniteError); ok && m.OnError != nil {
			// A variable carries no x/y of its own in this engine (only
			// operators and Godley tables do), so the best we can report
			// for a non-finite state is the origin.
			m.OnError(0, 0)
		}
		return err
	}
	m.Prog.SetTime(m.Driver.Time())
	copy(m.Prog.Store.Stocks, y)
	m.Prog.EvalFlows() // re-evaluate flows at the new state for observers
	return nil
}

// Time returns the current simulation time.
func (m *Model) Time() float64 {
	if m.Driver == nil {
		return 0
	}
	return m.Driver.Time()
}

// Load replaces the model's graph wholesale from a saved document (§6
// "clear_all, then rebuild"): the old Net/Prog/Driver are simply discarded,
// since rebuild() already constructed a fresh Net from scratch.
func (m *Model) Load(raw []byte) error {
	doc, err := schema.Load(raw)
	if err != nil {
		return chk.Err("load failed: %v", err)
	}
	m.Net = doc.Net
	m.Params = integrate.Params{
		StepMin: doc.RK.StepMin, StepMax: doc.RK.StepMax,
		EpsAbs: doc.RK.EpsAbs, EpsRel: doc.RK.EpsRel, StepsPerCall: doc.RK.NSteps,
	}
	if m.Params.StepMax == 0 {
		m.Params = integrate.DefaultParams()
	}
	m.Zoom = doc.Zoom
	m.Prog = nil
	m.Driver = nil
	m.resetNeeded = true
	return m.Reset()
}

// Save serializes the current graph to XML (§6).
func (m *Model) Save() ([]byte, error) {
	rk := schema.RungeKutta{
		StepMin: m.Params.StepMin, StepMax: m.Params.StepMax,
		EpsAbs: m.Params.EpsAbs, EpsRel: m.Params.EpsRel, NSteps: m.Params.StepsPerCall,
	}
	return schema.Marshal(schema.Save(m.Net, rk, m.Zoom))
}

// OperatorFeeding and VariableFeeding implement latex.Source directly over
// the live port graph, so equation rendering needs no extra bookkeeping
// beyond what Net already tracks.
func (m *Model) OperatorFeeding(p port.ID) *op.Node {
	w := m.Net.Graph.IncomingWire(p)
	if w == nil {
		return nil
	}
	if n, isOut, ok := m.portRole(w.From); ok && isOut {
		return n
	}
	return nil
}

func (m *Model) VariableFeeding(p port.ID) string {
	w := m.Net.Graph.IncomingWire(p)
	if w == nil {
		return ""
	}
	if v := m.Net.Vars.GetByPort(w.From); v != nil {
		return v.Name
	}
	return ""
}

func (m *Model) portRole(p port.ID) (*op.Node, bool, bool) {
	pp := m.Net.Graph.Port(p)
	if pp == nil {
		return nil, false, false
	}
	n, ok := pp.Owner.(*op.Node)
	if !ok {
		return nil, false, false
	}
	return n, n.OutPort == p, true
}

// AddGodleyTable is a convenience wrapper matching the host workflow of
// editing a table then wiring its columns (§4.4, §4.5).
func (m *Model) AddGodleyTable(t *godley.Table, x, y float64) *equation.GodleyModel {
	m.resetNeeded = true
	return m.Net.AddGodleyModel(t, x, y)
}
