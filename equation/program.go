// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equation

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/value"
)

// EvalOp is one primitive evaluation record (§3 "Program"). State is a
// back-pointer to the owning operator node, borrowed rather than owned
// (§9: avoids a shared-ownership cycle between Program and the graph); it
// is used only to fetch a Constant's value and for diagnostics.
type EvalOp struct {
	Kind  op.Kind
	Out   int // index into the flow array
	In1   int
	Flow1 bool // true: In1 indexes Flows; false: In1 indexes Stocks
	In2   int
	Flow2 bool
	State *op.Node
}

// Integral is produced for each integrate operator (§3, §4.6 phase 5): its
// stock slot is integrated by the ODE driver, its derivative coming either
// from a flow or from a Godley-computed stock derivative.
type Integral struct {
	Stock        *value.Slot
	Input        *value.Slot
	InputIsFlow  bool
	Owner        *op.Node
}

// Program is the ordered list of eval-ops plus the integral descriptors
// produced by the equation compiler (§3 "Program").
type Program struct {
	Ops       []EvalOp
	Integrals []Integral
	Store     *value.Store
	Godleys   []*GodleyModel

	t float64 // current simulation time, observed by the `time` operator
}

// Reset pre-writes each Constant op's value into its flow slot (§4.6 phase
// 7); all other kinds carry no reset state since EvalFlows recomputes them
// every call anyway.
func (p *Program) Reset() {
	p.t = 0
	for _, o := range p.Ops {
		if o.Kind == op.Constant {
			p.Store.Flows[o.Out] = o.State.ConstValue
		}
	}
}

// SetTime sets the simulation time observed by `time` operators.
func (p *Program) SetTime(t float64) { p.t = t }

// NumStocks reports the dimension of the ODE state vector, satisfying
// integrate.System.
func (p *Program) NumStocks() int { return len(p.Store.Stocks) }

// NameOfStock resolves a stock array index back to its variable name, for
// non-finite-state diagnostics (§4.8).
func (p *Program) NameOfStock(idx int) string {
	for _, name := range p.Store.Names() {
		if sl := p.Store.Lookup(name); sl != nil && sl.Kind.BackedByStock() && sl.Idx == idx {
			return name
		}
	}
	return "?"
}

func (p *Program) read(idx int, isFlow bool) float64 {
	if isFlow {
		return p.Store.Flows[idx]
	}
	return p.Store.Stocks[idx]
}

// EvalFlows iterates the program in order, writing each op's result into
// the flow array (§4.7).
func (p *Program) EvalFlows() {
	for _, o := range p.Ops {
		a := p.read(o.In1, o.Flow1)
		b := p.read(o.In2, o.Flow2)
		var c float64
		if o.Kind == op.Constant {
			c = o.State.ConstValue
		}
		p.Store.Flows[o.Out] = op.Evaluate(o.Kind, a, b, p.t, c)
	}
}

// GodleyEval zeros stockDot and applies the §4.5 stock-update rule for every
// Godley column, reading flow values out of flows.
func (p *Program) GodleyEval(stockDot, flows []float64) {
	for i := range stockDot {
		stockDot[i] = 0
	}
	for _, gm := range p.Godleys {
		for r := 1; r < len(gm.Table.Cells); r++ {
			if gm.Table.IsInitialConditionsRow(r) {
				continue
			}
			for _, col := range gm.Columns {
				c := col.Index + 1
				if c >= len(gm.Table.Cells[r]) {
					continue
				}
				for _, term := range gm.Table.Terms(r, c) {
					sl := p.Store.Lookup(term.Name)
					if sl == nil {
						continue
					}
					stockSl := p.Store.Lookup(col.StockName)
					if stockSl == nil {
						continue
					}
					stockDot[stockSl.Idx] += term.Coeff * flows[sl.Idx]
				}
			}
		}
	}
}

// F implements f(t,y,y_dot) (§4.7): set t, copy y into the stock array,
// evaluate flows, evaluate Godley stock derivatives, then settle each
// integral's derivative from either a flow or a Godley-derived stock
// derivative.
func (p *Program) F(t float64, y, yDot []float64) error {
	p.t = t
	copy(p.Store.Stocks, y)
	p.EvalFlows()
	p.GodleyEval(yDot, p.Store.Flows)
	for _, in := range p.Integrals {
		var v float64
		if in.InputIsFlow {
			v = p.Store.Flows[in.Input.Idx]
		} else {
			v = yDot[in.Input.Idx]
		}
		yDot[in.Stock.Idx] = v
	}
	if err := checkFinite(yDot); err != nil {
		return err
	}
	return nil
}

func checkFinite(v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return chk.Err("non-finite value encountered during evaluation")
		}
	}
	return nil
}

// Jacobian implements ∂f/∂y (§4.7): evaluate flows once at the current
// state, then for each stock column seed a unit tangent and propagate it
// forward through every eval-op and every Godley sum using the operators'
// declared partial derivatives, writing the result into column j of J
// (row-major, nStock x nStock).
func (p *Program) Jacobian(y []float64, J [][]float64) error {
	copy(p.Store.Stocks, y)
	p.EvalFlows()
	nStock := len(p.Store.Stocks)
	nFlow := len(p.Store.Flows)

	for j := 0; j < nStock; j++ {
		dStock := make([]float64, nStock)
		dFlow := make([]float64, nFlow)
		dStock[j] = 1

		for _, o := range p.Ops {
			da, db := op.Derivative(o.Kind, p.read(o.In1, o.Flow1), p.read(o.In2, o.Flow2), constOf(o))
			var dIn1, dIn2 float64
			if o.Flow1 {
				dIn1 = dFlow[o.In1]
			} else {
				dIn1 = dStock[o.In1]
			}
			if o.Flow2 {
				dIn2 = dFlow[o.In2]
			} else {
				dIn2 = dStock[o.In2]
			}
			dFlow[o.Out] = da*dIn1 + db*dIn2
		}

		dGodleyDot := make([]float64, nStock)
		for _, gm := range p.Godleys {
			for r := 1; r < len(gm.Table.Cells); r++ {
				if gm.Table.IsInitialConditionsRow(r) {
					continue
				}
				for _, col := range gm.Columns {
					c := col.Index + 1
					if c >= len(gm.Table.Cells[r]) {
						continue
					}
					stockSl := p.Store.Lookup(col.StockName)
					if stockSl == nil {
						continue
					}
					for _, term := range gm.Table.Terms(r, c) {
						sl := p.Store.Lookup(term.Name)
						if sl == nil {
							continue
						}
						dGodleyDot[stockSl.Idx] += term.Coeff * dFlow[sl.Idx]
					}
				}
			}
		}

		for i := 0; i < nStock; i++ {
			J[i][j] = dGodleyDot[i]
		}
		for _, in := range p.Integrals {
			if in.InputIsFlow {
				J[in.Stock.Idx][j] = dFlow[in.Input.Idx]
			} else {
				J[in.Stock.Idx][j] = dGodleyDot[in.Input.Idx]
			}
		}
	}
	return nil
}

func constOf(o EvalOp) float64 {
	if o.Kind == op.Constant && o.State != nil {
		return o.State.ConstValue
	}
	return 0
}
