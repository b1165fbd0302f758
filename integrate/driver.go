// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package integrate wraps gosl/ode's adaptive implicit Radau5 driver (§4.8).
// Grounded on fem/solver.go's Solver-interface/allocator-map shape, but
// driving the general-purpose stiff-capable solver the domain stack already
// ships instead of a hand-rolled time-stepper.
package integrate

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/ode"
)

// System is the minimal interface the driver needs from the equation
// evaluator: the right-hand side and its Jacobian, both over the stock
// vector (§4.7).
type System interface {
	F(t float64, y, yDot []float64) error
	Jacobian(y []float64, J [][]float64) error
	NumStocks() int
}

// Params holds the adaptive-step tunables configured by the host (§4.8,
// §6 "Numeric contract").
type Params struct {
	StepMin      float64
	StepMax      float64
	EpsAbs       float64
	EpsRel       float64
	StepsPerCall int // nSteps: number of StepMax-wide Solve calls per Step() call; it does not cap the solver's internal sub-steps
}

// DefaultParams mirrors the values the original tool ships with.
func DefaultParams() Params {
	return Params{StepMin: 1e-5, StepMax: 1.0, EpsAbs: 1e-6, EpsRel: 1e-6, StepsPerCall: 1000}
}

// NonFiniteError reports the first offending variable/operator name found by
// diagnose_non_finite (§4.8, §7).
type NonFiniteError struct {
	Name string
}

func (e *NonFiniteError) Error() string {
	return chk.Sprintf("non-finite state encountered at %q", e.Name)
}

// Driver wraps an ode.Solver (Radau5 method) over one System. It is
// stateless between calls except for the current time and the solver's own
// internal step-size memory, matching §5's single-threaded, synchronous
// contract: one Driver serves exactly one model instance.
type Driver struct {
	sys    System
	params Params
	solver ode.Solver
	t      float64
	y      []float64

	resetNeeded bool
	nameOf      func(stockIdx int) string // for diagnose_non_finite
}

// NewDriver builds a driver over sys with the given parameters. nameOf
// resolves a stock index to a variable name for diagnostics; it may be nil.
func NewDriver(sys System, params Params, nameOf func(int) string) *Driver {
	d := &Driver{sys: sys, params: params, nameOf: nameOf}
	d.build()
	return d
}

// build (re-)initialises the underlying ode.Solver. Radau5 is an implicit,
// L-stable method, appropriate since Godley-driven stock dynamics can be
// stiff (§4.8).
func (d *Driver) build() {
	n := d.sys.NumStocks()
	fcn := func(f []float64, dx, x float64, y []float64) error {
		return d.sys.F(x, y, f)
	}
	jac := func(dfdy *la.Triplet, dx, x float64, y []float64) error {
		dense := make([][]float64, n)
		for i := range dense {
			dense[i] = make([]float64, n)
		}
		if err := d.sys.Jacobian(y, dense); err != nil {
			return err
		}
		if dfdy.Max() == 0 {
			dfdy.Init(n, n, n*n)
		}
		dfdy.Start()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if dense[i][j] != 0 {
					dfdy.Put(i, j, dense[i][j])
				}
			}
		}
		return nil
	}
	d.solver.Init("Radau5", n, fcn, jac, nil, nil)
	d.solver.SetTol(d.params.EpsAbs, d.params.EpsRel)
	d.solver.Distr = false
	d.y = make([]float64, n)
}

// Reset re-initialises time to zero and the driver's internal state,
// matching §5's resource discipline: the previous program/integrals/arrays
// are released before new ones are built, and the orchestrator (not the
// driver) owns that teardown; the driver only resets its own clock.
func (d *Driver) Reset(y0 []float64) {
	d.t = 0
	d.build()
	copy(d.y, y0)
	d.resetNeeded = false
}

// ResetNeeded reports whether a prior Step failure left the driver in
// "reset required" state (§5, §7: "a raised error during step leaves
// reset_needed = true so the next attempt recompiles").
func (d *Driver) ResetNeeded() bool { return d.resetNeeded }

// Step drives the clock forward with no caller-supplied target, mirroring
// minsky.cc's step(): gsl_odeiv2_driver_set_nmax(ode->driver, nSteps) caps
// the internal sub-steps gsl_odeiv2_driver_apply(ode->driver, &t, DBL_MAX,
// ...) is allowed to take while aiming at t=+Inf, and GSL_EMAXITER (the
// budget running out before reaching the target) is treated the same as
// GSL_SUCCESS. gosl/ode.Solver exposes no nmax knob to the caller, so that
// cap is reproduced here as a loop of at most params.StepsPerCall macro
// calls to Solve, each advancing the clock by params.StepMax — the adaptive
// solver still chooses its own internal step sizes (seeded by
// params.StepMin) within each macro call. Step does not re-evaluate flows:
// the driver only owns the stock vector, so the caller (package minsky)
// re-evaluates flows after a successful step for plot observers.
func (d *Driver) Step() ([]float64, error) {
	if d.resetNeeded {
		return nil, chk.Err("driver requires reset before stepping")
	}
	for i := 0; i < d.params.StepsPerCall; i++ {
		tf := d.t + d.params.StepMax
		err := d.solver.Solve(d.y, d.t, tf, d.params.StepMin, true)
		if err != nil {
			if nf := d.diagnoseNonFinite(); nf != nil {
				d.resetNeeded = true
				return nil, nf
			}
			d.resetNeeded = true
			return nil, chk.Err("integration failed: %v", err)
		}
		d.t = tf
	}
	return d.y, nil
}

// diagnoseNonFinite scans the current state for the first non-finite
// component, returning nil if everything is finite (in which case the
// failure had some other cause).
func (d *Driver) diagnoseNonFinite() *NonFiniteError {
	for i, v := range d.y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			name := "?"
			if d.nameOf != nil {
				name = d.nameOf(i)
			}
			return &NonFiniteError{Name: name}
		}
	}
	return nil
}

// Time returns the current simulation time.
func (d *Driver) Time() float64 { return d.t }
