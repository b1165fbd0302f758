// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integrate

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

type decaySystem struct{}

func (decaySystem) F(t float64, y, yDot []float64) error {
	yDot[0] = -y[0]
	return nil
}
func (decaySystem) Jacobian(y []float64, J [][]float64) error {
	J[0][0] = -1
	return nil
}
func (decaySystem) NumStocks() int { return 1 }

type erroringSystem struct{}

func (erroringSystem) F(t float64, y, yDot []float64) error { return chk.Err("boom") }
func (erroringSystem) Jacobian(y []float64, J [][]float64) error {
	J[0][0] = 0
	return nil
}
func (erroringSystem) NumStocks() int { return 1 }

func Test_driver01(tst *testing.T) {

	chk.PrintTitle("driver01: reset establishes clock and state")

	d := NewDriver(decaySystem{}, DefaultParams(), nil)
	d.Reset([]float64{3})
	if d.Time() != 0 {
		tst.Errorf("expected clock reset to zero, got %v", d.Time())
	}
	if d.ResetNeeded() {
		tst.Errorf("freshly reset driver should not need reset")
	}
}

func Test_driver02(tst *testing.T) {

	chk.PrintTitle("driver02: integrates exponential decay")

	params := Params{StepMin: 1e-5, StepMax: 1.0, EpsAbs: 1e-6, EpsRel: 1e-6, StepsPerCall: 1}
	d := NewDriver(decaySystem{}, params, nil)
	d.Reset([]float64{1})
	y, err := d.Step()
	if err != nil {
		tst.Fatalf("Step failed: %v", err)
	}
	chk.Scalar(tst, "y(1) ~= exp(-1)", 1e-3, y[0], math.Exp(-1))
	if d.Time() != 1.0 {
		tst.Errorf("expected clock at 1.0, got %v", d.Time())
	}
}

func Test_driver04(tst *testing.T) {

	chk.PrintTitle("driver04: one Step call performs StepsPerCall internal macro sub-steps")

	params := Params{StepMin: 1e-5, StepMax: 0.5, EpsAbs: 1e-6, EpsRel: 1e-6, StepsPerCall: 3}
	d := NewDriver(decaySystem{}, params, nil)
	d.Reset([]float64{1})
	y, err := d.Step()
	if err != nil {
		tst.Fatalf("Step failed: %v", err)
	}
	if d.Time() != 1.5 {
		tst.Errorf("expected clock to advance by StepsPerCall*StepMax = 1.5, got %v", d.Time())
	}
	chk.Scalar(tst, "y(1.5) ~= exp(-1.5)", 1e-3, y[0], math.Exp(-1.5))
}

func Test_driver03(tst *testing.T) {

	chk.PrintTitle("driver03: non-finite diagnosis and reset-required contract")

	d := NewDriver(decaySystem{}, DefaultParams(), func(i int) string { return "s" })
	d.Reset([]float64{1})
	d.y[0] = math.Inf(1)
	nf := d.diagnoseNonFinite()
	if nf == nil {
		tst.Fatalf("expected a non-finite diagnosis")
	}
	if nf.Name != "s" {
		tst.Errorf("expected diagnosed name %q, got %q", "s", nf.Name)
	}

	d2 := NewDriver(erroringSystem{}, DefaultParams(), nil)
	d2.Reset([]float64{1})
	if _, err := d2.Step(); err == nil {
		tst.Fatalf("expected the failing system to surface a step error")
	}
	if !d2.ResetNeeded() {
		tst.Errorf("expected reset-needed after a failed step")
	}
	if _, err := d2.Step(); err == nil {
		tst.Errorf("expected stepping a reset-needed driver to fail")
	}
	d2.Reset([]float64{1})
	if d2.ResetNeeded() {
		tst.Errorf("Reset should clear reset-needed")
	}
}
