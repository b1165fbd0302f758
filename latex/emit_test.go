// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package latex

import (
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/godley"
	"github.com/hrnd-minsky/simcore/minsky"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
)

func Test_formatName(tst *testing.T) {

	chk.PrintTitle("formatName01: bare letters, wrapped names, sub/superscripts")

	if got := formatName("a"); got != "a" {
		tst.Errorf("single letter should render bare, got %q", got)
	}
	if got := formatName("rate"); got != `\mathrm{rate}` {
		tst.Errorf("multi-letter name should be wrapped, got %q", got)
	}
	if got := formatName("a_1"); got != `a_{\mathrm{1}}` {
		tst.Errorf("subscript should render as a_{...}, got %q", got)
	}
	if got := formatName("k^max"); got != `k^{\mathrm{max}}` {
		tst.Errorf("superscript should wrap multi-letter content, got %q", got)
	}
}

// fakeSrc resolves ports to canned operators/variable names, for unit
// testing renderOperator without building a real graph.
type fakeSrc struct {
	ops  map[port.ID]*op.Node
	vars map[port.ID]string
}

func (f *fakeSrc) OperatorFeeding(p port.ID) *op.Node { return f.ops[p] }
func (f *fakeSrc) VariableFeeding(p port.ID) string   { return f.vars[p] }

func Test_renderOperator_divideNeverParenthesizes(tst *testing.T) {

	chk.PrintTitle("emit01: divide never parenthesizes its operands")

	sub := &op.Node{Kind: op.Subtract, InPorts: []port.ID{10, 11}}
	div := &op.Node{Kind: op.Divide, InPorts: []port.ID{20, 21}}

	src := &fakeSrc{
		ops:  map[port.ID]*op.Node{20: sub},
		vars: map[port.ID]string{10: "a", 11: "b", 21: "c"},
	}
	e := &emitter{src: src}

	got := e.renderOperator(div, 0, false)
	want := `\frac{a - b}{c}`
	if got != want {
		tst.Errorf("got %q, want %q", got, want)
	}
}

func Test_renderOperator_subtractRightParenthesizesOnTie(tst *testing.T) {

	chk.PrintTitle("emit02: subtract parenthesizes its right operand on level-equality")

	inner := &op.Node{Kind: op.Subtract, InPorts: []port.ID{32, 33}}
	outer := &op.Node{Kind: op.Subtract, InPorts: []port.ID{30, 31}}

	src := &fakeSrc{
		ops:  map[port.ID]*op.Node{31: inner},
		vars: map[port.ID]string{30: "a", 32: "b", 33: "c"},
	}
	e := &emitter{src: src}

	got := e.renderOperator(outer, 0, false)
	want := `a - \left(b - c\right)`
	if got != want {
		tst.Errorf("got %q, want %q", got, want)
	}
}

func Test_renderOperator_addDoesNotParenthesizeOnTie(tst *testing.T) {

	chk.PrintTitle("emit03: add, being associative, does not parenthesize on level-equality")

	inner := &op.Node{Kind: op.Add, InPorts: []port.ID{32, 33}}
	outer := &op.Node{Kind: op.Add, InPorts: []port.ID{30, 31}}

	src := &fakeSrc{
		ops:  map[port.ID]*op.Node{31: inner},
		vars: map[port.ID]string{30: "a", 32: "b", 33: "c"},
	}
	e := &emitter{src: src}

	got := e.renderOperator(outer, 0, false)
	want := "a + b + c"
	if got != want {
		tst.Errorf("got %q, want %q", got, want)
	}
}

// Test_Emit exercises the full rendering path over a real compiled network,
// via the same latex.Source implementation the orchestrator uses.
func Test_Emit(tst *testing.T) {

	chk.PrintTitle("emit04: full eqnarray rendering over a compiled network")

	m := minsky.New()
	c := m.Net.AddOperator(op.Constant)
	c.ConstValue = 5
	integ := m.Net.AddOperator(op.Integrate)
	integ.IntegralVar = "stock1"
	m.Net.Vars.AddVariable(value.Stock, "stock1")
	if m.Net.Graph.AddWire(c.OutPort, integ.InPorts[0]) < 0 {
		tst.Fatalf("wiring constant into integrate should succeed")
	}
	if err := m.Reset(); err != nil {
		tst.Fatalf("Reset failed: %v", err)
	}

	out := Emit(m.Net, m)
	if !strings.HasPrefix(out, `\begin{eqnarray*}`) {
		tst.Errorf("expected an eqnarray block, got %q", out)
	}
	if !strings.Contains(out, `\frac{d \mathrm{stock1}}{dt} &=& 5`) {
		tst.Errorf("expected the integral line for stock1, got %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), `\end{eqnarray*}`) {
		tst.Errorf("expected the block to close, got %q", out)
	}
}

// Test_Emit_Godley checks a Godley stock's d(name)/dt line renders the real
// signed sum of the flows posted against its column, not a placeholder.
func Test_Emit_Godley(tst *testing.T) {

	chk.PrintTitle("emit05: godley stock lines render their signed flow sum")

	m := minsky.New()
	tbl := godley.NewTable(3, 1)
	tbl.Cells[0] = []string{"", "money"}
	tbl.Cells[1] = []string{"lend", "a"}
	tbl.Cells[2] = []string{"repay", "-b"}
	tbl.Classes[0] = godley.Asset
	m.Net.Vars.AddVariable(value.Flow, "a")
	m.Net.Vars.AddVariable(value.Flow, "b")
	m.Net.AddGodleyModel(tbl, 0, 0)

	if err := m.Reset(); err != nil {
		tst.Fatalf("Reset failed: %v", err)
	}

	out := Emit(m.Net, m)
	if !strings.Contains(out, `\frac{d \mathrm{money}}{dt} &=& a - b`) {
		tst.Errorf("expected the godley rhs to be the signed flow sum, got %q", out)
	}
}
