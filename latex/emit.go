// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package latex renders a compiled network as a LaTeX eqnarray* block
// (§4.9). Grounded on out/printing.go's string-building style (io.Sf
// concatenation rather than text/template) applied to a DAG walk instead of
// an integration-point record.
package latex

import (
	"sort"
	"strings"

	"github.com/cpmech/gosl/io"
	"github.com/hrnd-minsky/simcore/equation"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
)

// Source supplies the DAG walker with everything it needs to recurse from a
// variable's input port back to whatever produces it, without depending on
// the compiler's internal inputFrom table (which does not survive past
// ConstructEquations).
type Source interface {
	// OperatorFeeding returns the operator whose output wire lands on p, or
	// nil if p has no incoming wire from an operator.
	OperatorFeeding(p port.ID) *op.Node
	// VariableFeeding returns the variable whose output wire lands on p, or
	// nil if p has no incoming wire from a variable.
	VariableFeeding(p port.ID) string
}

// formatName renders a variable/operator display name: single ASCII letters
// (optionally followed by a subscript/superscript) render bare; anything
// else is wrapped in \mathrm{}. An underscore or caret splits off a
// sub/superscript, itself recursively formatted.
func formatName(name string) string {
	base := name
	sub, sup := "", ""
	if i := strings.IndexByte(base, '_'); i >= 0 {
		sub, base = base[i+1:], base[:i]
	}
	if i := strings.IndexByte(base, '^'); i >= 0 {
		sup, base = base[i+1:], base[:i]
	}
	out := wrapName(base)
	if sub != "" {
		out += "_{" + formatName(sub) + "}"
	}
	if sup != "" {
		out += "^{" + formatName(sup) + "}"
	}
	return out
}

func wrapName(s string) string {
	if len(s) == 1 && isLetter(s[0]) {
		return s
	}
	return `\mathrm{` + s + `}`
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// emitter walks operator DAGs, rendering each node as a LaTeX fragment with
// parentheses inserted per the BODMAS rule (§4.9, §9 open question: divide
// always uses \frac and never parenthesizes its operands; subtract
// parenthesizes its right operand on level-equality too, since it is not
// associative).
type emitter struct {
	src Source
}

// renderPort renders whatever feeds p (an operator input or a variable's own
// input) at the given surrounding BODMAS level, parenthesizing if this
// fragment's own level is looser than parentLevel requires. A parentLevel of
// 0 means there is no enclosing binary operator, so nothing is wrapped.
func (e *emitter) renderPort(p port.ID, parentLevel int, isRightOfSubtract bool) string {
	if n := e.src.OperatorFeeding(p); n != nil {
		return e.renderOperator(n, parentLevel, isRightOfSubtract)
	}
	if name := e.src.VariableFeeding(p); name != "" {
		return formatName(name)
	}
	return "0"
}

func (e *emitter) renderOperator(n *op.Node, parentLevel int, isRightOfSubtract bool) string {
	switch n.Kind {
	case op.Constant:
		frag := io.Sf("%g", n.ConstValue)
		lvl := n.EffectiveBodmas()
		if parentLevel > 0 && (lvl > parentLevel || (lvl == parentLevel && isRightOfSubtract)) {
			return `\left(` + frag + `\right)`
		}
		return frag
	case op.Time:
		return "t"
	case op.Copy:
		return e.renderPort(n.InPorts[0], parentLevel, false)
	case op.Exp:
		return `e^{` + e.renderPort(n.InPorts[0], 0, false) + `}`
	case op.Sqrt:
		return `\sqrt{` + e.renderPort(n.InPorts[0], 0, false) + `}`
	case op.Ln:
		return `\ln\left(` + e.renderPort(n.InPorts[0], 0, false) + `\right)`
	case op.Sin:
		return `\sin\left(` + e.renderPort(n.InPorts[0], 0, false) + `\right)`
	case op.Cos:
		return `\cos\left(` + e.renderPort(n.InPorts[0], 0, false) + `\right)`
	case op.Divide:
		// \frac{}{} is unambiguous: never parenthesize its operands and
		// never parenthesize the fraction itself.
		num := e.renderPort(n.InPorts[0], 0, false)
		den := e.renderPort(n.InPorts[1], 0, false)
		return `\frac{` + num + `}{` + den + `}`
	case op.Add, op.Subtract, op.Multiply:
		lvl := op.Bodmas(n.Kind)
		sym := map[op.Kind]string{op.Add: " + ", op.Subtract: " - ", op.Multiply: `\,`}[n.Kind]
		left := e.renderPort(n.InPorts[0], lvl, false)
		rightNeedsParen := n.Kind == op.Subtract
		right := e.renderPort(n.InPorts[1], lvl, rightNeedsParen)
		frag := left + sym + right
		if parentLevel > 0 && (lvl > parentLevel || (lvl == parentLevel && isRightOfSubtract)) {
			return `\left(` + frag + `\right)`
		}
		return frag
	}
	return formatName(n.DisplayName)
}

// renderGodleyColumn sums the signed flow terms posted against col across
// every non-initial-condition row of gm.Table, the same walk
// equation.Program.GodleyEval performs numerically, then renders the result
// as a signed LaTeX sum. Godley cells name flow variables directly rather
// than feeding an operator port, so there is no DAG to recurse into: each
// term is just formatName(term.Name) scaled by its accumulated coefficient.
func (e *emitter) renderGodleyColumn(gm *equation.GodleyModel, col equation.GodleyColumn) string {
	totals := make(map[string]float64)
	var order []string
	c := col.Index + 1
	for r := 1; r < len(gm.Table.Cells); r++ {
		if gm.Table.IsInitialConditionsRow(r) {
			continue
		}
		if c >= len(gm.Table.Cells[r]) {
			continue
		}
		for _, term := range gm.Table.Terms(r, c) {
			if _, ok := totals[term.Name]; !ok {
				order = append(order, term.Name)
			}
			totals[term.Name] += term.Coeff
		}
	}
	var b strings.Builder
	for _, name := range order {
		v := totals[name]
		if v == 0 {
			continue
		}
		sign := " + "
		if v < 0 {
			sign, v = " - ", -v
		}
		if b.Len() == 0 {
			sign = strings.TrimSpace(sign)
			if sign == "+" {
				sign = ""
			}
		}
		b.WriteString(sign)
		if v != 1 {
			b.WriteString(io.Sf("%g", v))
		}
		b.WriteString(formatName(name))
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// Emit renders net into a single eqnarray* block: one line for every
// non-integral LHS variable, then one d(name)/dt = rhs line per integral and
// per Godley stock (§4.9).
func Emit(net *equation.Network, src Source) string {
	var b strings.Builder
	b.WriteString("\\begin{eqnarray*}\n")
	e := &emitter{src: src}

	for _, v := range net.Vars.All() {
		if v.InPort == 0 || v.Slot == nil || v.Slot.Kind.String() != "flow" {
			continue
		}
		rhs := e.renderPort(v.InPort, 0, false)
		b.WriteString(formatName(v.Name) + " &=& " + rhs + " \\\\\n")
	}

	ids := make([]int, 0, len(net.Ops))
	for id := range net.Ops {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		n := net.Ops[id]
		if n.Kind != op.Integrate {
			continue
		}
		rhs := e.renderPort(n.InPorts[0], 0, false)
		b.WriteString(`\frac{d ` + formatName(n.IntegralVar) + `}{dt} &=& ` + rhs + " \\\\\n")
	}

	for _, gm := range net.Godleys {
		for _, col := range gm.Columns {
			rhs := e.renderGodleyColumn(gm, col)
			b.WriteString(`\frac{d ` + formatName(col.StockName) + `}{dt} &=& ` + rhs + " \\\\\n")
		}
	}

	b.WriteString("\\end{eqnarray*}\n")
	return b.String()
}
