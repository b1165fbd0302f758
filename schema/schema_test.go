// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/equation"
	"github.com/hrnd-minsky/simcore/godley"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
	"github.com/hrnd-minsky/simcore/varmgr"
)

func newTestNetwork() *equation.Network {
	store := value.NewStore()
	graph := port.NewGraph()
	vars := varmgr.NewManager(store, graph)
	return equation.NewNetwork(store, graph, vars)
}

// Test_schema01 round-trips a simple constant-into-integrate network through
// Save, Marshal, Unmarshal and Load, and checks the rebuilt network compiles
// to the same equations as the original.
func Test_schema01(tst *testing.T) {

	chk.PrintTitle("schema01: save/marshal/unmarshal/load round-trip")

	net := newTestNetwork()
	c := net.AddOperator(op.Constant)
	c.ConstValue = 7
	c.X, c.Y = 10, 20
	integ := net.AddOperator(op.Integrate)
	integ.IntegralVar = "stock1"
	net.Vars.AddVariable(value.Stock, "stock1")
	if net.Graph.AddWire(c.OutPort, integ.InPorts[0]) < 0 {
		tst.Fatalf("wiring constant into integrate should succeed")
	}

	m := Save(net, RungeKutta{StepMin: 1e-5, StepMax: 1, EpsAbs: 1e-6, EpsRel: 1e-6, NSteps: 100}, 1.5)
	if m.SchemaVersion != CurrentVersion {
		tst.Errorf("expected schema version %d, got %d", CurrentVersion, m.SchemaVersion)
	}

	raw, err := Marshal(m)
	if err != nil {
		tst.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `<Minsky`) {
		tst.Errorf("expected a Minsky root element, got %s", raw)
	}

	back, err := Unmarshal(raw)
	if err != nil {
		tst.Fatalf("Unmarshal failed: %v", err)
	}
	if back.ZoomFactor != 1.5 {
		tst.Errorf("expected zoom factor to survive round trip, got %v", back.ZoomFactor)
	}

	doc, err := Load(raw)
	if err != nil {
		tst.Fatalf("Load failed: %v", err)
	}
	prog, err := doc.Net.ConstructEquations(nil)
	if err != nil {
		tst.Fatalf("rebuilt network failed to compile: %v", err)
	}
	sl := doc.Net.Store.Lookup("stock1")
	y := make([]float64, prog.NumStocks())
	yDot := make([]float64, prog.NumStocks())
	if err := prog.F(0, y, yDot); err != nil {
		tst.Fatalf("F failed: %v", err)
	}
	chk.Scalar(tst, "d(stock1)/dt after round-trip", 1e-15, yDot[sl.Idx], 7)
}

// Test_schema02 confirms a document with two records sharing the same id is
// rejected rather than silently overwritten.
func Test_schema02(tst *testing.T) {

	chk.PrintTitle("schema02: duplicate ids are rejected")

	m := &Model{SchemaVersion: CurrentVersion}
	m.Variables = append(m.Variables,
		VariableRec{Item: Item{ID: 1}, Type: "flow", Name: "a"},
		VariableRec{Item: Item{ID: 1}, Type: "flow", Name: "b"},
	)
	if err := checkDuplicateIDs(m); err == nil {
		tst.Errorf("expected a duplicate id error")
	}

	raw, err := Marshal(m)
	if err != nil {
		tst.Fatalf("Marshal failed: %v", err)
	}
	if _, err := Load(raw); err == nil {
		tst.Errorf("Load should reject a document with duplicate ids")
	}
}

// Test_schema03 feeds a schema-0 style document (no schemaVersion attribute,
// x/y embedded directly on each element) through Load and checks it falls
// back to loadLegacy and still rebuilds a working network.
func Test_schema03(tst *testing.T) {

	chk.PrintTitle("schema03: legacy schema-0 documents fall back correctly")

	legacyXML := `<?xml version="1.0" encoding="UTF-8"?>
<Minsky>
  <model>
    <ports></ports>
    <wires>
      <wire from="1" to="2"/>
    </wires>
    <operations>
      <operation id="10" type="constant" value="9" x="0" y="0">
        <port>1</port>
      </operation>
    </operations>
    <variables>
      <variable id="20" type="stock" name="stock1" x="5" y="5">
        <port>0</port>
        <port>2</port>
      </variable>
    </variables>
  </model>
</Minsky>`

	doc, err := Load([]byte(legacyXML))
	if err != nil {
		tst.Fatalf("Load of legacy document failed: %v", err)
	}
	if len(doc.Net.Ops) != 1 {
		tst.Errorf("expected one operator rebuilt from legacy document, got %d", len(doc.Net.Ops))
	}
	if doc.Net.Vars.ByName("stock1") == nil {
		tst.Errorf("expected stock1 to be rebuilt from legacy document")
	}
}

// Test_schema04 checks a Godley table round-trips its cells, asset classes
// and double-entry flag through Save/Load.
func Test_schema04(tst *testing.T) {

	chk.PrintTitle("schema04: godley tables round-trip cells and classes")

	net := newTestNetwork()
	t := godley.NewTable(2, 2)
	t.Cells[0] = []string{"", "money", "loans"}
	t.Cells[1] = []string{"lend", "-a", "a"}
	t.Classes[0] = godley.Asset
	t.Classes[1] = godley.Liability
	t.SetDoubleEntryMode(true)
	net.AddGodleyModel(t, 3, 4)
	net.Vars.AddVariable(value.Flow, "a")

	raw, err := Marshal(Save(net, RungeKutta{}, 1))
	if err != nil {
		tst.Fatalf("Marshal failed: %v", err)
	}
	doc, err := Load(raw)
	if err != nil {
		tst.Fatalf("Load failed: %v", err)
	}
	if len(doc.Net.Godleys) != 1 {
		tst.Fatalf("expected one godley table rebuilt, got %d", len(doc.Net.Godleys))
	}
	g := doc.Net.Godleys[0]
	if g.Table.Cells[0][1] != "money" || g.Table.Cells[1][1] != "-a" {
		tst.Errorf("unexpected rebuilt cells: %v", g.Table.Cells)
	}
	if g.Table.Classes[0] != godley.Asset || g.Table.Classes[1] != godley.Liability {
		tst.Errorf("unexpected rebuilt asset classes: %v", g.Table.Classes)
	}
	if !g.Table.DoubleEntry() {
		tst.Errorf("expected double-entry flag to survive round trip")
	}
}

// Test_schema05 checks a wire referencing an id absent from the document is
// reported as an error rather than silently dropped.
func Test_schema05(tst *testing.T) {

	chk.PrintTitle("schema05: a dangling wire reference is a load error")

	m := &Model{SchemaVersion: CurrentVersion}
	m.Wires = append(m.Wires, WireRec{Item: Item{ID: 1}, From: 99, To: 100})

	raw, err := Marshal(m)
	if err != nil {
		tst.Fatalf("Marshal failed: %v", err)
	}
	if _, err := Load(raw); err == nil {
		tst.Errorf("expected a dangling wire reference to fail Load")
	}
}
