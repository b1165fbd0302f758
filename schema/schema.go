// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package schema implements XML persistence for a Minsky model (§6).
// Grounded on the system-dynamics XMILE encoder/decoder pattern (struct
// tags over encoding/xml, no text/template) and on the field layout of
// schema1.h/schema0.cc: a flat Item/Port/Wire/Operation/Variable/Godley
// record set plus a parallel Layout list, rather than embedding geometry
// directly on the domain objects.
package schema

import (
	"encoding/xml"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/equation"
	"github.com/hrnd-minsky/simcore/godley"
	"github.com/hrnd-minsky/simcore/op"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
	"github.com/hrnd-minsky/simcore/varmgr"
)

// CurrentVersion is the schema version this package writes. Renamed
// attributes require bumping this; deprecated-but-still-read attributes do
// not (matches the original schema1.h doc comment).
const CurrentVersion = 1

// Item is embedded by every persisted record; id is unique across the
// entire document, not just within one record kind (§6 "model-wide unique
// integer ids").
type Item struct {
	ID int `xml:"id,attr"`
}

// PortRec mirrors schema1::Port.
type PortRec struct {
	Item
	Input bool `xml:"input,attr"`
	Owner int  `xml:"owner,attr"`
}

// WireRec mirrors schema1::Wire.
type WireRec struct {
	Item
	From int `xml:"from,attr"`
	To   int `xml:"to,attr"`
}

// OperationRec mirrors schema1::Operation.
type OperationRec struct {
	Item
	Type  string  `xml:"type,attr"`
	Value float64 `xml:"value,attr,omitempty"`
	Ports []int   `xml:"port"`
	Name  string  `xml:"name,attr,omitempty"`
	// IntVar is the id of the Variable record this Integrate operator
	// owns; zero for every other kind.
	IntVar int `xml:"intVar,attr,omitempty"`
}

// VariableRec mirrors schema1::Variable.
type VariableRec struct {
	Item
	Type  string  `xml:"type,attr"`
	Init  float64 `xml:"init,attr,omitempty"`
	Ports []int   `xml:"port"`
	Name  string  `xml:"name,attr"`
}

// GodleyRec mirrors schema1::Godley. Unlike the original, it carries no port
// list: flows are bound to table cells by name (§4.5), not by wiring a
// Godley icon's own ports, so there is nothing for this engine to persist
// there.
type GodleyRec struct {
	Item
	DoubleEntry  bool        `xml:"doubleEntryCompliant,attr"`
	Name         string      `xml:"name,attr,omitempty"`
	Rows         []GodleyRow `xml:"row"`
	AssetClasses []string    `xml:"assetClass"`
}

// GodleyRow is one row of a Godley table, serialized cell-by-cell so column
// count can vary row to row exactly as the in-memory godley.Table allows.
type GodleyRow struct {
	Cells []string `xml:"cell"`
}

// Layout is the parallel geometry table (§6: "a parallel layout list" as
// opposed to embedding x/y on the domain records themselves).
type Layout struct {
	ID int     `xml:"id,attr"`
	X  float64 `xml:"x,attr"`
	Y  float64 `xml:"y,attr"`
}

// RungeKutta persists the integration tunables (§4.8).
type RungeKutta struct {
	StepMin float64 `xml:"stepMin,attr"`
	StepMax float64 `xml:"stepMax,attr"`
	EpsAbs  float64 `xml:"epsAbs,attr"`
	EpsRel  float64 `xml:"epsRel,attr"`
	NSteps  int     `xml:"nSteps,attr"`
}

// Model is the root document (§6).
type Model struct {
	XMLName       xml.Name       `xml:"Minsky"`
	SchemaVersion int            `xml:"schemaVersion,attr"`
	ZoomFactor    float64        `xml:"zoomFactor,attr"`
	Ports         []PortRec      `xml:"model>ports>port"`
	Wires         []WireRec      `xml:"model>wires>wire"`
	Operations    []OperationRec `xml:"model>operations>operation"`
	Variables     []VariableRec  `xml:"model>variables>variable"`
	Godleys       []GodleyRec    `xml:"model>godleys>godley"`
	RK            RungeKutta     `xml:"model>rungeKutta"`
	Layouts       []Layout       `xml:"layout>item"`
}

// Marshal renders m as a complete XML document with declaration.
func Marshal(m *Model) ([]byte, error) {
	out, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Unmarshal parses raw into a Model, without yet validating it.
func Unmarshal(raw []byte) (*Model, error) {
	m := &Model{}
	if err := xml.Unmarshal(raw, m); err != nil {
		return nil, err
	}
	return m, nil
}

// checkDuplicateIDs enforces the model-wide unique-id invariant (§6): a
// duplicate anywhere is a persistence error, not a silent overwrite.
func checkDuplicateIDs(m *Model) error {
	seen := make(map[int]bool)
	mark := func(id int) error {
		if seen[id] {
			return chk.Err("duplicate item id %d in schema document", id)
		}
		seen[id] = true
		return nil
	}
	for _, p := range m.Ports {
		if err := mark(p.ID); err != nil {
			return err
		}
	}
	for _, w := range m.Wires {
		if err := mark(w.ID); err != nil {
			return err
		}
	}
	for _, o := range m.Operations {
		if err := mark(o.ID); err != nil {
			return err
		}
	}
	for _, v := range m.Variables {
		if err := mark(v.ID); err != nil {
			return err
		}
	}
	for _, g := range m.Godleys {
		if err := mark(g.ID); err != nil {
			return err
		}
	}
	return nil
}

var opTypeNames = map[op.Kind]string{
	op.Constant: "constant", op.Time: "time", op.Copy: "copy",
	op.Exp: "exp", op.Sqrt: "sqrt", op.Ln: "ln", op.Sin: "sin", op.Cos: "cos",
	op.Add: "add", op.Subtract: "subtract", op.Multiply: "multiply",
	op.Divide: "divide", op.Integrate: "integrate",
}

func opKindFromName(name string) (op.Kind, bool) {
	for k, n := range opTypeNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

var varKindNames = map[value.Kind]string{
	value.Flow: "flow", value.Stock: "stock", value.Integral: "integral",
}

func varKindFromName(name string) value.Kind {
	for k, n := range varKindNames {
		if n == name {
			return k
		}
	}
	return value.Flow
}

// Document captures a live model's current graph state for Save, and is the
// product of Load: the caller re-derives its equation.Network /
// varmgr.Manager / port.Graph afresh from it, implementing the §6 "clear_all
// then rebuild" contract rather than mutating live state in place.
type Document struct {
	Net     *equation.Network
	RK      RungeKutta
	Zoom    float64
}

// Save serializes net into a Model, assigning fresh sequential ids and
// recording each item's canvas position into the parallel Layout list. Each
// domain record's own Ports list is the authority Load rebuilds wiring
// from; the standalone model>ports>port table is emitted purely for
// document fidelity with the original schema's per-port record shape.
func Save(net *equation.Network, rk RungeKutta, zoom float64) *Model {
	m := &Model{SchemaVersion: CurrentVersion, ZoomFactor: zoom, RK: rk}
	nextID := 1
	portIDs := make(map[port.ID]int)
	var portOrder []port.ID
	assignPort := func(p port.ID, owner int) int {
		if p == 0 {
			return 0
		}
		id := nextID
		nextID++
		pp := net.Graph.Port(p)
		m.Ports = append(m.Ports, PortRec{Item: Item{ID: id}, Input: pp.IsInput, Owner: owner})
		portIDs[p] = id
		portOrder = append(portOrder, p)
		return id
	}

	opIDs := make([]int, 0, len(net.Ops))
	for id := range net.Ops {
		opIDs = append(opIDs, id)
	}
	sort.Ints(opIDs)
	for _, oid := range opIDs {
		n := net.Ops[oid]
		recID := nextID
		nextID++
		var ports []int
		ports = append(ports, assignPort(n.OutPort, recID))
		for _, ip := range n.InPorts {
			ports = append(ports, assignPort(ip, recID))
		}
		rec := OperationRec{Item: Item{ID: recID}, Type: opTypeNames[n.Kind], Value: n.ConstValue, Ports: ports, Name: n.DisplayName}
		if n.Kind == op.Integrate {
			rec.Name = n.IntegralVar
		}
		m.Operations = append(m.Operations, rec)
		m.Layouts = append(m.Layouts, Layout{ID: recID, X: n.X, Y: n.Y})
	}

	for _, v := range net.Vars.All() {
		recID := nextID
		nextID++
		ports := []int{assignPort(v.OutPort, recID), assignPort(v.InPort, recID)}
		m.Variables = append(m.Variables, VariableRec{
			Item: Item{ID: recID}, Type: varKindNames[v.Slot.Kind], Init: v.Slot.Init,
			Ports: ports, Name: v.Name,
		})
	}

	for _, gm := range net.Godleys {
		recID := nextID
		nextID++
		var rows []GodleyRow
		for _, row := range gm.Table.Cells {
			rows = append(rows, GodleyRow{Cells: row})
		}
		var classes []string
		for _, c := range gm.Table.Classes {
			classes = append(classes, assetClassName(c))
		}
		m.Godleys = append(m.Godleys, GodleyRec{
			Item: Item{ID: recID}, DoubleEntry: gm.Table.DoubleEntry(), Rows: rows, AssetClasses: classes,
		})
		m.Layouts = append(m.Layouts, Layout{ID: recID, X: gm.X, Y: gm.Y})
	}

	for _, p := range portOrder {
		for _, w := range net.Graph.OutgoingWires(p) {
			to, ok := portIDs[w.To]
			if !ok {
				continue
			}
			m.Wires = append(m.Wires, WireRec{Item: Item{ID: nextID}, From: portIDs[p], To: to})
			nextID++
		}
	}

	return m
}

func assetClassName(c godley.AssetClass) string {
	switch c {
	case godley.Asset:
		return "asset"
	case godley.Liability:
		return "liability"
	case godley.Equity:
		return "equity"
	}
	return "unclassified"
}

func assetClassFromName(s string) godley.AssetClass {
	switch s {
	case "asset":
		return godley.Asset
	case "liability":
		return godley.Liability
	case "equity":
		return godley.Equity
	}
	return godley.Unclassified
}

// Load validates and rebuilds a fresh Network from raw XML, trying the
// current schema first and falling back to the legacy, layout-less schema 0
// encoding if the version doesn't match (§6: "model-wide unique ids...
// loading a schema-version-1 document must always succeed", with a fallback
// path for older documents).
func Load(raw []byte) (*Document, error) {
	m, err := Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	if m.SchemaVersion != CurrentVersion {
		return loadLegacy(raw)
	}
	if err := checkDuplicateIDs(m); err != nil {
		return nil, err
	}
	return rebuild(m)
}

// rebuild performs the §6 "clear_all, then rebuild from the document" load
// contract: a brand new Store/Graph/Manager/Network is constructed, so a
// failure partway through never leaves the caller's previous model mutated.
func rebuild(m *Model) (*Document, error) {
	store := value.NewStore()
	graph := port.NewGraph()
	vars := varmgr.NewManager(store, graph)
	net := equation.NewNetwork(store, graph, vars)

	// Each record's own Ports list is the authority for wiring: a variable
	// allocates its own raw ports here (varmgr never does), and an operator's
	// ports are the ones AddOperator already allocated by arity. The
	// standalone model>ports>port table is descriptive only (Save emits it
	// for document fidelity) and is not consulted here.
	portByID := make(map[int]port.ID)

	layoutByID := make(map[int]Layout)
	for _, l := range m.Layouts {
		layoutByID[l.ID] = l
	}

	for _, vr := range m.Variables {
		kind := varKindFromName(vr.Type)
		v := vars.AddVariable(kind, vr.Name)
		v.Slot.Init = vr.Init
		var in, out port.ID
		if len(vr.Ports) > 0 && vr.Ports[0] != 0 {
			out = graph.AddPort(v, false, false)
			portByID[vr.Ports[0]] = out
		}
		if len(vr.Ports) > 1 && vr.Ports[1] != 0 {
			in = graph.AddPort(v, true, false)
			portByID[vr.Ports[1]] = in
		}
		vars.BindPorts(v, in, out)
	}

	for _, or := range m.Operations {
		kind, ok := opKindFromName(or.Type)
		if !ok {
			return nil, chk.Err("unknown operation type %q", or.Type)
		}
		n := net.AddOperator(kind)
		n.ConstValue = or.Value
		n.DisplayName = or.Name
		if kind == op.Integrate {
			n.IntegralVar = or.Name
		}
		if len(or.Ports) > 0 {
			portByID[or.Ports[0]] = n.OutPort
		}
		for i, ip := range n.InPorts {
			if i+1 < len(or.Ports) {
				portByID[or.Ports[i+1]] = ip
			}
		}
		if l, ok := layoutByID[or.ID]; ok {
			n.X, n.Y = l.X, l.Y
		}
	}

	for _, gr := range m.Godleys {
		nRows := len(gr.Rows)
		nCols := 0
		if nRows > 0 {
			nCols = len(gr.Rows[0].Cells) - 1
		}
		t := godley.NewTable(nRows, nCols)
		for r, row := range gr.Rows {
			t.Cells[r] = row.Cells
		}
		for i, c := range gr.AssetClasses {
			if i < len(t.Classes) {
				t.Classes[i] = assetClassFromName(c)
			}
		}
		t.SetDoubleEntryRaw(gr.DoubleEntry)
		x, y := 0.0, 0.0
		if l, ok := layoutByID[gr.ID]; ok {
			x, y = l.X, l.Y
		}
		net.AddGodleyModel(t, x, y)
	}

	for _, wr := range m.Wires {
		from, fromOK := portByID[wr.From]
		to, toOK := portByID[wr.To]
		if !fromOK || !toOK {
			return nil, chk.Err("wire %d references unknown port", wr.ID)
		}
		if graph.AddWire(from, to) < 0 {
			return nil, chk.Err("wire %d violates port policy", wr.ID)
		}
	}

	return &Document{Net: net, RK: m.RK, Zoom: m.ZoomFactor}, nil
}

// --- legacy schema 0 -------------------------------------------------------
//
// Schema 0 (the original, pre-schema1 "Aristotle" format) has no parallel
// layout list: x/y are embedded directly on each Operation/Variable element,
// matching schema0.cc. It also has no schemaVersion attribute at all, which
// is exactly the signal Load uses to fall back here.

type legacyPort struct {
	Input bool    `xml:"input,attr"`
	X     float64 `xml:"x,attr"`
	Y     float64 `xml:"y,attr"`
}

type legacyWire struct {
	From int `xml:"from,attr"`
	To   int `xml:"to,attr"`
}

type legacyOperation struct {
	ID     int     `xml:"id,attr"`
	Type   string  `xml:"type,attr"`
	Value  float64 `xml:"value,attr,omitempty"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Ports  []int   `xml:"port"`
	Name   string  `xml:"description,attr,omitempty"`
	IntVar int     `xml:"intVar,attr,omitempty"`
}

type legacyVariable struct {
	ID    int     `xml:"id,attr"`
	Type  string  `xml:"type,attr"`
	Init  float64 `xml:"init,attr,omitempty"`
	X     float64 `xml:"x,attr"`
	Y     float64 `xml:"y,attr"`
	Ports []int   `xml:"port"`
	Name  string  `xml:"name,attr"`
}

type legacyModel struct {
	XMLName    xml.Name          `xml:"Minsky"`
	Ports      []legacyPort      `xml:"model>ports>port"`
	Wires      []legacyWire      `xml:"model>wires>wire"`
	Operations []legacyOperation `xml:"model>operations>operation"`
	Variables  []legacyVariable  `xml:"model>variables>variable"`
	RK         RungeKutta        `xml:"model>rungeKutta"`
}

// loadLegacy translates a schema-0 document into the current Model shape
// (hoisting each element's embedded x/y into the parallel Layout list) and
// hands off to rebuild, so the rest of the load pipeline (duplicate-id
// checking, wiring, clear_all semantics) is shared rather than duplicated.
func loadLegacy(raw []byte) (*Document, error) {
	var lm legacyModel
	if err := xml.Unmarshal(raw, &lm); err != nil {
		return nil, err
	}
	m := &Model{SchemaVersion: CurrentVersion, RK: lm.RK}
	for i, w := range lm.Wires {
		// Schema 0 wires carry no id of their own; synthesize one purely so
		// the shared duplicate-id check has something non-colliding to look at.
		m.Wires = append(m.Wires, WireRec{Item: Item{ID: -(i + 1)}, From: w.From, To: w.To})
	}
	for _, o := range lm.Operations {
		m.Operations = append(m.Operations, OperationRec{
			Item: Item{ID: o.ID}, Type: o.Type, Value: o.Value, Ports: o.Ports, Name: o.Name,
		})
		m.Layouts = append(m.Layouts, Layout{ID: o.ID, X: o.X, Y: o.Y})
	}
	for _, v := range lm.Variables {
		m.Variables = append(m.Variables, VariableRec{
			Item: Item{ID: v.ID}, Type: v.Type, Init: v.Init, Ports: v.Ports, Name: v.Name,
		})
		m.Layouts = append(m.Layouts, Layout{ID: v.ID, X: v.X, Y: v.Y})
	}
	if err := checkDuplicateIDs(m); err != nil {
		return nil, err
	}
	return rebuild(m)
}
