// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package port

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_graph01(tst *testing.T) {

	chk.PrintTitle("graph01: basic wire policy")

	g := NewGraph()
	out := g.AddPort(nil, false, false)
	in := g.AddPort(nil, true, false)

	if g.AddWire(in, out) != -1 {
		tst.Errorf("wiring output<-input backwards should fail")
		return
	}
	w1 := g.AddWire(out, in)
	if w1 < 0 {
		tst.Errorf("valid wire should succeed")
		return
	}
	if g.AddWire(out, in) != -1 {
		tst.Errorf("duplicate (from,to) pair should fail")
	}

	out2 := g.AddPort(nil, false, false)
	if g.AddWire(out2, in) != -1 {
		tst.Errorf("second wire into a non-multiwire input should fail")
	}
}

func Test_graph02(tst *testing.T) {

	chk.PrintTitle("graph02: multiwire and self-loop")

	g := NewGraph()
	owner := "shared-owner"
	out := g.AddPort(owner, false, true)
	in := g.AddPort(owner, true, true)
	if g.AddWire(out, in) != -1 {
		tst.Errorf("self-loop on the same owner should fail even with multiwire")
	}

	out2 := g.AddPort("other", false, false)
	if g.AddWire(out2, in) < 0 {
		tst.Errorf("first wire into a multiwire input should succeed")
	}
	out3 := g.AddPort("other2", false, false)
	if g.AddWire(out3, in) < 0 {
		tst.Errorf("second wire into a multiwire input should succeed")
	}
}

func Test_graph03(tst *testing.T) {

	chk.PrintTitle("graph03: delete wire fires OnWireDeleted")

	g := NewGraph()
	deleted := 0
	g.OnWireDeleted = func(to ID) { deleted++ }
	out := g.AddPort(nil, false, false)
	in := g.AddPort(nil, true, false)
	w := g.AddWire(out, in)
	g.DeleteWire(w)
	if deleted != 1 {
		tst.Errorf("expected OnWireDeleted to fire once, got %d", deleted)
	}
	if g.IncomingWire(in) != nil {
		tst.Errorf("incoming wire should be gone after delete")
	}
}
