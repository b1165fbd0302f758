// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varmgr

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/hrnd-minsky/simcore/port"
	"github.com/hrnd-minsky/simcore/value"
)

func Test_manager01(tst *testing.T) {

	chk.PrintTitle("manager01: wired bookkeeping follows wire add/delete")

	store := value.NewStore()
	g := port.NewGraph()
	m := NewManager(store, g)

	v := m.AddVariable(value.Flow, "a")
	out := g.AddPort(nil, false, false)
	in := g.AddPort(v, true, false)
	m.BindPorts(v, in, out)

	if m.InputWired("a") {
		tst.Errorf("variable should start unwired")
		return
	}
	w := g.AddWire(out, in)
	if !m.InputWired("a") {
		tst.Errorf("variable should be wired after AddWire")
		return
	}
	g.DeleteWire(w)
	if m.InputWired("a") {
		tst.Errorf("variable should be unwired after DeleteWire")
	}
}

func Test_manager02(tst *testing.T) {

	chk.PrintTitle("manager02: All and ByName are deterministic")

	store := value.NewStore()
	g := port.NewGraph()
	m := NewManager(store, g)
	m.AddVariable(value.Flow, "x")
	m.AddVariable(value.Flow, "x")
	m.AddVariable(value.Flow, "y")

	for i := 0; i < 5; i++ {
		all := m.All()
		if len(all) != 3 {
			tst.Errorf("expected 3 variable instances, got %d", len(all))
			return
		}
		for j := 1; j < len(all); j++ {
			if all[j-1].ID >= all[j].ID {
				tst.Errorf("All() must be sorted by id")
				return
			}
		}
		if m.ByName("x").ID != all[0].ID {
			tst.Errorf("ByName should return the lowest-id instance")
		}
	}
}
