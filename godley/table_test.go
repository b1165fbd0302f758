// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package godley

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_godley01(tst *testing.T) {

	chk.PrintTitle("godley01: column headings and row sum")

	t := NewTable(2, 2)
	t.Cells[0] = []string{"", "money", "loans"}
	t.Cells[1] = []string{"lend", "-a", "a"}

	cols := t.ColumnVariables()
	if len(cols) != 2 || cols[0] != "money" || cols[1] != "loans" {
		tst.Errorf("unexpected column headings: %v", cols)
		return
	}
	if sum := t.RowSum(1); sum != "0" {
		tst.Errorf("expected balanced row, got %q", sum)
	}
}

func Test_godley02(tst *testing.T) {

	chk.PrintTitle("godley02: double-entry toggle flips liability/equity signs")

	t := NewTable(2, 1)
	t.Cells[0] = []string{"", "loans"}
	t.Cells[1] = []string{"lend", "a"}
	t.Classes[0] = Liability

	t.SetDoubleEntryMode(true)
	if t.Cells[1][1] != "-a" {
		tst.Errorf("expected sign flipped to -a, got %q", t.Cells[1][1])
	}
	if !t.SignConventionReversed(0) {
		tst.Errorf("liability column should be sign-reversed in double-entry mode")
	}
}

func Test_godley03(tst *testing.T) {

	chk.PrintTitle("godley03: unbalanced row fails double-entry check")

	t := NewTable(2, 2)
	t.Cells[0] = []string{"", "money", "loans"}
	t.Cells[1] = []string{"lend", "-a", "b"} // doesn't cancel
	t.SetDoubleEntryMode(true)

	if err := t.CheckDoubleEntry(); err == nil {
		tst.Errorf("expected an unbalanced-row error")
	}
}

func Test_godley04(tst *testing.T) {

	chk.PrintTitle("godley04: initial-conditions row is excluded from balance checks")

	t := NewTable(2, 1)
	t.Cells[0] = []string{"", "money"}
	t.Cells[1] = []string{"Initial Conditions", "100"}
	t.SetDoubleEntryMode(true)

	if err := t.CheckDoubleEntry(); err != nil {
		tst.Errorf("initial conditions row should not be balance-checked: %v", err)
	}
}
