// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package op

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_kinds01(tst *testing.T) {

	chk.PrintTitle("kinds01: arity and fold table")

	if Arity(Add) != 2 || Arity(Constant) != 0 || Arity(Sin) != 1 {
		tst.Errorf("unexpected arity")
		return
	}
	for _, k := range []Kind{Add, Subtract, Multiply, Divide} {
		if !IsFoldable(k) {
			tst.Errorf("%v should be foldable", k)
		}
	}
	if IsFoldable(Sin) || IsFoldable(Copy) {
		tst.Errorf("unary operators should not be foldable")
	}
	if FoldKind(Subtract) != Add {
		tst.Errorf("subtract should fold as add")
	}
	if FoldKind(Divide) != Multiply {
		tst.Errorf("divide should fold as multiply")
	}
}

func Test_kinds02(tst *testing.T) {

	chk.PrintTitle("kinds02: identity values")

	v, ok := Identity(Add)
	if !ok || v != 0 {
		tst.Errorf("add identity should be 0")
	}
	v, ok = Identity(Multiply)
	if !ok || v != 1 {
		tst.Errorf("multiply identity should be 1")
	}
	if _, ok = Identity(Sin); ok {
		tst.Errorf("sin should have no identity")
	}
}

func Test_kinds03(tst *testing.T) {

	chk.PrintTitle("kinds03: evaluate and derivative consistency")

	chk.Scalar(tst, "2/4", 1e-17, Evaluate(Divide, 2, 4, 0, 0), 0.5)
	da, db := Derivative(Divide, 2, 4, 0)
	chk.Scalar(tst, "d(a/b)/da", 1e-17, da, 0.25)
	chk.Scalar(tst, "d(a/b)/db", 1e-17, db, -0.125)

	if ConstantBodmas("a") != 1 {
		tst.Errorf("plain constant should bodmas level 1")
	}
	if ConstantBodmas("-a") != 2 {
		tst.Errorf("signed display name should bodmas level 2")
	}
}
