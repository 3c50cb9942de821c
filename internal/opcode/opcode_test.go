// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opcode

import "testing"

func TestABCRoundTrip(t *testing.T) {
	cases := []struct {
		op      Op
		a       int
		k       bool
		b, c    int
	}{
		{OpAdd, 0, false, 0, 0},
		{OpMove, 255, true, 255, 127},
		{OpGetTable, 10, false, 3, 0},
		{OpSetField, 1, true, 200, 100},
	}
	for _, c := range cases {
		inst := MakeABC(c.op, c.a, c.k, c.b, c.c)
		if got := GetOp(inst); got != c.op {
			t.Errorf("op: got %v want %v", got, c.op)
		}
		if got := GetA(inst); got != c.a {
			t.Errorf("a: got %d want %d", got, c.a)
		}
		if got := GetK(inst); got != c.k {
			t.Errorf("k: got %v want %v", got, c.k)
		}
		if got := GetB(inst); got != c.b {
			t.Errorf("b: got %d want %d", got, c.b)
		}
		if got := GetC(inst); got != c.c {
			t.Errorf("c: got %d want %d", got, c.c)
		}
	}
}

func TestABxRoundTrip(t *testing.T) {
	inst := MakeABx(OpLoadK, 5, 65535)
	if GetA(inst) != 5 {
		t.Errorf("a mismatch")
	}
	if GetBx(inst) != 65535 {
		t.Errorf("bx mismatch, got %d", GetBx(inst))
	}
}

func TestAsBxRoundTrip(t *testing.T) {
	for _, sbx := range []int{0, 1, -1, 32767, -32768} {
		inst := MakeAsBx(OpJmp, 0, sbx)
		if got := GetSBx(inst); got != sbx {
			t.Errorf("sbx round trip: got %d want %d", got, sbx)
		}
	}
}

func TestAxRoundTrip(t *testing.T) {
	inst := MakeAx(OpExtraArg, 0xABCDEF)
	if got := GetAx(inst); got != 0xABCDEF {
		t.Errorf("ax round trip: got %x want %x", got, 0xABCDEF)
	}
}

func TestSJRoundTrip(t *testing.T) {
	for _, sj := range []int{0, 100, -100, 1 << 22, -(1 << 22)} {
		inst := MakeSJ(OpJmp, sj)
		if got := GetSJ(inst); got != sj {
			t.Errorf("sj round trip: got %d want %d", got, sj)
		}
	}
}

func TestOpString(t *testing.T) {
	if OpAdd.String() != "ADD" {
		t.Errorf("OpAdd.String() = %q", OpAdd.String())
	}
	if !OpAdd.Valid() {
		t.Errorf("OpAdd should be valid")
	}
}
