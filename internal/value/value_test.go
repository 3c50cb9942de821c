// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), true},
		{Float(0), true},
		{Obj(NewTable()), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestRawEqualNumericCrossType(t *testing.T) {
	if !RawEqual(Int(3), Float(3.0)) {
		t.Errorf("expected Int(3) == Float(3.0)")
	}
	if RawEqual(Int(3), Float(3.5)) {
		t.Errorf("did not expect Int(3) == Float(3.5)")
	}
}

func TestRawEqualStringIdentity(t *testing.T) {
	a := NewString("hello")
	b := NewString("hello")
	if RawEqual(Obj(a), Obj(b)) {
		t.Errorf("distinct (uninterned) String objects with equal bytes must not be RawEqual")
	}
	if !RawEqual(Obj(a), Obj(a)) {
		t.Errorf("a string must be RawEqual to itself")
	}
}

func TestTableLenSeq(t *testing.T) {
	tbl := NewTable()
	for i := int64(1); i <= 3; i++ {
		tbl.Set(Int(i), Int(i*10))
	}
	if got := tbl.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestTableLenEmpty(t *testing.T) {
	if (NewTable()).Len() != 0 {
		t.Errorf("empty table Len() should be 0")
	}
}

func TestTableFloatIntKeyAlias(t *testing.T) {
	tbl := NewTable()
	tbl.Set(Int(1), Int(100))
	if got := tbl.Get(Float(1.0)); got.AsInt() != 100 {
		t.Errorf("t[1.0] should alias t[1], got %v", got)
	}
}

func TestUpvalueOpenClose(t *testing.T) {
	slot := &testSlot{v: Int(1)}
	uv := NewOpenUpvalue(0, slot)
	if !uv.IsOpen() {
		t.Fatalf("expected open upvalue")
	}
	slot.v = Int(2)
	if got := uv.Get().AsInt(); got != 2 {
		t.Errorf("open upvalue should read through to stack slot, got %d", got)
	}
	uv.Close()
	if uv.IsOpen() {
		t.Errorf("expected closed upvalue")
	}
	slot.v = Int(99)
	if got := uv.Get().AsInt(); got != 2 {
		t.Errorf("closed upvalue should be independent of later stack writes, got %d", got)
	}
}

type testSlot struct{ v Value }

func (s *testSlot) Get() Value  { return s.v }
func (s *testSlot) Set(v Value) { s.v = v }
