// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/value"
)

func TestPrimKindOf(t *testing.T) {
	c := gc.New(gc.DefaultConfig())
	s := New(c)

	tests := []struct {
		name string
		v    value.Value
		want PrimKind
	}{
		{"nil", value.Nil, PrimNil},
		{"bool", value.Bool(true), PrimBool},
		{"int", value.Int(3), PrimNumber},
		{"float", value.Float(3.5), PrimNumber},
		{"string", value.Obj(s.GC.Intern("x")), PrimString},
		{"table", value.Obj(s.GC.AllocTable()), 0},
	}
	for _, tt := range tests {
		got, ok := PrimKindOf(tt.v)
		if tt.name == "table" {
			if ok {
				t.Errorf("%s: PrimKindOf returned ok=true, want false (tables aren't a PrimKind)", tt.name)
			}
			continue
		}
		if !ok || got != tt.want {
			t.Errorf("%s: PrimKindOf = (%v, %v), want (%v, true)", tt.name, got, ok, tt.want)
		}
	}
}

func TestMetatableOfTableUsesOwnMetatable(t *testing.T) {
	c := gc.New(gc.DefaultConfig())
	s := New(c)

	tbl := c.AllocTable()
	mt := c.AllocTable()
	tbl.SetMetatable(mt)

	if got := s.MetatableOf(value.Obj(tbl)); got != mt {
		t.Errorf("MetatableOf(table) = %v, want its own metatable", got)
	}
}

func TestMetatableOfPrimitiveUsesSharedMetatable(t *testing.T) {
	c := gc.New(gc.DefaultConfig())
	s := New(c)

	mt := c.AllocTable()
	s.SetSharedMetatable(PrimString, mt)

	str := value.Obj(c.Intern("hello"))
	if got := s.MetatableOf(str); got != mt {
		t.Errorf("MetatableOf(string) = %v, want shared string metatable", got)
	}
	if got := s.MetatableOf(value.Int(1)); got != nil {
		t.Errorf("MetatableOf(int) = %v, want nil (no shared metatable set for numbers)", got)
	}
}

func TestMarkRootsVisitsGlobalsAndRegistry(t *testing.T) {
	c := gc.New(gc.DefaultConfig())
	s := New(c)

	var seen []value.Object
	s.MarkRoots(func(o value.Object) { seen = append(seen, o) })

	foundGlobals, foundRegistry := false, false
	for _, o := range seen {
		if o == s.Globals {
			foundGlobals = true
		}
		if o == s.Registry {
			foundRegistry = true
		}
	}
	if !foundGlobals || !foundRegistry {
		t.Errorf("MarkRoots didn't visit both Globals and Registry: foundGlobals=%v foundRegistry=%v", foundGlobals, foundRegistry)
	}
}
