// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"math"
	"testing"

	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
)

// fakeInvoker stands in for the dispatcher's reentrant call API: it
// always returns a fixed result, recording the fn/args it was called
// with so tests can assert on them.
type fakeInvoker struct {
	results []value.Value
	err     error

	lastFn   value.Value
	lastArgs []value.Value
}

func (f *fakeInvoker) Call(fn value.Value, args []value.Value) ([]value.Value, error) {
	f.lastFn = fn
	f.lastArgs = args
	return f.results, f.err
}

func newTestResolver(t *testing.T) (*Resolver, *gc.Collector, *state.State) {
	t.Helper()
	c := gc.New(gc.DefaultConfig())
	s := state.New(c)
	k := NewKeys(c)
	return NewResolver(s, k), c, s
}

func TestIndexRawHit(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	key := value.Obj(c.Intern("x"))
	tbl.Set(key, value.Int(42))

	got, err := r.Index(value.Obj(tbl), key, &fakeInvoker{})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got != value.Int(42) {
		t.Errorf("Index(present key) = %v, want 42", got)
	}
}

func TestIndexFallsBackToIndexMetamethodTable(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	parent := c.AllocTable()
	key := value.Obj(c.Intern("y"))
	parent.Set(key, value.Int(7))

	mt := c.AllocTable()
	mt.Set(value.Obj(r.Keys.Index), value.Obj(parent))
	tbl.SetMetatable(mt)

	got, err := r.Index(value.Obj(tbl), key, &fakeInvoker{})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got != value.Int(7) {
		t.Errorf("Index(missing key, __index table) = %v, want 7 from parent", got)
	}
}

func TestIndexFunctionMetamethodReceivesTableAndKey(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	nc := c.AllocNativeClosure(1, "indexer")
	mt := c.AllocTable()
	mt.Set(value.Obj(r.Keys.Index), value.Obj(nc))
	tbl.SetMetatable(mt)

	key := value.Obj(c.Intern("z"))
	inv := &fakeInvoker{results: []value.Value{value.Int(99)}}
	got, err := r.Index(value.Obj(tbl), key, inv)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got != value.Int(99) {
		t.Errorf("Index via __index function = %v, want 99", got)
	}
	if len(inv.lastArgs) != 2 || inv.lastArgs[0] != value.Obj(tbl) || inv.lastArgs[1] != key {
		t.Errorf("__index function called with args %v, want (table, key)", inv.lastArgs)
	}
}

func TestIndexNoMetatableOnNonTableErrors(t *testing.T) {
	r, _, _ := newTestResolver(t)
	if _, err := r.Index(value.Int(5), value.Int(1), &fakeInvoker{}); err == nil {
		t.Errorf("Index on a number with no metatable: want error, got nil")
	}
}

func TestCallableDirectFunction(t *testing.T) {
	r, c, _ := newTestResolver(t)
	nc := c.AllocNativeClosure(1, "f")
	fn, prepend, ok := r.Callable(value.Obj(nc))
	if !ok || prepend || fn != value.Obj(nc) {
		t.Errorf("Callable(function) = (%v, %v, %v), want (fn, false, true)", fn, prepend, ok)
	}
}

func TestCallableViaCallMetamethodPrependsSelf(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	nc := c.AllocNativeClosure(1, "handler")
	mt := c.AllocTable()
	mt.Set(value.Obj(r.Keys.Call), value.Obj(nc))
	tbl.SetMetatable(mt)

	fn, prepend, ok := r.Callable(value.Obj(tbl))
	if !ok || !prepend || fn != value.Obj(nc) {
		t.Errorf("Callable(table with __call) = (%v, %v, %v), want (nc, true, true)", fn, prepend, ok)
	}
}

func TestCallableNotCallable(t *testing.T) {
	r, _, _ := newTestResolver(t)
	if _, _, ok := r.Callable(value.Int(5)); ok {
		t.Errorf("Callable(number with no __call) = ok, want not callable")
	}
}

func TestLenString(t *testing.T) {
	r, c, _ := newTestResolver(t)
	s := c.Intern("hello")
	got, err := r.Len(value.Obj(s), &fakeInvoker{})
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if got != value.Int(5) {
		t.Errorf("Len(\"hello\") = %v, want 5", got)
	}
}

func TestLenTableFallsBackToBorder(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	tbl.Set(value.Int(1), value.Int(10))
	tbl.Set(value.Int(2), value.Int(20))
	got, err := r.Len(value.Obj(tbl), &fakeInvoker{})
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if got != value.Int(2) {
		t.Errorf("Len(table with 2 entries) = %v, want 2", got)
	}
}

func TestBinaryPrefersFirstOperand(t *testing.T) {
	r, c, _ := newTestResolver(t)
	aNC := c.AllocNativeClosure(1, "a-add")
	bNC := c.AllocNativeClosure(2, "b-add")

	aMT := c.AllocTable()
	aMT.Set(value.Obj(r.Keys.Add), value.Obj(aNC))
	aTbl := c.AllocTable()
	aTbl.SetMetatable(aMT)

	bMT := c.AllocTable()
	bMT.Set(value.Obj(r.Keys.Add), value.Obj(bNC))
	bTbl := c.AllocTable()
	bTbl.SetMetatable(bMT)

	fn, ok := r.Binary(r.Keys.Add, value.Obj(aTbl), value.Obj(bTbl))
	if !ok || fn != value.Obj(aNC) {
		t.Errorf("Binary(__add) = (%v, %v), want first operand's metamethod", fn, ok)
	}
}

func TestEqRestrictedToTablesAndUserdata(t *testing.T) {
	r, _, _ := newTestResolver(t)
	if _, ok := r.Eq(value.Int(1), value.Int(1)); ok {
		t.Errorf("Eq(number, number): want not resolved via __eq, got resolved")
	}
}

func TestNewIndexRejectsNilKey(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	err := r.NewIndex(value.Obj(tbl), value.Nil, value.Int(1), rawSet, &fakeInvoker{})
	if err == nil {
		t.Fatalf("NewIndex(nil key): want error, got nil")
	}
}

func TestNewIndexRejectsNaNKey(t *testing.T) {
	r, c, _ := newTestResolver(t)
	tbl := c.AllocTable()
	nan := value.Float(math.NaN())
	err := r.NewIndex(value.Obj(tbl), nan, value.Int(1), rawSet, &fakeInvoker{})
	if err == nil {
		t.Fatalf("NewIndex(NaN key): want error, got nil")
	}
}

func rawSet(t *value.Table, key, val value.Value) error {
	t.Set(key, val)
	return nil
}

func TestArithKeyUnknownOpReturnsNil(t *testing.T) {
	_, c, _ := newTestResolver(t)
	k := NewKeys(c)
	if got := k.ArithKey("nope"); got != nil {
		t.Errorf("ArithKey(unknown) = %v, want nil", got)
	}
	if got := k.ArithKey("add"); got != k.Add {
		t.Errorf("ArithKey(\"add\") = %v, want k.Add", got)
	}
}
