// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/errs"
	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/meta"
	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	c := gc.New(gc.DefaultConfig())
	st := state.New(c)
	keys := meta.NewKeys(c)
	resolver := meta.NewResolver(st, keys)
	sh := &Shared{
		GC:      c,
		State:   st,
		Meta:    resolver,
		Natives: map[value.NativeID]NativeFunc{},
	}
	return NewMainVM(sh, 64)
}

func TestCallNativeFunctionRoundTrip(t *testing.T) {
	m := newTestVM(t)
	const id value.NativeID = 1
	m.Natives[id] = func(vm *VM, base, nargs, nresults int) (int, error) {
		sum := int64(0)
		for i := 0; i < nargs; i++ {
			sum += vm.Stack.Get(base + i).AsInt()
		}
		vm.Stack.Set(base, value.Int(sum))
		return 1, nil
	}
	nc := m.GC.AllocNativeClosure(id, "sum")

	results, err := m.Call(value.Obj(nc), []value.Value{value.Int(2), value.Int(3), value.Int(4)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(results) != 1 || results[0] != value.Int(9) {
		t.Errorf("Call results = %v, want [9]", results)
	}
}

func TestCallPropagatesNativeError(t *testing.T) {
	m := newTestVM(t)
	const id value.NativeID = 1
	m.Natives[id] = func(vm *VM, base, nargs, nresults int) (int, error) {
		return 0, errs.New(errs.KindUser, "", 0, "boom")
	}
	nc := m.GC.AllocNativeClosure(id, "boom")

	if _, err := m.Call(value.Obj(nc), nil); err == nil {
		t.Fatalf("Call: want error, got nil")
	}
}

func TestPCallCatchesNativeError(t *testing.T) {
	m := newTestVM(t)
	const id value.NativeID = 1
	m.Natives[id] = func(vm *VM, base, nargs, nresults int) (int, error) {
		return 0, errs.New(errs.KindUser, "", 0, "boom")
	}
	nc := m.GC.AllocNativeClosure(id, "boom")

	results, ok, raised, err := m.PCall(value.Obj(nc), nil)
	if err != nil {
		t.Fatalf("PCall: unexpected Go error %v", err)
	}
	if ok {
		t.Fatalf("PCall: ok = true, want false")
	}
	if results != nil {
		t.Errorf("PCall: results = %v, want nil", results)
	}
	if raised.IsNil() {
		t.Errorf("PCall: raised value is nil, want the error's message")
	}
}

func TestPCallSuccessReturnsResults(t *testing.T) {
	m := newTestVM(t)
	const id value.NativeID = 1
	m.Natives[id] = func(vm *VM, base, nargs, nresults int) (int, error) {
		vm.Stack.Set(base, value.Int(7))
		return 1, nil
	}
	nc := m.GC.AllocNativeClosure(id, "seven")

	results, ok, _, err := m.PCall(value.Obj(nc), nil)
	if err != nil || !ok {
		t.Fatalf("PCall: (ok, err) = (%v, %v), want (true, nil)", ok, err)
	}
	if len(results) != 1 || results[0] != value.Int(7) {
		t.Errorf("PCall results = %v, want [7]", results)
	}
}

func TestCallScriptedClosureReturnsFixedParam(t *testing.T) {
	m := newTestVM(t)

	// return (b) for a function(a, b) -- RETURN1's A selects which
	// register holds the single returned value.
	code := []value.Instruction{
		opcode.MakeABC(opcode.OpReturn1, 1, false, 0, 0),
	}
	proto := value.NewProto("t.lua", code, []int32{1})
	proto.NumParams = 2
	proto.MaxStackSize = 2
	cl := value.NewClosure(proto)

	results, err := m.Call(value.Obj(cl), []value.Value{value.Int(10), value.Int(20)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(results) != 1 || results[0] != value.Int(20) {
		t.Errorf("Call results = %v, want [20]", results)
	}
}

func TestCallScriptedClosureFillsMissingParamsWithNil(t *testing.T) {
	m := newTestVM(t)

	code := []value.Instruction{
		opcode.MakeABC(opcode.OpReturn1, 1, false, 0, 0),
	}
	proto := value.NewProto("t.lua", code, []int32{1})
	proto.NumParams = 2
	proto.MaxStackSize = 2
	cl := value.NewClosure(proto)

	results, err := m.Call(value.Obj(cl), []value.Value{value.Int(10)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(results) != 1 || !results[0].IsNil() {
		t.Errorf("Call results = %v, want [nil] (second param wasn't supplied)", results)
	}
}

func TestPushClosureFrameVarargLayout(t *testing.T) {
	m := newTestVM(t)

	code := []value.Instruction{opcode.MakeABC(opcode.OpReturn0, 0, false, 0, 0)}
	proto := value.NewProto("t.lua", code, []int32{1})
	proto.NumParams = 1
	proto.IsVararg = true
	proto.MaxStackSize = 1
	cl := value.NewClosure(proto)

	argBase := m.Stack.Top()
	m.Stack.SetTop(argBase + 3)
	m.Stack.Set(argBase, value.Int(1))
	m.Stack.Set(argBase+1, value.Int(2))
	m.Stack.Set(argBase+2, value.Int(3))

	sig, err := m.pushClosureFrame(cl, argBase, 3, -1, argBase, false)
	if err != nil {
		t.Fatalf("pushClosureFrame: %v", err)
	}
	if sig != FrameChanged {
		t.Fatalf("pushClosureFrame signal = %v, want FrameChanged", sig)
	}

	f := m.CurrentFrame()
	if f.VarargCount != 2 {
		t.Errorf("VarargCount = %d, want 2 (3 args - 1 fixed param)", f.VarargCount)
	}
	if f.VarargBase != argBase+1 {
		t.Errorf("VarargBase = %d, want %d (just past the fixed parameter)", f.VarargBase, argBase+1)
	}
	if got := m.Stack.Get(f.Base); got != value.Int(1) {
		t.Errorf("fixed param landed as %v, want 1 (the first argument)", got)
	}
	if got := m.Stack.Get(f.VarargBase); got != value.Int(2) {
		t.Errorf("first vararg = %v, want 2 (second call argument, stays at its original slot)", got)
	}
}

func TestCallUncallableValueErrors(t *testing.T) {
	m := newTestVM(t)
	if _, err := m.Call(value.Int(5), nil); err == nil {
		t.Fatalf("Call(5): want error, got nil")
	}
}

// closeableTable builds a table whose metatable's __close is the given
// native, for TBC tests.
func closeableTable(t *testing.T, m *VM, id value.NativeID) *value.Table {
	t.Helper()
	obj := m.GC.AllocTable()
	mt := m.GC.AllocTable()
	mt.Set(value.Obj(m.Meta.Keys.Close), value.Obj(m.GC.AllocNativeClosure(id, "closer")))
	obj.SetMetatable(mt)
	return obj
}

func TestOpReturnRunsCloseOnTBCRegister(t *testing.T) {
	m := newTestVM(t)

	const closeID value.NativeID = 1
	var closedWith []value.Value
	m.Natives[closeID] = func(vm *VM, base, nargs, nresults int) (int, error) {
		for i := 0; i < nargs; i++ {
			closedWith = append(closedWith, vm.Stack.Get(base+i))
		}
		return 0, nil
	}
	obj := closeableTable(t, m, closeID)

	code := []value.Instruction{
		opcode.MakeABC(opcode.OpTBC, 0, false, 0, 0),
		opcode.MakeABC(opcode.OpReturn0, 0, false, 0, 0),
	}
	proto := value.NewProto("t.lua", code, []int32{1, 1})
	proto.NumParams = 1
	proto.MaxStackSize = 1
	cl := value.NewClosure(proto)

	if _, err := m.Call(value.Obj(cl), []value.Value{value.Obj(obj)}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(closedWith) != 2 || closedWith[0] != value.Obj(obj) || !closedWith[1].IsNil() {
		t.Errorf("__close called with %v, want [obj, nil] (normal return, no error in flight)", closedWith)
	}
}

func TestOpReturnClosesTBCInDecreasingOrderAndRunsAllDespiteError(t *testing.T) {
	m := newTestVM(t)

	var order []string
	const closeHigh value.NativeID = 1
	const closeLow value.NativeID = 2
	var lowErrArg value.Value
	m.Natives[closeHigh] = func(vm *VM, base, nargs, nresults int) (int, error) {
		order = append(order, "high")
		return 0, errs.New(errs.KindUser, "", 0, "high closer failed")
	}
	m.Natives[closeLow] = func(vm *VM, base, nargs, nresults int) (int, error) {
		order = append(order, "low")
		if nargs > 1 {
			lowErrArg = vm.Stack.Get(base + 1)
		}
		return 0, nil
	}
	objLow := closeableTable(t, m, closeLow)
	objHigh := closeableTable(t, m, closeHigh)

	// Params: reg0 = low (closed second), reg1 = high (closed first).
	code := []value.Instruction{
		opcode.MakeABC(opcode.OpTBC, 0, false, 0, 0),
		opcode.MakeABC(opcode.OpTBC, 1, false, 0, 0),
		opcode.MakeABC(opcode.OpReturn0, 0, false, 0, 0),
	}
	proto := value.NewProto("t.lua", code, []int32{1, 1, 1})
	proto.NumParams = 2
	proto.MaxStackSize = 2
	cl := value.NewClosure(proto)

	_, err := m.Call(value.Obj(cl), []value.Value{value.Obj(objLow), value.Obj(objHigh)})
	if err == nil {
		t.Fatalf("Call: want error from the high closer, got nil")
	}
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("close order = %v, want [high, low] (decreasing register order)", order)
	}
	if lowErrArg.IsNil() {
		t.Errorf("low closer's error argument is nil, want the high closer's error (already in flight)")
	}
}

func TestHandleErrorRunsCloseOnProtectedFrameDuringUnwind(t *testing.T) {
	m := newTestVM(t)

	const closeID value.NativeID = 1
	var closedWith []value.Value
	m.Natives[closeID] = func(vm *VM, base, nargs, nresults int) (int, error) {
		for i := 0; i < nargs; i++ {
			closedWith = append(closedWith, vm.Stack.Get(base+i))
		}
		return 0, nil
	}
	obj := closeableTable(t, m, closeID)

	const failID value.NativeID = 2
	m.Natives[failID] = func(vm *VM, base, nargs, nresults int) (int, error) {
		return 0, errs.New(errs.KindUser, "", 0, "boom")
	}
	failer := m.GC.AllocNativeClosure(failID, "failer")

	// Params: reg0 = obj (to-be-closed), reg1 = failer. Marks reg0 TBC,
	// then calls failer, whose error unwinds this (protected) frame.
	code := []value.Instruction{
		opcode.MakeABC(opcode.OpTBC, 0, false, 0, 0),
		opcode.MakeABC(opcode.OpCall, 1, false, 1, 1),
		opcode.MakeABC(opcode.OpReturn0, 0, false, 0, 0),
	}
	proto := value.NewProto("t.lua", code, []int32{1, 1, 1})
	proto.NumParams = 2
	proto.MaxStackSize = 2
	cl := value.NewClosure(proto)

	_, ok, raised, err := m.PCall(value.Obj(cl), []value.Value{value.Obj(obj), value.Obj(failer)})
	if err != nil {
		t.Fatalf("PCall: unexpected Go error %v", err)
	}
	if ok {
		t.Fatalf("PCall: ok = true, want false (failer raised)")
	}
	if raised.IsNil() {
		t.Fatalf("PCall: raised value is nil, want the failer's error")
	}
	if len(closedWith) != 2 || closedWith[0] != value.Obj(obj) || closedWith[1].IsNil() {
		t.Errorf("__close called with %v, want [obj, non-nil propagated error]", closedWith)
	}
}
