// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm implements the instruction dispatcher (spec §4.2): the
// fetch-decode-execute loop, call/return, protected-call unwinding, and
// the per-opcode fast/slow-path adapters that drive package meta's
// metamethod resolution.
package vm

import (
	"github.com/lumen-lang/lumen/internal/errs"
	"github.com/lumen-lang/lumen/internal/frame"
	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/meta"
	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
)

// NativeFunc is the shape every native (Go-implemented) function must
// have to be registered in a VM's dispatch table (SPEC_FULL §11,
// verified statically by cmd/nativecheck): arguments sit in the stack at
// [base, base+nargs), and the function must leave its results at
// [base, base+n) and return their count n.
type NativeFunc func(vm *VM, base, nargs, nresults int) (int, error)

// Signal is the control-flow token Step returns (spec §2, "Instruction
// dispatcher").
type Signal int

const (
	// Continue means the fetch loop should immediately decode the next
	// instruction in the same frame.
	Continue Signal = iota
	// FrameChanged means a call or return switched the active frame; the
	// caller should refetch Frame/PC before the next Step.
	FrameChanged
	// TopLevelReturn means the outermost frame returned: Run should stop
	// and report results to its caller.
	TopLevelReturn
)

// Shared is the state every coroutine (VM) of one runtime shares: the
// collector, the global runtime state, metamethod resolution, and the
// native function table. Spec §5 scopes all of this per "one runtime",
// not per thread.
type Shared struct {
	GC      *gc.Collector
	State   *state.State
	Meta    *meta.Resolver
	Natives map[value.NativeID]NativeFunc
}

// VM is one thread's execution context: its register stack, call stack,
// and open-upvalue chain, plus a back-reference to the Shared runtime
// (spec §3, "Thread … carries an owned VM-state pointer").
type VM struct {
	*Shared

	Thread *value.Thread

	Stack  *frame.Stack
	Calls  *frame.CallStack
	Upvals *frame.OpenUpvalues

	// Trace, if set, is invoked on the back edge of the fetch loop before
	// each instruction executes (SPEC_FULL §12, "Dispatch trace hook").
	Trace func(pc int, op opcode.Op)
}

// NewMainVM constructs the runtime's main thread and its VM, registering
// both with the collector and the shared runtime state.
func NewMainVM(sh *Shared, stackSize int) *VM {
	vm := newVM(sh, stackSize)
	th := sh.GC.AllocThread(vm, markVMState, freeVMState)
	th.Status = value.ThreadRunning
	vm.Thread = th
	sh.State.MainThread = th
	sh.GC.RegisterRootProvider(vm)
	sh.GC.Invoke = vm.invokeFinalizer
	return vm
}

// invokeFinalizer implements gc.Collector.Invoke (spec §4.1.7): run a
// __gc metamethod with one argument on the main thread, keeping at most
// its first result.
func (vm *VM) invokeFinalizer(fn, arg value.Value) (value.Value, error) {
	res, err := vm.Call(fn, []value.Value{arg})
	if err != nil {
		return value.Nil, err
	}
	if len(res) == 0 {
		return value.Nil, nil
	}
	return res[0], nil
}

// NewCoroutineVM constructs a fresh thread suitable for a coroutine
// library to drive (out of this core's scope per spec §1, but the
// thread/VM split that makes one possible lives here).
func NewCoroutineVM(sh *Shared, stackSize int) (*value.Thread, *VM) {
	vm := newVM(sh, stackSize)
	th := sh.GC.AllocThread(vm, markVMState, freeVMState)
	vm.Thread = th
	sh.State.AddThreadRoot(vm)
	return th, vm
}

func newVM(sh *Shared, stackSize int) *VM {
	if stackSize <= 0 {
		stackSize = 256
	}
	vm := &VM{Shared: sh, Stack: frame.NewStack(stackSize)}
	vm.Calls = frame.NewCallStack(frame.DefaultMaxDepth)
	vm.Upvals = frame.NewOpenUpvalues(func(pos int, slot value.StackSlot) *value.Upvalue {
		return sh.GC.AllocOpenUpvalue(pos, slot)
	})
	return vm
}

// markVMState and freeVMState are the generic value.Thread.MarkVM/FreeVM
// callbacks, typed through interface{} to avoid the value↔vm import
// cycle (spec §3's Thread doc, and internal/value/thread.go).
func markVMState(state interface{}, mark func(value.Object)) {
	vm, ok := state.(*VM)
	if !ok || vm == nil {
		return
	}
	vm.markOwnRoots(mark)
}

func freeVMState(state interface{}) {}

// MarkRoots implements gc.RootProvider for the main thread and any
// coroutine registered via State.AddThreadRoot.
func (vm *VM) MarkRoots(mark func(value.Object)) {
	vm.markOwnRoots(mark)
}

func (vm *VM) markOwnRoots(mark func(value.Object)) {
	top := vm.Stack.Top()
	vm.Stack.MarkRange(0, top, func(v value.Value) {
		if tag, ok := v.ObjectTag(); ok {
			_ = tag
			mark(v.AsObject())
		}
	})
	for _, f := range vm.Calls.Frames() {
		if f.Closure != nil {
			mark(f.Closure)
		}
	}
	vm.Upvals.MarkRoots(mark)
}

// CurrentFrame returns the innermost active frame, or nil if the call
// stack is empty (the VM is idle between top-level Run calls).
func (vm *VM) CurrentFrame() *frame.Frame { return vm.Calls.Top() }

// sourceAndLine resolves (source, line) for the current frame, used to
// locate errors (spec §7).
func (vm *VM) sourceAndLine() (string, int32) {
	f := vm.CurrentFrame()
	if f == nil || f.Proto == nil {
		return "", 0
	}
	return f.Proto.Source, f.Proto.Line(f.PC)
}

// fail wraps err with the current frame's location if it's an *errs.Error
// missing one, matching spec §7's "<source>:<line>: <text>" convention.
func (vm *VM) fail(err error) error {
	if e, ok := err.(*errs.Error); ok {
		src, line := vm.sourceAndLine()
		e.At(src, line)
	}
	return err
}

func (vm *VM) newError(kind errs.Kind, format string, args ...interface{}) error {
	src, line := vm.sourceAndLine()
	return errs.New(kind, src, line, format, args...)
}
