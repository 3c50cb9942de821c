// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"github.com/lumen-lang/lumen/internal/errs"
	"github.com/lumen-lang/lumen/internal/frame"
	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/value"
)

func isFunctionValue(v value.Value) bool {
	tag, ok := v.ObjectTag()
	return ok && (tag == value.TagClosure || tag == value.TagNativeClosure)
}

// opCall implements the CALL/TAILCALL opcodes (spec §4.2.3, "Calls and
// returns"): the function sits at register A, its arguments at
// A+1..A+B-1 (B=0 meaning "through current top"), and C-1 results are
// requested (C=0 meaning "as many as returned").
func (vm *VM) opCall(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	a, b, c := opcode.GetA(instr), opcode.GetB(instr), opcode.GetC(instr)
	fnReg := f.Base + a
	var nargs int
	if b == 0 {
		nargs = vm.Stack.Top() - (fnReg + 1)
	} else {
		nargs = b - 1
	}
	want := c - 1

	if op == opcode.OpTailCall {
		return vm.opTailCall(fnReg, nargs, want)
	}
	return vm.doCall(fnReg, nargs, want, fnReg, false)
}

// opTailCall replaces the current frame with the callee's instead of
// stacking a new one, so tail-recursive scripted code doesn't grow the
// call stack (spec §4.2.1's bound exists for non-tail recursion).
func (vm *VM) opTailCall(fnReg, nargs, want int) (Signal, error) {
	cur := vm.Calls.Pop()
	vm.Upvals.CloseFrom(cur.Base)
	sig, err := vm.doCall(fnReg, nargs, cur.NumResults, cur.ResultBase, cur.Protected)
	if err != nil {
		return 0, err
	}
	if sig == FrameChanged {
		return FrameChanged, nil
	}
	// Native callee executed inline; the frame we tail-called from is
	// already gone, so this is equivalent to that frame returning.
	if vm.Calls.Depth() == 0 {
		return TopLevelReturn, nil
	}
	return FrameChanged, nil
}

// opReturn implements RETURN/RETURN0/RETURN1 (spec §4.2.3): run __close
// on the frame's to-be-closed registers, close upvalues at or above the
// frame base, pop the frame, and copy results into the caller's
// destination region, prepending `true` first if the popped frame was
// protected.
func (vm *VM) opReturn(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	a, b := opcode.GetA(instr), opcode.GetB(instr)
	var nret int
	switch op {
	case opcode.OpReturn0:
		nret = 0
	case opcode.OpReturn1:
		nret = 1
	default:
		if b == 0 {
			nret = vm.Stack.Top() - (f.Base + a)
		} else {
			nret = b - 1
		}
	}
	// Close before popping: a __close error on this frame's own return
	// must still be catchable by this same frame if it's protected, and
	// handleError's unwind search only sees frames still on vm.Calls.
	if err := vm.closeScope(f, nil); err != nil {
		return 0, err
	}
	vm.Upvals.CloseFrom(f.Base)
	cur := vm.Calls.Pop()
	vm.finishResults(f.Base+a, nret, nil, cur.ResultBase, cur.NumResults, cur.Protected)
	if vm.Calls.Depth() == 0 {
		return TopLevelReturn, nil
	}
	return FrameChanged, nil
}

// closeScope runs __close on f's to-be-closed registers, highest first
// (spec §4.2.3 "Close & to-be-closed", §5 "Scoped acquisition"). A
// to-be-closed value of nil or false needs no closer and is skipped, as
// is one with no __close metamethod. propagated is the error already
// unwinding the stack, or nil for a normal return; it's what every
// closer receives as its second argument, and what's returned unless
// propagated was nil and a closer raised one of its own, in which case
// that becomes the first (and only) reported error, matching "a __close
// that errors still runs the remaining closers; the first error is
// reported once unwinding completes."
func (vm *VM) closeScope(f *frame.Frame, propagated error) error {
	first := propagated
	for reg := f.HighestTBC(); reg >= f.Base; reg = f.HighestTBC() {
		f.ClearTBC(reg)
		v := vm.Stack.Get(reg)
		if v.IsNil() || (v.Kind() == value.KindBool && !v.Truthy()) {
			continue
		}
		closer := vm.Meta.Metamethod(v, vm.Meta.Keys.Close)
		if closer.IsNil() {
			continue
		}
		errArg := value.Nil
		if first != nil {
			errArg = vm.errorValue(first)
		}
		if _, err := vm.Call(closer, []value.Value{v, errArg}); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// doCall resolves fnReg's callee (following __call if it isn't already a
// function), then either runs a native function inline or pushes a new
// frame for a scripted closure (spec §4.2.3).
func (vm *VM) doCall(fnReg, nargs, want, resultBase int, protected bool) (Signal, error) {
	fnVal := vm.Stack.Get(fnReg)
	argBase := fnReg + 1
	callee := fnVal
	if !isFunctionValue(fnVal) {
		cfn, prepend, ok := vm.Meta.Callable(fnVal)
		if !ok {
			return 0, vm.newError(errs.KindCallStack, "attempt to call a %s value", fnVal.TypeName())
		}
		if prepend {
			vm.Stack.SetTop(vm.Stack.Top() + 1)
			for i := vm.Stack.Top() - 1; i > argBase; i-- {
				vm.Stack.Set(i, vm.Stack.Get(i-1))
			}
			vm.Stack.Set(argBase, fnVal)
			nargs++
		}
		callee = cfn
	}

	tag, _ := callee.ObjectTag()
	switch tag {
	case value.TagNativeClosure:
		nc := callee.AsObject().(*value.NativeClosure)
		native, ok := vm.Natives[nc.ID]
		if !ok {
			return 0, vm.newError(errs.KindCallStack, "unregistered native function %q", nc.Name)
		}
		nres, err := native(vm, argBase, nargs, want)
		if err != nil && !protected {
			return 0, vm.fail(err)
		}
		vm.finishResults(argBase, nres, err, resultBase, want, protected)
		return Continue, nil
	case value.TagClosure:
		cl := callee.AsObject().(*value.Closure)
		return vm.pushClosureFrame(cl, argBase, nargs, want, resultBase, protected)
	}
	return 0, vm.newError(errs.KindCallStack, "attempt to call a %s value", callee.TypeName())
}

// finishResults lands a completed call's outcome at resultBase: on
// success, the results (adjusted to want, or all of them if want<0);
// when protected, prefixed with the boolean status spec §4.2.3 and
// §4.2.5 require, converting any error into (false, raised value)
// instead of propagating it.
func (vm *VM) finishResults(from, nret int, err error, resultBase, want int, protected bool) {
	if !protected {
		if err != nil {
			// Propagated by the caller via the returned error from doCall
			// only reaches here through the native path; store nothing,
			// the caller (doCall/opCall's Step) surfaces err itself via
			// handleError. Nothing to place.
			return
		}
		vm.shiftResults(from, nret, resultBase, want)
		return
	}
	if err != nil {
		vm.Stack.Set(resultBase, value.Bool(false))
		vm.Stack.Set(resultBase+1, vm.errorValue(err))
		vm.Stack.SetTop(resultBase + 2)
		return
	}
	vm.Stack.Set(resultBase, value.Bool(true))
	inner := want
	if want >= 0 {
		inner = want - 1
	}
	vm.shiftResults(from, nret, resultBase+1, inner)
}

// shiftResults copies n results from [from, from+n) to [to, to+want) (or
// to+n if want<0, meaning "as many as returned"), padding with nil and
// setting the stack top to match the caller's expectation.
func (vm *VM) shiftResults(from, n, to, want int) {
	if want < 0 {
		for i := 0; i < n; i++ {
			vm.Stack.Set(to+i, vm.Stack.Get(from+i))
		}
		vm.Stack.SetTop(to + n)
		return
	}
	for i := 0; i < want; i++ {
		v := value.Nil
		if i < n {
			v = vm.Stack.Get(from + i)
		}
		vm.Stack.Set(to+i, v)
	}
	vm.Stack.SetTop(to + want)
}

// pushClosureFrame lays out a new frame for a scripted call: fixed
// parameters land at the new base in order, missing ones are nil, and
// (for a vararg function) any extra arguments are preserved below the
// new base as the frame's vararg region (spec §4.2.3: "scripted closures
// shift arguments down into the new frame, fill missing fixed parameters
// with nil, store excess as varargs").
func (vm *VM) pushClosureFrame(cl *value.Closure, argBase, nargs, want, resultBase int, protected bool) (Signal, error) {
	proto := cl.Proto
	var base, varargBase, varargCount int
	if proto.IsVararg && nargs > proto.NumParams {
		extra := nargs - proto.NumParams
		varargBase = argBase + proto.NumParams
		varargCount = extra
		base = argBase + nargs
		vm.Stack.SetTop(base + proto.NumParams)
		for i := proto.NumParams - 1; i >= 0; i-- {
			vm.Stack.Set(base+i, vm.Stack.Get(argBase+i))
		}
	} else {
		base = argBase
		varargBase = argBase + nargs
		varargCount = 0
		vm.Stack.SetTop(base + proto.NumParams)
		for i := nargs; i < proto.NumParams; i++ {
			vm.Stack.Set(argBase+i, value.Nil)
		}
	}
	nf := &frame.Frame{
		Proto:       proto,
		Closure:     cl,
		Base:        base,
		ResultBase:  resultBase,
		NumResults:  want,
		VarargBase:  varargBase,
		VarargCount: varargCount,
		Protected:   protected,
	}
	if nf.Base+proto.MaxStackSize > vm.Stack.Top() {
		vm.Stack.SetTop(nf.Base + proto.MaxStackSize)
	}
	if err := vm.Calls.Push(nf); err != nil {
		return 0, vm.fail(err)
	}
	return FrameChanged, nil
}
