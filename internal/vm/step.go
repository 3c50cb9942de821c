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

// reg reads register i (relative to f.Base).
func (vm *VM) reg(f *frame.Frame, i int) value.Value { return vm.Stack.Get(f.Base + i) }

// setReg writes register i (relative to f.Base).
func (vm *VM) setReg(f *frame.Frame, i int, v value.Value) { vm.Stack.Set(f.Base+i, v) }

func (vm *VM) konst(f *frame.Frame, i int) value.Value { return f.Proto.Constants[i] }

// rk reads operand idx from either a register or the constant pool,
// depending on isK (spec §6: "1-bit K, 8-bit B/7-bit C" operand
// selector).
func (vm *VM) rk(f *frame.Frame, idx int, isK bool) value.Value {
	if isK {
		return vm.konst(f, idx)
	}
	return vm.reg(f, idx)
}

// Step fetches, decodes, and executes one instruction in the current
// frame (spec §4.2.2, §4.2.3). It's the runtime's single point of
// failure translation: an instruction error is unwound to the nearest
// protected frame here, if one exists.
func (vm *VM) Step() (Signal, error) {
	// Instruction boundary: the collector may have queued __gc calls
	// during the last cycle's sweep (spec §4.1.7, "at such a point …
	// the executor drains the queue"). Draining here, rather than only
	// at Run's top-level entry, also covers calls made by a finalizer
	// itself re-entering Run.
	if vm.GC.HasPendingFinalizers() {
		vm.GC.DrainFinalizers()
	}
	f := vm.Calls.Top()
	if f == nil {
		return TopLevelReturn, nil
	}
	if f.PC < 0 || f.PC >= len(f.Proto.Code) {
		return vm.handleError(vm.newError(errs.KindBytecode, "program counter %d out of range for %q", f.PC, f.Proto.Source))
	}
	instr := f.Proto.Code[f.PC]
	op := opcode.GetOp(instr)
	if !op.Valid() {
		return vm.handleError(vm.newError(errs.KindBytecode, "unknown opcode %d", instr))
	}
	if vm.Trace != nil {
		vm.Trace(f.PC, op)
	}
	f.PC++

	sig, err := vm.execute(f, op, instr)
	if err != nil {
		return vm.handleError(err)
	}
	return sig, nil
}

// Run drives Step until the call stack depth falls to or below target,
// or a fatal (unprotected) error propagates. It's shared by the
// top-level entry point and the reentrant call API's nested loop (spec
// §4.4, step 3).
func (vm *VM) Run(target int) error {
	for vm.Calls.Depth() > target {
		sig, err := vm.Step()
		if err != nil {
			return err
		}
		_ = sig
	}
	return nil
}

// handleError implements spec §4.2.5's unwind: search up the frame chain
// for the nearest protected frame, running __close on each discarded
// frame's to-be-closed registers along the way (spec §4.2.3, §5 — scope
// exit applies to unwinding just as it does to a normal return), close
// upvalues above the protected frame's base, discard intervening frames,
// and write (false, raised value) into its result destination.
// Out-of-memory is never caught.
func (vm *VM) handleError(err error) (Signal, error) {
	if e, ok := err.(*errs.Error); ok && e.Kind == errs.KindOutOfMemory {
		return TopLevelReturn, vm.fail(err)
	}
	frames := vm.Calls.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		pf := frames[i]
		err = vm.closeScope(pf, err)
		if !pf.Protected {
			continue
		}
		vm.Upvals.CloseFrom(pf.Base)
		vm.Calls.TruncateTo(i)
		vm.Stack.Set(pf.ResultBase, value.Bool(false))
		vm.Stack.Set(pf.ResultBase+1, vm.errorValue(err))
		vm.Stack.SetTop(pf.ResultBase + 2)
		return FrameChanged, nil
	}
	return TopLevelReturn, vm.fail(err)
}

// errorValue recovers the Value a raised error carries: the raw value
// passed to the error primitive if there was one, else an interned
// string of the formatted message (spec §7, "the error primitive may
// also raise a non-string value; protected callers receive it verbatim").
func (vm *VM) errorValue(err error) value.Value {
	if e, ok := err.(*errs.Error); ok {
		if v, ok := e.Value.(value.Value); ok {
			return v
		}
		return value.Obj(vm.GC.Intern(e.Error()))
	}
	return value.Obj(vm.GC.Intern(err.Error()))
}

// execute dispatches one decoded instruction. Grouped by concern across
// this file and arith.go/tableops.go/loop.go/callops.go.
func (vm *VM) execute(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	switch op {
	case opcode.OpMove:
		vm.setReg(f, opcode.GetA(instr), vm.reg(f, opcode.GetB(instr)))
		return Continue, nil
	case opcode.OpLoadK:
		vm.setReg(f, opcode.GetA(instr), vm.konst(f, opcode.GetBx(instr)))
		return Continue, nil
	case opcode.OpLoadKX:
		return vm.opLoadKX(f, instr)
	case opcode.OpLoadI:
		vm.setReg(f, opcode.GetA(instr), value.Int(int64(opcode.GetSBx(instr))))
		return Continue, nil
	case opcode.OpLoadF:
		vm.setReg(f, opcode.GetA(instr), value.Float(float64(opcode.GetSBx(instr))))
		return Continue, nil
	case opcode.OpLoadTrue:
		vm.setReg(f, opcode.GetA(instr), value.Bool(true))
		return Continue, nil
	case opcode.OpLoadFalse:
		vm.setReg(f, opcode.GetA(instr), value.Bool(false))
		return Continue, nil
	case opcode.OpLoadFalseSkip:
		vm.setReg(f, opcode.GetA(instr), value.Bool(false))
		f.PC++
		return Continue, nil
	case opcode.OpLoadNil:
		a, b := opcode.GetA(instr), opcode.GetB(instr)
		for i := 0; i <= b; i++ {
			vm.setReg(f, a+i, value.Nil)
		}
		return Continue, nil
	case opcode.OpNewTable:
		vm.setReg(f, opcode.GetA(instr), value.Obj(vm.GC.AllocTable()))
		return Continue, nil
	}
	return vm.executeRest(f, op, instr)
}

// opLoadKX loads a constant whose index is wider than Bx, carried by a
// following EXTRAARG instruction (spec §4.2.2).
func (vm *VM) opLoadKX(f *frame.Frame, instr value.Instruction) (Signal, error) {
	if f.PC >= len(f.Proto.Code) {
		return 0, vm.newError(errs.KindBytecode, "LOADKX missing EXTRAARG")
	}
	next := f.Proto.Code[f.PC]
	if opcode.GetOp(next) != opcode.OpExtraArg {
		return 0, vm.newError(errs.KindBytecode, "LOADKX not followed by EXTRAARG")
	}
	f.PC++
	idx := int(opcode.GetAx(next))
	vm.setReg(f, opcode.GetA(instr), vm.konst(f, idx))
	return Continue, nil
}
