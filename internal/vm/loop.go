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

func isAllInt(vs ...value.Value) bool {
	for _, v := range vs {
		if v.Kind() != value.KindInt {
			return false
		}
	}
	return true
}

// opForPrep implements spec §4.2.3's numeric-for setup: pre-subtract one
// step from init so the loop body's first FORLOOP increments back to it,
// preferring integer arithmetic and falling back to double when any of
// init/limit/step isn't an integer. A zero step fails; a loop that would
// never execute jumps past the whole loop body.
func (vm *VM) opForPrep(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, bx := opcode.GetA(instr), opcode.GetBx(instr)
	init, limit, step := vm.reg(f, a), vm.reg(f, a+1), vm.reg(f, a+2)

	if isAllInt(init, limit, step) {
		i, l, s := init.AsInt(), limit.AsInt(), step.AsInt()
		if s == 0 {
			return 0, vm.newError(errs.KindForLoop, "'for' step is zero")
		}
		if (s > 0 && i > l) || (s < 0 && i < l) {
			f.PC += bx
			return Continue, nil
		}
		vm.setReg(f, a, value.Int(i-s))
		vm.setReg(f, a+1, value.Int(l))
		vm.setReg(f, a+2, value.Int(s))
		vm.setReg(f, a+3, value.Int(i))
		return Continue, nil
	}

	fi, iok := init.ToFloat()
	fl, lok := limit.ToFloat()
	fs, sok := step.ToFloat()
	if !iok || !lok || !sok {
		return 0, vm.newError(errs.KindForLoop, "'for' initial value must be a number")
	}
	if fs == 0 {
		return 0, vm.newError(errs.KindForLoop, "'for' step is zero")
	}
	if (fs > 0 && fi > fl) || (fs < 0 && fi < fl) {
		f.PC += bx
		return Continue, nil
	}
	vm.setReg(f, a, value.Float(fi-fs))
	vm.setReg(f, a+1, value.Float(fl))
	vm.setReg(f, a+2, value.Float(fs))
	vm.setReg(f, a+3, value.Float(fi))
	return Continue, nil
}

// opForLoop implements the numeric-for back edge: increment, re-publish
// into the fourth register, and jump back while the limit isn't yet
// exceeded (spec §4.2.3).
func (vm *VM) opForLoop(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, sbx := opcode.GetA(instr), opcode.GetSBx(instr)
	counter, limit, step := vm.reg(f, a), vm.reg(f, a+1), vm.reg(f, a+2)

	if counter.Kind() == value.KindInt {
		c, l, s := counter.AsInt(), limit.AsInt(), step.AsInt()
		nc := c + s
		cont := nc <= l
		if s < 0 {
			cont = nc >= l
		}
		if cont {
			vm.setReg(f, a, value.Int(nc))
			vm.setReg(f, a+3, value.Int(nc))
			f.PC += sbx
		}
		return Continue, nil
	}

	cf, _ := counter.ToFloat()
	lf, _ := limit.ToFloat()
	sf, _ := step.ToFloat()
	nc := cf + sf
	cont := nc <= lf
	if sf < 0 {
		cont = nc >= lf
	}
	if cont {
		vm.setReg(f, a, value.Float(nc))
		vm.setReg(f, a+3, value.Float(nc))
		f.PC += sbx
	}
	return Continue, nil
}

// opTForCall implements spec §4.2.3's generic-for call: invoke
// iterator(state, control) and copy up to C results starting at A+3.
func (vm *VM) opTForCall(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, c := opcode.GetA(instr), opcode.GetC(instr)
	fn := vm.reg(f, a)
	state := vm.reg(f, a+1)
	control := vm.reg(f, a+2)
	res, err := vm.Call(fn, []value.Value{state, control})
	if err != nil {
		return 0, err
	}
	for i := 0; i < c; i++ {
		v := value.Nil
		if i < len(res) {
			v = res[i]
		}
		vm.setReg(f, a+3+i, v)
	}
	return Continue, nil
}

// opTForLoop implements the generic-for back edge: continue if the
// first result is non-nil, copying it back into the control register
// (spec §4.2.3).
func (vm *VM) opTForLoop(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a := opcode.GetA(instr)
	first := vm.reg(f, a+3)
	if !first.IsNil() {
		vm.setReg(f, a+2, first)
		f.PC += opcode.GetSBx(instr)
	}
	return Continue, nil
}

// opVararg implements spec §4.2.3's "Varargs": copy a requested window
// (or all) of the frame's varargs into consecutive registers starting at
// A, adjusting the stack top when the full set was requested.
func (vm *VM) opVararg(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, b := opcode.GetA(instr), opcode.GetB(instr)
	want := b - 1
	all := want < 0
	if all {
		want = f.VarargCount
	}
	for i := 0; i < want; i++ {
		v := value.Nil
		if i < f.VarargCount {
			v = vm.Stack.Get(f.VarargBase + i)
		}
		vm.setReg(f, a+i, v)
	}
	if all {
		vm.Stack.SetTop(f.Base + a + want)
	}
	return Continue, nil
}
