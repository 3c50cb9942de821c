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

// opCompare implements spec §4.2.3's "Comparisons": the fast paths for
// ==, <, <= skip the following instruction (almost always a JMP) when
// the comparison doesn't match the instruction's k bit, matching real
// Lua's test-then-skip convention.
func (vm *VM) opCompare(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	k := opcode.GetK(instr)
	cond, err := vm.compareCond(f, op, instr)
	if err != nil {
		return 0, err
	}
	if cond != k {
		f.PC++
	}
	return Continue, nil
}

func (vm *VM) compareCond(f *frame.Frame, op opcode.Op, instr value.Instruction) (bool, error) {
	a := opcode.GetA(instr)
	switch op {
	case opcode.OpEq:
		return vm.equals(vm.reg(f, a), vm.reg(f, opcode.GetB(instr)))
	case opcode.OpLt:
		return vm.less(vm.reg(f, a), vm.reg(f, opcode.GetB(instr)), false)
	case opcode.OpLe:
		return vm.less(vm.reg(f, a), vm.reg(f, opcode.GetB(instr)), true)
	case opcode.OpEqK:
		return vm.equals(vm.reg(f, a), vm.konst(f, opcode.GetB(instr)))
	case opcode.OpEqI:
		return vm.equals(vm.reg(f, a), value.Int(int64(opcode.GetSB(instr))))
	case opcode.OpLtI:
		return vm.less(vm.reg(f, a), value.Int(int64(opcode.GetSB(instr))), false)
	case opcode.OpLeI:
		return vm.less(vm.reg(f, a), value.Int(int64(opcode.GetSB(instr))), true)
	case opcode.OpGtI:
		return vm.less(value.Int(int64(opcode.GetSB(instr))), vm.reg(f, a), false)
	case opcode.OpGeI:
		return vm.less(value.Int(int64(opcode.GetSB(instr))), vm.reg(f, a), true)
	}
	return false, nil
}

// equals implements ==: raw equality first, then __eq for two tables or
// two userdata that compared raw-unequal (spec §4.3).
func (vm *VM) equals(a, b value.Value) (bool, error) {
	if value.RawEqual(a, b) {
		return true, nil
	}
	fn, ok := vm.Meta.Eq(a, b)
	if !ok {
		return false, nil
	}
	res, err := vm.Call(fn, []value.Value{a, b})
	if err != nil {
		return false, err
	}
	return len(res) > 0 && res[0].Truthy(), nil
}

// less implements < (orEqual=false) and <= (orEqual=true): the numeric
// and string fast paths, then __lt/__le, with __le falling back to
// "not __lt(b, a)" per spec §4.3.
func (vm *VM) less(a, b value.Value, orEqual bool) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		if orEqual {
			return af <= bf, nil
		}
		return af < bf, nil
	}
	if atag, ok := a.ObjectTag(); ok && atag == value.TagString {
		if btag, ok := b.ObjectTag(); ok && btag == value.TagString {
			as := a.AsObject().(*value.String).Data
			bs := b.AsObject().(*value.String).Data
			if orEqual {
				return as <= bs, nil
			}
			return as < bs, nil
		}
	}
	key := vm.Meta.Keys.Lt
	if orEqual {
		key = vm.Meta.Keys.Le
	}
	if fn, ok := vm.Meta.Binary(key, a, b); ok {
		res, err := vm.Call(fn, []value.Value{a, b})
		if err != nil {
			return false, err
		}
		return len(res) > 0 && res[0].Truthy(), nil
	}
	if orEqual {
		// spec §4.3: "__le may fall back to not __lt(b, a)".
		if fn, ok := vm.Meta.Binary(vm.Meta.Keys.Lt, b, a); ok {
			res, err := vm.Call(fn, []value.Value{b, a})
			if err != nil {
				return false, err
			}
			return !(len(res) > 0 && res[0].Truthy()), nil
		}
	}
	return false, vm.newError(errs.KindCompare, "attempt to compare %s with %s", a.TypeName(), b.TypeName())
}

func (vm *VM) opTest(f *frame.Frame, instr value.Instruction) (Signal, error) {
	k := opcode.GetK(instr)
	if vm.reg(f, opcode.GetA(instr)).Truthy() != k {
		f.PC++
	}
	return Continue, nil
}

func (vm *VM) opTestSet(f *frame.Frame, instr value.Instruction) (Signal, error) {
	k := opcode.GetK(instr)
	b := vm.reg(f, opcode.GetB(instr))
	if b.Truthy() == k {
		vm.setReg(f, opcode.GetA(instr), b)
	} else {
		f.PC++
	}
	return Continue, nil
}
