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

// FieldsPerFlush is the number of list items one SETLIST batch covers:
// batch number N (from the C field, or from an EXTRAARG follower when C
// is 0) starts at integer key (N-1)*FieldsPerFlush+1 (spec §4.2.3,
// "Tables").
const FieldsPerFlush = 50

// setField stores val at key in t, running the collector's write barrier
// since the table may already be black this cycle (spec §4.1.5).
func (vm *VM) setField(t *value.Table, key, val value.Value) {
	t.Set(key, val)
	vm.GC.WriteBarrier(t)
}

func (vm *VM) opUpvalue(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	a, b, c := opcode.GetA(instr), opcode.GetB(instr), opcode.GetC(instr)
	switch op {
	case opcode.OpGetUpval:
		vm.setReg(f, a, f.Closure.Upvalues[b].Get())
		return Continue, nil
	case opcode.OpSetUpval:
		f.Closure.Upvalues[b].Set(vm.reg(f, a))
		return Continue, nil
	case opcode.OpGetTabUp:
		env := f.Closure.Upvalues[b].Get()
		key := vm.konst(f, c)
		res, err := vm.Meta.Index(env, key, vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		vm.setReg(f, a, res)
		return Continue, nil
	case opcode.OpSetTabUp:
		env := f.Closure.Upvalues[a].Get()
		key := vm.konst(f, b)
		val := vm.reg(f, c)
		if err := vm.Meta.NewIndex(env, key, val, vm.setField, vm); err != nil {
			return 0, vm.fail(err)
		}
		return Continue, nil
	}
	return 0, vm.newError(errs.KindBytecode, "unreachable upvalue op")
}

// opTableAccess implements the three read families (by register, by
// small-integer key, by constant key) and three symmetric write families
// from spec §4.2.3's "Tables", all routed through the __index/__newindex
// pipeline (spec §4.3).
func (vm *VM) opTableAccess(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	a, b, c := opcode.GetA(instr), opcode.GetB(instr), opcode.GetC(instr)
	switch op {
	case opcode.OpGetTable:
		res, err := vm.Meta.Index(vm.reg(f, b), vm.reg(f, c), vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		vm.setReg(f, a, res)
		return Continue, nil
	case opcode.OpGetI:
		res, err := vm.Meta.Index(vm.reg(f, b), value.Int(int64(opcode.GetSC(instr))), vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		vm.setReg(f, a, res)
		return Continue, nil
	case opcode.OpGetField:
		res, err := vm.Meta.Index(vm.reg(f, b), vm.konst(f, c), vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		vm.setReg(f, a, res)
		return Continue, nil
	case opcode.OpSetTable:
		err := vm.Meta.NewIndex(vm.reg(f, a), vm.reg(f, b), vm.reg(f, c), vm.setField, vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		return Continue, nil
	case opcode.OpSetI:
		err := vm.Meta.NewIndex(vm.reg(f, a), value.Int(int64(opcode.GetSB(instr))), vm.reg(f, c), vm.setField, vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		return Continue, nil
	case opcode.OpSetField:
		err := vm.Meta.NewIndex(vm.reg(f, a), vm.konst(f, b), vm.reg(f, c), vm.setField, vm)
		if err != nil {
			return 0, vm.fail(err)
		}
		return Continue, nil
	}
	return 0, vm.newError(errs.KindBytecode, "unreachable table op")
}

// opSetList implements the bulk list-set instruction (spec §4.2.3,
// "Tables"): writes consecutive registers starting at A+1 into integer
// keys of the table at A, in batches of FieldsPerFlush, with a batch
// number of zero meaning direct-index mode (start at key 1) and an
// EXTRAARG follower carrying batch numbers too large for the C field.
func (vm *VM) opSetList(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, b, c := opcode.GetA(instr), opcode.GetB(instr), opcode.GetC(instr)
	t, ok := asTableObj(vm.reg(f, a))
	if !ok {
		return 0, vm.newError(errs.KindTable, "SETLIST target is not a table")
	}
	n := b
	if n == 0 {
		n = vm.Stack.Top() - (f.Base + a + 1)
	}
	batch := c
	if batch == 0 && f.PC < len(f.Proto.Code) && opcode.GetOp(f.Proto.Code[f.PC]) == opcode.OpExtraArg {
		batch = int(opcode.GetAx(f.Proto.Code[f.PC]))
		f.PC++
	}
	base := 1
	if batch > 0 {
		base = (batch-1)*FieldsPerFlush + 1
	}
	for i := 0; i < n; i++ {
		vm.setField(t, value.Int(int64(base+i)), vm.reg(f, a+1+i))
	}
	return Continue, nil
}

func asTableObj(v value.Value) (*value.Table, bool) {
	if tag, ok := v.ObjectTag(); ok && tag == value.TagTable {
		return v.AsObject().(*value.Table), true
	}
	return nil, false
}

// opClosure implements spec §4.2.3's "Upvalues" closure-creation
// paragraph: for each upvalue descriptor, either capture an open upvalue
// for a parent stack slot or copy the pointer out of the enclosing
// closure's own upvalue array.
func (vm *VM) opClosure(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, bx := opcode.GetA(instr), opcode.GetBx(instr)
	if bx < 0 || bx >= len(f.Proto.Protos) {
		return 0, vm.newError(errs.KindBytecode, "CLOSURE index %d out of range", bx)
	}
	proto := f.Proto.Protos[bx]
	vm.GC.Inhibit()
	cl := vm.GC.AllocClosure(proto)
	for i, desc := range proto.Upvalues {
		if desc.FromStack {
			pos := f.Base + int(desc.Index)
			cl.Upvalues[i] = vm.Upvals.FindOrCreate(pos, vm.Stack.Slot(pos))
		} else {
			cl.Upvalues[i] = f.Closure.Upvalues[desc.Index]
		}
	}
	vm.GC.Allow()
	vm.setReg(f, a, value.Obj(cl))
	return Continue, nil
}
