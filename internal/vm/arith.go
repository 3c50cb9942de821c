// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"math"

	"github.com/lumen-lang/lumen/internal/errs"
	"github.com/lumen-lang/lumen/internal/frame"
	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/value"
)

// executeRest continues the op switch started in execute (step.go),
// covering arithmetic, bitwise, comparison, table, call, and control-flow
// opcodes.
func (vm *VM) executeRest(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	switch op {
	case opcode.OpAdd, opcode.OpAddK, opcode.OpAddI,
		opcode.OpSub, opcode.OpSubK,
		opcode.OpMul, opcode.OpMulK,
		opcode.OpMod, opcode.OpModK,
		opcode.OpPow, opcode.OpPowK,
		opcode.OpDiv, opcode.OpDivK,
		opcode.OpIDiv, opcode.OpIDivK:
		return vm.opArith(f, op, instr)

	case opcode.OpBAnd, opcode.OpBAndK,
		opcode.OpBOr, opcode.OpBOrK,
		opcode.OpBXor, opcode.OpBXorK,
		opcode.OpShl, opcode.OpShlI,
		opcode.OpShr, opcode.OpShrI:
		return vm.opBitwise(f, op, instr)

	case opcode.OpUnm:
		return vm.opUnary(f, instr, "unm", func(x float64) float64 { return -x }, func(x int64) int64 { return -x })
	case opcode.OpBNot:
		return vm.opBNot(f, instr)
	case opcode.OpNot:
		vm.setReg(f, opcode.GetA(instr), value.Bool(!vm.reg(f, opcode.GetB(instr)).Truthy()))
		return Continue, nil
	case opcode.OpLen:
		return vm.opLen(f, instr)
	case opcode.OpConcat:
		return vm.opConcat(f, instr)

	case opcode.OpEq, opcode.OpLt, opcode.OpLe,
		opcode.OpEqK, opcode.OpEqI, opcode.OpLtI, opcode.OpLeI, opcode.OpGtI, opcode.OpGeI:
		return vm.opCompare(f, op, instr)
	case opcode.OpTest:
		return vm.opTest(f, instr)
	case opcode.OpTestSet:
		return vm.opTestSet(f, instr)
	case opcode.OpJmp:
		f.PC += opcode.GetSJ(instr)
		return Continue, nil

	case opcode.OpGetUpval, opcode.OpSetUpval, opcode.OpGetTabUp, opcode.OpSetTabUp:
		return vm.opUpvalue(f, op, instr)
	case opcode.OpGetTable, opcode.OpGetI, opcode.OpGetField,
		opcode.OpSetTable, opcode.OpSetI, opcode.OpSetField:
		return vm.opTableAccess(f, op, instr)
	case opcode.OpSetList:
		return vm.opSetList(f, instr)
	case opcode.OpClosure:
		return vm.opClosure(f, instr)

	case opcode.OpClose:
		vm.Upvals.CloseFrom(f.Base + opcode.GetA(instr))
		return Continue, nil
	case opcode.OpTBC:
		f.MarkTBC(f.Base + opcode.GetA(instr))
		return Continue, nil

	case opcode.OpCall, opcode.OpTailCall:
		return vm.opCall(f, op, instr)
	case opcode.OpReturn, opcode.OpReturn0, opcode.OpReturn1:
		return vm.opReturn(f, op, instr)

	case opcode.OpForPrep:
		return vm.opForPrep(f, instr)
	case opcode.OpForLoop:
		return vm.opForLoop(f, instr)
	case opcode.OpTForPrep:
		f.PC += opcode.GetBx(instr)
		return Continue, nil
	case opcode.OpTForCall:
		return vm.opTForCall(f, instr)
	case opcode.OpTForLoop:
		return vm.opTForLoop(f, instr)

	case opcode.OpVarargPrep:
		return Continue, nil // frame already laid out by the call that created it
	case opcode.OpVararg:
		return vm.opVararg(f, instr)

	case opcode.OpExtraArg:
		return 0, vm.newError(errs.KindBytecode, "stray EXTRAARG")
	}
	return 0, vm.newError(errs.KindBytecode, "unhandled opcode %s", op)
}

// arithKeyName maps an Op to the metamethod-lookup key name package meta
// understands (keeps package opcode decoupled from package meta).
func arithKeyName(op opcode.Op) string {
	switch op {
	case opcode.OpAdd, opcode.OpAddK, opcode.OpAddI:
		return "add"
	case opcode.OpSub, opcode.OpSubK:
		return "sub"
	case opcode.OpMul, opcode.OpMulK:
		return "mul"
	case opcode.OpMod, opcode.OpModK:
		return "mod"
	case opcode.OpPow, opcode.OpPowK:
		return "pow"
	case opcode.OpDiv, opcode.OpDivK:
		return "div"
	case opcode.OpIDiv, opcode.OpIDivK:
		return "idiv"
	case opcode.OpBAnd, opcode.OpBAndK:
		return "band"
	case opcode.OpBOr, opcode.OpBOrK:
		return "bor"
	case opcode.OpBXor, opcode.OpBXorK:
		return "bxor"
	case opcode.OpShl, opcode.OpShlI:
		return "shl"
	case opcode.OpShr, opcode.OpShrI:
		return "shr"
	default:
		return ""
	}
}

// operands resolves the left/right Values for an arithmetic or bitwise
// instruction across its register/constant/immediate variants (spec
// §4.2.3: "Every instruction exists in three variants: register-register,
// register-constant, register-immediate").
func (vm *VM) operands(f *frame.Frame, op opcode.Op, instr value.Instruction) (left, right value.Value, isImmediate bool, imm int) {
	a := opcode.GetB(instr) // left operand register in every variant
	left = vm.reg(f, a)
	switch op {
	case opcode.OpAddI, opcode.OpShlI, opcode.OpShrI:
		return left, value.Nil, true, opcode.GetSC(instr)
	case opcode.OpAddK, opcode.OpSubK, opcode.OpMulK, opcode.OpModK, opcode.OpPowK,
		opcode.OpDivK, opcode.OpIDivK, opcode.OpBAndK, opcode.OpBOrK, opcode.OpBXorK:
		return left, vm.konst(f, opcode.GetC(instr)), false, 0
	default:
		return left, vm.reg(f, opcode.GetC(instr)), false, 0
	}
}

func (vm *VM) opArith(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	left, right, isImm, imm := vm.operands(f, op, instr)
	if isImm {
		right = value.Int(int64(imm))
	}
	result, ok, err := arithFast(op, left, right)
	if err != nil {
		return 0, vm.fail(err)
	}
	if ok {
		vm.setReg(f, opcode.GetA(instr), result)
		return Continue, nil
	}
	return vm.arithSlow(f, op, left, right, instr)
}

// arithFast implements the numeric fast path for +, -, *, /, ^, //, %
// (spec §4.2.3, "Arithmetic"): integer ops on two integers (with overflow
// promoting to double for +,-,*), double ops otherwise.
func arithFast(op opcode.Op, a, b value.Value) (value.Value, bool, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Nil, false, nil
	}
	bothInt := a.Kind() == value.KindInt && b.Kind() == value.KindInt
	switch op {
	case opcode.OpAdd, opcode.OpAddK, opcode.OpAddI:
		if bothInt {
			x, y := a.AsInt(), b.AsInt()
			s := x + y
			if overflowAdd(x, y, s) {
				return value.Float(float64(x) + float64(y)), true, nil
			}
			return value.Int(s), true, nil
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(af + bf), true, nil
	case opcode.OpSub, opcode.OpSubK:
		if bothInt {
			x, y := a.AsInt(), b.AsInt()
			s := x - y
			if overflowSub(x, y, s) {
				return value.Float(float64(x) - float64(y)), true, nil
			}
			return value.Int(s), true, nil
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(af - bf), true, nil
	case opcode.OpMul, opcode.OpMulK:
		if bothInt {
			x, y := a.AsInt(), b.AsInt()
			if mulOverflows(x, y) {
				return value.Float(float64(x) * float64(y)), true, nil
			}
			return value.Int(x * y), true, nil
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(af * bf), true, nil
	case opcode.OpDiv, opcode.OpDivK:
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(af / bf), true, nil
	case opcode.OpPow, opcode.OpPowK:
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(math.Pow(af, bf)), true, nil
	case opcode.OpIDiv, opcode.OpIDivK:
		if bothInt {
			x, y := a.AsInt(), b.AsInt()
			if y == 0 {
				return value.Nil, false, errs.New(errs.KindArithmetic, "", 0, "attempt to perform 'n//0'")
			}
			if x == math.MinInt64 && y == -1 {
				return value.Float(math.Floor(float64(x) / float64(y))), true, nil
			}
			return value.Int(floorDivInt(x, y)), true, nil
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return value.Float(math.Floor(af / bf)), true, nil
	case opcode.OpMod, opcode.OpModK:
		if bothInt {
			y := b.AsInt()
			if y == 0 {
				return value.Nil, false, errs.New(errs.KindArithmetic, "", 0, "attempt to perform 'n%%0'")
			}
			return value.Int(floorModInt(a.AsInt(), y)), true, nil
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		m := math.Mod(af, bf)
		if m != 0 && (m < 0) != (bf < 0) {
			m += bf
		}
		return value.Float(m), true, nil
	}
	return value.Nil, false, nil
}

func overflowAdd(x, y, s int64) bool { return ((x ^ s) & (y ^ s)) < 0 }
func overflowSub(x, y, s int64) bool { return ((x ^ y) & (x ^ s)) < 0 }

// mulOverflows reports whether x*y overflows int64. The MinInt64*-1 case
// needs its own check: Go's division wraps silently for that divisor
// instead of panicking, so the usual "divide the product back out" test
// (p/x != y) can't see it.
func mulOverflows(x, y int64) bool {
	if x == -1 && y == math.MinInt64 {
		return true
	}
	if y == -1 && x == math.MinInt64 {
		return true
	}
	if x == 0 || y == 0 {
		return false
	}
	p := x * y
	return p/x != y
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorModInt(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// arithSlow attempts the operator's metamethod (spec §4.3, "first operand
// then second") once the numeric fast path has declined.
func (vm *VM) arithSlow(f *frame.Frame, op opcode.Op, left, right value.Value, instr value.Instruction) (Signal, error) {
	key := vm.Meta.Keys.ArithKey(arithKeyName(op))
	fn, ok := vm.Meta.Binary(key, left, right)
	if !ok {
		bad := left
		if left.IsNumber() {
			bad = right
		}
		return 0, vm.newError(errs.KindArithmetic, "attempt to perform arithmetic on a %s value", bad.TypeName())
	}
	res, err := vm.Call(fn, []value.Value{left, right})
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		vm.setReg(f, opcode.GetA(instr), value.Nil)
	} else {
		vm.setReg(f, opcode.GetA(instr), res[0])
	}
	return Continue, nil
}

func asInt(v value.Value) (int64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return v.AsInt(), true
	case value.KindFloat:
		f := v.AsFloat()
		if i := int64(f); float64(i) == f {
			return i, true
		}
	}
	return 0, false
}

func (vm *VM) opBitwise(f *frame.Frame, op opcode.Op, instr value.Instruction) (Signal, error) {
	left, right, isImm, imm := vm.operands(f, op, instr)
	if isImm {
		right = value.Int(int64(imm))
	}
	li, lok := asInt(left)
	ri, rok := asInt(right)
	if lok && rok {
		vm.setReg(f, opcode.GetA(instr), value.Int(bitwiseFast(op, li, ri)))
		return Continue, nil
	}
	return vm.arithSlow(f, op, left, right, instr)
}

func bitwiseFast(op opcode.Op, a, b int64) int64 {
	switch op {
	case opcode.OpBAnd, opcode.OpBAndK:
		return a & b
	case opcode.OpBOr, opcode.OpBOrK:
		return a | b
	case opcode.OpBXor, opcode.OpBXorK:
		return a ^ b
	case opcode.OpShl, opcode.OpShlI:
		return shiftLeft(a, b)
	case opcode.OpShr, opcode.OpShrI:
		return shiftLeft(a, -b)
	}
	return 0
}

// shiftLeft implements spec §4.2.3's "shift counts greater than 63
// saturate; negative shifts reverse direction" for a left shift by n
// (n<0 shifts right by -n).
func shiftLeft(a, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(a) << uint(n))
	}
	return int64(uint64(a) >> uint(-n))
}

func (vm *VM) opUnary(f *frame.Frame, instr value.Instruction, name string, ffn func(float64) float64, ifn func(int64) int64) (Signal, error) {
	v := vm.reg(f, opcode.GetB(instr))
	switch v.Kind() {
	case value.KindInt:
		vm.setReg(f, opcode.GetA(instr), value.Int(ifn(v.AsInt())))
		return Continue, nil
	case value.KindFloat:
		vm.setReg(f, opcode.GetA(instr), value.Float(ffn(v.AsFloat())))
		return Continue, nil
	}
	fn, ok := vm.Meta.Unary(vm.Meta.Keys.Unm, v)
	if !ok {
		return 0, vm.newError(errs.KindArithmetic, "attempt to perform arithmetic on a %s value", v.TypeName())
	}
	res, err := vm.Call(fn, []value.Value{v, v})
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		vm.setReg(f, opcode.GetA(instr), value.Nil)
	} else {
		vm.setReg(f, opcode.GetA(instr), res[0])
	}
	return Continue, nil
}

func (vm *VM) opBNot(f *frame.Frame, instr value.Instruction) (Signal, error) {
	v := vm.reg(f, opcode.GetB(instr))
	if i, ok := asInt(v); ok {
		vm.setReg(f, opcode.GetA(instr), value.Int(^i))
		return Continue, nil
	}
	fn, ok := vm.Meta.Unary(vm.Meta.Keys.BNot, v)
	if !ok {
		return 0, vm.newError(errs.KindArithmetic, "attempt to perform bitwise operation on a %s value", v.TypeName())
	}
	res, err := vm.Call(fn, []value.Value{v, v})
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		vm.setReg(f, opcode.GetA(instr), value.Nil)
	} else {
		vm.setReg(f, opcode.GetA(instr), res[0])
	}
	return Continue, nil
}

func (vm *VM) opLen(f *frame.Frame, instr value.Instruction) (Signal, error) {
	v := vm.reg(f, opcode.GetB(instr))
	res, err := vm.Meta.Len(v, vm)
	if err != nil {
		return 0, vm.fail(err)
	}
	vm.setReg(f, opcode.GetA(instr), res)
	return Continue, nil
}

// opConcat implements spec §4.2.3's left-to-right concatenation over a
// register range, falling back to __concat pairwise when a range member
// isn't a string or number.
func (vm *VM) opConcat(f *frame.Frame, instr value.Instruction) (Signal, error) {
	a, b := opcode.GetA(instr), opcode.GetB(instr)
	acc := vm.reg(f, a+b-1)
	for i := b - 2; i >= 0; i-- {
		left := vm.reg(f, a+i)
		v, err := vm.concatPair(left, acc)
		if err != nil {
			return 0, err
		}
		acc = v
	}
	vm.setReg(f, a, acc)
	return Continue, nil
}

func (vm *VM) concatPair(left, right value.Value) (value.Value, error) {
	ls, lok := concatString(left)
	rs, rok := concatString(right)
	if lok && rok {
		return value.Obj(vm.GC.Intern(ls + rs)), nil
	}
	fn, ok := vm.Meta.Binary(vm.Meta.Keys.Concat, left, right)
	if !ok {
		bad := left
		if lok {
			bad = right
		}
		return value.Nil, vm.newError(errs.KindArithmetic, "attempt to concatenate a %s value", bad.TypeName())
	}
	res, err := vm.Call(fn, []value.Value{left, right})
	if err != nil {
		return value.Nil, err
	}
	if len(res) == 0 {
		return value.Nil, nil
	}
	return res[0], nil
}

func concatString(v value.Value) (string, bool) {
	if tag, ok := v.ObjectTag(); ok && tag == value.TagString {
		return string(v.AsObject().(*value.String).Data), true
	}
	switch v.Kind() {
	case value.KindInt:
		return formatInt(v.AsInt()), true
	case value.KindFloat:
		return formatFloat(v.AsFloat()), true
	}
	return "", false
}
