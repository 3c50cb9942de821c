// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "github.com/lumen-lang/lumen/internal/linetab"

// Instruction is one fixed 32-bit bytecode word (spec §6). Field
// extraction lives in package opcode, which depends on value rather than
// the other way around.
type Instruction uint32

// UpvalueDesc describes how a closure should capture one upvalue when it
// is created (spec §3, "Prototype"): either from a register in the
// enclosing function's own frame, or by copying a pointer out of the
// enclosing closure's own upvalue array.
type UpvalueDesc struct {
	FromStack bool
	Index     uint8
	Name      string // debug info only
}

// Proto is an immutable bundle of bytecode, constants, nested prototypes,
// and metadata produced by the external compiler (spec §3, "Prototype";
// spec §6, "Prototype object fields"). Nothing in this core mutates a
// Proto after the compiler hands it to the runtime.
type Proto struct {
	hdr Header

	Constants    []Value
	Code         []Instruction
	Protos       []*Proto
	NumParams    int
	IsVararg     bool
	MaxStackSize int
	Upvalues     []UpvalueDesc

	Source string
	lines  linetab.Table // parallel to Code, decoded from the delta-varint line table

	// Name is the proto's own name for stack traces and debug output;
	// empty for the top-level chunk.
	Name string
}

func (p *Proto) Header() *Header { return &p.hdr }

// NewProto allocates a Proto. lines must have one entry per instruction in
// code.
func NewProto(source string, code []Instruction, lines []int32) *Proto {
	p := &Proto{
		Source: source,
		Code:   code,
		lines:  linetab.Decode(linetab.Encode(nil, lines), len(lines)),
	}
	p.hdr.Tag = TagProto
	return p
}

// Line returns the source line for instruction pc (0-based), or 0 if
// unknown.
func (p *Proto) Line(pc int) int32 { return p.lines.Line(pc) }
