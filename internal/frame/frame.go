// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import "github.com/lumen-lang/lumen/internal/value"

// MaxTBCRegisters bounds the to-be-closed bitmap to 64 bits (spec
// §4.2.1): a frame can mark at most one TBC register per bit position,
// relative to its own base.
const MaxTBCRegisters = 64

// Frame is one call-info record (spec §4.2.1).
type Frame struct {
	Proto   *value.Proto
	Closure *value.Closure // nil for a frame with no upvalue access (e.g. the reentrant API's synthetic frame)

	PC int // index of the next instruction to fetch

	Base       int // R[0] for this frame, absolute stack index
	ResultBase int // where this frame's results land in the caller, absolute index
	NumResults int // results the caller asked for; negative means "as many as returned"

	VarargBase  int
	VarargCount int

	Prev *Frame

	Protected bool

	// TBC marks to-be-closed registers relative to Base: bit i set
	// means register Base+i is to-be-closed (spec §4.2.3, "Close &
	// to-be-closed").
	TBC uint64
}

// MarkTBC marks register (absolute index reg) as to-be-closed.
func (f *Frame) MarkTBC(reg int) {
	bit := reg - f.Base
	if bit >= 0 && bit < MaxTBCRegisters {
		f.TBC |= 1 << uint(bit)
	}
}

// HighestTBC returns the highest to-be-closed register (absolute index)
// still marked, or -1 if none remain. Scope exit closes in decreasing
// bitmap order (spec §4.2.3, §5 "Scoped acquisition"), one at a time via
// ClearTBC as each __close runs.
func (f *Frame) HighestTBC() int {
	if f.TBC == 0 {
		return -1
	}
	bit := 63
	for ; bit >= 0; bit-- {
		if f.TBC&(1<<uint(bit)) != 0 {
			break
		}
	}
	return f.Base + bit
}

func (f *Frame) ClearTBC(reg int) {
	bit := reg - f.Base
	if bit >= 0 && bit < MaxTBCRegisters {
		f.TBC &^= 1 << uint(bit)
	}
}

// HasTBCAtOrAbove reports whether any to-be-closed register at or above
// level (absolute index) remains marked.
func (f *Frame) HasTBCAtOrAbove(level int) bool {
	for r := f.HighestTBC(); r >= level; r = f.prevTBC(r) {
		return true
	}
	return false
}

func (f *Frame) prevTBC(below int) int {
	bit := below - f.Base - 1
	for ; bit >= 0; bit-- {
		if f.TBC&(1<<uint(bit)) != 0 {
			return f.Base + bit
		}
	}
	return -1
}
