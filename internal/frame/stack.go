// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame implements the VM's per-thread call frames, vararg
// storage, open-upvalue chain, and to-be-closed bitmap (spec §4.2.1,
// §4.2.4).
package frame

import "github.com/lumen-lang/lumen/internal/value"

// Stack is the single contiguous register file shared by every frame on
// one thread; a Frame's Base is an index into it. Representing the stack
// this way (rather than one []Value per frame) is what makes register
// windows for calls a cheap index shift instead of a copy, and is also
// what lets an Upvalue's StackSlot outlive the call that created it only
// until Close — it indexes into this same backing array.
type Stack struct {
	regs []value.Value
	top  int
}

func NewStack(capacity int) *Stack {
	return &Stack{regs: make([]value.Value, capacity)}
}

func (s *Stack) Top() int     { return s.top }
func (s *Stack) SetTop(n int) {
	s.ensure(n)
	for i := s.top; i < n; i++ {
		s.regs[i] = value.Nil
	}
	s.top = n
}

func (s *Stack) Get(i int) value.Value { return s.regs[i] }
func (s *Stack) Set(i int, v value.Value) {
	s.ensure(i + 1)
	s.regs[i] = v
}

func (s *Stack) ensure(n int) {
	if n <= len(s.regs) {
		return
	}
	grown := make([]value.Value, n*2)
	copy(grown, s.regs)
	s.regs = grown
}

// Slot returns a value.StackSlot addressing absolute index i, suitable
// for handing to value.NewOpenUpvalue.
func (s *Stack) Slot(i int) value.StackSlot { return stackSlot{s, i} }

type stackSlot struct {
	s *Stack
	i int
}

func (sl stackSlot) Get() value.Value  { return sl.s.Get(sl.i) }
func (sl stackSlot) Set(v value.Value) { sl.s.Set(sl.i, v) }

// MarkRange grays every live register in [lo, hi) via mark, for use by a
// thread's RootProvider implementation (spec §4.1.4: "open: the
// pointed-to stack slot is marked by the owning thread's root provider").
func (s *Stack) MarkRange(lo, hi int, markValue func(value.Value)) {
	if hi > s.top {
		hi = s.top
	}
	for i := lo; i < hi; i++ {
		markValue(s.regs[i])
	}
}
