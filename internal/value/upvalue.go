// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

// StackSlot is an indirection to a live register, implemented by the
// frame/thread owning the stack. An Upvalue's Location is nil once closed;
// Closed then holds the captured value directly (spec §3, "Upvalue").
type StackSlot interface {
	Get() Value
	Set(Value)
}

// Upvalue is a shared reference slot that is "open" while the stack slot
// it captures is still live, and "closed" once that frame has returned
// (spec §3, "Upvalue"). Open upvalues form a singly linked per-thread list
// ordered by descending stack address (spec §4.2.4); Next is that link,
// maintained by the owning thread, not by Upvalue itself.
type Upvalue struct {
	hdr      Header
	Location StackSlot // non-nil iff open
	closed   Value
	StackPos int  // absolute stack index this upvalue targets while open
	Next     *Upvalue
}

func (u *Upvalue) Header() *Header { return &u.hdr }

// NewOpenUpvalue creates an open upvalue targeting the given stack slot.
func NewOpenUpvalue(pos int, slot StackSlot) *Upvalue {
	u := &Upvalue{Location: slot, StackPos: pos}
	u.hdr.Tag = TagUpvalue
	return u
}

func (u *Upvalue) IsOpen() bool { return u.Location != nil }

// Get reads the current value: the live stack slot while open, the closed
// slot afterward.
func (u *Upvalue) Get() Value {
	if u.Location != nil {
		return u.Location.Get()
	}
	return u.closed
}

// Set writes through to the live stack slot while open, or to the closed
// slot afterward.
func (u *Upvalue) Set(v Value) {
	if u.Location != nil {
		u.Location.Set(v)
		return
	}
	u.closed = v
}

// Close copies the current stack value into the upvalue's own slot and
// repoints Location at nil so Get/Set address it directly (spec §4.2.4).
func (u *Upvalue) Close() {
	if u.Location == nil {
		return
	}
	u.closed = u.Location.Get()
	u.Location = nil
}
