// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import "github.com/lumen-lang/lumen/internal/value"

// OpenUpvalues is the per-thread singly linked list of open upvalues,
// ordered by descending stack address (spec §3, §4.2.4). Keeping it
// sorted makes "get-or-create for this slot" and "close everything at or
// above level L" both a single linear scan that stops at the first
// lower address.
type OpenUpvalues struct {
	head  *value.Upvalue
	alloc func(pos int, slot value.StackSlot) *value.Upvalue
}

func NewOpenUpvalues(alloc func(pos int, slot value.StackSlot) *value.Upvalue) *OpenUpvalues {
	return &OpenUpvalues{alloc: alloc}
}

// FindOrCreate returns the open upvalue for absolute stack index pos,
// creating one via alloc if none exists yet (spec §4.2.4).
func (ov *OpenUpvalues) FindOrCreate(pos int, slot value.StackSlot) *value.Upvalue {
	var prev *value.Upvalue
	cur := ov.head
	for cur != nil && cur.StackPos > pos {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.StackPos == pos {
		return cur
	}
	uv := ov.alloc(pos, slot)
	uv.Next = cur
	if prev == nil {
		ov.head = uv
	} else {
		prev.Next = uv
	}
	return uv
}

// CloseFrom closes every open upvalue at or above absolute index level,
// unlinking them from the chain (spec §4.2.4: "Closing at level L walks
// the list from the head, closing every upvalue whose address ≥ L").
func (ov *OpenUpvalues) CloseFrom(level int) {
	for ov.head != nil && ov.head.StackPos >= level {
		ov.head.Close()
		ov.head = ov.head.Next
	}
}

// MarkRoots grays every currently open upvalue, for the owning thread's
// RootProvider: an open upvalue's held value is really just an alias for
// a live stack slot, which is marked separately, but the Upvalue object
// itself must stay alive so Get/Set through it keep working.
func (ov *OpenUpvalues) MarkRoots(mark func(value.Object)) {
	for u := ov.head; u != nil; u = u.Next {
		mark(u)
	}
}
