// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import "github.com/lumen-lang/lumen/internal/errs"

// DefaultMaxDepth bounds nested calls (spec §4.2.1: "Frames are stored in
// a bounded array; exceeding the bound fails with CallStackOverflow").
const DefaultMaxDepth = 200

// CallStack is the bounded frame array for one thread.
type CallStack struct {
	frames  []*Frame
	maxDepth int
}

func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &CallStack{maxDepth: maxDepth}
}

func (cs *CallStack) Depth() int { return len(cs.frames) }

// Top returns the innermost frame, or nil if the stack is empty.
func (cs *CallStack) Top() *Frame {
	if len(cs.frames) == 0 {
		return nil
	}
	return cs.frames[len(cs.frames)-1]
}

// Push appends a new frame, failing with a KindCallStack error if doing
// so would exceed maxDepth.
func (cs *CallStack) Push(f *Frame) error {
	if len(cs.frames) >= cs.maxDepth {
		return errs.New(errs.KindCallStack, "", 0, "stack overflow")
	}
	if len(cs.frames) > 0 {
		f.Prev = cs.frames[len(cs.frames)-1]
	}
	cs.frames = append(cs.frames, f)
	return nil
}

// Pop removes and returns the innermost frame.
func (cs *CallStack) Pop() *Frame {
	n := len(cs.frames)
	if n == 0 {
		return nil
	}
	f := cs.frames[n-1]
	cs.frames = cs.frames[:n-1]
	return f
}

// TruncateTo pops frames until Depth() == depth, used to discard
// intermediate frames when unwinding to a protected frame (spec §4.2.5).
func (cs *CallStack) TruncateTo(depth int) {
	if depth < 0 {
		depth = 0
	}
	if depth < len(cs.frames) {
		cs.frames = cs.frames[:depth]
	}
}

// Frames returns the live frames, outermost first, for root marking.
func (cs *CallStack) Frames() []*Frame { return cs.frames }
