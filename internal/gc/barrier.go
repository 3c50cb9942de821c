// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/lumen-lang/lumen/internal/value"

// WriteBarrier must be called by the mutator whenever it stores a heap
// reference into a field of parent (spec §4.1.5). It's a backward
// barrier: rather than greying the child (which would need the child
// passed in and would miss children stored via a raw map/slice write),
// it re-grays parent itself, so the next drain rescans it and picks up
// whatever was just written. It's a no-op outside the mark phase.
func (c *Collector) WriteBarrier(parent value.Object) {
	if c.phase != phaseMark || parent == nil {
		return
	}
	h := parent.Header()
	if h.Mark != c.currentMark {
		return // parent is white; it'll be scanned (or never reached) normally
	}
	if h.InGray {
		return // already pending a rescan
	}
	h.InGray = true
	h.GrayNext = c.gray
	c.gray = parent
}

// InMarkPhase reports whether a write barrier call would currently do
// anything, so hot paths can skip building a closure for WriteBarrier
// when it would be a guaranteed no-op.
func (c *Collector) InMarkPhase() bool { return c.phase == phaseMark }
