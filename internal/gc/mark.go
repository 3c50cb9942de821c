// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/lumen-lang/lumen/internal/value"

// Collect runs one full idle→mark→sweep→idle cycle (spec §4.1.3),
// regardless of the automatic-collection threshold; Step is the public
// entry point that also checks Inhibit.
func (c *Collector) Collect() {
	c.mark()
	c.phase = phaseSweep
	freed := c.sweep()
	c.sweepWeakTables()
	c.phase = phaseIdle
	c.cycles++
	c.logf("gc: cycle %d: freed %d bytes, %d live, next threshold %d", c.cycles, freed, c.countLive(), c.threshold)
}

// Step performs a cycle immediately unless inhibited (spec §4.1.8).
func (c *Collector) Step() bool {
	if c.inhibited() {
		return false
	}
	c.Collect()
	return true
}

func (c *Collector) mark() {
	c.phase = phaseMark

	// 1. Flip the current mark so every surviving object is implicitly
	// white without an O(n) sweep of mark bits (spec §4.1.2).
	c.currentMark = !c.currentMark

	// 2. Clear the gray list and the per-cycle weak-table list.
	c.gray = nil
	c.weakTables = c.weakTables[:0]

	// 3. Root providers mark their own roots.
	for _, p := range c.providers {
		p.MarkRoots(c.markObject)
	}

	// 4. Static roots: shared primitive metatables, interned
	// metamethod keys, and the finalizer queue.
	for _, o := range c.staticRoots {
		c.markObject(o)
	}
	for _, fe := range c.finalizerQueue {
		c.markObject(fe.obj)
		c.markValue(fe.gc)
	}

	// 5-6. Drain the gray worklist and run ephemeron fixpoint passes
	// until both are stable, then (7) enqueue finalizers, which can
	// mark more objects, so repeat until nothing changes.
	for {
		c.drainGray()
		changed := c.ephemeronPass()
		for changed {
			c.drainGray()
			changed = c.ephemeronPass()
		}
		if !c.enqueueFinalizers() {
			break
		}
	}
}

// markObject grays o if it's currently white. Used for roots and for
// scanning children; "already marked" (gray or black) is a no-op, which
// is what keeps the drain loop terminating on a cyclic graph.
func (c *Collector) markObject(o value.Object) {
	if o == nil || isNilObject(o) {
		return
	}
	h := o.Header()
	if h.Mark == c.currentMark {
		return // already gray or black this cycle
	}
	h.Mark = c.currentMark
	h.InGray = true
	h.GrayNext = c.gray
	c.gray = o
}

// isNilObject reports whether o is an interface wrapping a nil concrete
// pointer (t.Metatable(), a Closure's unset upvalue slot, …): Go's "o ==
// nil" is false for such values since the interface itself carries a
// type, so every call site that might hand markObject a nil *Table,
// *Proto, etc. needs this instead of a bare nil check.
func isNilObject(o value.Object) bool {
	switch v := o.(type) {
	case *value.Table:
		return v == nil
	case *value.Closure:
		return v == nil
	case *value.NativeClosure:
		return v == nil
	case *value.Upvalue:
		return v == nil
	case *value.Userdata:
		return v == nil
	case *value.Proto:
		return v == nil
	case *value.Thread:
		return v == nil
	case *value.String:
		return v == nil
	default:
		return false
	}
}

func (c *Collector) markValue(v value.Value) {
	if tag, ok := v.ObjectTag(); ok {
		_ = tag
		c.markObject(v.AsObject())
	}
}

// drainGray pops one object at a time, scans it, and grays its children,
// until the worklist is empty (spec §4.1.3, step 5).
func (c *Collector) drainGray() {
	for c.gray != nil {
		o := c.gray
		h := o.Header()
		c.gray = h.GrayNext
		h.InGray = false
		h.GrayNext = nil
		c.scanChildren(o)
	}
}

// scanChildren implements spec §4.1.4's per-type child scanning.
func (c *Collector) scanChildren(o value.Object) {
	switch t := o.(type) {
	case *value.String, *value.NativeClosure:
		// No outgoing references.
	case *value.Table:
		c.scanTable(t)
	case *value.Closure:
		for _, uv := range t.Upvalues {
			c.markObject(uv)
		}
		c.markObject(t.Proto)
	case *value.Upvalue:
		if !t.IsOpen() {
			c.markValue(t.Get())
		}
		// While open, the stack slot it targets is marked by the
		// owning thread's root provider (spec §4.1.4).
	case *value.Userdata:
		c.markObject(t.Metatable())
		for _, uv := range t.UserValues {
			c.markValue(uv)
		}
	case *value.Proto:
		for _, k := range t.Constants {
			c.markValue(k)
		}
		for _, p := range t.Protos {
			c.markObject(p)
		}
	case *value.Thread:
		if t.MarkVM != nil {
			t.MarkVM(t.VMState, c.markObject)
		}
	}
}

func (c *Collector) scanTable(t *value.Table) {
	c.markObject(t.Metatable())

	mode := c.weakModeOf(t)
	switch mode {
	case value.WeakNone:
		t.Each(func(k, v value.Value) bool {
			c.markValue(k)
			c.markValue(v)
			return true
		})
	case value.WeakValues:
		t.Each(func(k, v value.Value) bool {
			c.markValue(k)
			return true
		})
		c.weakTables = append(c.weakTables, t)
	case value.WeakKeys:
		// Values are deferred to the ephemeron fixpoint pass.
		c.weakTables = append(c.weakTables, t)
	default: // WeakKeys | WeakValues
		c.weakTables = append(c.weakTables, t)
	}
}

// weakModeOf reads __mode off t's metatable once per cycle and caches it
// on t's header (spec §4.1.6).
func (c *Collector) weakModeOf(t *value.Table) value.WeakMode {
	h := t.Header()
	if h.WeakModeValid {
		return h.WeakMode
	}
	h.WeakModeValid = true
	h.WeakMode = value.WeakNone
	meta := t.Metatable()
	if meta == nil || c.ModeKey == nil {
		return h.WeakMode
	}
	modeVal := meta.Get(value.Obj(c.ModeKey))
	tag, ok := modeVal.ObjectTag()
	if !ok || tag != value.TagString {
		return h.WeakMode
	}
	s := modeVal.AsObject().(*value.String)
	var m value.WeakMode
	for i := 0; i < len(s.Data); i++ {
		switch s.Data[i] {
		case 'k':
			m |= value.WeakKeys
		case 'v':
			m |= value.WeakValues
		}
	}
	h.WeakMode = m
	return m
}

// ephemeronPass implements spec §4.1.6's fixpoint: for each recorded
// weak-key table, if a key is marked, mark its value. Returns whether any
// value was newly marked, so the caller can interleave passes with
// drainGray until a pass changes nothing.
func (c *Collector) ephemeronPass() bool {
	changed := false
	for _, t := range c.weakTables {
		mode := c.weakModeOf(t)
		if mode&value.WeakKeys == 0 {
			continue
		}
		t.Each(func(k, v value.Value) bool {
			kTag, kIsObj := k.ObjectTag()
			_ = kTag
			if kIsObj {
				if k.AsObject().Header().Mark != c.currentMark {
					return true // key not yet known-live
				}
			}
			// Key is an immediate (always "live") or already marked.
			before := c.gray
			c.markValue(v)
			if c.gray != before {
				changed = true
			}
			return true
		})
	}
	return changed
}

// enqueueFinalizers walks the full object list once marking has
// stabilized and queues __gc for any object that's still white, has a
// finalizer, and hasn't already been queued (spec §4.1.7). Returns
// whether anything was enqueued, since enqueuing can itself make more
// objects reachable.
func (c *Collector) enqueueFinalizers() bool {
	if c.GCKey == nil {
		return false
	}
	any := false
	for o := c.head; o != nil; o = o.Header().ListNext {
		h := o.Header()
		if h.Mark == c.currentMark || h.FinalizerQueued {
			continue
		}
		meta := c.metatableOf(o)
		if meta == nil {
			continue
		}
		fn := meta.Get(value.Obj(c.GCKey))
		if fn.IsNil() {
			continue
		}
		h.FinalizerQueued = true
		c.finalizerQueue = append(c.finalizerQueue, finalizerEntry{obj: o, gc: fn})
		c.markObject(o)
		c.markValue(fn)
		any = true
	}
	return any
}

func (c *Collector) metatableOf(o value.Object) *value.Table {
	switch t := o.(type) {
	case *value.Table:
		return t.Metatable()
	case *value.Userdata:
		return t.Metatable()
	default:
		return nil
	}
}
