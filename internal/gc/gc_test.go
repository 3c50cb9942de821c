// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/value"
)

type rootsProvider struct{ roots []value.Object }

func (r *rootsProvider) MarkRoots(mark func(value.Object)) {
	for _, o := range r.roots {
		mark(o)
	}
}

func newTestCollector() (*Collector, *rootsProvider) {
	c := New(DefaultConfig())
	rp := &rootsProvider{}
	c.RegisterRootProvider(rp)
	c.ModeKey = c.Intern("__mode")
	c.GCKey = c.Intern("__gc")
	c.AddStaticRoot(c.ModeKey)
	c.AddStaticRoot(c.GCKey)
	return c, rp
}

func TestInternUniqueness(t *testing.T) {
	c, _ := newTestCollector()
	a := c.Intern("hello")
	b := c.Intern("hello")
	if a != b {
		t.Errorf("Intern should return the same pointer for equal content")
	}
	d := c.Intern("world")
	if a == d {
		t.Errorf("Intern should return distinct pointers for distinct content")
	}
}

func TestSweepsUnreachable(t *testing.T) {
	c, rp := newTestCollector()
	reachable := c.AllocTable()
	rp.roots = []value.Object{reachable}
	_ = c.AllocTable() // unreachable

	c.Collect()

	var found []value.Object
	for o := c.head; o != nil; o = o.Header().ListNext {
		found = append(found, o)
	}
	for _, o := range found {
		if o != value.Object(reachable) {
			if _, ok := o.(*value.Table); ok {
				// the __mode/__gc interned strings are also on the
				// list (kept alive as the static roots newTestCollector
				// registers) — only fail on a stray Table, which is
				// unambiguously the unreachable one.
				t.Errorf("unreachable table survived sweep")
			}
		}
	}
	for o := c.head; o != nil; o = o.Header().ListNext {
		if o.Header().Mark != c.currentMark {
			t.Errorf("surviving object has stale mark bit")
		}
	}
}

func TestWriteBarrierPreservesChildDuringMark(t *testing.T) {
	c, rp := newTestCollector()
	parent := c.AllocTable()
	rp.roots = []value.Object{parent}

	// Drive the mark phase manually up to (but not past) the point
	// where a mutator write would race the collector in an incremental
	// implementation.
	c.mark()

	// parent is now black (marked, drained). Simulate the mutator
	// allocating a new white child and storing it into the already-black
	// parent without going through the barrier first: the child would
	// be missed by this cycle's sweep were it not for WriteBarrier.
	child := c.AllocTable() // born black this cycle regardless (spec §4.1.1)
	// Flip child back to "white" to simulate a child that predates this
	// cycle and was not yet reached by any root.
	child.Header().Mark = !c.currentMark

	parent.Set(value.Int(1), value.Obj(child))
	c.WriteBarrier(parent)

	// Re-drain now that parent was re-grayed.
	c.drainGray()

	if child.Header().Mark != c.currentMark {
		t.Fatalf("write barrier failed to preserve child stored into black parent")
	}

	c.phase = phaseSweep
	c.sweep()
	c.sweepWeakTables()
	c.phase = phaseIdle

	if got := parent.Get(value.Int(1)); got.IsNil() {
		t.Errorf("child was swept despite write barrier")
	}
}

func TestWeakValueTableDropsDeadEntry(t *testing.T) {
	c, rp := newTestCollector()

	weakMeta := c.AllocTable()
	weakMeta.Set(value.Obj(c.ModeKey), value.Obj(c.Intern("v")))

	wt := c.AllocTable()
	wt.SetMetatable(weakMeta)

	val := c.AllocTable() // the only ref to val is wt's value slot
	wt.Set(value.Int(1), value.Obj(val))

	rp.roots = []value.Object{wt, weakMeta}

	c.Collect()

	if got := wt.Get(value.Int(1)); !got.IsNil() {
		t.Errorf("weak-value entry should have been dropped, got %v", got)
	}
}

func TestEphemeronDropsUnreachableKey(t *testing.T) {
	c, rp := newTestCollector()

	weakMeta := c.AllocTable()
	weakMeta.Set(value.Obj(c.ModeKey), value.Obj(c.Intern("k")))

	wt := c.AllocTable()
	wt.SetMetatable(weakMeta)

	key := c.AllocTable() // only reachable through wt's key slot
	wt.Set(value.Obj(key), value.Int(42))

	rp.roots = []value.Object{wt, weakMeta}

	c.Collect()

	n := 0
	wt.Each(func(k, v value.Value) bool { n++; return true })
	if n != 0 {
		t.Errorf("ephemeron with unreachable key should have been dropped, got %d entries", n)
	}
}

func TestEphemeronKeepsReachableKey(t *testing.T) {
	c, rp := newTestCollector()

	weakMeta := c.AllocTable()
	weakMeta.Set(value.Obj(c.ModeKey), value.Obj(c.Intern("k")))

	wt := c.AllocTable()
	wt.SetMetatable(weakMeta)

	key := c.AllocTable()
	wt.Set(value.Obj(key), value.Int(42))

	rp.roots = []value.Object{wt, weakMeta, key} // key independently reachable

	c.Collect()

	if got := wt.Get(value.Obj(key)); got.AsInt() != 42 {
		t.Errorf("ephemeron with reachable key should survive, got %v", got)
	}
}

func TestFinalizerRunsAtMostOnce(t *testing.T) {
	c, rp := newTestCollector()

	calls := 0
	c.Invoke = func(fn, arg value.Value) (value.Value, error) {
		calls++
		return value.Nil, nil
	}

	meta := c.AllocTable()
	meta.Set(value.Obj(c.GCKey), value.Obj(c.AllocNativeClosure(0, "finalizer")))

	obj := c.AllocTable()
	obj.SetMetatable(meta)

	rp.roots = []value.Object{meta} // obj is NOT rooted: it should be finalized

	c.Collect()
	c.DrainFinalizers()
	c.Collect() // resurrection check: obj is gone, shouldn't refinalize

	if calls != 1 {
		t.Errorf("finalizer ran %d times, want 1", calls)
	}
}

func TestInhibitBlocksStep(t *testing.T) {
	c, _ := newTestCollector()
	c.Inhibit()
	if c.Step() {
		t.Errorf("Step should refuse to run while inhibited")
	}
	c.Allow()
	if !c.Step() {
		t.Errorf("Step should run once allowed")
	}
}

func TestMemoryKB(t *testing.T) {
	c, _ := newTestCollector()
	c.bytesAllocated = 1024 + 512
	kb, rem := c.MemoryKB()
	if kb != 1 || rem != 512 {
		t.Errorf("MemoryKB() = (%d, %d), want (1, 512)", kb, rem)
	}
}
