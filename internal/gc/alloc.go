// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/lumen-lang/lumen/internal/value"

// maybeCollect runs a full cycle before an allocation if automatic
// collection is due (spec §4.1.1): enabled, over threshold, not
// inhibited, and at least one root provider is registered (collecting
// with no roots registered would free everything reachable only through
// roots we don't yet know about).
func (c *Collector) maybeCollect(requested int64) {
	if !c.autoEnabled || c.inhibited() || len(c.providers) == 0 {
		return
	}
	if c.bytesAllocated+requested <= c.threshold {
		return
	}
	c.Collect()
}

// link puts o on the front of the global object list and marks it with
// the *current* mark, i.e. "born black" (spec §4.1.1): a newly allocated
// object must survive the cycle it's allocated in, even one triggered by
// this very allocation via maybeCollect.
func (c *Collector) link(o value.Object, size int64) {
	h := o.Header()
	h.Mark = c.currentMark
	h.ListNext = c.head
	c.head = o
	c.bytesAllocated += size
}

const (
	sizeHeader    = 32 // approximate header + Go object overhead, for accounting
	sizeTable     = sizeHeader + 48
	sizeClosure   = sizeHeader + 24
	sizeNative    = sizeHeader + 16
	sizeUpvalue   = sizeHeader + 16
	sizeUserdata  = sizeHeader + 16
	sizeProto     = sizeHeader + 64
	sizeThread    = sizeHeader + 32
)

func (c *Collector) AllocTable() *value.Table {
	c.maybeCollect(sizeTable)
	t := value.NewTable()
	c.link(t, sizeTable)
	return t
}

func (c *Collector) AllocClosure(proto *value.Proto) *value.Closure {
	c.maybeCollect(sizeClosure)
	// Closures are typically constructed with an inhibited collector
	// (spec §4.1.8) while their upvalue array is filled in one slot at
	// a time, so the in-progress closure — born black, but with some
	// upvalue slots still nil — is safe even without inhibiting: a nil
	// slot marks as nothing, and a later write goes through the write
	// barrier if the closure has already gone black this cycle.
	cl := value.NewClosure(proto)
	c.link(cl, sizeClosure)
	return cl
}

func (c *Collector) AllocNativeClosure(id value.NativeID, name string) *value.NativeClosure {
	c.maybeCollect(sizeNative)
	n := value.NewNativeClosure(id, name)
	c.link(n, sizeNative)
	return n
}

func (c *Collector) AllocOpenUpvalue(pos int, slot value.StackSlot) *value.Upvalue {
	c.maybeCollect(sizeUpvalue)
	u := value.NewOpenUpvalue(pos, slot)
	c.link(u, sizeUpvalue)
	return u
}

func (c *Collector) AllocUserdata(data interface{}, nuservalues int) *value.Userdata {
	c.maybeCollect(sizeUserdata)
	u := value.NewUserdata(data, nuservalues)
	c.link(u, sizeUserdata)
	return u
}

func (c *Collector) AllocProto(source string, code []value.Instruction, lines []int32) *value.Proto {
	size := sizeProto + int64(len(code))*4
	c.maybeCollect(size)
	p := value.NewProto(source, code, lines)
	c.link(p, size)
	return p
}

func (c *Collector) AllocThread(state interface{}, markVM func(interface{}, func(value.Object)), freeVM func(interface{})) *value.Thread {
	c.maybeCollect(sizeThread)
	th := value.NewThread(state, markVM, freeVM)
	c.link(th, sizeThread)
	return th
}

// Intern returns the unique String object for data, allocating one if
// this is the first time data has been seen (spec §3, "the collector
// maintains a hash map from byte slice to string object"). Two interned
// strings are equal iff their pointers are equal (spec §8, "Intern
// uniqueness").
func (c *Collector) Intern(data string) *value.String {
	if s, ok := c.strings[data]; ok {
		return s
	}
	size := sizeHeader + int64(len(data))
	c.maybeCollect(size)
	// maybeCollect may have run a cycle, but it never touches the
	// intern table except to evict strings with no remaining
	// references, so a fresh lookup after the potential collection
	// would only matter if data's sole reference were this call's
	// about-to-be-created string — which can't yet exist.
	s := value.NewString(data)
	c.strings[data] = s
	c.link(s, size)
	return s
}
