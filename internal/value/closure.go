// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

// Closure is a runtime instance of a Proto, carrying an upvalue vector
// sized by len(Proto.Upvalues) (spec §3, "Closure (scripted)").
type Closure struct {
	hdr      Header
	Proto    *Proto
	Upvalues []*Upvalue
}

func (c *Closure) Header() *Header { return &c.hdr }

func NewClosure(proto *Proto) *Closure {
	c := &Closure{Proto: proto, Upvalues: make([]*Upvalue, len(proto.Upvalues))}
	c.hdr.Tag = TagClosure
	return c
}

// NativeID identifies a native function for the external dispatch table
// (spec §6, "Native function dispatch"). The core never interprets this
// value; it's opaque beyond equality and is handed back to the host's
// invoke function.
type NativeID int32

// NativeClosure wraps a native function identifier (spec §3, "Native
// closure"). It carries no upvalues of its own in this core; a host that
// wants closed-over native state can stash it in the registry keyed by
// NativeID, or the host's own side table.
type NativeClosure struct {
	hdr  Header
	ID   NativeID
	Name string // for error messages and debug info only
}

func (n *NativeClosure) Header() *Header { return &n.hdr }

func NewNativeClosure(id NativeID, name string) *NativeClosure {
	n := &NativeClosure{ID: id, Name: name}
	n.hdr.Tag = TagNativeClosure
	return n
}
