// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

// Userdata wraps arbitrary native data plus a fixed number of user-value
// slots and an optional metatable (spec §3, "Userdata"). The core treats
// Data opaquely; the host defines its shape.
type Userdata struct {
	hdr       Header
	Data      interface{}
	UserValues []Value
	meta      *Table
}

func (u *Userdata) Header() *Header { return &u.hdr }

func NewUserdata(data interface{}, nuservalues int) *Userdata {
	u := &Userdata{Data: data, UserValues: make([]Value, nuservalues)}
	u.hdr.Tag = TagUserdata
	return u
}

func (u *Userdata) Metatable() *Table     { return u.meta }
func (u *Userdata) SetMetatable(m *Table) { u.meta = m }
