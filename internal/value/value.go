// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value implements the runtime's value model and heap object
// layout (spec §3): a tagged union of immediates (nil, boolean, integer,
// double) and pointers to heap objects (string, table, closure, native
// closure, upvalue, userdata, proto, thread), plus the object types
// themselves. Value and the heap objects live in one package because each
// heap object's children are Values and Value's pointer variant is a heap
// object — splitting them would just import-cycle the two halves back
// together.
package value

import "math"

// Kind discriminates Value's variant.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindObject
)

// Value is the runtime's tagged union. The zero Value is nil.
type Value struct {
	kind Kind
	n    uint64 // bool (0/1), int64 bits, or float64 bits
	obj  Object
}

// Nil is the nil value.
var Nil = Value{}

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, n: n}
}

func Int(i int64) Value {
	return Value{kind: KindInt, n: uint64(i)}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, n: math.Float64bits(f)}
}

// Obj wraps any heap Object (String, *Table, *Closure, *NativeClosure,
// *Upvalue, *Userdata, *Proto, *Thread) as a Value. A nil concrete
// pointer (e.g. a Table with no metatable) becomes Nil, not a Value
// wrapping a typed-nil interface: Go's "o == nil" alone would miss that
// case since the interface still carries a type.
func Obj(o Object) Value {
	if o == nil || isNilObject(o) {
		return Nil
	}
	return Value{kind: KindObject, obj: o}
}

// isNilObject reports whether o wraps a nil concrete pointer.
func isNilObject(o Object) bool {
	switch v := o.(type) {
	case *Table:
		return v == nil
	case *Closure:
		return v == nil
	case *NativeClosure:
		return v == nil
	case *Upvalue:
		return v == nil
	case *Userdata:
		return v == nil
	case *Proto:
		return v == nil
	case *Thread:
		return v == nil
	case *String:
		return v == nil
	default:
		return false
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) AsBool() bool { return v.n != 0 }
func (v Value) AsInt() int64 { return int64(v.n) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.n) }
func (v Value) AsObject() Object { return v.obj }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// ToFloat converts an integer or float Value to float64. The second result
// is false for non-numeric values.
func (v Value) ToFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.AsInt()), true
	case KindFloat:
		return v.AsFloat(), true
	default:
		return 0, false
	}
}

// ObjectTag returns the tag of v's heap object, or false if v is not an
// object.
func (v Value) ObjectTag() (Tag, bool) {
	if v.kind != KindObject {
		return 0, false
	}
	return v.obj.Header().Tag, true
}

// Truthy implements spec §3's truthiness rule: nil and false are falsy,
// everything else (including 0, 0.0, and "") is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// TypeName returns the Lua-visible type name of v, for type() and error
// messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt, KindFloat:
		return "number"
	case KindObject:
		tag, _ := v.ObjectTag()
		if tag == TagString {
			return "string"
		}
		return tag.String()
	default:
		return "unknown"
	}
}

// RawEqual implements spec §3's primitive equality, with no metamethod
// dispatch: immediates compare by value, numbers compare numerically
// across integer/float, interned strings compare by pointer, and
// everything else compares by identity.
func RawEqual(a, b Value) bool {
	if a.kind == KindNil || b.kind == KindNil {
		return a.kind == b.kind
	}
	if a.IsNumber() && b.IsNumber() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.AsInt() == b.AsInt()
		}
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindObject:
		at, _ := a.ObjectTag()
		if at == TagString {
			// Interned strings: pointer identity doubles as content
			// equality (spec §3, "Intern uniqueness").
			as, aok := a.obj.(*String)
			bs, bok := b.obj.(*String)
			return aok && bok && as == bs
		}
		return a.obj == b.obj
	default:
		return false
	}
}
