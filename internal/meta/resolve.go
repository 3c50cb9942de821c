// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meta

import (
	"math"

	"github.com/lumen-lang/lumen/internal/errs"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
)

// Invoker calls a Value as a function, reentrantly, for the cases where
// metamethod resolution needs to run one to get its answer (a function
// __index, an __eq comparison, …). The dispatcher's reentrant call API
// implements this; package meta never calls into vm directly (spec §2's
// layering keeps the metamethod layer below the dispatcher).
type Invoker interface {
	Call(fn value.Value, args []value.Value) ([]value.Value, error)
}

// Resolver implements spec §4.3's metamethod resolution algorithms on top
// of a State's metatable lookup and an interned Keys set.
type Resolver struct {
	State *state.State
	Keys  *Keys
}

func NewResolver(s *state.State, k *Keys) *Resolver {
	return &Resolver{State: s, Keys: k}
}

func asTable(v value.Value) (*value.Table, bool) {
	if tag, ok := v.ObjectTag(); ok && tag == value.TagTable {
		return v.AsObject().(*value.Table), true
	}
	return nil, false
}

func isFunction(v value.Value) bool {
	tag, ok := v.ObjectTag()
	return ok && (tag == value.TagClosure || tag == value.TagNativeClosure)
}

// Metamethod returns the value bound to key on v's metatable, or Nil if v
// has no metatable or the key is absent.
func (r *Resolver) Metamethod(v value.Value, key *value.String) value.Value {
	mt := r.State.MetatableOf(v)
	if mt == nil {
		return value.Nil
	}
	return mt.Get(value.Obj(key))
}

// Index implements spec §4.3's indexing algorithm: a raw table hit wins
// outright; otherwise follow the __index chain, which may itself be a
// table (repeat) or a function (call it with (table, key)).
func (r *Resolver) Index(obj, key value.Value, inv Invoker) (value.Value, error) {
	for depth := 0; depth < maxIndexChain; depth++ {
		if t, ok := asTable(obj); ok {
			if v := t.Get(key); !v.IsNil() {
				return v, nil
			}
		}
		idx := r.Metamethod(obj, r.Keys.Index)
		if idx.IsNil() {
			if _, ok := asTable(obj); ok {
				return value.Nil, nil
			}
			return value.Nil, errs.New(errs.KindTable, "", 0, "attempt to index a %s value", obj.TypeName())
		}
		if isFunction(idx) {
			res, err := inv.Call(idx, []value.Value{obj, key})
			if err != nil {
				return value.Nil, err
			}
			if len(res) == 0 {
				return value.Nil, nil
			}
			return res[0], nil
		}
		obj = idx // __index is itself a table: loop
	}
	return value.Nil, errs.New(errs.KindTable, "", 0, "'__index' chain too long; possible loop")
}

// NewIndex implements spec §4.3's assignment algorithm: a raw hit (key
// already present in the table) assigns directly; otherwise follow
// __newindex, which may be a table (repeat) or a function (call it with
// (table, key, value)).
func (r *Resolver) NewIndex(obj, key, val value.Value, set func(*value.Table, value.Value, value.Value) error, inv Invoker) error {
	for depth := 0; depth < maxIndexChain; depth++ {
		if t, ok := asTable(obj); ok {
			if !t.Get(key).IsNil() {
				return checkKey(key, set, t, val)
			}
		}
		ni := r.Metamethod(obj, r.Keys.NewIndex)
		if ni.IsNil() {
			if t, ok := asTable(obj); ok {
				return checkKey(key, set, t, val)
			}
			return errs.New(errs.KindTable, "", 0, "attempt to index a %s value", obj.TypeName())
		}
		if isFunction(ni) {
			_, err := inv.Call(ni, []value.Value{obj, key, val})
			return err
		}
		obj = ni
	}
	return errs.New(errs.KindTable, "", 0, "'__newindex' chain too long; possible loop")
}

const maxIndexChain = 2000

// checkKey rejects a nil or NaN key (spec §7, "Table operations: nil or
// NaN key") before handing a raw write off to set; both would otherwise
// succeed silently as ordinary Go map entries.
func checkKey(key value.Value, set func(*value.Table, value.Value, value.Value) error, t *value.Table, val value.Value) error {
	if key.IsNil() {
		return errs.New(errs.KindTable, "", 0, "table index is nil")
	}
	if f, ok := key.ToFloat(); ok && math.IsNaN(f) {
		return errs.New(errs.KindTable, "", 0, "table index is NaN")
	}
	return set(t, key, val)
}

// Callable resolves the callee for a CALL instruction per spec §4.3: v
// itself if it's already a function, or the __call metamethod plus v
// prepended to the argument list.
func (r *Resolver) Callable(v value.Value) (fn value.Value, prependSelf bool, ok bool) {
	if isFunction(v) {
		return v, false, true
	}
	call := r.Metamethod(v, r.Keys.Call)
	if call.IsNil() {
		return value.Nil, false, false
	}
	return call, true, true
}

// Len implements spec §4.3's length operator: strings have an intrinsic
// byte length, __len overrides tables and userdata, and a table with no
// __len falls back to its border length.
func (r *Resolver) Len(v value.Value, inv Invoker) (value.Value, error) {
	if tag, ok := v.ObjectTag(); ok && tag == value.TagString {
		s := v.AsObject().(*value.String)
		return value.Int(int64(len(s.Data))), nil
	}
	lenFn := r.Metamethod(v, r.Keys.Len)
	if !lenFn.IsNil() {
		if isFunction(lenFn) {
			res, err := inv.Call(lenFn, []value.Value{v})
			if err != nil {
				return value.Nil, err
			}
			if len(res) == 0 {
				return value.Nil, nil
			}
			return res[0], nil
		}
		return lenFn, nil
	}
	if t, ok := asTable(v); ok {
		return value.Int(t.Len()), nil
	}
	return value.Nil, errs.New(errs.KindLength, "", 0, "attempt to get length of a %s value", v.TypeName())
}

// Binary looks up a binary arithmetic/bitwise metamethod, trying a then b
// (spec §4.3: "the first operand with the metamethod wins").
func (r *Resolver) Binary(key *value.String, a, b value.Value) (value.Value, bool) {
	if fn := r.Metamethod(a, key); !fn.IsNil() {
		return fn, true
	}
	if fn := r.Metamethod(b, key); !fn.IsNil() {
		return fn, true
	}
	return value.Nil, false
}

// Unary looks up a unary metamethod (__unm, __bnot) on v alone.
func (r *Resolver) Unary(key *value.String, v value.Value) (value.Value, bool) {
	fn := r.Metamethod(v, key)
	return fn, !fn.IsNil()
}

// Eq resolves __eq, which spec §4.3 restricts to two tables or two
// userdata that compare raw-unequal; it's consulted only by the caller
// after RawEqual/identity has already failed.
func (r *Resolver) Eq(a, b value.Value) (value.Value, bool) {
	atag, aok := a.ObjectTag()
	btag, bok := b.ObjectTag()
	if !aok || !bok || atag != btag {
		return value.Nil, false
	}
	if atag != value.TagTable && atag != value.TagUserdata {
		return value.Nil, false
	}
	return r.Binary(r.Keys.Eq, a, b)
}
