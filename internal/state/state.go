// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package state implements the shared runtime state object (spec §2,
// "Runtime state"; spec §6, "Runtime environment"): globals, the
// registry, the main thread pointer, and the shared primitive
// metatables.
package state

import (
	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/value"
)

// PrimKind classifies a non-table, non-userdata value for the purposes of
// shared-metatable lookup (spec §4.3: "primitives → the shared metatable
// registered for that primitive type").
type PrimKind uint8

const (
	PrimNil PrimKind = iota
	PrimBool
	PrimNumber
	PrimString
	PrimFunction
	PrimThread
	primCount
)

func PrimKindOf(v value.Value) (PrimKind, bool) {
	switch v.Kind() {
	case value.KindNil:
		return PrimNil, true
	case value.KindBool:
		return PrimBool, true
	case value.KindInt, value.KindFloat:
		return PrimNumber, true
	case value.KindObject:
		tag, _ := v.ObjectTag()
		switch tag {
		case value.TagString:
			return PrimString, true
		case value.TagClosure, value.TagNativeClosure:
			return PrimFunction, true
		case value.TagThread:
			return PrimThread, true
		}
	}
	return 0, false
}

// State is the shared object every thread of one runtime hangs off of
// (spec §2, "Runtime state"). It's its own gc.RootProvider, marking
// globals, the registry, shared metatables, and (transitively, via the
// main thread's own RootProvider) the main thread's stack.
type State struct {
	GC *gc.Collector

	Globals  *value.Table
	Registry *value.Table

	MainThread *value.Thread

	sharedMeta [primCount]*value.Table

	// threadRoots lets embedders register additional threads (e.g. a
	// coroutine library, out of this core's scope) whose stacks must
	// also be scanned; the main thread is always included.
	threadRoots []gc.RootProvider
}

func New(collector *gc.Collector) *State {
	s := &State{
		GC:       collector,
		Globals:  collector.AllocTable(),
		Registry: collector.AllocTable(),
	}
	collector.RegisterRootProvider(s)
	return s
}

// SharedMetatable returns the metatable shared by every value of kind k,
// or nil if none has been set.
func (s *State) SharedMetatable(k PrimKind) *value.Table { return s.sharedMeta[k] }

// SetSharedMetatable installs m as the metatable for every value of kind
// k. Setting a shared metatable after values of that kind already exist
// is fine: lookup is always by kind, never cached on the immediate value.
func (s *State) SetSharedMetatable(k PrimKind, m *value.Table) { s.sharedMeta[k] = m }

// MetatableOf resolves v's metatable per spec §4.3: a table or userdata's
// own metatable, or the shared metatable for v's primitive kind.
func (s *State) MetatableOf(v value.Value) *value.Table {
	if tag, ok := v.ObjectTag(); ok {
		switch tag {
		case value.TagTable:
			return v.AsObject().(*value.Table).Metatable()
		case value.TagUserdata:
			return v.AsObject().(*value.Userdata).Metatable()
		}
	}
	if k, ok := PrimKindOf(v); ok {
		return s.sharedMeta[k]
	}
	return nil
}

// AddThreadRoot registers an additional thread's root provider (for
// coroutines created by a library outside this core's scope).
func (s *State) AddThreadRoot(p gc.RootProvider) { s.threadRoots = append(s.threadRoots, p) }

// MarkRoots implements gc.RootProvider.
func (s *State) MarkRoots(mark func(value.Object)) {
	if s.Globals != nil {
		mark(s.Globals)
	}
	if s.Registry != nil {
		mark(s.Registry)
	}
	if s.MainThread != nil {
		mark(s.MainThread)
	}
	for _, m := range s.sharedMeta {
		if m != nil {
			mark(m)
		}
	}
	for _, p := range s.threadRoots {
		p.MarkRoots(mark)
	}
}
