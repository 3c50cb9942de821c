// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errs defines the runtime's typed failure taxonomy (spec §7) and
// the "<source>:<line>: <text>" formatting the engine uses to report them
// to protected callers and to the host.
package errs

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies a runtime failure. Kinds exist so host code and tests can
// errors.Is against a stable value instead of matching message text.
type Kind int

const (
	// KindBytecode covers a broken compiler or corrupt prototype: an
	// out-of-range program counter, an unknown opcode, or a missing
	// EXTRAARG follower. Caught by a protected call like any other kind
	// except out-of-memory.
	KindBytecode Kind = iota
	// KindCallStack covers frame overflow and calling a non-callable
	// value with no __call.
	KindCallStack
	// KindArithmetic covers a type mismatch with no metamethod, a
	// divide/mod by zero, or an unrepresentable integer conversion.
	KindArithmetic
	// KindCompare covers an order-comparison type mismatch with no
	// metamethod.
	KindCompare
	// KindForLoop covers non-numeric for-loop parameters or a zero
	// step.
	KindForLoop
	// KindTable covers a nil or NaN key, or indexing a non-table with
	// no __index.
	KindTable
	// KindMetatable covers a protected metatable (__metatable set).
	KindMetatable
	// KindLength covers taking the length of an ineligible value with
	// no __len.
	KindLength
	// KindUser covers a value raised through the error primitive.
	KindUser
	// KindOutOfMemory is never caught by a protected call; it always
	// propagates to the host.
	KindOutOfMemory
)

func (k Kind) String() string {
	switch k {
	case KindBytecode:
		return "bytecode"
	case KindCallStack:
		return "call stack"
	case KindArithmetic:
		return "arithmetic"
	case KindCompare:
		return "comparison"
	case KindForLoop:
		return "for loop"
	case KindTable:
		return "table"
	case KindMetatable:
		return "metatable"
	case KindLength:
		return "length"
	case KindUser:
		return "user"
	case KindOutOfMemory:
		return "out of memory"
	default:
		return "unknown"
	}
}

// Error is a typed runtime failure. Value, when non-nil, is the raw value
// passed to the error primitive (which need not be a string); Go code that
// only cares about the formatted message should use Error().
type Error struct {
	Kind   Kind
	Source string
	Line   int32
	Text   string
	Value  interface{}
	cause  error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return e.Text
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Text)
}

func (e *Error) Unwrap() error { return e.cause }

// At sets e's source location after construction, for errors built by
// layers (package meta's resolver, for one) that don't carry the current
// frame's (source, line) themselves; the dispatcher attaches it once the
// error reaches a frame. A no-op if source is already set.
func (e *Error) At(source string, line int32) *Error {
	if e.Source == "" {
		e.Source = source
		e.Line = line
	}
	return e
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errs.Sentinel(errs.KindArithmetic)).
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	return ok && s.kind == e.Kind
}

// New builds a *Error of the given kind at (source, line) with a formatted
// message, matching the engine's "<source>:<line>: <text>" convention.
func New(kind Kind, source string, line int32, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Source: source, Line: line, Text: fmt.Sprintf(format, args...)}
}

// Wrap builds a *Error that chains cause, the way the teacher's tools use
// xerrors.Errorf("...: %w", err) instead of discarding the underlying
// error.
func Wrap(kind Kind, source string, line int32, cause error, format string, args ...interface{}) *Error {
	wrapped := xerrors.Errorf(format+": %w", append(append([]interface{}{}, args...), cause)...)
	return &Error{Kind: kind, Source: source, Line: line, Text: wrapped.Error(), cause: cause}
}

// Raise builds the *Error produced by the error primitive for an arbitrary
// raised value (spec §7, "User-raised").
func Raise(source string, line int32, value interface{}) *Error {
	text, _ := value.(string)
	return &Error{Kind: KindUser, Source: source, Line: line, Text: text, Value: value}
}

type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

var sentinels = map[Kind]*sentinel{}

// Sentinel returns a stable error value usable with errors.Is to match any
// *Error of the given kind, regardless of message or location.
func Sentinel(kind Kind) error {
	if s, ok := sentinels[kind]; ok {
		return s
	}
	s := &sentinel{kind}
	sentinels[kind] = s
	return s
}

var (
	ErrCallStack   = Sentinel(KindCallStack)
	ErrArithmetic  = Sentinel(KindArithmetic)
	ErrCompare     = Sentinel(KindCompare)
	ErrForLoop     = Sentinel(KindForLoop)
	ErrTable       = Sentinel(KindTable)
	ErrMetatable   = Sentinel(KindMetatable)
	ErrLength      = Sentinel(KindLength)
	ErrUser        = Sentinel(KindUser)
	ErrBytecode    = Sentinel(KindBytecode)
	ErrOutOfMemory = Sentinel(KindOutOfMemory)
)
