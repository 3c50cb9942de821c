// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errs

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	e := New(KindArithmetic, "chunk.lua", 12, "attempt to perform arithmetic on a %s value", "table")
	want := "chunk.lua:12: attempt to perform arithmetic on a table value"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsSentinel(t *testing.T) {
	e := New(KindForLoop, "c", 1, "'for' step is zero")
	if !errors.Is(e, ErrForLoop) {
		t.Errorf("expected errors.Is(e, ErrForLoop)")
	}
	if errors.Is(e, ErrTable) {
		t.Errorf("did not expect errors.Is(e, ErrTable)")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("division by zero")
	e := Wrap(KindArithmetic, "c", 3, cause, "bad divide")
	if !errors.Is(e, cause) {
		t.Errorf("expected wrapped cause to be reachable via errors.Is")
	}
}
