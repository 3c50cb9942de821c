// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/value"
)

func TestStackGrowZeroFills(t *testing.T) {
	s := NewStack(2)
	s.Set(0, value.Int(1))
	s.SetTop(5)
	for i := 1; i < 5; i++ {
		if !s.Get(i).IsNil() {
			t.Errorf("Get(%d) = %v, want nil", i, s.Get(i))
		}
	}
	if got := s.Get(0); got != value.Int(1) {
		t.Errorf("Get(0) = %v, want 1 (grow must preserve existing slots)", got)
	}
}

func TestStackSlotAliasesBackingArray(t *testing.T) {
	s := NewStack(4)
	s.Set(2, value.Int(10))
	slot := s.Slot(2)
	if got := slot.Get(); got != value.Int(10) {
		t.Errorf("slot.Get() = %v, want 10", got)
	}
	slot.Set(value.Int(20))
	if got := s.Get(2); got != value.Int(20) {
		t.Errorf("after slot.Set, s.Get(2) = %v, want 20", got)
	}
}

func TestFrameTBCOrdering(t *testing.T) {
	f := &Frame{Base: 10}
	if f.HighestTBC() != -1 {
		t.Fatalf("HighestTBC() on empty frame = %d, want -1", f.HighestTBC())
	}
	f.MarkTBC(11)
	f.MarkTBC(13)
	f.MarkTBC(12)
	if got := f.HighestTBC(); got != 13 {
		t.Errorf("HighestTBC() = %d, want 13", got)
	}
	f.ClearTBC(13)
	if got := f.HighestTBC(); got != 12 {
		t.Errorf("after clearing 13, HighestTBC() = %d, want 12", got)
	}
	if !f.HasTBCAtOrAbove(12) {
		t.Errorf("expected HasTBCAtOrAbove(12)")
	}
	if f.HasTBCAtOrAbove(13) {
		t.Errorf("did not expect HasTBCAtOrAbove(13) after clearing it")
	}
}

func TestCallStackOverflow(t *testing.T) {
	cs := NewCallStack(2)
	if err := cs.Push(&Frame{}); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := cs.Push(&Frame{}); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if err := cs.Push(&Frame{}); err == nil {
		t.Fatalf("expected overflow error on third push into a depth-2 stack")
	}
	if got := cs.Depth(); got != 2 {
		t.Errorf("Depth() after failed push = %d, want 2", got)
	}
}

func TestCallStackTruncateTo(t *testing.T) {
	cs := NewCallStack(0)
	for i := 0; i < 4; i++ {
		if err := cs.Push(&Frame{}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	cs.TruncateTo(1)
	if got := cs.Depth(); got != 1 {
		t.Errorf("Depth() after TruncateTo(1) = %d, want 1", got)
	}
	if cs.Top() == nil {
		t.Fatalf("Top() is nil after truncating to depth 1")
	}
}
