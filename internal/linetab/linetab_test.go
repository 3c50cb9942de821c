// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linetab

import (
	"fmt"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]int32{
		nil,
		{1},
		{1, 1, 1, 2, 2, 3},
		{10, 5, 1, 100, 100, 100, 2},
		{0, 0, 0},
	}
	for _, lines := range cases {
		t.Run(fmt.Sprint(lines), func(t *testing.T) {
			buf := Encode(nil, lines)
			got := Decode(buf, len(lines))
			if got.Len() != len(lines) {
				t.Fatalf("decoded %d entries, want %d", got.Len(), len(lines))
			}
			for i, want := range lines {
				if got.Line(i) != want {
					t.Errorf("Line(%d) = %d, want %d", i, got.Line(i), want)
				}
			}
		})
	}
}

func TestLineOutOfRange(t *testing.T) {
	tab := Decode(Encode(nil, []int32{5, 6}), 2)
	if l := tab.Line(-1); l != 0 {
		t.Errorf("Line(-1) = %d, want 0", l)
	}
	if l := tab.Line(2); l != 0 {
		t.Errorf("Line(2) = %d, want 0", l)
	}
}
