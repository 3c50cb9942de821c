// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"math"
	"testing"

	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/value"
)

func TestMulOverflowPromotesToFloat(t *testing.T) {
	cases := []struct {
		name string
		x, y int64
	}{
		{"MinInt64 * -1", math.MinInt64, -1},
		{"-1 * MinInt64", -1, math.MinInt64},
		{"MaxInt64 * 2", math.MaxInt64, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok, err := arithFast(opcode.OpMul, value.Int(c.x), value.Int(c.y))
			if err != nil {
				t.Fatalf("arithFast(mul): %v", err)
			}
			if !ok {
				t.Fatalf("arithFast(mul): not handled by the fast path")
			}
			if got.Kind() != value.KindFloat {
				t.Errorf("%d * %d = %v (kind %d), want a float (overflow promotion)", c.x, c.y, got, got.Kind())
			}
			want := float64(c.x) * float64(c.y)
			if gf, _ := got.ToFloat(); gf != want {
				t.Errorf("%d * %d = %v, want %v", c.x, c.y, gf, want)
			}
		})
	}
}

func TestMulNoOverflowStaysInt(t *testing.T) {
	got, ok, err := arithFast(opcode.OpMul, value.Int(6), value.Int(7))
	if err != nil || !ok {
		t.Fatalf("arithFast(mul): (ok, err) = (%v, %v)", ok, err)
	}
	if got != value.Int(42) {
		t.Errorf("6 * 7 = %v, want Int(42)", got)
	}
}

func TestIDivMinInt64ByNegOnePromotesToFloat(t *testing.T) {
	got, ok, err := arithFast(opcode.OpIDiv, value.Int(math.MinInt64), value.Int(-1))
	if err != nil {
		t.Fatalf("arithFast(idiv): %v", err)
	}
	if !ok {
		t.Fatalf("arithFast(idiv): not handled by the fast path")
	}
	if got.Kind() != value.KindFloat {
		t.Errorf("MinInt64 // -1 = %v (kind %d), want a float (overflow promotion)", got, got.Kind())
	}
	want := math.Floor(float64(math.MinInt64) / float64(-1))
	if gf, _ := got.ToFloat(); gf != want {
		t.Errorf("MinInt64 // -1 = %v, want %v", gf, want)
	}
}

func TestIDivByZeroErrors(t *testing.T) {
	if _, _, err := arithFast(opcode.OpIDiv, value.Int(1), value.Int(0)); err == nil {
		t.Errorf("arithFast(1 // 0): want error, got nil")
	}
}

func TestIDivOrdinaryFloorsTowardNegativeInfinity(t *testing.T) {
	got, ok, err := arithFast(opcode.OpIDiv, value.Int(-7), value.Int(2))
	if err != nil || !ok {
		t.Fatalf("arithFast(idiv): (ok, err) = (%v, %v)", ok, err)
	}
	if got != value.Int(-4) {
		t.Errorf("-7 // 2 = %v, want Int(-4)", got)
	}
}
