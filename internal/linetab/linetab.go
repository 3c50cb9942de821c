// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linetab encodes a prototype's per-instruction line numbers as a
// delta-varint stream instead of a parallel int array. A prototype's code
// is usually produced one line (or a short run of lines) at a time, so
// consecutive instructions very often share a line or differ by a small
// delta; the varint encoding exploits that the way the runtime's pcln
// tables exploit the same property of pc-to-line deltas.
package linetab

const maxVarintBytes = 10

// Encode appends the zigzag-varint-encoded delta of line-lines[i-1] (or
// line-0 for i==0) for each entry in lines to buf and returns the result.
func Encode(buf []byte, lines []int32) []byte {
	prev := int32(0)
	for _, line := range lines {
		delta := line - prev
		prev = line
		buf = appendVarint(buf, zigzag(delta))
	}
	return buf
}

// A Table is a decoded view over an Encode-produced byte stream, indexed
// by instruction number.
type Table struct {
	lines []int32
}

// Decode parses an Encode-produced stream of n entries.
func Decode(buf []byte, n int) Table {
	lines := make([]int32, 0, n)
	prev := int32(0)
	for i := 0; i < n; i++ {
		d, read := decodeVarint(buf)
		if read == 0 {
			break
		}
		buf = buf[read:]
		prev += unzigzag(d)
		lines = append(lines, prev)
	}
	return Table{lines}
}

// Line returns the source line for instruction pc, or 0 if pc is out of
// range.
func (t Table) Line(pc int) int32 {
	if pc < 0 || pc >= len(t.lines) {
		return 0
	}
	return t.lines[pc]
}

func (t Table) Len() int { return len(t.lines) }

func zigzag(v int32) uint64 {
	return uint64((v << 1) ^ (v >> 31))
}

func unzigzag(v uint64) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// appendVarint and decodeVarint are the same LEB128 loop used by the Go
// runtime's pcdata tables; see https://github.com/golang/protobuf for the
// original formulation.
func appendVarint(buf []byte, x uint64) []byte {
	for x > 127 {
		buf = append(buf, 0x80|uint8(x&0x7F))
		x >>= 7
	}
	return append(buf, uint8(x))
}

func decodeVarint(buf []byte) (x uint64, n int) {
	for shift := uint(0); shift < 64; shift += 7 {
		if n >= len(buf) {
			return 0, 0
		}
		b := uint64(buf[n])
		n++
		x |= (b & 0x7F) << shift
		if b&0x80 == 0 {
			return x, n
		}
	}
	return 0, 0
}
