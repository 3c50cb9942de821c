// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/lumen-lang/lumen/internal/value"

// sweep walks the global object list, keeping marked objects and
// unlinking+freeing white ones (spec §4.1.3, "Sweep phase"). It returns
// the number of bytes reclaimed. Strings are additionally removed from
// the intern table before being dropped.
func (c *Collector) sweep() int64 {
	var freed int64
	var prev value.Object
	cur := c.head
	for cur != nil {
		h := cur.Header()
		next := h.ListNext
		if h.Mark == c.currentMark {
			// Survives: clear transient bookkeeping only.
			h.InGray = false
			h.GrayNext = nil
			prev = cur
			cur = next
			continue
		}
		// White: reclaim.
		if s, ok := cur.(*value.String); ok {
			delete(c.strings, s.Data)
			freed += sizeHeader + int64(len(s.Data))
		} else {
			freed += objectSize(cur)
		}
		if t, ok := cur.(*value.Thread); ok && t.FreeVM != nil {
			t.FreeVM(t.VMState)
		}
		if prev == nil {
			c.head = next
		} else {
			prev.Header().ListNext = next
		}
		h.ListNext = nil
		cur = next
	}
	c.bytesAllocated -= freed
	if c.bytesAllocated < c.tracked {
		c.bytesAllocated = c.tracked
	}
	c.threshold = c.minThreshold
	if grown := int64(float64(c.bytesAllocated) * c.growth); grown > c.threshold {
		c.threshold = grown
	}
	return freed
}

func objectSize(o value.Object) int64 {
	switch o.(type) {
	case *value.Table:
		return sizeTable
	case *value.Closure:
		return sizeClosure
	case *value.NativeClosure:
		return sizeNative
	case *value.Upvalue:
		return sizeUpvalue
	case *value.Userdata:
		return sizeUserdata
	case *value.Proto:
		return sizeProto
	case *value.Thread:
		return sizeThread
	default:
		return sizeHeader
	}
}

// sweepWeakTables deletes entries whose weak side went uncollected-white
// (spec §4.1.6), then resets the weak-mode cache so __mode is re-read
// next cycle.
func (c *Collector) sweepWeakTables() {
	for _, t := range c.weakTables {
		h := t.Header()
		mode := h.WeakMode
		if mode != value.WeakNone {
			var dead []value.Value
			t.Each(func(k, v value.Value) bool {
				if mode&value.WeakKeys != 0 {
					if tag, ok := k.ObjectTag(); ok {
						_ = tag
						if k.AsObject().Header().Mark != c.currentMark {
							dead = append(dead, k)
							return true
						}
					}
				}
				if mode&value.WeakValues != 0 {
					if tag, ok := v.ObjectTag(); ok {
						_ = tag
						if v.AsObject().Header().Mark != c.currentMark {
							dead = append(dead, k)
						}
					}
				}
				return true
			})
			for _, k := range dead {
				t.Set(k, value.Nil)
			}
		}
		h.WeakModeValid = false
	}
}
