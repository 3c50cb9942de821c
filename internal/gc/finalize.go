// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/lumen-lang/lumen/internal/value"

// HasPendingFinalizers reports whether DrainFinalizers has work to do, so
// the executor can check cheaply at a safe point (spec §4.1.7: "end of an
// instruction, resume boundary, or explicit request").
func (c *Collector) HasPendingFinalizers() bool { return len(c.finalizerQueue) > 0 }

// DrainFinalizers runs every queued __gc function in turn, with automatic
// collection inhibited for the duration (spec §4.1.7). A finalizer that
// errors is swallowed: finalizers run for cleanup side effects, and the
// language has no way to propagate an error out of a GC pause. An object
// resurrected by its own finalizer (stored somewhere reachable again)
// simply survives the next cycle; FinalizerQueued stays set so it isn't
// finalized a second time unless its metatable is replaced.
func (c *Collector) DrainFinalizers() {
	if len(c.finalizerQueue) == 0 {
		return
	}
	c.Inhibit()
	defer c.Allow()

	queue := c.finalizerQueue
	c.finalizerQueue = nil
	for _, fe := range queue {
		if c.Invoke == nil {
			continue
		}
		arg := objectToValue(fe.obj)
		func() {
			defer func() { recover() }() // a finalizer must not be able to crash the host
			c.Invoke(fe.gc, arg)
		}()
	}
}

func objectToValue(o value.Object) value.Value {
	return value.Obj(o)
}
