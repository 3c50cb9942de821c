// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gc implements the runtime's non-moving, tri-color,
// incremental-capable mark-and-sweep collector (spec §4.1): allocation
// accounting, marking (including ephemerons and weak tables), sweeping,
// the backward write barrier, the finalizer queue, string interning, and
// the root-provider registry.
//
// The collector is deliberately not goroutine-safe: spec §5 requires a
// single mutator thread with no overlap between mutator and collector
// work, so every exported method here assumes it's called from that one
// thread.
package gc

import (
	"log"

	"github.com/lumen-lang/lumen/internal/value"
)

// RootProvider marks its own roots by calling mark for each reachable
// object (spec §4.1.3, step 3). The main thread's stack/frame roots and
// any host-registered globals are examples.
type RootProvider interface {
	MarkRoots(mark func(value.Object))
}

type phase int

const (
	phaseIdle phase = iota
	phaseMark
	phaseSweep
)

// Stats is a point-in-time snapshot of collector bookkeeping (spec
// §4.1.8, "Memory reporting"; SPEC_FULL §12, "GC stats snapshot").
type Stats struct {
	BytesAllocated int64
	Threshold      int64
	Cycles         int64
	LastPauseNS    int64
	LiveObjects    int64
}

// Collector owns the global object list, the string intern table, the
// finalizer queue, and memory accounting (spec §5, "Shared resource
// policy").
type Collector struct {
	Logger *log.Logger

	head value.Object // global object list (Header.ListNext)
	gray value.Object // gray worklist (Header.GrayNext)

	currentMark bool
	phase       phase

	bytesAllocated int64
	tracked        int64
	threshold      int64
	minThreshold   int64
	growth         float64

	autoEnabled bool
	inhibitN    int

	strings map[string]*value.String

	providers   []RootProvider
	staticRoots []value.Object

	// ModeKey and GCKey are the interned "__mode" and "__gc" metamethod
	// keys. Package meta owns interning metamethod keys; gc takes them
	// by reference instead of importing meta, to keep the dependency
	// order in spec §2 (gc below the metamethod layer).
	ModeKey *value.String
	GCKey   *value.String

	// Invoke runs a Value as a function with one argument and discards
	// results beyond the first, used to call __gc finalizers (spec
	// §4.1.7). Set by the reentrant call API during wiring, since gc
	// can't import the vm/api packages (they depend on gc, not vice
	// versa).
	Invoke func(fn, arg value.Value) (value.Value, error)

	weakTables []*value.Table

	finalizerQueue []finalizerEntry

	cycles      int64
	lastPauseNS int64
}

type finalizerEntry struct {
	obj value.Object
	gc  value.Value
}

// Config tunes the collector's allocation thresholds (spec §4.1.1,
// §4.1.3).
type Config struct {
	MinThreshold int64   // floor for next_threshold
	Growth       float64 // next_threshold = max(MinThreshold, live*Growth)
	Logger       *log.Logger
}

// DefaultConfig matches the values a freshly started interpreter should
// use absent host tuning.
func DefaultConfig() Config {
	return Config{MinThreshold: 1 << 20, Growth: 2.0}
}

func New(cfg Config) *Collector {
	if cfg.MinThreshold <= 0 {
		cfg.MinThreshold = 1 << 20
	}
	if cfg.Growth <= 1.0 {
		cfg.Growth = 2.0
	}
	return &Collector{
		threshold:    cfg.MinThreshold,
		minThreshold: cfg.MinThreshold,
		growth:       cfg.Growth,
		autoEnabled:  true,
		strings:      make(map[string]*value.String),
		Logger:       cfg.Logger,
	}
}

// RegisterRootProvider adds p to the set of roots scanned at the start of
// every mark phase (spec §4.1.3, step 3).
func (c *Collector) RegisterRootProvider(p RootProvider) {
	c.providers = append(c.providers, p)
}

// AddStaticRoot registers an object (a shared primitive metatable, an
// interned metamethod key, …) that's always a root (spec §4.1.3, step 4).
func (c *Collector) AddStaticRoot(o value.Object) {
	if o == nil || isNilObject(o) {
		return
	}
	c.staticRoots = append(c.staticRoots, o)
}

// Stop disables automatic collection; manual Collect/Step calls still
// run.
func (c *Collector) Stop() { c.autoEnabled = false }

// Restart re-enables automatic collection.
func (c *Collector) Restart() { c.autoEnabled = true }

// Inhibit blocks automatic collection via a nestable counter, for use
// while constructing an object whose children aren't linked yet (spec
// §4.1.8). Not a substitute for correct rooting: an inhibited manual
// Step() call is still refused, but this only protects against
// *automatic* triggers.
func (c *Collector) Inhibit() { c.inhibitN++ }

// Allow releases one Inhibit call.
func (c *Collector) Allow() {
	if c.inhibitN > 0 {
		c.inhibitN--
	}
}

func (c *Collector) inhibited() bool { return c.inhibitN > 0 }

// Track lets external allocations (e.g. a userdata's native buffer)
// contribute to threshold accounting without being on the object list.
func (c *Collector) Track(n int64) {
	c.tracked += n
	c.bytesAllocated += n
}

// Untrack reverses a prior Track call.
func (c *Collector) Untrack(n int64) {
	c.tracked -= n
	c.bytesAllocated -= n
	if c.bytesAllocated < 0 {
		c.bytesAllocated = 0
	}
}

// MemoryKB reports bytes_allocated as kilobytes plus a byte remainder
// (spec §4.1.8).
func (c *Collector) MemoryKB() (kb int64, rem int64) {
	return c.bytesAllocated / 1024, c.bytesAllocated % 1024
}

func (c *Collector) Stats() Stats {
	return Stats{
		BytesAllocated: c.bytesAllocated,
		Threshold:      c.threshold,
		Cycles:         c.cycles,
		LastPauseNS:    c.lastPauseNS,
		LiveObjects:    c.countLive(),
	}
}

func (c *Collector) countLive() int64 {
	var n int64
	for o := c.head; o != nil; o = o.Header().ListNext {
		n++
	}
	return n
}

// CurrentMark exposes the collector's live/dead reference bit for tests
// asserting spec §8's "no dangling marks" invariant.
func (c *Collector) CurrentMark() bool { return c.currentMark }

func (c *Collector) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
