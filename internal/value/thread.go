// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

// ThreadStatus is a coroutine's cooperative scheduling state (spec §5).
type ThreadStatus uint8

const (
	ThreadSuspended ThreadStatus = iota
	ThreadRunning
	ThreadNormal
	ThreadDead
)

func (s ThreadStatus) String() string {
	switch s {
	case ThreadSuspended:
		return "suspended"
	case ThreadRunning:
		return "running"
	case ThreadNormal:
		return "normal"
	case ThreadDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Thread is a cooperative coroutine wrapper (spec §3, "Thread"). It owns
// an opaque VM-state pointer; package value can't import the vm package
// that defines the concrete state (that would cycle back through Value),
// so the owning runtime registers MarkVM/FreeVM callbacks that the
// collector invokes generically (spec §4.1.4, "thread: invoke the
// registered mark_vm callback").
type Thread struct {
	hdr    Header
	Status ThreadStatus

	// VMState is the concrete *vm.VM (or similar) for this thread,
	// stored as interface{} to break the import cycle.
	VMState interface{}
	MarkVM  func(state interface{}, mark func(Object))
	FreeVM  func(state interface{})
}

func (t *Thread) Header() *Header { return &t.hdr }

func NewThread(state interface{}, markVM func(interface{}, func(Object)), freeVM func(interface{})) *Thread {
	t := &Thread{Status: ThreadSuspended, VMState: state, MarkVM: markVM, FreeVM: freeVM}
	t.hdr.Tag = TagThread
	return t
}
