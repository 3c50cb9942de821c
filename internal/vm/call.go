// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "github.com/lumen-lang/lumen/internal/value"

// Call implements the reentrant call API (spec §4.4): push fn and args
// above the current stack top, dispatch it exactly as a CALL instruction
// would, drive the fetch loop until it returns if it was scripted, and
// hand back its results. Errors propagate to the caller uncaught — this
// is the Go-level equivalent of an unprotected call; package meta uses it
// to invoke metamethods, and gc.Collector.Invoke uses it to run
// finalizers.
func (vm *VM) Call(fn value.Value, args []value.Value) ([]value.Value, error) {
	results, _, raised, err := vm.call(fn, args, false)
	if err != nil {
		return nil, err
	}
	if raised != nil {
		return nil, raised
	}
	return results, nil
}

// PCall is Call's protected counterpart (spec §4.2.5's protected-call
// convention realized at the Go level): a runtime failure during fn, or
// fn itself invoking the error primitive, is caught and reported as
// ok=false with the raised value, instead of propagating as a Go error.
// Only out-of-memory and similar fatal conditions still return a non-nil
// error.
func (vm *VM) PCall(fn value.Value, args []value.Value) (results []value.Value, ok bool, raised value.Value, err error) {
	results, ok, rv, err := vm.call(fn, args, true)
	if err != nil {
		return nil, false, value.Nil, err
	}
	if !ok {
		return nil, false, rv, nil
	}
	return results, true, value.Nil, nil
}

// call is the shared driver behind Call and PCall: lay out fn+args above
// the current top, resolve and dispatch the callee exactly as doCall
// does for a CALL instruction, and (for a scripted callee) run the fetch
// loop until control returns to this depth.
func (vm *VM) call(fn value.Value, args []value.Value, protected bool) (results []value.Value, ok bool, raised value.Value, err error) {
	base := vm.Stack.Top()
	vm.Stack.SetTop(base + 1 + len(args))
	vm.Stack.Set(base, fn)
	for i, a := range args {
		vm.Stack.Set(base+1+i, a)
	}
	savedDepth := vm.Calls.Depth()

	sig, derr := vm.doCall(base, len(args), -1, base, protected)
	if derr != nil {
		vm.Stack.SetTop(base)
		return nil, false, value.Nil, derr
	}
	if sig == FrameChanged {
		if rerr := vm.Run(savedDepth); rerr != nil {
			vm.Stack.SetTop(base)
			return nil, false, value.Nil, rerr
		}
	}

	if protected {
		statusVal := vm.Stack.Get(base)
		n := vm.Stack.Top() - base
		if !statusVal.Truthy() {
			raised := value.Nil
			if n > 1 {
				raised = vm.Stack.Get(base + 1)
			}
			vm.Stack.SetTop(base)
			return nil, false, raised, nil
		}
		results = make([]value.Value, n-1)
		for i := range results {
			results[i] = vm.Stack.Get(base + 1 + i)
		}
		vm.Stack.SetTop(base)
		return results, true, value.Nil, nil
	}

	n := vm.Stack.Top() - base
	results = make([]value.Value, n)
	for i := range results {
		results[i] = vm.Stack.Get(base + i)
	}
	vm.Stack.SetTop(base)
	return results, true, value.Nil, nil
}
