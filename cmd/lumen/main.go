// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lumen bootstraps a runtime (collector, shared state, metamethod
// resolver, and a VM) and runs a root prototype through it. Compiling
// source text to a prototype is the external compiler's job (out of this
// core's scope); absent one, lumen assembles a tiny fixed demo chunk by
// hand to exercise the whole call path end to end, the way a host
// embedding this core as a library would after its own compiler ran.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/launch"
	"github.com/lumen-lang/lumen/internal/meta"
	"github.com/lumen-lang/lumen/internal/opcode"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
	"github.com/lumen-lang/lumen/internal/vm"
)

func main() {
	log.SetPrefix("lumen: ")
	log.SetFlags(0)

	var (
		flagGCMin    = flag.Int64("gc-min", 0, "collector MinThreshold in bytes (0: package default)")
		flagGCGrowth = flag.Float64("gc-growth", 0, "collector Growth factor (0: package default)")
		flagTrace    = flag.Bool("trace", false, "log every dispatched instruction to stderr")
		flagStack    = flag.Int("stacksize", 256, "initial register stack size")
	)
	flag.Parse()

	script := "lumen"
	rest := strings.Join(flag.Args(), " ")
	if flag.NArg() > 0 {
		script = flag.Arg(0)
		rest = strings.Join(flag.Args()[1:], " ")
	}

	cfg := gc.DefaultConfig()
	if *flagGCMin > 0 {
		cfg.MinThreshold = *flagGCMin
	}
	if *flagGCGrowth > 0 {
		cfg.Growth = *flagGCGrowth
	}
	if *flagTrace {
		cfg.Logger = log.New(os.Stderr, "lumen-gc: ", 0)
	}
	collector := gc.New(cfg)
	st := state.New(collector)
	keys := meta.NewKeys(collector)
	resolver := meta.NewResolver(st, keys)

	sh := &vm.Shared{
		GC:      collector,
		State:   st,
		Meta:    resolver,
		Natives: map[value.NativeID]vm.NativeFunc{},
	}
	m := vm.NewMainVM(sh, *flagStack)
	if *flagTrace {
		m.Trace = func(pc int, op opcode.Op) {
			fmt.Fprintf(os.Stderr, "lumen-trace: pc=%d %s\n", pc, op)
		}
	}

	if err := launch.Install(st, script, rest); err != nil {
		log.Fatal(err)
	}
	registerPrint(sh, st, collector)

	root := buildDemoChunk(collector, st.Globals)
	if _, err := m.Call(value.Obj(root), nil); err != nil {
		log.Fatal(err)
	}
}

const nativePrint value.NativeID = 1

// registerPrint wires a minimal `print` into globals, standing in for the
// standard library this core's spec scopes out entirely (spec §1,
// Non-goals): enough to let the demo chunk below produce visible output.
func registerPrint(sh *vm.Shared, st *state.State, c *gc.Collector) {
	sh.Natives[nativePrint] = func(m *vm.VM, base, nargs, nresults int) (int, error) {
		parts := make([]string, nargs)
		for i := 0; i < nargs; i++ {
			parts[i] = tostring(m.Stack.Get(base + i))
		}
		fmt.Println(strings.Join(parts, "\t"))
		return 0, nil
	}
	nc := c.AllocNativeClosure(nativePrint, "print")
	st.Globals.Set(value.Obj(c.Intern("print")), value.Obj(nc))
}

func tostring(v value.Value) string {
	switch v.Kind() {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		if v.Truthy() {
			return "true"
		}
		return "false"
	}
	if tag, ok := v.ObjectTag(); ok && tag == value.TagString {
		return string(v.AsObject().(*value.String).Data)
	}
	return fmt.Sprintf("%v", v)
}

// constSlot is a one-shot value.StackSlot used only to seed the demo
// chunk's closed-over _ENV upvalue; a real frame's registers back every
// other upvalue via frame.Stack.
type constSlot struct{ v value.Value }

func (s *constSlot) Get() value.Value  { return s.v }
func (s *constSlot) Set(v value.Value) { s.v = v }

// buildDemoChunk hand-assembles the bytecode a compiler would emit for
//
//	print("Hello from lumen!")
//
// to prove the dispatcher, table/metamethod lookup (_ENV["print"]), and
// call path run end to end without a compiler front end.
func buildDemoChunk(c *gc.Collector, globals *value.Table) *value.Closure {
	greeting := c.Intern("Hello from lumen!")
	printKey := c.Intern("print")

	code := []value.Instruction{
		opcode.MakeABC(opcode.OpGetTabUp, 0, false, 0, 0), // R0 = _ENV["print"]  (K0)
		opcode.MakeABx(opcode.OpLoadK, 1, 1),              // R1 = K1 (greeting)
		opcode.MakeABC(opcode.OpCall, 0, false, 2, 1),     // R0(R1): 1 arg, 0 results
		opcode.MakeABC(opcode.OpReturn0, 0, false, 0, 0),
	}
	proto := value.NewProto("demo", code, []int32{1, 1, 1, 1})
	proto.Constants = []value.Value{value.Obj(printKey), value.Obj(greeting)}
	proto.MaxStackSize = 2
	proto.Upvalues = []value.UpvalueDesc{{FromStack: false, Index: 0, Name: "_ENV"}}

	cl := value.NewClosure(proto)
	envUp := c.AllocOpenUpvalue(0, &constSlot{v: value.Obj(globals)})
	envUp.Close()
	cl.Upvalues[0] = envUp
	return cl
}
