// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nativecheck statically validates that every Go function
// registered as a native closure (spec §6, "Native function dispatch")
// matches the dispatcher's required shape before it's wired into a
// vm.Shared.Natives table: func(*vm.VM, int, int, int) (int, error).
// This catches a mismatched native at build time instead of a panic the
// first time a script calls it.
package main

import (
	"flag"
	"fmt"
	"go/types"
	"log"
	"os"

	"golang.org/x/tools/go/packages"
)

func main() {
	log.SetPrefix("nativecheck: ")
	log.SetFlags(0)

	var flagFunc = flag.String("func", "", "check only the function named `name` (default: every func(*vm.VM, ...) candidate)")
	flag.Parse()
	pkgPaths := flag.Args()
	if len(pkgPaths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo}
	pkgs, err := packages.Load(cfg, pkgPaths...)
	if err != nil {
		log.Fatal(err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}

	var bad int
	var checked int
	for _, pkg := range pkgs {
		for _, obj := range pkg.TypesInfo.Defs {
			fn, ok := obj.(*types.Func)
			if !ok || fn == nil {
				continue
			}
			if *flagFunc != "" && fn.Name() != *flagFunc {
				continue
			}
			sig, ok := fn.Type().(*types.Signature)
			if !ok || !looksLikeNativeCandidate(sig) {
				continue
			}
			checked++
			if err := checkNativeSignature(sig); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s: %v\n", pkg.Fset.Position(fn.Pos()), fn.FullName(), err)
				bad++
			}
		}
	}
	fmt.Fprintf(os.Stderr, "checked %d candidate(s), %d mismatched\n", checked, bad)
	if bad > 0 {
		os.Exit(1)
	}
}

// looksLikeNativeCandidate reports whether sig's first parameter is
// named/typed like a *vm.VM, to narrow the scan to functions plausibly
// intended as natives without requiring every func in the package to be
// one.
func looksLikeNativeCandidate(sig *types.Signature) bool {
	if sig.Params().Len() == 0 {
		return false
	}
	p := sig.Params().At(0)
	ptr, ok := p.Type().(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	return ok && named.Obj().Name() == "VM"
}

// checkNativeSignature verifies sig matches vm.NativeFunc's shape:
// func(*vm.VM, int, int, int) (int, error).
func checkNativeSignature(sig *types.Signature) error {
	params := sig.Params()
	if params.Len() != 4 {
		return fmt.Errorf("want 4 parameters (*vm.VM, base, nargs, nresults int), have %d", params.Len())
	}
	for i := 1; i < 4; i++ {
		if !isBasicInt(params.At(i).Type()) {
			return fmt.Errorf("parameter %d: want int, have %s", i+1, params.At(i).Type())
		}
	}
	results := sig.Results()
	if results.Len() != 2 {
		return fmt.Errorf("want 2 results (int, error), have %d", results.Len())
	}
	if !isBasicInt(results.At(0).Type()) {
		return fmt.Errorf("first result: want int, have %s", results.At(0).Type())
	}
	if results.At(1).Type().String() != "error" {
		return fmt.Errorf("second result: want error, have %s", results.At(1).Type())
	}
	return nil
}

func isBasicInt(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Kind() == types.Int
}
