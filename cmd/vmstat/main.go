// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command vmstat drives a synthetic table-allocation load through the
// collector and prints the collector's stats
// snapshot (spec §4.1.8, SPEC_FULL §12's gc.Stats) once per cycle,
// either as a plain appended line or, on an interactive terminal, a
// redrawn status line (stress2/reporter.go's dumb-vs-VT100 split).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/term"

	"github.com/lumen-lang/lumen/internal/gc"
)

// statusWriter renders one gc.Stats snapshot per Report call, either by
// appending a line (non-interactive output, e.g. redirected to a file in
// CI) or by redrawing the current line in place on a real terminal.
type statusWriter interface {
	Report(n int, s gc.Stats)
}

func newStatusWriter() statusWriter {
	if os.Getenv("TERM") == "" || os.Getenv("TERM") == "dumb" || !terminal.IsTerminal(syscall.Stdout) {
		return dumbStatus{}
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return vt100Status{width: width}
}

type dumbStatus struct{}

func (dumbStatus) Report(n int, s gc.Stats) {
	fmt.Printf("cycle %d: %d bytes, %d live, pause %s\n", n, s.BytesAllocated, s.LiveObjects, time.Duration(s.LastPauseNS))
}

type vt100Status struct{ width int }

func (v vt100Status) Report(n int, s gc.Stats) {
	line := fmt.Sprintf("cycle %d: %d bytes, %d live, pause %s", n, s.BytesAllocated, s.LiveObjects, time.Duration(s.LastPauseNS))
	if len(line) > v.width {
		line = line[:v.width]
	}
	fmt.Printf("\r\x1b[K%s", line)
}

func main() {
	log.SetPrefix("vmstat: ")
	log.SetFlags(0)

	var (
		flagInterval = flag.Duration("interval", 100*time.Millisecond, "sampling `interval` between polls")
		flagCycles   = flag.Int("n", 20, "stop after `n` collection cycles have been observed")
		flagMin      = flag.Int64("gc-min", 0, "collector's MinThreshold in bytes (0: default)")
		flagGrowth   = flag.Float64("gc-growth", 0, "collector's Growth factor (0: default)")
	)
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}

	sw := newStatusWriter()

	cfg := gc.DefaultConfig()
	if *flagMin > 0 {
		cfg.MinThreshold = *flagMin
	}
	if *flagGrowth > 0 {
		cfg.Growth = *flagGrowth
	}
	collector := gc.New(cfg)

	// Generate allocation load against the collector so its stats move;
	// without a compiled chunk to run (the core's compiler is out of
	// scope), this stands in for the mutator (stress2's load-generator
	// role, paired with its reporter here). The collector isn't
	// goroutine-safe (spec §5: one mutator thread, never overlapped with
	// collector work), so allocation and reporting interleave on this
	// same goroutine rather than racing a background producer.
	lastCycles := int64(0)
	reported := 0
	var kept []interface{}
	for i := 0; reported < *flagCycles; i++ {
		tbl := collector.AllocTable()
		if i%7 == 0 {
			kept = append(kept, tbl)
			if len(kept) > 64 {
				kept = kept[1:]
			}
		}
		s := collector.Stats()
		if s.Cycles == lastCycles {
			if i%997 == 0 {
				time.Sleep(*flagInterval)
			}
			continue
		}
		lastCycles = s.Cycles
		reported++
		sw.Report(reported, s)
	}
	fmt.Println()
}
