// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package launch builds the runtime environment a host program hands a
// freshly started VM (spec §6, "Runtime environment"): the `arg` table
// populated from the process command line, plus whatever else an
// embedder wants visible before any script runs.
package launch

import (
	"github.com/kballard/go-shellquote"

	"github.com/lumen-lang/lumen/internal/gc"
	"github.com/lumen-lang/lumen/internal/state"
	"github.com/lumen-lang/lumen/internal/value"
)

// ArgTable builds the `arg` table from a raw command line (spec §6: "the
// launcher injects an `arg` table built from the process command line;
// the core consumes it only via normal table reads"). script is the
// script path (landing at arg[0] per the convention real Lua launchers
// use), and rest is everything after it on the command line, still
// joined as one string so a host embedding a shebang line or a quoted
// argument list doesn't have to pre-split it itself.
func ArgTable(c *gc.Collector, script string, rest string) (*value.Table, error) {
	words, err := shellquote.Split(rest)
	if err != nil {
		return nil, err
	}
	t := c.AllocTable()
	t.Set(value.Int(0), value.Obj(c.Intern(script)))
	for i, w := range words {
		t.Set(value.Int(int64(i+1)), value.Obj(c.Intern(w)))
	}
	return t, nil
}

// Install sets s.Globals["arg"] to the table built from script and rest,
// the conventional slot the standard library's scripts (out of this
// core's scope) read process arguments from.
func Install(s *state.State, script string, rest string) error {
	t, err := ArgTable(s.GC, script, rest)
	if err != nil {
		return err
	}
	s.Globals.Set(value.Obj(s.GC.Intern("arg")), value.Obj(t))
	return nil
}
