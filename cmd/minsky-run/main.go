// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// minsky-run loads a saved model, calls Step until the clock reaches
// -duration or -ticks calls have been made (a single Step may overshoot
// -duration), and prints the value of every registered variable slot. It
// is a headless driver for the simulation core, not a replacement for a GUI
// (§1 Non-goals).
package main

import (
	"flag"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/hrnd-minsky/simcore/minsky"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			for i := 8; i > 3; i-- {
				chk.CallerInfo(i)
			}
			io.Pfred("ERROR: %v\n", err)
		}
	}()

	fnamepath := flag.String("model", "", "path to a saved .mky XML document")
	duration := flag.Float64("duration", 10.0, "total simulation time to advance")
	ticks := flag.Int("ticks", 20, "number of Step calls to issue toward -duration")
	flag.Parse()
	if *fnamepath == "" {
		chk.Panic("Please, provide -model <path-to-document>.mky")
	}

	io.PfWhite("\nminsky-run -- system dynamics simulation core\n\n")
	io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
	io.Pf("Use of this source code is governed by a BSD-style\n")
	io.Pf("license that can be found in the LICENSE file.\n\n")

	raw, err := io.ReadFile(*fnamepath)
	if err != nil {
		chk.Panic("cannot read model file: %v", err)
	}

	m := minsky.New()
	m.OnError = func(x, y float64) {
		io.Pfred("compile/evaluation error near (%g, %g)\n", x, y)
	}
	if err := m.Load(raw); err != nil {
		chk.Panic("%v", err)
	}

	for i := 0; i < *ticks && m.Time() < *duration; i++ {
		if err := m.Step(); err != nil {
			chk.Panic("step %d failed: %v", i, err)
		}
	}

	io.Pfyel("\nt = %g\n", m.Time())
	for _, name := range m.Net.Store.Names() {
		sl := m.Net.Store.Lookup(name)
		io.Pf("  %-24s = %v\n", name, m.Net.Store.Read(sl))
	}
}
