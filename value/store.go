// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package value implements the flat flow/stock arrays and the name-indexed
// variable-slot registry that back every evaluation of a Minsky model.
package value

import (
	"strings"

	"github.com/cpmech/gosl/chk"
)

// Kind identifies what a named slot represents and which array backs it.
type Kind int

// slot kinds
const (
	Undefined Kind = iota
	Flow
	Stock
	TempFlow
	Integral
)

func (k Kind) String() string {
	switch k {
	case Flow:
		return "flow"
	case Stock:
		return "stock"
	case TempFlow:
		return "tempFlow"
	case Integral:
		return "integral"
	}
	return "undefined"
}

// IsLHS holds for every kind whose value is computed by the simulation
// rather than read directly off the stock array: Flow, TempFlow and
// Integral. It is false for Stock and for Undefined.
func (k Kind) IsLHS() bool { return k != Stock && k != Undefined }

// BackedByStock reports whether slots of this kind index into the stock
// array (true) or the flow array (false).
func (k Kind) BackedByStock() bool { return k == Stock || k == Integral }

// Slot is a named scalar: its kind, its initial value, and its index into
// whichever array its kind is backed by.
type Slot struct {
	Name string
	Kind Kind
	Init float64
	Idx  int // index into Store.Stocks or Store.Flows, set at Reset
}

// Store owns the two flat arrays plus the name registry. It is the single
// mutable numeric resource of one model instance (§5: one Store per
// orchestrator, never shared across models).
type Store struct {
	Stocks []float64
	Flows  []float64
	slots  map[string]*Slot
	order  []string // registration order, preserved for deterministic Reset
}

// NewStore returns an empty value store.
func NewStore() *Store {
	return &Store{slots: make(map[string]*Slot)}
}

// AddVariable registers name with kind if not already known, or returns the
// existing slot. Name collisions across kinds are a caller bug (two
// different graphical items referring to the same name must agree on kind
// by the time equations are constructed). Neither this function nor the
// equation compiler checks it: a later registration under a different kind
// returns the existing slot unchanged, except that an Undefined placeholder
// (which editors create before a wire gives it a real kind) takes the new
// kind.
func (s *Store) AddVariable(kind Kind, name string) *Slot {
	if name == "" {
		chk.Panic("variable name must not be empty")
	}
	if sl, ok := s.slots[name]; ok {
		if sl.Kind == Undefined && kind != Undefined {
			sl.Kind = kind
		}
		return sl
	}
	sl := &Slot{Name: name, Kind: kind}
	s.slots[name] = sl
	s.order = append(s.order, name)
	return sl
}

// Lookup returns the slot for name, or nil.
func (s *Store) Lookup(name string) *Slot { return s.slots[name] }

// Erase removes a slot from the registry entirely.
func (s *Store) Erase(name string) {
	delete(s.slots, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Names returns all registered names in registration order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// AllocTemp allocates a fresh, uniquely-named TempFlow slot.
func (s *Store) AllocTemp(hint string) *Slot {
	base := strings.TrimSpace(hint)
	if base == "" {
		base = "tmp"
	}
	name := base
	for i := 0; ; i++ {
		if _, ok := s.slots[name]; !ok {
			break
		}
		name = base + "#" + itoa(i)
	}
	return s.AddVariable(TempFlow, name)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Reset rebuilds Stocks and Flows from scratch in registration order,
// dropping all TempFlow slots (§3 Lifecycle: "temporary variables from the
// previous compilation are discarded"). It returns nothing: the fresh slices
// replace Stocks and Flows in place, and the caller (the equation compiler)
// appends new temporaries via AllocateNewTemp during recompilation.
func (s *Store) Reset() {
	var kept []string
	for _, n := range s.order {
		if sl := s.slots[n]; sl.Kind != TempFlow {
			kept = append(kept, n)
		} else {
			delete(s.slots, n)
		}
	}
	s.order = kept

	nStock, nFlow := 0, 0
	for _, n := range s.order {
		sl := s.slots[n]
		if sl.Kind.BackedByStock() {
			sl.Idx = nStock
			nStock++
		} else {
			sl.Idx = nFlow
			nFlow++
		}
	}
	// If the system has no stock variables, add a single dummy stock so the
	// driver has something to integrate (§6 Numeric contract).
	if nStock == 0 {
		dummy := s.AddVariable(Stock, "__dummy_stock__")
		dummy.Idx = 0
		nStock = 1
	}
	s.Stocks = make([]float64, nStock)
	s.Flows = make([]float64, nFlow)
	for _, n := range s.order {
		sl := s.slots[n]
		if sl.Kind.BackedByStock() {
			s.Stocks[sl.Idx] = sl.Init
		} else {
			s.Flows[sl.Idx] = sl.Init
		}
	}
}

// Read returns the current value of slot sl given which kind it is.
func (s *Store) Read(sl *Slot) float64 {
	if sl.Kind.BackedByStock() {
		return s.Stocks[sl.Idx]
	}
	return s.Flows[sl.Idx]
}

// Write sets the current value of slot sl.
func (s *Store) Write(sl *Slot, v float64) {
	if sl.Kind.BackedByStock() {
		s.Stocks[sl.Idx] = v
	} else {
		s.Flows[sl.Idx] = v
	}
}

// AllocateNewTemp grows the Flows array to accommodate a newly allocated
// TempFlow slot created mid-compilation (after Reset has already sized the
// arrays once). Returns the index assigned.
func (s *Store) AllocateNewTemp(sl *Slot) int {
	sl.Idx = len(s.Flows)
	s.Flows = append(s.Flows, sl.Init)
	return sl.Idx
}
