// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import "github.com/cpgkernel/cpgk/internal/kernel/ir"

// nameTable interns variable/parameter/function names in first-appearance
// order, per spec.md §4.F ("names are interned in first-appearance
// order"). It is never a map iterated for output — order is the slice
// itself, not bucket order.
type nameTable struct {
	index map[string]uint32
	order []string
}

func newNameTable() *nameTable {
	return &nameTable{index: make(map[string]uint32)}
}

// intern returns name's stable id, assigning the next sequential id on
// first appearance.
func (t *nameTable) intern(name string) uint32 {
	if id, ok := t.index[name]; ok {
		return id
	}
	id := uint32(len(t.order))
	t.index[name] = id
	t.order = append(t.order, name)
	return id
}

// entries returns the interned names in assignment order — the ordered
// view spec.md §9 requires in place of raw map iteration.
func (t *nameTable) entries() []string {
	return t.order
}

// NameTable is the exported handle the CPG merger (internal/kernel/cpg)
// uses to continue interning into this epoch's name table — e.g. the
// declaration names of AST Variable, Parameter and Function nodes — while
// preserving every id this epoch already assigned.
type NameTable struct{ t *nameTable }

// NewNameTableFrom seeds a NameTable so names already present in seed
// keep the same ids they had in this epoch.
func NewNameTableFrom(seed []string) *NameTable {
	nt := newNameTable()
	for _, s := range seed {
		nt.intern(s)
	}
	return &NameTable{t: nt}
}

// Intern returns name's id, assigning the next sequential one on first
// appearance.
func (n *NameTable) Intern(name string) uint32 { return n.t.intern(name) }

// Entries returns every interned name in assignment order.
func (n *NameTable) Entries() []string { return n.t.entries() }

// varState tracks one variable's current SSA version within a function:
// the version number and the CPGNode that materializes it.
type varState struct {
	nameID  uint32
	version uint32
	nodeID  ir.NodeID
}

func cloneVars(in map[string]*varState) map[string]*varState {
	out := make(map[string]*varState, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}
