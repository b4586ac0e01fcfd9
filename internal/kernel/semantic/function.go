// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package semantic implements spec.md §4.F: per-function CFG construction
// by structured syntactic reduction, SSA-style DFG construction, and
// symbol table population, driven off the pre-order parse tree rather
// than raw tree-sitter nodes.
package semantic

import (
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
)

// childIndex maps a parent's entry index to its direct children's entry
// indices, in source order. Pre-order traversal guarantees a parent's
// children appear, among all entries carrying that ParentIndex, in
// increasing index order — the subtree of child N is fully emitted before
// child N+1's own record, but child N+1's ParentIndex record still sorts
// after child N's, so a plain filter-and-keep-order recovers the original
// grammar child order without resorting anything.
func childIndex(tree *parse.SyntaxTree) map[int][]int {
	children := make(map[int][]int, len(tree.Entries))
	for i, e := range tree.Entries {
		if e.ParentIndex < 0 {
			continue
		}
		children[e.ParentIndex] = append(children[e.ParentIndex], i)
	}
	return children
}

// functionEntries returns the entry index of every Function node in the
// tree, in pre-order (i.e. source declaration order).
func functionEntries(tree *parse.SyntaxTree) []int {
	var out []int
	for i, e := range tree.Entries {
		if e.Kind == ir.KindFunction {
			out = append(out, i)
		}
	}
	return out
}

// FunctionResult is one function's semantic contribution: CFG/DFG nodes
// and edges (provisional NodeIds, renumbered by the CPG merger per
// spec.md §4.G) plus the symbols it defines. Nodes and Edges are already
// sorted by the builder — by NodeId and by (From,To,Kind) respectively —
// so the epoch aggregator in epoch.go never needs to re-sort them.
type FunctionResult struct {
	FuncEntry int // entry index of the Function node this result is for
	Nodes     []ir.CPGNode
	Edges     []ir.CPGEdge
	Symbols   []ir.Symbol
}
