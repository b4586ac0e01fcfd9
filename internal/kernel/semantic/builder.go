// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"sort"

	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/pkg/sigparse"
)

// buildFunction runs the three-step semantic build of spec.md §4.F for
// one Function entry: CFG by structured reduction, DFG/SSA by threading
// live variable state through buildStatement, and a symbol table entry
// per parameter and definition.
func buildFunction(tree *parse.SyntaxTree, source []byte, children map[int][]int, fileID ir.FileID, next *uint32, names *nameTable, scopeID uint32, funcIdx int) FunctionResult {
	b := &funcBuilder{
		tree:     tree,
		source:   source,
		children: children,
		fileID:   fileID,
		next:     next,
		names:    names,
		scopeID:  scopeID,
	}

	entryNode := b.alloc(ir.KindEntry, ir.Span{}, ir.NilNodeID, ir.Extra{})
	exitNode := b.alloc(ir.KindExit, ir.Span{}, ir.NilNodeID, ir.Extra{})

	vars := make(map[string]*varState)
	var bodyIdx = -1
	for _, c := range children[funcIdx] {
		entry := tree.Entries[c]
		switch entry.Kind {
		case ir.KindParameter:
			for _, name := range b.paramNames(entry) {
				nameID := names.intern(name)
				paramNode := b.alloc(ir.KindVariable, entry.Span, ir.NilNodeID, ir.Extra{NameID: nameID, VarVersion: 0})
				b.addEdge(entryNode, paramNode, ir.EdgeDef)
				vars[name] = &varState{nameID: nameID, version: 0, nodeID: paramNode}
				b.symbols = append(b.symbols, ir.Symbol{ScopeID: scopeID, NameID: nameID, DefNode: paramNode, Kind: ir.SymParameter})
			}
		case ir.KindBlock:
			if bodyIdx < 0 {
				bodyIdx = c
			}
		}
	}

	var tails []cfgLink
	if bodyIdx >= 0 {
		tails = b.buildStatements(children[bodyIdx], fromLinks(entryNode, ir.EdgeCfgNext), vars)
	} else {
		tails = fromLinks(entryNode, ir.EdgeCfgNext)
	}
	for _, t := range tails {
		b.addEdge(t.From, exitNode, ir.EdgeCfgNext)
	}

	sort.Slice(b.nodes, func(i, j int) bool { return b.nodes[i].ID < b.nodes[j].ID })
	sort.Slice(b.edges, func(i, j int) bool { return b.edges[i].Less(b.edges[j]) })
	sort.Slice(b.symbols, func(i, j int) bool {
		if b.symbols[i].ScopeID != b.symbols[j].ScopeID {
			return b.symbols[i].ScopeID < b.symbols[j].ScopeID
		}
		return b.symbols[i].NameID < b.symbols[j].NameID
	})

	return FunctionResult{FuncEntry: funcIdx, Nodes: b.nodes, Edges: b.edges, Symbols: b.symbols}
}

// paramNames returns every name a single Parameter entry declares. Go's
// grammar groups same-typed parameters into one parameter_declaration
// node (e.g. "a, b int"), so a Go entry is re-parsed through sigparse to
// recover all of them; every other grammar's parameter node names at
// most one variable per node, so the first identifier in its span is it.
func (b *funcBuilder) paramNames(entry parse.PreOrderEntry) []string {
	text := b.text(entry.Span)
	if entry.TSType == "parameter_declaration" {
		params := sigparse.ParseGoParams("func f(" + text + ")")
		if len(params) > 0 {
			names := make([]string, len(params))
			for i, p := range params {
				names[i] = p.Name
			}
			return names
		}
	}
	if name := firstIdentifier(text); name != "" {
		return []string{name}
	}
	return nil
}
