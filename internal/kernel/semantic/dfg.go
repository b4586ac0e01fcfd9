// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
)

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// firstIdentifier returns the first identifier-shaped token in text, the
// heuristic this package uses to name the variable an assignment or
// declarator statement defines without a language-specific grammar walk
// for every one of the five supported languages.
func firstIdentifier(text string) string {
	i := 0
	for i < len(text) && !isIdentStart(text[i]) {
		i++
	}
	if i >= len(text) {
		return ""
	}
	j := i + 1
	for j < len(text) && isIdentByte(text[j]) {
		j++
	}
	return text[i:j]
}

// identifierSet returns every distinct identifier-shaped token in text,
// in first-appearance order, for resolving uses against the live variable
// map.
func identifierSet(text string) []string {
	var out []string
	seen := make(map[string]bool)
	i := 0
	for i < len(text) {
		if !isIdentStart(text[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		tok := text[i:j]
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
		i = j
	}
	return out
}

func (b *funcBuilder) text(span ir.Span) string {
	return string(b.source[span.Start:span.End])
}

// recordDefUse updates vars for a statement-level entry: a new SSA
// version node is materialized for an assignment/declarator's defined
// name, and a Use edge is emitted from every other live variable the
// statement's own text references. This is a text-level heuristic, not a
// type-resolved reference walk — adequate for the def/use and reaching-
// definitions edges spec.md §4.F calls for, not a full binder.
func (b *funcBuilder) recordDefUse(e parse.PreOrderEntry, vars map[string]*varState) {
	text := b.text(e.Span)
	definedName := ""

	if e.Kind == ir.KindAssign || e.Kind == ir.KindVariable {
		definedName = firstIdentifier(text)
	}

	for _, name := range identifierSet(text) {
		if name == definedName {
			continue
		}
		if vs, ok := vars[name]; ok {
			b.addEdge(vs.nodeID, e.ID, ir.EdgeUse)
		}
	}

	if definedName == "" {
		return
	}
	nameID := b.names.intern(definedName)
	version := uint32(1)
	if prev, ok := vars[definedName]; ok {
		version = prev.version + 1
	}
	valueNode := b.alloc(ir.KindVariable, e.Span, ir.NilNodeID, ir.Extra{NameID: nameID, VarVersion: version})
	b.addEdge(e.ID, valueNode, ir.EdgeDef)
	vars[definedName] = &varState{nameID: nameID, version: version, nodeID: valueNode}
	b.symbols = append(b.symbols, ir.Symbol{ScopeID: b.scopeID, NameID: nameID, DefNode: valueNode, Kind: ir.SymVariable})
}

// mergeBranch reconciles variable state after an if/else: any name whose
// live SSA node differs between the two branch outcomes gets a Phi node
// merging them, per spec.md §4.F's "Phi nodes are inserted at join points
// where multiple versions reach." A name touched in only one branch is
// merged against its pre-branch state, which already reached the other
// path unchanged.
func (b *funcBuilder) mergeBranch(before, thenVars, elseVars map[string]*varState) map[string]*varState {
	merged := make(map[string]*varState, len(thenVars)+len(elseVars))
	seen := make(map[string]bool)

	names := make([]string, 0, len(thenVars)+len(elseVars))
	for _, v := range b.names.entries() {
		if thenVars[v] != nil || elseVars[v] != nil {
			names = append(names, v)
		}
	}

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		tv, tok := thenVars[name]
		ev, eok := elseVars[name]
		switch {
		case tok && eok && tv.nodeID == ev.nodeID:
			merged[name] = tv
		case tok && !eok:
			if pv, ok := before[name]; ok && pv.nodeID == tv.nodeID {
				merged[name] = tv
			} else {
				merged[name] = b.phi(tv, before[name])
			}
		case eok && !tok:
			if pv, ok := before[name]; ok && pv.nodeID == ev.nodeID {
				merged[name] = ev
			} else {
				merged[name] = b.phi(ev, before[name])
			}
		case tok && eok:
			merged[name] = b.phi(tv, ev)
		}
	}
	return merged
}

// phi allocates a Phi node joining up to two SSA inputs (either may be
// nil if a name had no prior definition on that path) and emits the
// EdgePhi edges spec.md §3 defines for it.
func (b *funcBuilder) phi(a, c *varState) *varState {
	src := a
	if src == nil {
		src = c
	}
	version := src.version + 1
	node := b.alloc(ir.KindPhi, ir.Span{}, ir.NilNodeID, ir.Extra{NameID: src.nameID, VarVersion: version})
	if a != nil {
		b.addEdge(a.nodeID, node, ir.EdgePhi)
	}
	if c != nil && c != a {
		b.addEdge(c.nodeID, node, ir.EdgePhi)
	}
	return &varState{nameID: src.nameID, version: version, nodeID: node}
}
