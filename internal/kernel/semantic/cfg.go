// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
)

// funcBuilder accumulates one function's CFG/DFG nodes, edges and symbols.
// next is a pointer to a counter shared across every function in the
// file, so provisional NodeIds stay unique within the file regardless of
// how many functions it declares; the CPG merger (internal/kernel/cpg)
// renumbers them into their final contiguous form.
type funcBuilder struct {
	tree     *parse.SyntaxTree
	source   []byte
	children map[int][]int
	fileID   ir.FileID
	next     *uint32
	names    *nameTable
	scopeID  uint32

	nodes   []ir.CPGNode
	edges   []ir.CPGEdge
	symbols []ir.Symbol
}

func (b *funcBuilder) alloc(kind ir.NodeKind, span ir.Span, parent ir.NodeID, extra ir.Extra) ir.NodeID {
	idx := *b.next
	*b.next++
	id := ir.MakeNodeID(b.fileID, idx)
	b.nodes = append(b.nodes, ir.CPGNode{ID: id, Kind: kind, Span: span, Parent: parent, Extra: extra})
	return id
}

func (b *funcBuilder) addEdge(from, to ir.NodeID, kind ir.EdgeKind) {
	b.edges = append(b.edges, ir.CPGEdge{From: from, To: to, Kind: kind})
}

// cfgLink is a pending predecessor edge: the statement that produced it
// connects to whatever comes next via Kind.
type cfgLink struct {
	From ir.NodeID
	Kind ir.EdgeKind
}

func fromLinks(id ir.NodeID, kind ir.EdgeKind) []cfgLink {
	return []cfgLink{{From: id, Kind: kind}}
}

// buildStatements threads CFG edges through a sequence of sibling
// statements in source order, returning the open tails callers must
// connect onward (to a join node, a loop header, or the function exit).
func (b *funcBuilder) buildStatements(stmtIdxs []int, tails []cfgLink, vars map[string]*varState) []cfgLink {
	for _, idx := range stmtIdxs {
		tails = b.buildStatement(idx, tails, vars)
	}
	return tails
}

// buildStatement emits the fixed node pattern spec.md §4.F calls for per
// construct (branch: entry/test/true-false/join; loop: header/body/back
// edge), reusing the statement's own parse-tree NodeId as its CFG graph
// node rather than allocating a duplicate.
func (b *funcBuilder) buildStatement(idx int, tails []cfgLink, vars map[string]*varState) []cfgLink {
	e := b.tree.Entries[idx]
	nodeID := e.ID
	for _, link := range tails {
		b.addEdge(link.From, nodeID, link.Kind)
	}

	switch e.Kind {
	case ir.KindBranch:
		thenIdx, elseIdx := b.branchBlocks(idx)
		thenVars, elseVars := cloneVars(vars), cloneVars(vars)

		thenTails := b.buildBranchArm(thenIdx, nodeID, ir.EdgeCfgBranchTrue, thenVars)
		elseTails := b.buildBranchArm(elseIdx, nodeID, ir.EdgeCfgBranchFalse, elseVars)

		merged := b.mergeBranch(vars, thenVars, elseVars)
		for k, v := range merged {
			vars[k] = v
		}
		return append(thenTails, elseTails...)

	case ir.KindLoop:
		bodyIdx := b.loopBody(idx)
		bodyVars := cloneVars(vars)
		bodyTails := b.buildBranchArm(bodyIdx, nodeID, ir.EdgeCfgNext, bodyVars)
		for _, t := range bodyTails {
			b.addEdge(t.From, nodeID, ir.EdgeCfgBack)
		}
		merged := b.mergeBranch(vars, bodyVars, vars)
		for k, v := range merged {
			vars[k] = v
		}
		return fromLinks(nodeID, ir.EdgeCfgNext)

	case ir.KindReturn:
		b.recordDefUse(e, vars)
		return nil

	default:
		b.recordDefUse(e, vars)
		return fromLinks(nodeID, ir.EdgeCfgNext)
	}
}

// buildBranchArm builds one arm's statement sequence (the arm's own
// Block entry's children), entering via a single typed edge from from.
// An absent arm (no else, an empty loop body) still yields a tail so the
// caller's join/back-edge logic has something to connect.
func (b *funcBuilder) buildBranchArm(blockIdx int, from ir.NodeID, kind ir.EdgeKind, vars map[string]*varState) []cfgLink {
	if blockIdx < 0 {
		return fromLinks(from, kind)
	}
	stmts := b.children[blockIdx]
	if len(stmts) == 0 {
		return fromLinks(from, kind)
	}
	return b.buildStatements(stmts, fromLinks(from, kind), vars)
}

// branchBlocks returns the entry indices of the then-block and (if
// present) else-block direct children of a Branch node. Grammars vary in
// how many Block children an if/switch carries; the first two found, in
// child order, are taken as then/else.
func (b *funcBuilder) branchBlocks(branchIdx int) (thenIdx, elseIdx int) {
	thenIdx, elseIdx = -1, -1
	for _, c := range b.children[branchIdx] {
		if b.tree.Entries[c].Kind != ir.KindBlock {
			continue
		}
		if thenIdx < 0 {
			thenIdx = c
		} else if elseIdx < 0 {
			elseIdx = c
			break
		}
	}
	return thenIdx, elseIdx
}

// loopBody returns the entry index of a Loop node's Block child, or -1.
func (b *funcBuilder) loopBody(loopIdx int) int {
	for _, c := range b.children[loopIdx] {
		if b.tree.Entries[c].Kind == ir.KindBlock {
			return c
		}
	}
	return -1
}
