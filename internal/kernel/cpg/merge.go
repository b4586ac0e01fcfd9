// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cpg implements spec.md §4.G: the CPG merger. It concatenates
// the parse epoch's AST nodes with the semantic epoch's CFG/DFG nodes and
// edges, reassigns contiguous within-file NodeIds by fixed kind priority,
// and seals the result with the canonical hasher.
package cpg

import (
	"sort"
	"strings"

	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/internal/kernel/semantic"
)

const maxLiteralTextBytes = 256

var leadingKeywords = map[string]bool{
	"func": true, "def": true, "fn": true, "function": true,
	"async": true, "export": true, "pub": true, "public": true,
	"private": true, "static": true, "method": true,
}

// FileCPG is one file's merged, final contribution: nodes sorted by their
// (now contiguous) NodeId, edges sorted by (From,To,Kind).
type FileCPG struct {
	FileID ir.FileID
	Nodes  []ir.CPGNode
	Edges  []ir.CPGEdge
}

// rawNode is an AST or semantic node still carrying its provisional id;
// its merge-priority category (spec.md §4.G) comes from node.Kind.
type rawNode struct {
	provisional ir.NodeID
	node        ir.CPGNode
}

func mergeFile(fileID ir.FileID, tree *parse.SyntaxTree, source []byte, semanticNodes []ir.CPGNode, semanticEdges []ir.CPGEdge, names *semantic.NameTable) (FileCPG, error) {
	astNodes := make([]rawNode, len(tree.Entries))
	for i, e := range tree.Entries {
		parent := ir.NilNodeID
		if e.ParentIndex >= 0 {
			parent = tree.Entries[e.ParentIndex].ID
		}
		n := ir.CPGNode{ID: e.ID, Kind: e.Kind, Span: e.Span, Parent: parent}
		switch e.Kind {
		case ir.KindLiteral:
			n.Extra.LiteralText = truncate(string(source[e.Span.Start:e.Span.End]), maxLiteralTextBytes)
		case ir.KindCall:
			n.Extra.CallTargetName = calleeName(string(source[e.Span.Start:e.Span.End]))
		case ir.KindVariable, ir.KindParameter, ir.KindFunction:
			if name := declName(string(source[e.Span.Start:e.Span.End])); name != "" {
				n.Extra.NameID = names.Intern(name)
			}
		}
		astNodes[i] = rawNode{provisional: e.ID, node: n}
	}

	semRaw := make([]rawNode, len(semanticNodes))
	for i, n := range semanticNodes {
		semRaw[i] = rawNode{provisional: n.ID, node: n}
	}

	ordered := orderByCategory(astNodes, semRaw)

	remap := make(map[ir.NodeID]ir.NodeID, len(ordered))
	finalNodes := make([]ir.CPGNode, len(ordered))
	for i, rn := range ordered {
		final := ir.MakeNodeID(fileID, uint32(i))
		remap[rn.provisional] = final
		rn.node.ID = final
		finalNodes[i] = rn.node
	}
	for i := range finalNodes {
		if finalNodes[i].Parent != ir.NilNodeID {
			if mapped, ok := remap[finalNodes[i].Parent]; ok {
				finalNodes[i].Parent = mapped
			}
		}
	}

	var edges []ir.CPGEdge
	for _, e := range tree.Entries {
		if e.ParentIndex < 0 {
			continue
		}
		from := remap[tree.Entries[e.ParentIndex].ID]
		to := remap[e.ID]
		edges = append(edges, ir.CPGEdge{From: from, To: to, Kind: ir.EdgeAst})
	}
	for _, e := range semanticEdges {
		from, ok1 := remap[e.From]
		to, ok2 := remap[e.To]
		if !ok1 {
			return FileCPG{}, kernelerr.NewEdgeTargetMissing(e.Kind.String(), e.From.String())
		}
		if !ok2 {
			return FileCPG{}, kernelerr.NewEdgeTargetMissing(e.Kind.String(), e.To.String())
		}
		edges = append(edges, ir.CPGEdge{From: from, To: to, Kind: e.Kind})
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
	if err := checkDuplicateEdges(edges); err != nil {
		return FileCPG{}, err
	}

	return FileCPG{FileID: fileID, Nodes: finalNodes, Edges: edges}, nil
}

// orderByCategory assigns final merge order: all AST-category nodes
// first (in their original pre-order), then CFG-category nodes (in
// discovery order — AST Branch/Loop markers interleaved with semantic
// Entry/Exit by provisional-id order, then semantic nodes appended),
// then DFG-phi nodes last, per spec.md §4.G's "(AST < CFG < DFG-phi) then
// within-category order".
func orderByCategory(ast, sem []rawNode) []rawNode {
	all := make([]rawNode, 0, len(ast)+len(sem))
	all = append(all, ast...)
	all = append(all, sem...)

	sort.SliceStable(all, func(i, j int) bool {
		ci, cj := all[i].node.Kind.Category(), all[j].node.Kind.Category()
		if ci != cj {
			return ci < cj
		}
		return all[i].provisional < all[j].provisional
	})
	return all
}

func checkDuplicateEdges(edges []ir.CPGEdge) error {
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return kernelerr.NewDuplicateEdge(edges[i].Kind.String() + " " + edges[i].From.String() + "->" + edges[i].To.String())
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// calleeName extracts the callee identifier from a call expression's
// source text: the identifier immediately before the first '(' — good
// enough for simple and dotted calls (it takes the rightmost segment).
func calleeName(text string) string {
	paren := strings.IndexByte(text, '(')
	if paren < 0 {
		paren = len(text)
	}
	head := text[:paren]
	if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
		head = head[dot+1:]
	}
	return firstIdentifierLike(head)
}

// declName extracts a declaration's own name, skipping a leading keyword
// token (func/def/fn/...) grammars commonly prefix declarations with.
func declName(text string) string {
	tok := firstIdentifierLike(text)
	rest := text
	for tok != "" && leadingKeywords[tok] {
		idx := strings.Index(rest, tok)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(tok):]
		tok = firstIdentifierLike(rest)
	}
	return tok
}

func firstIdentifierLike(text string) string {
	isStart := func(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
	isCont := func(b byte) bool { return isStart(b) || (b >= '0' && b <= '9') }
	i := 0
	for i < len(text) && !isStart(text[i]) {
		i++
	}
	if i >= len(text) {
		return ""
	}
	j := i + 1
	for j < len(text) && isCont(text[j]) {
		j++
	}
	return text[i:j]
}
