// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

// PreOrderEntry is one node of a file's syntax tree, already assigned its
// final ir.NodeID by pre-order traversal position (spec.md §4.D: "the
// within-file index is the node's rank in a pre-order, left-to-right
// traversal of the grammar's own child order").
type PreOrderEntry struct {
	ID          ir.NodeID
	Kind        ir.NodeKind
	Span        ir.Span
	ParentIndex int // index into the same Entries slice, or -1 for the root
	TSType      string
}

// SyntaxTree is the parsed, pre-order-indexed result for one file. It is
// the unit the tree cache (cache.go) stores and the unit the semantic
// builder (internal/kernel/semantic) consumes.
type SyntaxTree struct {
	FileID      ir.FileID
	ContentHash chash.Digest
	Entries     []PreOrderEntry
	HasSyntaxError bool
}

// Parser wraps a per-language pool of *sitter.Parser. A Parser is safe for
// concurrent use by multiple goroutines; each ParseFile call borrows and
// returns its own parser instance.
type Parser struct {
	pools *pools
}

// NewParser returns a Parser with all five supported grammars pre-wired.
func NewParser() *Parser {
	return &Parser{pools: newPools()}
}

// ParseFile parses source with the grammar for lang and returns its
// pre-order-indexed SyntaxTree. A ParseFailure is returned only for
// conditions the grammar engine cannot recover from at all (unsupported
// language); a syntax error within an otherwise-parseable file still
// yields a tree (HasSyntaxError set), per spec.md §7's "best-effort parse
// tree, not a hard failure" for malformed-but-recoverable input.
func (p *Parser) ParseFile(ctx context.Context, fileID ir.FileID, lang Language, contentHash chash.Digest, source []byte) (*SyntaxTree, error) {
	parser, ok := p.pools.get(lang)
	if !ok {
		return nil, kernelerr.NewParseFailure(uint32(fileID), 0, "unsupported language: "+string(lang))
	}
	defer p.pools.put(lang, parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, kernelerr.NewParseFailure(uint32(fileID), 0, "tree-sitter: "+err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, kernelerr.NewParseFailure(uint32(fileID), 0, "tree-sitter returned a nil root node")
	}

	st := &SyntaxTree{
		FileID:         fileID,
		ContentHash:    contentHash,
		HasSyntaxError: root.HasError(),
	}
	st.Entries = preOrderWalk(root, fileID)
	return st, nil
}

// stackFrame is one entry of the explicit traversal stack used in place of
// recursion, per spec.md §9's note that traversal depth must not be bound
// by Go's call stack for pathologically deep input.
type stackFrame struct {
	node        *sitter.Node
	parentIndex int
}

// preOrderWalk assigns each node its pre-order rank as index into the
// returned slice, and derives its ir.NodeID from (fileID, rank). Children
// are pushed in reverse so the stack still pops them left-to-right,
// preserving the grammar's own child order exactly as spec.md §4.D
// requires ("never re-sorted, never hash-ordered").
func preOrderWalk(root *sitter.Node, fileID ir.FileID) []PreOrderEntry {
	var entries []PreOrderEntry
	stack := []stackFrame{{node: root, parentIndex: -1}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := len(entries)
		nodeType := top.node.Type()
		entries = append(entries, PreOrderEntry{
			ID:          ir.MakeNodeID(fileID, uint32(idx)),
			Kind:        classifyKind(nodeType),
			Span:        ir.Span{Start: uint32(top.node.StartByte()), End: uint32(top.node.EndByte())},
			ParentIndex: top.parentIndex,
			TSType:      nodeType,
		})

		childCount := int(top.node.ChildCount())
		for i := childCount - 1; i >= 0; i-- {
			if child := top.node.Child(i); child != nil {
				stack = append(stack, stackFrame{node: child, parentIndex: idx})
			}
		}
	}
	return entries
}

// StructuralHash canonically hashes the shape of the tree — (kind, span,
// parent_index) per entry in pre-order — independent of the grammar's own
// node-type vocabulary, so the parse epoch seal (epoch.go) stays stable
// even if a future grammar upgrade renames its internal node-type strings
// without changing the parse tree's actual shape.
func (st *SyntaxTree) StructuralHash() chash.Digest {
	c := chash.New()
	c.U32(uint32(st.FileID))
	c.Digest(st.ContentHash)
	c.U64(uint64(len(st.Entries)))
	for _, e := range st.Entries {
		c.U8(uint8(e.Kind))
		c.U32(e.Span.Start)
		c.U32(e.Span.End)
		c.I64(int64(e.ParentIndex))
	}
	return c.Sum()
}
