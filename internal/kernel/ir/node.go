// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ir holds the data model shared by every kernel epoch past
// parsing: NodeId, the fixed CPGNode/CPGEdge variant sets, and the
// symbol-table entry shape. It imports no kernel package other than
// chash, which imports none, so that parse, semantic, cpg, snapshot and
// taint can all import it without a cycle.
package ir

import "fmt"

// FileID is a small opaque integer assigned in sorted-input order (spec.md
// §3). It namespaces every NodeId produced while parsing that file.
type FileID uint32

// NodeID packs file_id (upper 32 bits) and a within-file pre-order index
// (lower 32 bits) into one comparable integer, per spec.md §3's
// definition: "Total order is lexicographic on the pair."
type NodeID uint64

// NilNodeID is the sentinel value for an absent optional parent/reference.
// The snapshot wire format (§6) spells this out as the all-ones 64-bit
// sentinel.
const NilNodeID NodeID = ^NodeID(0)

// MakeNodeID packs a FileID and an in-file index into a NodeID.
func MakeNodeID(file FileID, index uint32) NodeID {
	return NodeID(uint64(file)<<32 | uint64(index))
}

// File returns the FileID component of a NodeID.
func (n NodeID) File() FileID { return FileID(n >> 32) }

// Index returns the within-file component of a NodeID.
func (n NodeID) Index() uint32 { return uint32(n) }

func (n NodeID) String() string {
	if n == NilNodeID {
		return "nil"
	}
	return fmt.Sprintf("%d:%d", n.File(), n.Index())
}

// NodeKind is the fixed CPG node variant set from spec.md §3.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindFunction
	KindBlock
	KindStatement
	KindExpression
	KindVariable
	KindParameter
	KindLiteral
	KindCall
	KindReturn
	KindBranch
	KindLoop
	KindPhi
	KindAssign
	KindEntry
	KindExit
)

var nodeKindNames = [...]string{
	"File", "Function", "Block", "Statement", "Expression", "Variable",
	"Parameter", "Literal", "Call", "Return", "Branch", "Loop", "Phi",
	"Assign", "Entry", "Exit",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "Unknown"
}

// MergeCategory buckets a NodeKind into the fixed AST < CFG < DFG-phi
// priority the CPG merger (§4.G) assigns contiguous indices by.
type MergeCategory uint8

const (
	CategoryAST MergeCategory = iota
	CategoryCFG
	CategoryDFGPhi
)

// Category reports which merge bucket a kind belongs to. CFG-only
// structural kinds (Entry/Exit/Branch/Loop markers) sort after AST kinds;
// Phi sorts last as the DFG-specific addition.
func (k NodeKind) Category() MergeCategory {
	switch k {
	case KindPhi:
		return CategoryDFGPhi
	case KindEntry, KindExit, KindBranch, KindLoop:
		return CategoryCFG
	default:
		return CategoryAST
	}
}

// Span is a byte-offset range within a file, end-exclusive.
type Span struct {
	Start uint32
	End   uint32
}

// Extra is a kind-specific fixed-width payload. Kind decides which fields
// are populated: most kinds set at most one, while Variable and Phi nodes
// set both NameID and VarVersion; this mirrors spec.md §3's "small
// fixed record" rather than a hash-map-backed attribute bag, and §9's
// "extras are fixed-width per variant so serialization is mechanical".
type Extra struct {
	// NameID interns Variable/Parameter/Function names (see SymbolTable).
	NameID uint32
	// LiteralText is the raw literal text for Literal nodes (small;
	// the CPG merger truncates it to 256 bytes).
	LiteralText string
	// VarVersion is the SSA version number for a Variable definition.
	VarVersion uint32
	// CallTargetName is the (unresolved) callee name text for Call nodes.
	CallTargetName string
}

// CPGNode is one node of the merged Code Property Graph.
type CPGNode struct {
	ID     NodeID
	Kind   NodeKind
	Span   Span
	Parent NodeID // NilNodeID if none
	Extra  Extra
}

// EdgeKind is the fixed CPG edge variant set from spec.md §3.
type EdgeKind uint8

const (
	EdgeAst EdgeKind = iota
	EdgeCfgNext
	EdgeCfgBranchTrue
	EdgeCfgBranchFalse
	EdgeCfgBack
	EdgeDef
	EdgeUse
	EdgeDfReaches
	EdgeCall
	EdgeReturn
	EdgePhi
)

var edgeKindNames = [...]string{
	"Ast", "CfgNext", "CfgBranchTrue", "CfgBranchFalse", "CfgBack", "Def",
	"Use", "DfReaches", "Call", "Return", "Phi",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "Unknown"
}

// CPGEdge is one directed, kind-tagged edge of the CPG. Edges are globally
// ordered by (From, To, Kind) per spec.md §3.
type CPGEdge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind
}

// Less implements the edge total order (From, To, Kind).
func (e CPGEdge) Less(o CPGEdge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	if e.To != o.To {
		return e.To < o.To
	}
	return e.Kind < o.Kind
}

// SymbolKind classifies a SymbolTable entry.
type SymbolKind uint8

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymFunction
)

// Symbol is one entry of the ordered symbol table (spec.md §3): scope,
// interned name, defining node, and kind. NameID assignment is by
// first-appearance order within the deterministic traversal, never a
// hashed bucket.
type Symbol struct {
	ScopeID uint32
	NameID  uint32
	DefNode NodeID
	Kind    SymbolKind
}
