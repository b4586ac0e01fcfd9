// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package semantic

import (
	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
)

// Epoch is the semantic epoch of spec.md §4.F/§4.H: every function's CFG,
// DFG and symbol-table contribution, in file-id then function-pre-order-
// index order — the exact order the CPG merger (§4.G) expects to
// concatenate them in.
type Epoch struct {
	Results    []FunctionResult
	Names      []string // interned name table, by id
	SealedHash chash.Digest
}

// Build runs the semantic builder over every function of every file in
// parseEpoch, threading one file-wide provisional NodeId counter and one
// epoch-wide name table so interned ids and provisional NodeIds stay
// globally unique before the CPG merger renumbers them.
func Build(ingestEpoch *ingest.Epoch, parseEpoch *parse.Epoch) *Epoch {
	names := newNameTable()
	// Id 0 is reserved for "no name" so a zero-value Extra.NameID is never
	// confused with a real first-appearance name.
	names.intern("")
	var results []FunctionResult
	var scopeID uint32

	for fileIdx, tree := range parseEpoch.Trees {
		fileID := ir.FileID(fileIdx)
		source := ingestEpoch.Files[fileIdx].Bytes
		children := childIndex(tree)
		next := uint32(len(tree.Entries))

		for _, funcIdx := range functionEntries(tree) {
			results = append(results, buildFunction(tree, source, children, fileID, &next, names, scopeID, funcIdx))
			scopeID++
		}
	}

	return &Epoch{Results: results, Names: names.entries(), SealedHash: seal(results, names.entries())}
}

// seal computes the semantic epoch's hash over every function's sorted
// nodes and edges, in Results order, plus the interned name table — the
// same canonical-hasher discipline every other epoch in this kernel uses.
func seal(results []FunctionResult, names []string) chash.Digest {
	c := chash.New()
	for _, r := range results {
		c.Digest(ir.HashNodes(r.Nodes))
		c.Digest(ir.HashEdges(r.Edges))
	}
	c.Digest(ir.HashStrings(names))
	return c.Sum()
}
