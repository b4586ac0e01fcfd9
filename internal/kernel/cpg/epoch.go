// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cpg

import (
	"sort"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/internal/kernel/semantic"
)

// Epoch is the sealed, merged CPG of spec.md §4.G: one FileCPG per
// ingested file, the final interned name table, and cpg_hash.
type Epoch struct {
	Files   []FileCPG
	Names   []string
	CPGHash chash.Digest
}

// Build merges the parse epoch's AST with the semantic epoch's CFG/DFG
// per file, then resolves call edges across file boundaries — the one
// step that genuinely needs every file's functions known at once, since a
// caller in file A may target a function declared in file B.
func Build(parseEpoch *parse.Epoch, semanticEpoch *semantic.Epoch, ingestEpoch *ingest.Epoch) (*Epoch, error) {
	bySemanticFile := make(map[ir.FileID][]semantic.FunctionResult)
	for _, r := range semanticEpoch.Results {
		fid := r.Nodes[0].ID.File()
		bySemanticFile[fid] = append(bySemanticFile[fid], r)
	}

	names := semantic.NewNameTableFrom(semanticEpoch.Names)

	files := make([]FileCPG, len(parseEpoch.Trees))
	for i, tree := range parseEpoch.Trees {
		fileID := ir.FileID(i)
		var nodes []ir.CPGNode
		var edges []ir.CPGEdge
		for _, r := range bySemanticFile[fileID] {
			nodes = append(nodes, r.Nodes...)
			edges = append(edges, r.Edges...)
		}
		fc, err := mergeFile(fileID, tree, ingestEpoch.Files[i].Bytes, nodes, edges, names)
		if err != nil {
			return nil, err
		}
		files[i] = fc
	}

	resolveCalls(files, names.Entries())

	for i := range files {
		sort.Slice(files[i].Edges, func(a, b int) bool { return files[i].Edges[a].Less(files[i].Edges[b]) })
		if err := checkDuplicateEdges(files[i].Edges); err != nil {
			return nil, err
		}
	}

	return &Epoch{Files: files, Names: names.Entries(), CPGHash: seal(files, names.Entries())}, nil
}

// resolveCalls links each Call node carrying a resolved CallTargetName to
// the first Function node sharing that interned name, in file order —
// the global link pass the per-file merge can't do on its own, since the
// callee may live in a different file than the call site.
func resolveCalls(files []FileCPG, nameList []string) {
	nameToFunc := make(map[string]ir.NodeID)
	for _, fc := range files {
		for _, n := range fc.Nodes {
			if n.Kind != ir.KindFunction || n.Extra.NameID == 0 {
				continue
			}
			name := nameList[n.Extra.NameID]
			if _, exists := nameToFunc[name]; !exists {
				nameToFunc[name] = n.ID
			}
		}
	}

	for fi := range files {
		for _, n := range files[fi].Nodes {
			if n.Kind != ir.KindCall || n.Extra.CallTargetName == "" {
				continue
			}
			if target, ok := nameToFunc[n.Extra.CallTargetName]; ok {
				files[fi].Edges = append(files[fi].Edges, ir.CPGEdge{From: n.ID, To: target, Kind: ir.EdgeCall})
			}
		}
	}
}

// seal computes cpg_hash over (nodes, edges, string_table) per file in
// file-id order, per spec.md §4.G.
func seal(files []FileCPG, names []string) chash.Digest {
	c := chash.New()
	for _, fc := range files {
		c.Digest(ir.HashNodes(fc.Nodes))
		c.Digest(ir.HashEdges(fc.Edges))
	}
	c.Digest(ir.HashStrings(names))
	return c.Sum()
}
