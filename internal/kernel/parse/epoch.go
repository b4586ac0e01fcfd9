// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"context"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
	"github.com/cpgkernel/cpgk/internal/kernel/schedule"
)

// Epoch is spec.md §4.E's parse epoch: every file of an ingestion epoch,
// parsed (or reused from cache) into a SyntaxTree, plus the seal hash over
// all of them in file_id order.
type Epoch struct {
	Trees      []*SyntaxTree // indexed by ir.FileID
	SealedHash chash.Digest

	sealed bool
}

// Build parses every file of ingestEpoch, reusing cache where the content
// hash matches. Files are independent of one another, so this runs them
// through the deterministic scheduler (spec.md §4.H): each file is one
// task carrying its file_id as TaskID, workers parse in whatever order
// the pool gets to them, and results commit into e.Trees in strict
// file_id order regardless of finish order. A file whose extension maps
// to LangUnknown is a ParseFailure: spec.md §7 requires every ingested
// file to either parse (possibly with HasSyntaxError set) or abort the
// epoch, never be silently dropped.
func Build(ctx context.Context, ingestEpoch *ingest.Epoch, cache *TreeCache) (*Epoch, error) {
	e := &Epoch{Trees: make([]*SyntaxTree, len(ingestEpoch.Files))}

	tasks := make([]schedule.Task, len(ingestEpoch.Files))
	for i, f := range ingestEpoch.Files {
		f := f
		tasks[i] = schedule.Task{
			ID: schedule.TaskID(f.FileID),
			Run: func(ctx context.Context) (any, error) {
				lang := DetectLanguage(f.CanonicalPath)
				if lang == LangUnknown {
					return nil, kernelerr.NewParseFailure(uint32(f.FileID), 0, "no supported grammar for "+f.CanonicalPath)
				}
				return cache.Get(ctx, f.FileID, lang, f.ContentHash, f.Bytes)
			},
		}
	}

	err := schedule.Run(ctx, tasks, 0, func(r schedule.Result) error {
		e.Trees[r.ID] = r.Value.(*SyntaxTree)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.seal()
	return e, nil
}

// seal computes the epoch hash over (file_id, content_hash,
// tree_structural_hash) triples in file_id order, per spec.md §4.E.
func (e *Epoch) seal() {
	c := chash.New()
	for fileID, tree := range e.Trees {
		c.U32(uint32(fileID))
		c.Digest(tree.ContentHash)
		c.Digest(tree.StructuralHash())
	}
	e.SealedHash = c.Sum()
	e.sealed = true
}

// Sealed reports whether this epoch has been sealed.
func (e *Epoch) Sealed() bool { return e.sealed }

// Tree returns the syntax tree for a given file, or nil if out of range.
func (e *Epoch) Tree(id ir.FileID) *SyntaxTree {
	if int(id) >= len(e.Trees) {
		return nil
	}
	return e.Trees[id]
}
