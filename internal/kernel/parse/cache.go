// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync"

	"github.com/cpgkernel/cpgk/internal/kernel/chash"
	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/metrics"
)

// cachedEntry is one tree cache slot, keyed externally by ir.FileID.
type cachedEntry struct {
	contentHash chash.Digest
	tree        *SyntaxTree
}

// persistentTreeStore is the cross-process half of the tree cache: a
// content-hash-keyed store of serialized trees that outlives one
// process's TreeCache. internal/kernel/cachestore.Store satisfies this
// structurally; TreeCache depends only on this narrow interface so the
// parse package never has to import cachestore.
type persistentTreeStore interface {
	Tree(contentHash chash.Digest) ([]byte, bool, error)
	PutTree(contentHash chash.Digest, payload []byte) error
}

// TreeCache implements spec.md §4.D's incremental reuse contract: for a
// given file_id, if the content_hash of the current input matches the
// cached entry's content_hash, the cached tree is reused verbatim; any
// mismatch (new file_id or changed content_hash) forces a reparse; a
// reparse that itself fails is a ParseFailure, never a silent fallback to
// stale cache. An optional persistent store backs the in-memory map so a
// file unchanged since a previous process's run is still served from
// cache rather than reparsed.
type TreeCache struct {
	mu      sync.Mutex
	entries map[ir.FileID]cachedEntry
	parser  *Parser
	store   persistentTreeStore
}

// NewTreeCache returns an empty, purely in-memory cache backed by a
// freshly pooled Parser.
func NewTreeCache() *TreeCache {
	return &TreeCache{
		entries: make(map[ir.FileID]cachedEntry),
		parser:  NewParser(),
	}
}

// NewPersistentTreeCache returns a TreeCache that additionally consults
// store for a file this process has never seen, and persists every fresh
// parse back into it.
func NewPersistentTreeCache(store persistentTreeStore) *TreeCache {
	tc := NewTreeCache()
	tc.store = store
	return tc
}

// Get returns the cached tree for fileID if its content hash matches, or
// parses source fresh and stores the result otherwise. The returned tree
// is always either reused or freshly parsed — there is no third outcome
// besides a propagated ParseFailure.
func (tc *TreeCache) Get(ctx context.Context, fileID ir.FileID, lang Language, contentHash chash.Digest, source []byte) (*SyntaxTree, error) {
	tc.mu.Lock()
	entry, ok := tc.entries[fileID]
	tc.mu.Unlock()

	if ok && entry.contentHash == contentHash {
		metrics.ParseCacheHits.Inc()
		return entry.tree, nil
	}

	if tc.store != nil {
		if tree, ok := tc.fromStore(fileID, contentHash); ok {
			metrics.ParseCacheHits.Inc()
			metrics.CachestoreTreeHits.Inc()
			return tree, nil
		}
	}

	metrics.ParseCacheMisses.Inc()
	tree, err := tc.parser.ParseFile(ctx, fileID, lang, contentHash, source)
	if err != nil {
		return nil, err
	}

	tc.mu.Lock()
	tc.entries[fileID] = cachedEntry{contentHash: contentHash, tree: tree}
	tc.mu.Unlock()

	if tc.store != nil {
		if payload, err := encodeTree(tree); err == nil {
			_ = tc.store.PutTree(contentHash, payload)
		}
	}
	return tree, nil
}

// fromStore attempts to satisfy fileID's lookup from the persistent
// store, seeding the in-memory map on success so later calls in this
// process hit the fast path instead.
func (tc *TreeCache) fromStore(fileID ir.FileID, contentHash chash.Digest) (*SyntaxTree, bool) {
	payload, found, err := tc.store.Tree(contentHash)
	if err != nil || !found {
		return nil, false
	}
	tree, err := decodeTree(payload)
	if err != nil {
		return nil, false
	}
	tree.FileID = fileID

	tc.mu.Lock()
	tc.entries[fileID] = cachedEntry{contentHash: contentHash, tree: tree}
	tc.mu.Unlock()
	return tree, true
}

// encodeTree/decodeTree serialize a SyntaxTree for the persistent store.
// Every field is a plain value type (no interfaces), so gob needs no
// registration.
func encodeTree(tree *SyntaxTree) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeTree(payload []byte) (*SyntaxTree, error) {
	var tree SyntaxTree
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// Invalidate drops the cached entry for fileID, if any. Used when a file
// is known to have been removed from the current ingestion epoch.
func (tc *TreeCache) Invalidate(fileID ir.FileID) {
	tc.mu.Lock()
	delete(tc.entries, fileID)
	tc.mu.Unlock()
}

// Len reports the number of trees currently held.
func (tc *TreeCache) Len() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.entries)
}
