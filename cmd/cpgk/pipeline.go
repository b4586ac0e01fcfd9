// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/cpgkernel/cpgk/internal/kernel/cachestore"
	"github.com/cpgkernel/cpgk/internal/kernel/cpg"
	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
	"github.com/cpgkernel/cpgk/internal/kernel/parse"
	"github.com/cpgkernel/cpgk/internal/kernel/semantic"
	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

// openCache opens the kernel's persistent cache store (cfg.Kernel.DataDir)
// and a tree cache backed by it for one pipeline run. When DataDir is
// unset, or the store can't be opened, store is nil and the tree cache
// falls back to a purely in-memory one (correct, just without
// cross-process reuse). Callers that also need to record epoch results
// (e.g. PutEpochCPGHash) reuse the returned store rather than opening the
// file a second time, since bbolt holds an exclusive lock for the
// process. The returned func closes whatever store was opened and must
// be called once both are no longer needed.
func openCache(cfg *kernelcfg.Config) (*cachestore.Store, *parse.TreeCache, func()) {
	if cfg.Kernel.DataDir == "" {
		return nil, parse.NewTreeCache(), func() {}
	}
	store, err := cachestore.Open(filepath.Join(cfg.Kernel.DataDir, "cache.db"))
	if err != nil {
		return nil, parse.NewTreeCache(), func() {}
	}
	return store, parse.NewPersistentTreeCache(store), func() { _ = store.Close() }
}

// runPipeline takes the kernel through its four sealed stages (spec.md
// §4.C-§4.G) in order, advancing bar once per stage and lc — spec.md's
// Initialized -> Ingested -> Parsed -> Semantic -> CPG-Built -> Sealed
// state machine — once per stage boundary, moving lc to Failed on any
// error. The caller gets lc back regardless of outcome so it can surface
// the run's final stage. runPipeline owns the ingestion epoch's
// memory-mapped files for the caller: on any error the partially-built
// ingestion epoch, if one was created, is closed before returning. cache
// is reused across calls by callers that re-run the pipeline against the
// same file set (e.g. watch mode), so an unchanged file's tree is served
// from memory rather than reparsed.
func runPipeline(ctx context.Context, epochID uint64, paths []string, cache *parse.TreeCache, bar *progressbar.ProgressBar) (*cpg.Epoch, *kernelerr.Lifecycle, func(), error) {
	lc := kernelerr.NewLifecycle()

	ie, err := ingest.New(epochID, paths, nil)
	if err != nil {
		_ = lc.Fail(err.Error())
		return nil, lc, func() {}, err
	}
	_ = lc.Advance(kernelerr.Ingested)
	_ = bar.Add(1)

	pe, err := parse.Build(ctx, ie, cache)
	if err != nil {
		_ = ie.Close()
		_ = lc.Fail(err.Error())
		return nil, lc, func() {}, err
	}
	_ = lc.Advance(kernelerr.Parsed)
	_ = bar.Add(1)

	se := semantic.Build(ie, pe)
	_ = lc.Advance(kernelerr.Semantic)
	_ = bar.Add(1)

	ce, err := cpg.Build(pe, se, ie)
	if err != nil {
		_ = ie.Close()
		_ = lc.Fail(err.Error())
		return nil, lc, func() {}, err
	}
	_ = lc.Advance(kernelerr.CPGBuilt)
	_ = lc.Advance(kernelerr.Sealed)
	_ = bar.Add(1)

	return ce, lc, func() { _ = ie.Close() }, nil
}
