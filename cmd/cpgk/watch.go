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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

// watchSkipDirs are directories never watched, the same fixed set the
// teacher's file watcher skips (churn-heavy or irrelevant to source).
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".kernel": true, "bin": true,
}

const watchDebounce = 500 * time.Millisecond

// runWatch re-runs the ingest pipeline whenever a file under root changes,
// debounced so a burst of saves triggers one re-ingest rather than one per
// file event — the optional watch-mode collaborator SPEC_FULL.md's domain
// stack assigns to fsnotify.
func runWatch(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "cpgk watch: a directory path is required")
		return 1
	}
	root := args[0]

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != filepath.Base(root)) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}

	// cache is constructed once, outside reingest, so a file untouched
	// between watch cycles is served from the tree it already parsed
	// rather than reparsed on every debounced event.
	_, cache, closeCache := openCache(cfg)
	defer closeCache()

	reingest := func() {
		paths, err := discoverFiles(root, cfg)
		if err != nil {
			errorRecord(0, nil, err).print(globals.JSON)
			return
		}
		bar := newStageProgressBar(globals)
		ce, lc, closeEpoch, err := runPipeline(context.Background(), 1, paths, cache, bar)
		if err != nil {
			errorRecord(1, lc, err).print(globals.JSON)
			return
		}
		nodeCount := 0
		for _, fc := range ce.Files {
			nodeCount += len(fc.Nodes)
		}
		successRecord(1, lc, ce.CPGHash, nodeCount).print(globals.JSON)
		closeEpoch()
	}

	reingest()

	var timer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reingest)
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "cpgk watch: %v\n", err)
		}
	}
}
