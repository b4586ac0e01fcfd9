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
	"os"

	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

func runIngest(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "cpgk ingest: a directory path is required")
		return 1
	}
	root := args[0]

	paths, err := discoverFiles(root, cfg)
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}

	store, cache, closeCache := openCache(cfg)
	defer closeCache()

	bar := newStageProgressBar(globals)
	ce, lc, closeEpoch, err := runPipeline(context.Background(), 1, paths, cache, bar)
	if err != nil {
		errorRecord(1, lc, err).print(globals.JSON)
		return 1
	}
	defer closeEpoch()

	nodeCount := 0
	for _, fc := range ce.Files {
		nodeCount += len(fc.Nodes)
	}
	successRecord(1, lc, ce.CPGHash, nodeCount).print(globals.JSON)

	if store != nil {
		_ = store.PutEpochCPGHash(1, ce.CPGHash)
	}

	return 0
}
