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

	"github.com/cpgkernel/cpgk/internal/kernel/snapshot"
	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

func runSnapshot(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "cpgk snapshot: expected \"save\" or \"load\"")
		return 1
	}
	switch args[0] {
	case "save":
		return runSnapshotSave(args[1:], cfg, globals)
	case "load":
		return runSnapshotLoad(args[1:], globals)
	default:
		fmt.Fprintf(os.Stderr, "cpgk snapshot: unknown subcommand %q\n", args[0])
		return 1
	}
}

func runSnapshotSave(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "cpgk snapshot save: expected <source-path> <output-file>")
		return 1
	}
	root, out := args[0], args[1]

	paths, err := discoverFiles(root, cfg)
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}

	_, cache, closeCache := openCache(cfg)
	defer closeCache()

	bar := newStageProgressBar(globals)
	ce, lc, closeEpoch, err := runPipeline(context.Background(), 1, paths, cache, bar)
	if err != nil {
		errorRecord(1, lc, err).print(globals.JSON)
		return 1
	}
	defer closeEpoch()

	f, err := os.Create(out)
	if err != nil {
		errorRecord(1, lc, err).print(globals.JSON)
		return 1
	}
	defer f.Close()

	if err := snapshot.Write(f, 1, ce); err != nil {
		errorRecord(1, lc, err).print(globals.JSON)
		return 1
	}

	nodeCount := 0
	for _, fc := range ce.Files {
		nodeCount += len(fc.Nodes)
	}
	successRecord(1, lc, ce.CPGHash, nodeCount).print(globals.JSON)
	return 0
}

func runSnapshotLoad(args []string, globals kernelcfg.GlobalFlags) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "cpgk snapshot load: expected <snapshot-file>")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}
	defer f.Close()

	snap, err := snapshot.Read(f)
	if err != nil {
		errorRecord(0, nil, err).print(globals.JSON)
		return 1
	}

	nodeCount := 0
	for _, fc := range snap.Epoch.Files {
		nodeCount += len(fc.Nodes)
	}
	successRecord(snap.EpochID, nil, snap.Epoch.CPGHash, nodeCount).print(globals.JSON)
	return 0
}
