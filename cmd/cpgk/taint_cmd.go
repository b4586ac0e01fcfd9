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

	flag "github.com/spf13/pflag"

	"github.com/cpgkernel/cpgk/internal/kernel/ir"
	"github.com/cpgkernel/cpgk/internal/kernel/taint"
	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

var nodeKindByName = map[string]ir.NodeKind{
	"file": ir.KindFile, "function": ir.KindFunction, "block": ir.KindBlock,
	"statement": ir.KindStatement, "expression": ir.KindExpression,
	"variable": ir.KindVariable, "parameter": ir.KindParameter,
	"literal": ir.KindLiteral, "call": ir.KindCall, "return": ir.KindReturn,
	"branch": ir.KindBranch, "loop": ir.KindLoop, "phi": ir.KindPhi,
	"assign": ir.KindAssign, "entry": ir.KindEntry, "exit": ir.KindExit,
}

func runTaint(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	fs := flag.NewFlagSet("cpgk taint", flag.ContinueOnError)
	sourceKind := fs.String("source-kind", "parameter", "CPG node kind that originates a flow")
	sinkKind := fs.String("sink-kind", "call", "CPG node kind that terminates a flow")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "cpgk taint: a directory path is required")
		return 1
	}
	root := rest[0]

	isSource, ok := nodeKindByName[*sourceKind]
	if !ok {
		fmt.Fprintf(os.Stderr, "cpgk taint: unknown --source-kind %q\n", *sourceKind)
		return 1
	}
	isSink, ok := nodeKindByName[*sinkKind]
	if !ok {
		fmt.Fprintf(os.Stderr, "cpgk taint: unknown --sink-kind %q\n", *sinkKind)
		return 1
	}

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

	res := taint.Find(ce,
		func(n ir.CPGNode) bool { return n.Kind == isSource },
		func(n ir.CPGNode) bool { return n.Kind == isSink },
		taint.Config{
			MaxDepth:        int(cfg.Kernel.MaxTaintDepth),
			PointerContextK: int(cfg.Kernel.PointerContextK),
		},
	)

	printTaintResult(res, globals.JSON)
	return 0
}

func printTaintResult(res *taint.Result, jsonOutput bool) {
	if jsonOutput {
		printJSON(struct {
			Paths     []taint.PathResult `json:"paths"`
			Truncated []taint.Truncated  `json:"truncated"`
		}{res.Paths, res.Truncated})
		return
	}
	for _, p := range res.Paths {
		fmt.Printf("path: %s -> %s (%d hops)\n", p.SourceID, p.SinkID, len(p.Path)-1)
	}
	for _, tr := range res.Truncated {
		fmt.Printf("truncated: source=%s reason=%s\n", tr.SourceID, tr.Reason)
	}
}
