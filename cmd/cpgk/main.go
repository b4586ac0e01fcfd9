// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements cpgk, the CLI front end for the CPG kernel: it
// resolves a file list, runs it through the sealed pipeline (ingest,
// parse, semantic, cpg), and prints spec.md §6's result stream record.
// Reporting, querying, and narrative generation are explicitly out of
// the kernel's scope; this CLI only exists so the kernel is runnable
// end to end.
//
// Usage:
//
//	cpgk ingest <path>             Run the pipeline over a directory
//	cpgk snapshot save <path> <out>  Build and write a snapshot
//	cpgk snapshot load <file>      Load and verify a snapshot
//	cpgk taint <path>              Run the bounded taint-flow engine
//	cpgk status                    Show resolved configuration
//	cpgk watch <path>              Re-run ingest on file changes
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	fs := flag.NewFlagSet("cpgk", flag.ContinueOnError)
	showVersion := fs.BoolP("version", "V", false, "Show version and exit")
	globals := kernelcfg.RegisterGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cpgk - deterministic CPG kernel CLI

Usage:
  cpgk <command> [options]

Commands:
  ingest <path>              Run the pipeline over a directory, print the result record
  snapshot save <path> <out> Build a CPG and write a snapshot to <out>
  snapshot load <file>       Load a snapshot and verify its seal
  taint <path>               Run the bounded taint-flow engine
  status                     Show resolved configuration
  watch <path>               Re-run ingest whenever files under <path> change

Global Options:
  -c, --config <path>       Path to .kernel/project.yaml
  --json                    Emit the result stream as JSON
  --no-color                Disable color output
  -v, --verbose             Counted but has no effect (no log output)
  -q, --quiet               Suppress non-essential output
  --parallel                Set kernel.parallel (shown by status; parsing always uses one worker per CPU)
  --thread-count <n>        Set kernel.thread_count (shown by status; not read by parsing)
  --max-taint-depth <n>     Taint path length bound
  --pointer-context-k <n>   K-CFA context depth
  --snapshot-dir <dir>      Set kernel.snapshot_dir (shown by status; snapshot save writes to <out>)
  -V, --version             Show version and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *showVersion {
		fmt.Printf("cpgk version %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	initColors(globals.NoColor)

	if globals.JSON {
		globals.Quiet = true
	}

	cfg, err := kernelcfg.LoadConfig(globals.ConfigPath)
	if err != nil {
		cfg = kernelcfg.DefaultConfig()
	}
	globals.Merge(cfg)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	var exitCode int
	switch command {
	case "ingest":
		exitCode = runIngest(rest, cfg, *globals)
	case "snapshot":
		exitCode = runSnapshot(rest, cfg, *globals)
	case "taint":
		exitCode = runTaint(rest, cfg, *globals)
	case "status":
		exitCode = runStatus(rest, cfg, *globals)
	case "watch":
		exitCode = runWatch(rest, cfg, *globals)
	default:
		fmt.Fprintf(os.Stderr, "cpgk: unknown command %q\n", command)
		fs.Usage()
		exitCode = 1
	}
	os.Exit(exitCode)
}
