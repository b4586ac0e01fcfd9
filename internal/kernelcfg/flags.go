// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package kernelcfg

import (
	flag "github.com/spf13/pflag"
)

// GlobalFlags holds the CLI flags that apply across every cmd/cpgk
// subcommand, mirroring the teacher's GlobalFlags shape.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	NoColor    bool
	Verbose    int
	Quiet      bool
	Parallel   bool
	ThreadCount uint32
	MaxTaintDepth uint32
	PointerContextK uint32
	SnapshotDir string
}

// RegisterGlobalFlags registers the global flag set on fs and returns the
// struct its fields are bound to. Call Parse on fs, then Merge to layer
// these overrides onto a loaded Config.
func RegisterGlobalFlags(fs *flag.FlagSet) *GlobalFlags {
	g := &GlobalFlags{}
	fs.StringVarP(&g.ConfigPath, "config", "c", "", "Path to .kernel/project.yaml (default: auto-discover)")
	fs.BoolVar(&g.JSON, "json", false, "Output the result stream as JSON")
	fs.BoolVar(&g.NoColor, "no-color", false, "Disable color output")
	fs.CountVarP(&g.Verbose, "verbose", "v", "Verbosity count; has no effect, cpgk writes no log output")
	fs.BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress non-essential output")
	fs.BoolVar(&g.Parallel, "parallel", false, "Set kernel.parallel in the resolved config shown by status; parsing always uses one worker per CPU")
	fs.Uint32Var(&g.ThreadCount, "thread-count", 0, "Set kernel.thread_count in the resolved config shown by status; parsing does not read it")
	fs.Uint32Var(&g.MaxTaintDepth, "max-taint-depth", 0, "Taint path length bound (0 = use config/default)")
	fs.Uint32Var(&g.PointerContextK, "pointer-context-k", 0, "K-CFA context depth (0 = use config/default)")
	fs.StringVar(&g.SnapshotDir, "snapshot-dir", "", "Set kernel.snapshot_dir in the resolved config shown by status; snapshot save writes to its <out> argument")
	fs.SetInterspersed(false)
	return g
}

// Merge layers non-zero flag values from g onto cfg, flags taking
// precedence over file and environment values per the teacher's
// file-then-env-then-flags precedence order.
func (g *GlobalFlags) Merge(cfg *Config) {
	if g.Parallel {
		cfg.Kernel.Parallel = true
	}
	if g.ThreadCount != 0 {
		cfg.Kernel.ThreadCount = g.ThreadCount
	}
	if g.MaxTaintDepth != 0 {
		cfg.Kernel.MaxTaintDepth = g.MaxTaintDepth
	}
	if g.PointerContextK != 0 {
		cfg.Kernel.PointerContextK = g.PointerContextK
	}
	if g.SnapshotDir != "" {
		cfg.Kernel.SnapshotDir = g.SnapshotDir
	}
	if g.NoColor {
		cfg.Logging.Color = false
	}
}
