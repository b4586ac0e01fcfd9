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
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/cpgkernel/cpgk/internal/kernel/ingest"
	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

// discoverFiles walks root for regular files, resolves symlinks, applies
// cfg's exclude globs, and returns the result as the lexicographically
// sorted, canonicalized absolute path list spec.md §6 requires as kernel
// input. Symlinks are resolved before submission per spec.md §6; a
// symlink that cannot be resolved (broken link) is skipped rather than
// aborting the whole walk, since it was never a real file to analyze.
func discoverFiles(root string, cfg *kernelcfg.Config) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		resolved, rerr := filepath.EvalSymlinks(path)
		if rerr != nil {
			return nil // broken symlink or transient stat failure: skip, don't abort
		}
		paths = append(paths, resolved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)

	return ingest.FilterExcluded(paths, cfg.Kernel.Exclude)
}
