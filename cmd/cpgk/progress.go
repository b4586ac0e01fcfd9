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
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

// pipelineStages are the four sequential passes one ingest invocation
// makes, in order — the phases the progress bar advances through.
var pipelineStages = []string{"ingest", "parse", "semantic", "cpg"}

// newStageProgressBar returns a bar over len(pipelineStages) steps, or a
// no-op bar when progress reporting is suppressed (quiet mode or JSON
// output, which must not be corrupted by bar redraws — same rule the
// teacher's index command applies).
func newStageProgressBar(globals kernelcfg.GlobalFlags) *progressbar.ProgressBar {
	if globals.Quiet || globals.JSON {
		return progressbar.DefaultBytesSilent(int64(len(pipelineStages)), "")
	}
	return progressbar.NewOptions(len(pipelineStages),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
