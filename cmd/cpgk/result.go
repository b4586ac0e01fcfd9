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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

// resultRecord is spec.md §6's result stream record: one per terminal
// operation, emitted whether the operation succeeded or failed. Stage is
// the kernelerr.Lifecycle state the run reached — Sealed on success, or
// whatever stage was current when it failed.
type resultRecord struct {
	Status      string `json:"status"`
	EpochID     uint64 `json:"epoch_id"`
	Stage       string `json:"stage,omitempty"`
	CPGHash     string `json:"cpg_hash,omitempty"`
	NodeCount   int    `json:"node_count,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

func successRecord(epochID uint64, lc *kernelerr.Lifecycle, cpgHash [32]byte, nodeCount int) resultRecord {
	rec := resultRecord{
		Status:    "success",
		EpochID:   epochID,
		CPGHash:   hex.EncodeToString(cpgHash[:]),
		NodeCount: nodeCount,
	}
	if lc != nil {
		rec.Stage = lc.Current().String()
	}
	return rec
}

// errorRecord builds the error result record. lc is nil when the failure
// happened before a pipeline run began (e.g. file discovery), in which
// case no stage is reported.
func errorRecord(epochID uint64, lc *kernelerr.Lifecycle, err error) resultRecord {
	rec := resultRecord{Status: "error", EpochID: epochID}
	if lc != nil {
		rec.Stage = lc.Current().String()
	}
	if kerr, ok := err.(*kernelerr.Error); ok {
		rec.ErrorKind = kerr.Kind.String()
		rec.ErrorDetail = kerr.Error()
	} else {
		rec.ErrorKind = "Unknown"
		rec.ErrorDetail = err.Error()
	}
	return rec
}

// print writes rec to stdout, as JSON when jsonOutput is set, otherwise as
// color-accented text (color auto-disabled by initColors when not a tty).
func (rec resultRecord) print(jsonOutput bool) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rec)
		return
	}

	if rec.Status == "success" {
		color.New(color.FgGreen, color.Bold).Fprint(os.Stdout, "success")
		fmt.Printf(" epoch=%d stage=%s cpg_hash=%s nodes=%d\n", rec.EpochID, rec.Stage, rec.CPGHash, rec.NodeCount)
		return
	}
	color.New(color.FgRed, color.Bold).Fprint(os.Stdout, "error")
	fmt.Printf(" epoch=%d stage=%s kind=%s detail=%s\n", rec.EpochID, rec.Stage, rec.ErrorKind, rec.ErrorDetail)
}

// printJSON is the shared JSON-encoder used by commands whose output
// isn't a resultRecord (e.g. taint's path listing).
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
