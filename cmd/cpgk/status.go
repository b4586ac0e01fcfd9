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
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/cpgkernel/cpgk/internal/kernelcfg"
)

func runStatus(args []string, cfg *kernelcfg.Config, globals kernelcfg.GlobalFlags) int {
	fs := flag.NewFlagSet("cpgk status", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090) until interrupted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if globals.JSON {
		printJSON(cfg)
		return 0
	}

	fmt.Printf("snapshot_dir:      %s\n", cfg.Kernel.SnapshotDir)
	fmt.Printf("data_dir:          %s\n", cfg.Kernel.DataDir)
	fmt.Printf("max_taint_depth:   %d\n", cfg.Kernel.MaxTaintDepth)
	fmt.Printf("pointer_context_k: %d\n", cfg.Kernel.PointerContextK)
	fmt.Printf("parallel:          %v\n", cfg.Kernel.Parallel)
	fmt.Printf("thread_count:      %d\n", cfg.Kernel.ThreadCount)
	fmt.Printf("exclude:           %v\n", cfg.Kernel.Exclude)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		fmt.Printf("metrics:           http://%s/metrics\n", *metricsAddr)
		return runUntilInterrupted(srv)
	}
	return 0
}

func runUntilInterrupted(srv *http.Server) int {
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return 1
	}
	return 0
}
