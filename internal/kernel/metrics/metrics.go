// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes the kernel's Prometheus instrumentation. None of
// these values ever feed a hash (spec.md I5 forbids that categorically) —
// they exist purely for the operator-facing observability spec.md §8
// calls for ("cache-hit counter observable via metrics").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestFilesTotal counts files successfully mapped into an ingestion
	// epoch, across all runs in this process.
	IngestFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "ingest",
		Name:      "files_total",
		Help:      "Total number of files mapped into an ingestion epoch.",
	})

	// ParseCacheHits counts tree-cache reuses (spec.md §4.D step 1:
	// file_id + content_hash both match a prior entry).
	ParseCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "parse",
		Name:      "cache_hits_total",
		Help:      "Number of files whose syntax tree was reused from cache.",
	})

	// ParseCacheMisses counts files that required invoking the grammar
	// engine because no matching cached tree existed.
	ParseCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "parse",
		Name:      "cache_misses_total",
		Help:      "Number of files parsed because no cached tree matched.",
	})

	// SchedulerQueueDepth tracks the number of scheduled tasks whose worker
	// has not yet returned: the scheduler sets it to the task count and
	// each worker decrements it as it finishes.
	SchedulerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cpgk",
		Subsystem: "schedule",
		Name:      "queue_depth",
		Help:      "Number of scheduled tasks not yet finished running.",
	})

	// TaintTruncatedTotal counts taint sources whose search hit the depth
	// bound, once per truncated source (spec.md §4.J's Truncated result).
	TaintTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "taint",
		Name:      "truncated_total",
		Help:      "Number of taint source expansions truncated by the depth bound.",
	})

	// SnapshotBytesWritten tracks the compressed on-disk size of saved
	// snapshots.
	SnapshotBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "snapshot",
		Name:      "bytes_written_total",
		Help:      "Total compressed bytes written across all snapshot saves.",
	})

	// CachestoreTreeHits counts files served from the persistent,
	// content-hash-keyed parse tree store rather than reparsed — the
	// cross-process counterpart of ParseCacheHits, which only covers one
	// process's lifetime.
	CachestoreTreeHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cpgk",
		Subsystem: "cachestore",
		Name:      "tree_hits_total",
		Help:      "Number of files served from the persistent tree store instead of reparsed.",
	})
)
