// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule implements spec.md §4.H: the deterministic scheduler.
// Tasks carry pre-assigned sequential ids (derived from file ordering,
// and within a file, function ordering), execute across worker
// goroutines in whatever order the pool gets to them, and commit their
// results to the caller in strict task-id order regardless of finish
// order.
package schedule

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cpgkernel/cpgk/internal/kernel/metrics"
)

// TaskID is a task's position in the serially-built execution plan.
type TaskID uint64

// Task is one unit of work. Run must be pure in its inputs and produce a
// self-contained result — spec.md §4.H: "No shared mutable state is
// observable by tasks." Workers never retry or resume mid-task; the only
// suspension point is the task boundary itself.
type Task struct {
	ID  TaskID
	Run func(ctx context.Context) (any, error)
}

// Result is one task's sealed output, identified by the TaskID that
// produced it.
type Result struct {
	ID    TaskID
	Value any
}

// Run executes tasks with up to maxWorkers concurrent goroutines (0 means
// runtime.NumCPU()), then invokes commit once per task in strictly
// ascending TaskID order. Tasks must already carry distinct, plan-assigned
// ids; Run does not assign or reorder them.
//
// The commit pass only begins after every task has produced a sealed
// result buffer (or the plan has failed) — mirroring spec.md §4.H's
// cancellation contract: the whole plan is cancelled as a unit, so the
// caller's merger never observes a prefix of committed results alongside
// a task that failed after it.
func Run(ctx context.Context, tasks []Task, maxWorkers int, commit func(Result) error) error {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	results := make([]Result, len(sorted))
	metrics.SchedulerQueueDepth.Set(float64(len(sorted)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, task := range sorted {
		i, task := i, task
		g.Go(func() error {
			defer metrics.SchedulerQueueDepth.Dec()
			val, err := task.Run(gctx)
			if err != nil {
				return err
			}
			results[i] = Result{ID: task.ID, Value: val}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if err := commit(r); err != nil {
			return err
		}
	}
	return nil
}
