// Package parallel fans column-wise work out over the available CPU cores.
//
// Stages in tabprep are independent per column, so the unit of work is a
// column index rather than a row range.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the column count at or below which work runs on the
// calling goroutine.
const DefaultThreshold = 8

// Parallelize divides items into contiguous ranges, one per CPU core, and
// calls fn for each range concurrently. The first non-nil error is returned
// after every range has finished.
func Parallelize(items int, fn func(start, end int) error) error {
	if items == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over [0, items) when items
// does not exceed threshold, and through Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int) error) error {
	if items <= threshold {
		return fn(0, items)
	}
	return Parallelize(items, fn)
}

// ForEach calls fn once per index in [0, items). Each index is visited by
// exactly one goroutine, so fn may write to slot i of a preallocated slice
// without locking.
func ForEach(items int, fn func(i int) error) error {
	return ParallelizeWithThreshold(items, DefaultThreshold, func(start, end int) error {
		for i := start; i < end; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	})
}
