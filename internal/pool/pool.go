// Package pool runs a bounded-concurrency fan-out over an ordered list of
// items, preserving per-item result ordering regardless of completion
// order. An error is just op's per-item result and does not affect other
// items; a panic in op is not recovered.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ProgressEvent reports how many of a Run's items have completed.
type ProgressEvent struct {
	Completed int
	Total     int
}

const (
	defaultBatchInterval = 100 * time.Millisecond
	defaultBatchSize     = 1
)

// Run applies op to every item in items with at most maxConcurrency
// invocations in flight, returning one result per item in input order.
// A single dispatcher goroutine hands indices out in order (a FIFO cursor
// over the input), so results still land at results[index] regardless of
// which worker finishes first. Cancelling ctx stops the dispatcher from
// starting new work; items never started keep their zero R value.
//
// onProgress, if non-nil, is rate-limited: it fires only when at least
// defaultBatchSize items have completed since its last fire AND
// defaultBatchInterval has elapsed, or unconditionally on the final item.
// It runs synchronously on the goroutine of the worker that completed the
// item, so a slow callback delays that worker.
func Run[T, R any](ctx context.Context, items []T, op func(context.Context, T, int) R, maxConcurrency int, onProgress func(ProgressEvent)) []R {
	n := len(items)
	results := make([]R, n)
	if n == 0 {
		return results
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var wg sync.WaitGroup
	var completed atomic.Int64

	var progressMu sync.Mutex
	lastFireTime := time.Time{}
	lastFireCount := 0

	fireProgress := func(final bool) {
		if onProgress == nil {
			return
		}
		done := int(completed.Load())

		progressMu.Lock()
		sinceCount := done - lastFireCount
		sinceTime := time.Since(lastFireTime)
		shouldFire := final || (sinceCount >= defaultBatchSize && sinceTime >= defaultBatchInterval)
		if shouldFire {
			lastFireCount = done
			lastFireTime = time.Now()
		}
		progressMu.Unlock()

		if shouldFire {
			onProgress(ProgressEvent{Completed: done, Total: n})
		}
	}

	for idx := 0; idx < n; idx++ {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(item T, index int) {
			defer wg.Done()
			defer sem.Release(1)
			results[index] = op(ctx, item, index)
			done := completed.Add(1)
			fireProgress(int(done) == n)
		}(items[idx], idx)
	}

	wg.Wait()
	return results
}
