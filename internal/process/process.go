// Package process runs bounded-parallel batches with per-item error
// capture and progress reporting.
package process

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/contentmigrate/cm-cli/internal/client"
)

// Result is the outcome of processing one item. Exactly one of Output,
// NotFound, Cancelled, or Err is meaningful.
type Result[O any] struct {
	Output    O
	NotFound  bool
	Cancelled bool
	Err       error
}

// Valid reports whether the result carries a usable output.
func (r Result[O]) Valid() bool {
	return !r.NotFound && !r.Cancelled && r.Err == nil
}

// Options configures a batch run.
type Options[I any] struct {
	// Limit is the maximum number of concurrent invocations. Zero or
	// negative means serial.
	Limit int
	// FailFast cancels the batch on the first error and propagates it.
	FailFast bool
	// ItemInfo renders an item for progress lines.
	ItemInfo func(item I) string
	// Progress is invoked after every completion with the rounded
	// percentage and the completed item's info string.
	Progress func(percent int, info string)
}

// Items maps fn over items with bounded parallelism. Results preserve
// input order regardless of completion order. A client.ErrNotFound from fn
// is recorded as a NotFound result, any other error as an Err result;
// neither aborts the batch unless FailFast is set. A cancelled context
// stops scheduling and marks unstarted items Cancelled.
func Items[I, O any](ctx context.Context, items []I, opts Options[I], fn func(ctx context.Context, item I) (O, error)) ([]Result[O], error) {
	results := make([]Result[O], len(items))
	if len(items) == 0 {
		return results, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.FailFast {
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	done := 0
	total := len(items)

	for i := range items {
		if err := sem.Acquire(runCtx, 1); err != nil {
			// Cancellation: everything not yet scheduled is marked, the
			// in-flight tasks run to completion.
			mu.Lock()
			for j := i; j < len(items); j++ {
				results[j].Cancelled = true
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			output, err := runOne(runCtx, items[i], fn)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[i].Output = output
			case errors.Is(err, client.ErrNotFound):
				results[i].NotFound = true
			case errors.Is(err, context.Canceled):
				results[i].Cancelled = true
			default:
				results[i].Err = err
				if opts.FailFast && firstErr == nil {
					firstErr = err
					cancel()
				}
			}

			done++
			if opts.Progress != nil {
				info := ""
				if opts.ItemInfo != nil {
					info = opts.ItemInfo(items[i])
				}
				opts.Progress(percent(done, total), info)
			}
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func runOne[I, O any](ctx context.Context, item I, fn func(ctx context.Context, item I) (O, error)) (output O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing item: %v", r)
		}
	}()
	return fn(ctx, item)
}

func percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
