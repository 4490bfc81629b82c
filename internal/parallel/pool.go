// Package parallel provides a bounded worker pool for per-repository work.
package parallel

import (
	"context"
	"sync"
)

// Run calls fn for each item using at most workers goroutines and returns
// the results in input order. onResult, if non-nil, is called from a single
// goroutine as each result completes, so it may write to stdout without
// locking. Items not yet started when ctx is cancelled are skipped and
// their slot keeps R's zero value.
func Run[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) R, onResult func(completed, total int, result R)) []R {
	total := len(items)
	if total == 0 {
		return nil
	}
	workers = max(1, min(workers, total))

	type done struct {
		i int
		r R
	}
	jobs := make(chan int)
	out := make(chan done, total)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out <- done{i: i, r: fn(ctx, items[i])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]R, total)
	completed := 0
	for d := range out {
		results[d.i] = d.r
		completed++
		if onResult != nil {
			onResult(completed, total, d.r)
		}
	}
	return results
}
