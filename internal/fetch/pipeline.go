// Package fetch is the bounded-concurrency fan-out helper used by every
// dataset's per-chunk fetch step (spec.md §4.5). It is the per-chunk
// "max_concurrent_blocks" semaphore from spec.md §5, generalized across
// datasets the way the teacher's internal/provider.ExecuteAll generalizes
// fan-out across providers (internal/provider/executor.go).
package fetch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Result pairs one subrequest's value with its error. MapOrdered and
// MapUnordered do not use it.
type Result[T any] struct {
	Value T
	Err   error
}

// MapOrdered runs fn once per item in items, bounded to at most concurrency
// in flight at a time, and returns results in input order regardless of
// completion order. The first error cancels the shared context and is
// returned once the calls already in flight have finished.
func MapOrdered[I any, T any](ctx context.Context, items []I, concurrency int64, fn func(ctx context.Context, item I) (T, error)) ([]T, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(concurrency)
	g, gctx := errgroup.WithContext(ctx)

	out := make([]T, len(items))
	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			v, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MapUnordered is MapOrdered's completion-order variant: the returned slice
// reflects the order in which subrequests actually finished. No dataset
// calls it; sort=none keeps the input order MapOrdered produces.
func MapUnordered[I any, T any](ctx context.Context, items []I, concurrency int64, fn func(ctx context.Context, item I) (T, error)) ([]T, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(concurrency)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make([]T, 0, len(items))

	for _, item := range items {
		item := item
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			v, err := fn(gctx, item)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, v)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
