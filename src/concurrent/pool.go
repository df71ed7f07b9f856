package concurrent

import (
	"context"
	"sync"
)

// WorkerPool bounds how many blocking calls run at once.
type WorkerPool struct {
	maxWorkers int
	sem        chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified max workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		sem:        make(chan struct{}, maxWorkers),
	}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

// Do executes a function with worker pool concurrency control
func (wp *WorkerPool) Do(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.sem <- struct{}{}:
		defer func() { <-wp.sem }()
		return fn()
	}
}

// Submit runs fn on a pool worker and waits for its result. The caller stops
// waiting when ctx is done; fn keeps its slot until it returns.
func Submit[T any](ctx context.Context, wp *WorkerPool, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	var zero T

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case wp.sem <- struct{}{}:
	}

	done := make(chan result, 1)
	go func() {
		defer func() { <-wp.sem }()
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

// ParallelMap executes a function on each item in parallel and returns results
// in input order along with the first error encountered.
func ParallelMap[T, R any](ctx context.Context, items []T, fn func(T) (R, error), maxConcurrency int) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
				results[idx], errs[idx] = fn(val)
			}
		}(i, item)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
