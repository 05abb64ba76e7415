// Package parallel provides the bounded worker pool used to fan out
// independent model fits (K-Means restarts, forest trees).
//
// Work items carry their own index so results come back in input order,
// and every item is expected to derive its randomness from that index.
// The output of a fan-out therefore never depends on goroutine scheduling.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool bounds the number of goroutines used by a fan-out.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool. Non-positive counts default to runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// ProcessIndexed runs worker over items in parallel, preserving order.
// The first failure (or ctx cancellation) stops dispatching further items.
// When several items fail, the error of the lowest index is returned.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	itemCh := make(chan indexedItem[T])
	resultCh := make(chan indexedResult[R], len(items))

	workers := min(wp.numWorkers, len(items))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if ctx.Err() != nil {
					continue
				}
				result, err := worker(item.index, item.value)
				if err != nil {
					cancel()
				}
				resultCh <- indexedResult[R]{index: item.index, result: result, err: err}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	done := make([]bool, len(items))
	firstErr, errIndex := error(nil), len(items)
	for r := range resultCh {
		results[r.index] = r.result
		done[r.index] = true
		if r.err != nil && r.index < errIndex {
			firstErr, errIndex = r.err, r.index
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	for _, ok := range done {
		if !ok {
			if err := context.Cause(ctx); err != nil {
				return nil, err
			}
			return nil, context.Canceled
		}
	}
	return results, nil
}

type indexedItem[T any] struct {
	index int
	value T
}

type indexedResult[R any] struct {
	index  int
	result R
	err    error
}
