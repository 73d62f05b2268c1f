// Package workpool provides the bounded fan-out/fan-in helper used to
// decode collection blobs in parallel once a batch grows large enough to
// make per-item decode overhead worth spreading across cores.
//
// Grounded directly on the chunk-and-fan-out shape of
// zephyraoss-poppy-pkgs/internal/indexer.parseManifests: split the input
// into a jobs channel, run a capped number of worker goroutines, have
// each write its result into the output slice at the job's index, wait.
package workpool

import (
	"runtime"
	"sync"
)

// Width returns the worker count used for CPU-bound fan-out: NumCPU,
// floor 2.
func Width() int {
	w := runtime.NumCPU()
	if w < 2 {
		w = 2
	}
	return w
}

// Map runs fn over every element of items using Width() worker
// goroutines and returns the results in input order. fn must be safe to
// call concurrently from multiple goroutines.
func Map[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}

	type job struct {
		idx  int
		item T
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	workers := Width()
	if workers > len(items) {
		workers = len(items)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out[j.idx] = fn(j.item)
			}
		}()
	}
	for i, item := range items {
		jobs <- job{idx: i, item: item}
	}
	close(jobs)
	wg.Wait()
	return out
}

// Go runs fn on a freshly spawned goroutine. It is the unbounded-width
// dispatch used for independent public-API calls: Go's scheduler already
// gives unbounded concurrent dispatch for free, so no explicit queue data
// structure sits behind this beyond the runtime's own.
func Go(fn func()) {
	go fn()
}
