package hydro

import (
	"runtime"
	"sync"
)

// ParallelFor executes fn in parallel over the range [0, n) split into at
// most workers contiguous chunks. A non-positive workers uses GOMAXPROCS.
// worker identifies the chunk so callers can keep per-worker accumulators.
func ParallelFor(n, workers int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}

	wg.Wait()
}
