// Package parallel runs data-parallel kernels. Every kernel handed to a Pool
// must write only storage owned by its own index range; For returns after all
// ranges finish, which is the only ordering guarantee between kernels.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool partitions an index space into contiguous ranges and runs them on at
// most Workers goroutines.
type Pool struct {
	workers int
}

// Serial runs every kernel inline on the calling goroutine
var Serial = &Pool{workers: 1}

// NewPool creates a pool with the given worker count; workers <= 0 means one
// worker per GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the worker count
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// For calls fn once per contiguous chunk [lo, hi) covering [0, n)
func (p *Pool) For(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}

	chunks := min(p.Workers(), n)
	if chunks <= 1 {
		fn(0, n)
		return
	}

	size := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(chunks)
	for lo := 0; lo < n; lo += size {
		lo, hi := lo, min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
