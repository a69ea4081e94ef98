package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "kycpass/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Busy      int32
	Stale     int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Busy + r.Stale
}

// RunConcurrent executes fn in parallel goroutines and collects results.
// Errors are categorized as busy (single-flight rejection), stale (account
// changed mid-call) or generic error.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, busy, stale atomic.Int32

	// Release all goroutines together so they actually overlap.
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeBusy):
				busy.Add(1)
			case dErrors.HasCode(err, dErrors.CodeStaleIdentity):
				stale.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Busy:      busy.Load(),
		Stale:     stale.Load(),
	}
}
