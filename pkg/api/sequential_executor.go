package api

import (
	"context"
	"sync"
)

// SequentialExecutor lets only one enrichment run talk to the provider at a time.
// Runs queue on the mutex; pacing inside a run is the RateLimiter's job.
type SequentialExecutor struct {
	mu sync.Mutex
}

// NewSequentialExecutor creates a new sequential executor
func NewSequentialExecutor() *SequentialExecutor {
	return &SequentialExecutor{}
}

// Execute waits for any previous run to finish, then runs fn
func (se *SequentialExecutor) Execute(ctx context.Context, fn func() error) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	// A caller that gave up while queued does not get to run
	if err := ctx.Err(); err != nil {
		return err
	}

	return fn()
}

// Busy reports whether a run is executing right now
func (se *SequentialExecutor) Busy() bool {
	if se.mu.TryLock() {
		se.mu.Unlock()
		return false
	}
	return true
}
