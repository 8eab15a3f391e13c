package worker

import "sync"

// Canceller tracks cooperative cancellation flags per job. The orchestrator
// checks the flag once per loop iteration; no fetch is aborted mid-flight,
// so worst-case cancellation latency is one tier timeout.
type Canceller struct {
	mu        sync.Mutex
	cancelled map[string]struct{}
}

// NewCanceller creates an empty registry.
func NewCanceller() *Canceller {
	return &Canceller{
		cancelled: make(map[string]struct{}),
	}
}

// Cancel flags a job for cancellation at its next loop iteration.
func (c *Canceller) Cancel(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled[jobID] = struct{}{}
}

// Cancelled reports whether the job has been flagged.
func (c *Canceller) Cancelled(jobID string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cancelled[jobID]
	return ok
}

// Forget clears the flag once the job reaches a terminal state.
func (c *Canceller) Forget(jobID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancelled, jobID)
}
