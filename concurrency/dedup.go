package concurrency

import "sync"

// Dedup collapses concurrently in-flight deliveries of the same
// (thread_id, msg_id) pair into a single execution. This covers the
// narrow race the thread lock alone does not: two goroutines racing to
// acquire the lock for the same msg_id before either has persisted it
// to Event.Msgs. The second caller waits for the first's result instead
// of re-running the pipeline.
type Dedup struct {
	mu       sync.Mutex
	inflight map[string]*inflightEntry
}

type inflightEntry struct {
	done   chan struct{}
	result any
	err    error
}

// NewDedup creates a new in-flight message deduplicator.
func NewDedup() *Dedup {
	return &Dedup{inflight: make(map[string]*inflightEntry)}
}

// Key builds the dedup key for a thread/message pair.
func Key(threadID, msgID string) string {
	return threadID + "|" + msgID
}

// TryStart checks whether an identical delivery is already in flight.
// If isNew is true, the caller owns the work and must call Complete
// when done. If false, the caller should wait on entry.Wait().
func (d *Dedup) TryStart(key string) (entry *inflightEntry, isNew bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, exists := d.inflight[key]; exists {
		return e, false
	}
	e := &inflightEntry{done: make(chan struct{})}
	d.inflight[key] = e
	return e, true
}

// Complete records the result and wakes any waiters.
func (d *Dedup) Complete(key string, result any, err error) {
	d.mu.Lock()
	e, exists := d.inflight[key]
	delete(d.inflight, key)
	d.mu.Unlock()

	if exists {
		e.result = result
		e.err = err
		close(e.done)
	}
}

// Wait blocks until the owning goroutine calls Complete, then returns
// its result.
func (e *inflightEntry) Wait() (any, error) {
	<-e.done
	return e.result, e.err
}
