// Package sequence manages the chain head: the single shared, contended
// resource of the pipeline. Reading the previous hash and allocating the
// next sequence are one atomic step; doing them separately would let two
// concurrent writers observe the same previous hash and fork the chain.
package sequence

import (
	"sync"

	"github.com/fsuels/auditledger/internal/audit"
)

// Allocation couples the next sequence number with the hash it extends.
type Allocation struct {
	Sequence     uint64
	PreviousHash string
}

// BuildFunc constructs the fully hashed and signed event for an
// allocation. It runs inside the allocator's critical section or
// transaction, so the returned event's currentHash becomes the new chain
// head only if the allocation commits.
type BuildFunc func(alloc Allocation) (audit.Event, error)

// Counter is the in-memory allocator, guarded by a mutex. It backs the
// memory store and unit tests; production uses the Postgres chain-head
// row with optimistic concurrency (see the postgres subpackage).
type Counter struct {
	mu   sync.Mutex
	seq  uint64
	head string
}

func NewCounter() *Counter {
	return &Counter{head: audit.GenesisHash}
}

// Extend atomically allocates the next sequence, invokes build with it,
// and advances the head to the built event's hash. If build fails the
// head is left untouched and the sequence is not consumed.
func (c *Counter) Extend(build BuildFunc) (audit.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	event, err := build(Allocation{Sequence: c.seq + 1, PreviousHash: c.head})
	if err != nil {
		return audit.Event{}, err
	}
	c.seq = event.Sequence
	c.head = event.CurrentHash
	return event, nil
}

// Head returns the current sequence and head hash.
func (c *Counter) Head() (uint64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq, c.head
}
