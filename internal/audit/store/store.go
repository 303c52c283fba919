// Package store defines the append-only ledger contract. Events enter
// through Append, which couples sequence allocation, hashing and the
// insert in one atomic extension of the chain; everything else is
// read-only over already-persisted, immutable rows.
package store

import (
	"context"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/sequence"
)

// Ledger is the append-only audit event store.
type Ledger interface {
	// Append atomically extends the chain: it reads the head, runs build
	// with the resulting allocation, persists the built event and
	// advances the head to its hash. Append is idempotent by event ID:
	// replaying a build whose ID is already persisted returns the stored
	// event unchanged.
	Append(ctx context.Context, build sequence.BuildFunc) (audit.Event, error)

	// Get returns a persisted event by ID.
	Get(ctx context.Context, id string) (audit.Event, error)

	// ListAll returns every persisted event ordered by sequence.
	ListAll(ctx context.Context) ([]audit.Event, error)

	// ListRange returns the events with sequences in [from, to],
	// ascending. Exports use it to carry the chain links surrounding an
	// owner's events.
	ListRange(ctx context.Context, from, to uint64) ([]audit.Event, error)

	// ListByOwner returns the most recent events for an owner identity,
	// newest first, capped at limit.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]audit.Event, error)

	// DeadLetter records a failed event for later reconciliation.
	DeadLetter(ctx context.Context, rec audit.DeadLetter) error

	// ListDeadLetters returns recent dead-letter records, newest first.
	ListDeadLetters(ctx context.Context, limit int) ([]audit.DeadLetter, error)
}
