package writer

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/sequence"
	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// flakyLedger fails Append a configured number of times before
// succeeding, and records dead letters.
type flakyLedger struct {
	failures    int
	failWith    error
	appends     int
	deadLetters []audit.DeadLetter
	dlErr       error
}

func (f *flakyLedger) Append(_ context.Context, build sequence.BuildFunc) (audit.Event, error) {
	f.appends++
	if f.appends <= f.failures {
		return audit.Event{}, f.failWith
	}
	return build(sequence.Allocation{Sequence: uint64(f.appends), PreviousHash: audit.GenesisHash})
}

func (f *flakyLedger) Get(context.Context, string) (audit.Event, error) {
	return audit.Event{}, sentinel.ErrNotFound
}

func (f *flakyLedger) ListAll(context.Context) ([]audit.Event, error) { return nil, nil }

func (f *flakyLedger) ListRange(context.Context, uint64, uint64) ([]audit.Event, error) {
	return nil, nil
}

func (f *flakyLedger) ListByOwner(context.Context, string, int) ([]audit.Event, error) {
	return nil, nil
}

func (f *flakyLedger) DeadLetter(_ context.Context, rec audit.DeadLetter) error {
	if f.dlErr != nil {
		return f.dlErr
	}
	f.deadLetters = append(f.deadLetters, rec)
	return nil
}

func (f *flakyLedger) ListDeadLetters(context.Context, int) ([]audit.DeadLetter, error) {
	return f.deadLetters, nil
}

func testConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func testBuild(alloc sequence.Allocation) (audit.Event, error) {
	return audit.Event{
		ID:           "ev-1",
		Sequence:     alloc.Sequence,
		PreviousHash: alloc.PreviousHash,
		CurrentHash:  "hash-1",
	}, nil
}

func testMutation() audit.Mutation {
	return audit.Mutation{Collection: "documents", EntityID: "doc-1", Type: audit.ChangeUpdate}
}

func newTestWriter(ledger *flakyLedger) *Writer {
	return New(ledger, testConfig(), slog.New(slog.DiscardHandler), nil)
}

func TestWriteFirstAttemptSucceeds(t *testing.T) {
	ledger := &flakyLedger{}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	assert.Equal(t, StatePersisted, outcome.State)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, uint64(1), outcome.Event.Sequence)
	assert.NoError(t, outcome.Err)
	assert.Empty(t, ledger.deadLetters)
}

func TestWriteRetriesTransientFailure(t *testing.T) {
	ledger := &flakyLedger{failures: 2, failWith: errors.New("connection reset")}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	assert.Equal(t, StatePersisted, outcome.State)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Empty(t, ledger.deadLetters)
}

func TestWriteExhaustionDeadLetters(t *testing.T) {
	cause := errors.New("connection reset")
	ledger := &flakyLedger{failures: 10, failWith: cause}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	assert.Equal(t, StateDeadLettered, outcome.State)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, ledger.appends)
	require.ErrorIs(t, outcome.Err, cause)

	require.Len(t, ledger.deadLetters, 1)
	rec := ledger.deadLetters[0]
	assert.Equal(t, "persistence_exhausted", rec.Reason)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, "documents", rec.Source.Collection)
	assert.Equal(t, "doc-1", rec.Source.EntityID)
	assert.Equal(t, audit.ChangeUpdate, rec.ChangeType)
	assert.Contains(t, rec.LastError, "connection reset")
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.FailedAt.IsZero())
	// The raw mutation rides along for replay.
	assert.Equal(t, "doc-1", rec.Payload.EntityID)
}

func TestWriteSigningKeyUnavailableIsFatal(t *testing.T) {
	ledger := &flakyLedger{failures: 10, failWith: sentinel.ErrSigningKeyUnavailable}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	assert.Equal(t, StateDeadLettered, outcome.State)
	// No retries: the key will not appear between attempts.
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, ledger.appends)

	require.Len(t, ledger.deadLetters, 1)
	assert.Equal(t, "signing_key_unavailable", ledger.deadLetters[0].Reason)
}

func TestWriteSequenceConflictExhaustion(t *testing.T) {
	ledger := &flakyLedger{failures: 10, failWith: sentinel.ErrSequenceConflict}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	assert.Equal(t, StateDeadLettered, outcome.State)
	require.Len(t, ledger.deadLetters, 1)
	assert.Equal(t, "sequence_conflict_exhausted", ledger.deadLetters[0].Reason)
}

func TestWriteFailingDeadLetterIsSwallowed(t *testing.T) {
	ledger := &flakyLedger{
		failures: 10,
		failWith: errors.New("down"),
		dlErr:    errors.New("dead letter table down"),
	}
	outcome := newTestWriter(ledger).Write(context.Background(), testMutation(), testBuild)

	// The outcome still reports the terminal state; nothing panics or
	// propagates to the caller.
	assert.Equal(t, StateDeadLettered, outcome.State)
	assert.Empty(t, ledger.deadLetters)
}
