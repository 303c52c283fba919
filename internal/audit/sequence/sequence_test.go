package sequence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsuels/auditledger/internal/audit"
)

func TestCounterExtendLinksChain(t *testing.T) {
	c := NewCounter()

	first, err := c.Extend(func(alloc Allocation) (audit.Event, error) {
		assert.Equal(t, uint64(1), alloc.Sequence)
		assert.Equal(t, audit.GenesisHash, alloc.PreviousHash)
		return audit.Event{Sequence: alloc.Sequence, PreviousHash: alloc.PreviousHash, CurrentHash: "hash-1"}, nil
	})
	require.NoError(t, err)

	second, err := c.Extend(func(alloc Allocation) (audit.Event, error) {
		assert.Equal(t, uint64(2), alloc.Sequence)
		assert.Equal(t, "hash-1", alloc.PreviousHash)
		return audit.Event{Sequence: alloc.Sequence, PreviousHash: alloc.PreviousHash, CurrentHash: "hash-2"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, first.CurrentHash, second.PreviousHash)

	seq, head := c.Head()
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, "hash-2", head)
}

func TestCounterFailedBuildConsumesNothing(t *testing.T) {
	c := NewCounter()
	buildErr := errors.New("build failed")

	_, err := c.Extend(func(Allocation) (audit.Event, error) {
		return audit.Event{}, buildErr
	})
	require.ErrorIs(t, err, buildErr)

	seq, head := c.Head()
	assert.Equal(t, uint64(0), seq)
	assert.Equal(t, audit.GenesisHash, head)

	// The next successful extension still gets sequence 1.
	event, err := c.Extend(func(alloc Allocation) (audit.Event, error) {
		return audit.Event{Sequence: alloc.Sequence, CurrentHash: "hash-1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), event.Sequence)
}

func TestCounterConcurrentExtendsAreGapless(t *testing.T) {
	c := NewCounter()
	const writers = 50

	type result struct {
		event audit.Event
		err   error
	}
	done := make(chan result, writers)
	for i := 0; i < writers; i++ {
		go func() {
			event, err := c.Extend(func(alloc Allocation) (audit.Event, error) {
				return audit.Event{
					Sequence:     alloc.Sequence,
					PreviousHash: alloc.PreviousHash,
					CurrentHash:  fmt.Sprintf("hash-%d", alloc.Sequence),
				}, nil
			})
			done <- result{event: event, err: err}
		}()
	}

	bySequence := make(map[uint64]audit.Event, writers)
	for i := 0; i < writers; i++ {
		r := <-done
		require.NoError(t, r.err)
		bySequence[r.event.Sequence] = r.event
	}

	require.Len(t, bySequence, writers)
	for seq := uint64(1); seq <= writers; seq++ {
		event, ok := bySequence[seq]
		require.True(t, ok, "missing sequence %d", seq)
		if seq == 1 {
			assert.Equal(t, audit.GenesisHash, event.PreviousHash)
			continue
		}
		assert.Equal(t, bySequence[seq-1].CurrentHash, event.PreviousHash)
	}
}
