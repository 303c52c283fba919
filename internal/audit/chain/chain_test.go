package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsuels/auditledger/internal/audit"
)

func sampleEvent() audit.Event {
	return audit.Event{
		ID:           "11111111-1111-1111-1111-111111111111",
		Sequence:     1,
		PreviousHash: audit.GenesisHash,
		EventType:    audit.EventDocumentUpdated,
		Source: audit.Source{
			Collection: "documents",
			EntityID:   "doc-1",
			Path:       "documents/doc-1",
		},
		Change: audit.Change{
			Type:  audit.ChangeUpdate,
			After: map[string]any{"title": "v2"},
		},
		Technical: audit.Technical{
			Service:   "auditledger",
			Version:   "test",
			Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		Compliance: audit.Compliance{
			DataClassification: audit.ClassConfidential,
			Frameworks:         []audit.Framework{audit.FrameworkGDPR},
			RetentionDays:      2190,
		},
	}
}

func TestComputeDeterministic(t *testing.T) {
	first, err := Compute(sampleEvent())
	require.NoError(t, err)
	second, err := Compute(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestComputeIgnoresCurrentHashAndIntegrity(t *testing.T) {
	base, err := Compute(sampleEvent())
	require.NoError(t, err)

	sealed := sampleEvent()
	sealed.CurrentHash = base
	sealed.Integrity = audit.Integrity{
		Signature:   "deadbeef",
		WitnessHash: "cafebabe",
		Immutable:   true,
	}
	resealed, err := Compute(sealed)
	require.NoError(t, err)

	assert.Equal(t, base, resealed)
}

func TestComputeCoversEveryOtherField(t *testing.T) {
	base, err := Compute(sampleEvent())
	require.NoError(t, err)

	mutations := map[string]func(*audit.Event){
		"sequence":      func(e *audit.Event) { e.Sequence = 2 },
		"previous hash": func(e *audit.Event) { e.PreviousHash = "ff" },
		"event type":    func(e *audit.Event) { e.EventType = audit.EventDocumentDeleted },
		"entity":        func(e *audit.Event) { e.Source.EntityID = "doc-2" },
		"payload":       func(e *audit.Event) { e.Change.After = map[string]any{"title": "v3"} },
		"timestamp":     func(e *audit.Event) { e.Technical.Timestamp = e.Technical.Timestamp.Add(time.Nanosecond) },
		"actor":         func(e *audit.Event) { e.Actor = &audit.Actor{ID: "user-1"} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			e := sampleEvent()
			mutate(&e)
			got, err := Compute(e)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}
