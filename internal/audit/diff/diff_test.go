package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsuels/auditledger/internal/audit"
)

func TestFieldsCreate(t *testing.T) {
	changes := Fields(nil, map[string]any{"a": float64(1)})

	require.Len(t, changes, 1)
	assert.Equal(t, "a", changes[0].Field)
	assert.Equal(t, audit.KindAddition, changes[0].ChangeType)
	assert.Nil(t, changes[0].OldValue)
	assert.Equal(t, float64(1), changes[0].NewValue)
}

func TestFieldsDelete(t *testing.T) {
	changes := Fields(map[string]any{"a": "gone"}, nil)

	require.Len(t, changes, 1)
	assert.Equal(t, audit.KindDeletion, changes[0].ChangeType)
	assert.Equal(t, "gone", changes[0].OldValue)
	assert.Nil(t, changes[0].NewValue)
}

func TestFieldsModification(t *testing.T) {
	before := map[string]any{"a": float64(1), "b": float64(2)}
	after := map[string]any{"a": float64(1), "b": float64(3)}

	changes := Fields(before, after)

	require.Len(t, changes, 1)
	assert.Equal(t, "b", changes[0].Field)
	assert.Equal(t, audit.KindModification, changes[0].ChangeType)
	assert.Equal(t, float64(2), changes[0].OldValue)
	assert.Equal(t, float64(3), changes[0].NewValue)
}

func TestFieldsUnchangedSkipped(t *testing.T) {
	same := map[string]any{"a": float64(1), "b": "x"}
	assert.Empty(t, Fields(same, map[string]any{"b": "x", "a": float64(1)}))
}

func TestFieldsSortedByName(t *testing.T) {
	changes := Fields(nil, map[string]any{"zeta": 1, "alpha": 2, "mid": 3})

	require.Len(t, changes, 3)
	assert.Equal(t, "alpha", changes[0].Field)
	assert.Equal(t, "mid", changes[1].Field)
	assert.Equal(t, "zeta", changes[2].Field)
}

func TestFieldsExplicitNilValueIsModification(t *testing.T) {
	changes := Fields(map[string]any{"a": "x"}, map[string]any{"a": nil})

	require.Len(t, changes, 1)
	assert.Equal(t, audit.KindModification, changes[0].ChangeType)
	assert.Nil(t, changes[0].NewValue)
}

func TestStringDiffText(t *testing.T) {
	before := map[string]any{"body": "line one\nline two\nline three"}
	after := map[string]any{"body": "line one\nline 2\nline three"}

	changes := Fields(before, after)

	require.Len(t, changes, 1)
	text := changes[0].DiffText
	assert.Contains(t, text, "--- before")
	assert.Contains(t, text, "+++ after")
	assert.Contains(t, text, "-line two")
	assert.Contains(t, text, "+line 2")
}

func TestStructuredDiffText(t *testing.T) {
	before := map[string]any{"meta": map[string]any{"status": "draft", "rev": float64(1)}}
	after := map[string]any{"meta": map[string]any{"status": "final", "rev": float64(1)}}

	changes := Fields(before, after)

	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].DiffText, `"draft"`)
	assert.Contains(t, changes[0].DiffText, `"final"`)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", MaxFieldLen+50)

	got, ok := Truncate(long).(string)
	require.True(t, ok)
	assert.Len(t, got, MaxFieldLen+len(TruncationMarker))
	assert.True(t, strings.HasSuffix(got, TruncationMarker))

	exact := strings.Repeat("x", MaxFieldLen)
	assert.Equal(t, exact, Truncate(exact))
	assert.Equal(t, 42, Truncate(42))
	assert.Nil(t, Truncate(nil))
}

func TestTruncatePayload(t *testing.T) {
	long := strings.Repeat("y", MaxFieldLen+1)
	payload := map[string]any{"long": long, "short": "ok", "num": float64(7)}

	out := TruncatePayload(payload)

	assert.True(t, strings.HasSuffix(out["long"].(string), TruncationMarker))
	assert.Equal(t, "ok", out["short"])
	assert.Equal(t, float64(7), out["num"])
	// Input is never mutated.
	assert.Equal(t, long, payload["long"])

	assert.Nil(t, TruncatePayload(nil))
}

func TestDiffOfTruncatedValues(t *testing.T) {
	before := map[string]any{"body": strings.Repeat("a", MaxFieldLen+500)}
	after := map[string]any{"body": strings.Repeat("a", MaxFieldLen+900)}

	changes := Fields(before, after)

	// The raw values differ, so a modification is recorded, but both sides
	// truncate to the same bounded value and the rendered diff is empty.
	require.Len(t, changes, 1)
	assert.Equal(t, audit.KindModification, changes[0].ChangeType)
	assert.Equal(t, changes[0].OldValue, changes[0].NewValue)
	assert.Empty(t, changes[0].DiffText)
}
