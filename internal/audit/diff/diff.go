// Package diff computes field-level before/after differences for audit
// events. String fields get a line-based unified diff; anything else
// falls back to a structural diff over the canonical JSON rendering.
package diff

import (
	"encoding/json"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/canonical"
)

const (
	// MaxFieldLen bounds string values before diffing and storage.
	MaxFieldLen = 1000
	// TruncationMarker replaces the tail of oversized string values.
	TruncationMarker = "...[TRUNCATED]"

	diffContextLines = 3
)

// Fields computes the union-of-keys diff between two snapshots. A nil
// snapshot is treated as an empty map, so create and delete mutations
// reduce to all-additions and all-deletions respectively.
func Fields(before, after map[string]any) []audit.FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	var changes []audit.FieldChange
	for _, field := range ordered {
		oldValue, hadOld := lookup(before, field)
		newValue, hadNew := lookup(after, field)
		if hadOld && hadNew && canonical.Equal(oldValue, newValue) {
			continue
		}

		change := audit.FieldChange{Field: field}
		switch {
		case !hadOld:
			change.ChangeType = audit.KindAddition
		case !hadNew:
			change.ChangeType = audit.KindDeletion
		default:
			change.ChangeType = audit.KindModification
		}

		change.OldValue = Truncate(oldValue)
		change.NewValue = Truncate(newValue)
		change.DiffText = renderDiff(change.OldValue, change.NewValue)
		changes = append(changes, change)
	}
	return changes
}

// Truncate bounds string values at MaxFieldLen, appending the marker.
// Applied before diffing and before storage so both sides of a diff see
// the same truncation.
func Truncate(v any) any {
	s, ok := v.(string)
	if !ok || len(s) <= MaxFieldLen {
		return v
	}
	return s[:MaxFieldLen] + TruncationMarker
}

// TruncatePayload returns a copy of the snapshot with every string value
// truncated. Nested values pass through untouched; oversized nested
// strings surface through the structural diff rendering instead.
func TruncatePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = Truncate(v)
	}
	return out
}

func lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// renderDiff produces a unified diff between the two values. Strings are
// diffed line by line as-is; other values are diffed over their indented
// canonical JSON form, which yields a readable structural diff.
func renderDiff(oldValue, newValue any) string {
	oldText, oldIsString := oldValue.(string)
	newText, newIsString := newValue.(string)
	if !oldIsString || !newIsString {
		oldText = renderJSON(oldValue)
		newText = renderJSON(newValue)
	}
	if oldText == newText {
		return ""
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "before",
		ToFile:   "after",
		Context:  diffContextLines,
	})
	if err != nil {
		return ""
	}
	return text
}

func renderJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := canonical.Marshal(v)
	if err != nil {
		return ""
	}
	var indented json.RawMessage = b
	pretty, err := json.MarshalIndent(indented, "", "  ")
	if err != nil {
		return string(b)
	}
	return string(pretty)
}
