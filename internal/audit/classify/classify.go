// Package classify maps entity payloads to data-sensitivity labels and
// compliance frameworks, and redacts sensitive fields before snapshots
// are embedded in audit events.
//
// The policy table here is configuration, not pipeline logic: labels and
// field lists can change without touching hashing or persistence. Both
// Classify and Redact are pure and deterministic for a given payload.
package classify

import (
	"context"
	"strings"

	"github.com/fsuels/auditledger/internal/audit"
)

// Result is the classification outcome for one payload.
type Result struct {
	Label      audit.Classification
	Frameworks []audit.Framework
}

// Classifier assigns a sensitivity label and framework tags.
type Classifier interface {
	Classify(ctx context.Context, collection string, payload map[string]any) (Result, error)
}

// RedactionMarker replaces sensitive field values in stored snapshots.
const RedactionMarker = "[REDACTED]"

// sensitiveFields are redacted whenever the payload classifies as
// confidential or restricted. Matching is case-insensitive on the
// normalized field name.
var sensitiveFields = map[string]struct{}{
	"password":        {},
	"ssn":             {},
	"social_security": {},
	"credit_card":     {},
	"card_number":     {},
	"cvv":             {},
	"bank_account":    {},
	"routing_number":  {},
	"tax_id":          {},
	"api_key":         {},
	"secret":          {},
	"token":           {},
}

// collectionPolicy is the default label/framework table by collection.
var collectionPolicy = map[string]Result{
	"users":     {Label: audit.ClassConfidential, Frameworks: []audit.Framework{audit.FrameworkGDPR, audit.FrameworkSOX}},
	"documents": {Label: audit.ClassConfidential, Frameworks: []audit.Framework{audit.FrameworkGDPR}},
	"payments":  {Label: audit.ClassRestricted, Frameworks: []audit.Framework{audit.FrameworkPCI, audit.FrameworkSOX}},
	"orders":    {Label: audit.ClassRestricted, Frameworks: []audit.Framework{audit.FrameworkPCI, audit.FrameworkSOX}},
	"policies":  {Label: audit.ClassInternal, Frameworks: []audit.Framework{audit.FrameworkSOX}},
}

var defaultPolicy = Result{Label: audit.ClassInternal, Frameworks: []audit.Framework{audit.FrameworkSOX}}

// Policy is the built-in table-driven classifier.
type Policy struct{}

func NewPolicy() *Policy { return &Policy{} }

// Classify resolves the label from the collection table, escalating to
// restricted when the payload carries payment-grade fields.
func (p *Policy) Classify(_ context.Context, collection string, payload map[string]any) (Result, error) {
	result, ok := collectionPolicy[collection]
	if !ok {
		result = defaultPolicy
	}
	if result.Label != audit.ClassRestricted && containsPaymentData(payload) {
		result = Result{
			Label:      audit.ClassRestricted,
			Frameworks: appendFramework(result.Frameworks, audit.FrameworkPCI),
		}
	}
	return result, nil
}

// Fallback is the most conservative classification, used when a
// classifier fails. Never falls back to public.
func Fallback() Result {
	return Result{
		Label:      audit.ClassConfidential,
		Frameworks: []audit.Framework{audit.FrameworkSOX, audit.FrameworkGDPR, audit.FrameworkPCI},
	}
}

// Redact returns a copy of payload with sensitive fields replaced by the
// redaction marker. Labels below confidential pass through unchanged.
// Nested objects are redacted recursively; the input is never mutated.
func Redact(payload map[string]any, label audit.Classification) map[string]any {
	if payload == nil {
		return nil
	}
	if label != audit.ClassConfidential && label != audit.ClassRestricted {
		return clone(payload)
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if isSensitive(k) {
			out[k] = RedactionMarker
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Redact(nested, label)
			continue
		}
		out[k] = v
	}
	return out
}

// RetentionDays derives the retention period from the classification.
// Restricted and confidential records keep the seven-year SOX horizon.
func RetentionDays(label audit.Classification) int {
	switch label {
	case audit.ClassRestricted:
		return 2555
	case audit.ClassConfidential:
		return 2190
	case audit.ClassInternal:
		return 1095
	default:
		return 365
	}
}

func isSensitive(field string) bool {
	_, ok := sensitiveFields[strings.ToLower(field)]
	return ok
}

func containsPaymentData(payload map[string]any) bool {
	for k := range payload {
		switch strings.ToLower(k) {
		case "credit_card", "card_number", "cvv", "bank_account", "routing_number":
			return true
		}
	}
	return false
}

func appendFramework(frameworks []audit.Framework, f audit.Framework) []audit.Framework {
	for _, existing := range frameworks {
		if existing == f {
			return frameworks
		}
	}
	out := make([]audit.Framework, 0, len(frameworks)+1)
	out = append(out, frameworks...)
	return append(out, f)
}

func clone(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
