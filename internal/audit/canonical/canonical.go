// Package canonical produces a deterministic JSON serialization: object
// keys are sorted recursively, so semantically identical values always
// serialize (and therefore hash) identically regardless of field order.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Marshal serializes v with all object keys sorted recursively.
//
// The value is marshalled once, decoded into generic maps and re-encoded;
// encoding/json emits map keys in sorted order, which makes the second
// pass order-independent all the way down.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonical decode: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonical re-encode: %w", err)
	}
	return out, nil
}

// Checksum returns the hex SHA-256 digest of the canonical form of v.
// A nil value checksums to the empty string.
func Checksum(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Equal reports whether two values have identical canonical forms.
func Equal(a, b any) bool {
	ca, err := Marshal(a)
	if err != nil {
		return false
	}
	cb, err := Marshal(b)
	if err != nil {
		return false
	}
	return string(ca) == string(cb)
}
