// Package chain computes the content hash linking each audit event to its
// predecessor. The hash covers the canonical form of the event with the
// currentHash and integrity fields removed, so an event can be rehashed
// from its persisted representation during verification.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/canonical"
)

// Compute returns the hex SHA-256 digest of the event's canonical form,
// excluding currentHash and integrity. PreviousHash and Sequence must
// already be set from the atomic chain-head read; Compute never consults
// the store.
func Compute(e audit.Event) (string, error) {
	input, err := hashInput(e)
	if err != nil {
		return "", err
	}
	b, err := canonical.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("chain hash: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// hashInput renders the event as a generic map and strips the fields the
// hash must not cover. Working on the JSON form keeps the exclusion
// stable under struct evolution: any new top-level field is covered
// automatically.
func hashInput(e audit.Event) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("chain hash input: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("chain hash input decode: %w", err)
	}
	delete(m, "currentHash")
	delete(m, "integrity")
	return m, nil
}
