// Package signer seals audit events: an HMAC-SHA256 signature proves the
// event was produced by a holder of the signing key, and a witness hash
// binds the content hash to its creation time independently of the key.
package signer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fsuels/auditledger/internal/platform/secrets"
)

// Signer signs event content hashes. The key is fetched from the key
// source per call and discarded afterwards.
type Signer struct {
	keys secrets.KeySource
}

func New(keys secrets.KeySource) *Signer {
	return &Signer{keys: keys}
}

// Sign returns signature = HMAC-SHA256(key, currentHash) and
// witness = SHA-256(currentHash || createdAt) where createdAt is the
// event's high-resolution creation timestamp.
func (s *Signer) Sign(ctx context.Context, currentHash string, createdAt time.Time) (signature, witness string, err error) {
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return "", "", fmt.Errorf("sign event: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(currentHash))
	return hex.EncodeToString(mac.Sum(nil)), Witness(currentHash, createdAt), nil
}

// Verify recomputes the signature for currentHash and compares it in
// constant time against the stored value.
func (s *Signer) Verify(ctx context.Context, currentHash, signature string) (bool, error) {
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return false, fmt.Errorf("verify signature: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(currentHash))
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(expected, got), nil
}

// Witness computes the time-bound artifact for a content hash. It uses no
// secret material, so anyone holding the event can recompute it.
func Witness(currentHash string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(currentHash + createdAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}
