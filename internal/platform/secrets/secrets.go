// Package secrets supplies the HMAC signing key to the audit pipeline.
//
// The key is derived on every call and never retained beyond the signing
// operation that requested it. Derivation uses HKDF-SHA256 over a master
// secret so the audit signing key is purpose-bound and the master secret
// itself never signs anything.
package secrets

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// KeySource yields the signing key for audit event signatures.
type KeySource interface {
	SigningKey(ctx context.Context) ([]byte, error)
}

const signingKeyLen = 32

// HKDFSource derives the signing key from a master secret with HKDF-SHA256.
type HKDFSource struct {
	master []byte
	info   string
}

// NewHKDFSource builds a key source from the configured master secret.
// The info string domain-separates keys derived from the same master.
func NewHKDFSource(master []byte, info string) *HKDFSource {
	if info == "" {
		info = "auditledger/event-signing/v1"
	}
	return &HKDFSource{master: master, info: info}
}

// SigningKey derives a fresh copy of the signing key. Callers must not
// cache the result across events.
func (s *HKDFSource) SigningKey(_ context.Context) ([]byte, error) {
	if len(s.master) == 0 {
		return nil, sentinel.ErrSigningKeyUnavailable
	}
	r := hkdf.New(sha256.New, s.master, nil, []byte(s.info))
	key := make([]byte, signingKeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", sentinel.ErrSigningKeyUnavailable)
	}
	return key, nil
}
