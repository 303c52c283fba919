// Package verify independently recomputes the hash chain over persisted
// events to detect tampering. Verification is pure and read-only; it can
// run concurrently with ongoing writes because it only inspects
// already-persisted, immutable events.
package verify

import (
	"context"
	"fmt"
	"sort"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/chain"
	"github.com/fsuels/auditledger/internal/audit/signer"
)

// Result reports a verification run. FirstDivergence is the sequence of
// the earliest event that failed any check; everything from that point
// on is untrusted.
type Result struct {
	Valid           bool    `json:"valid"`
	FirstDivergence *uint64 `json:"firstDivergence,omitempty"`
	Checked         int     `json:"checked"`
}

// Verifier rechecks content hashes, chain linkage and signatures.
type Verifier struct {
	signer *signer.Signer
}

func New(s *signer.Signer) *Verifier {
	return &Verifier{signer: s}
}

// Verify walks the events in sequence order. For each event it recomputes
// the content hash, confirms the previousHash linkage (genesis for the
// first event), recomputes the witness hash and rechecks the HMAC
// signature. The first mismatch of any kind is reported by sequence.
//
// An error return means verification could not run (for example the
// signing key was unavailable), not that the chain is invalid.
func (v *Verifier) Verify(ctx context.Context, events []audit.Event) (Result, error) {
	ordered := make([]audit.Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	for i, event := range ordered {
		recomputed, err := chain.Compute(event)
		if err != nil {
			return Result{}, fmt.Errorf("recompute hash for sequence %d: %w", event.Sequence, err)
		}
		if recomputed != event.CurrentHash {
			return diverged(event.Sequence, i), nil
		}

		wantPrev := audit.GenesisHash
		if i > 0 {
			wantPrev = ordered[i-1].CurrentHash
		}
		if event.PreviousHash != wantPrev {
			return diverged(event.Sequence, i), nil
		}

		if signer.Witness(event.CurrentHash, event.Technical.Timestamp) != event.Integrity.WitnessHash {
			return diverged(event.Sequence, i), nil
		}

		ok, err := v.signer.Verify(ctx, event.CurrentHash, event.Integrity.Signature)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return diverged(event.Sequence, i), nil
		}
	}
	return Result{Valid: true, Checked: len(ordered)}, nil
}

// VerifySegment checks an exported subset of the chain. Links must cover
// a contiguous sequence range; adjacent links must interlock, every
// link's witness and signature are rechecked, and every full event must
// rehash to its link's currentHash. Content absent from events (other
// owners' records) is vouched for by its signed link. With no links the
// events are treated as a complete chain, as in Verify.
func (v *Verifier) VerifySegment(ctx context.Context, events []audit.Event, links []audit.ChainLink) (Result, error) {
	if len(links) == 0 {
		return v.Verify(ctx, events)
	}

	ordered := make([]audit.ChainLink, len(links))
	copy(ordered, links)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	bySeq := make(map[uint64]audit.Event, len(events))
	for _, event := range events {
		bySeq[event.Sequence] = event
	}

	for i, link := range ordered {
		if i > 0 {
			prev := ordered[i-1]
			if link.Sequence != prev.Sequence+1 || link.PreviousHash != prev.CurrentHash {
				return diverged(link.Sequence, i), nil
			}
		} else if link.Sequence == 1 && link.PreviousHash != audit.GenesisHash {
			// The only anchor a segment can prove from the outside is
			// genesis; a later starting link is attested by its signature.
			return diverged(link.Sequence, i), nil
		}

		if signer.Witness(link.CurrentHash, link.Timestamp) != link.WitnessHash {
			return diverged(link.Sequence, i), nil
		}
		ok, err := v.signer.Verify(ctx, link.CurrentHash, link.Signature)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return diverged(link.Sequence, i), nil
		}

		if event, hasContent := bySeq[link.Sequence]; hasContent {
			recomputed, err := chain.Compute(event)
			if err != nil {
				return Result{}, fmt.Errorf("recompute hash for sequence %d: %w", event.Sequence, err)
			}
			if recomputed != link.CurrentHash || event.PreviousHash != link.PreviousHash {
				return diverged(link.Sequence, i), nil
			}
			delete(bySeq, link.Sequence)
		}
	}

	// Full events outside the link range cannot be tied to the segment.
	if len(bySeq) > 0 {
		uncovered := uint64(0)
		for seq := range bySeq {
			if uncovered == 0 || seq < uncovered {
				uncovered = seq
			}
		}
		return diverged(uncovered, len(ordered)), nil
	}
	return Result{Valid: true, Checked: len(ordered)}, nil
}

func diverged(seq uint64, checked int) Result {
	s := seq
	return Result{Valid: false, FirstDivergence: &s, Checked: checked}
}
