package service

import (
	"context"
	"time"

	"github.com/fsuels/auditledger/internal/audit"
)

// Export is a portable, independently re-verifiable snapshot of an
// owner's audit history. Links carry the integrity envelope of every
// event in the covered sequence range, including events that belong to
// other owners, so VerifySegment can walk the chain across the gaps
// without the export exposing anyone else's content.
type Export struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Owner       string            `json:"owner"`
	Count       int               `json:"count"`
	Events      []audit.Event     `json:"events"`
	Links       []audit.ChainLink `json:"links,omitempty"`
}

// ExportHistory assembles the subject-access export for an owner. Events
// are returned in ascending sequence order so the chain reads naturally.
func (s *Service) ExportHistory(ctx context.Context, ownerID string) (Export, error) {
	events, err := s.ledger.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return Export{}, err
	}
	// ListByOwner returns newest first; exports carry the chain oldest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	var links []audit.ChainLink
	if len(events) > 0 {
		from := events[0].Sequence
		to := events[len(events)-1].Sequence
		covered, err := s.ledger.ListRange(ctx, from, to)
		if err != nil {
			return Export{}, err
		}
		links = make([]audit.ChainLink, 0, len(covered))
		for _, event := range covered {
			links = append(links, event.Link())
		}
	}

	return Export{
		GeneratedAt: time.Now().UTC(),
		Owner:       ownerID,
		Count:       len(events),
		Events:      events,
		Links:       links,
	}, nil
}
