// Package service assembles the audit pipeline: classify and redact the
// payloads, diff them, construct the immutable event, and hand it to the
// durable writer which hashes, signs and persists it as one atomic chain
// extension.
//
// All pipeline failures are isolated from the business operation that
// produced the mutation: Record returns a typed outcome and never an
// error the caller must act on.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/canonical"
	"github.com/fsuels/auditledger/internal/audit/chain"
	"github.com/fsuels/auditledger/internal/audit/classify"
	"github.com/fsuels/auditledger/internal/audit/device"
	"github.com/fsuels/auditledger/internal/audit/diff"
	"github.com/fsuels/auditledger/internal/audit/metrics"
	"github.com/fsuels/auditledger/internal/audit/sequence"
	"github.com/fsuels/auditledger/internal/audit/signer"
	"github.com/fsuels/auditledger/internal/audit/store"
	"github.com/fsuels/auditledger/internal/audit/store/cache"
	"github.com/fsuels/auditledger/internal/audit/verify"
	"github.com/fsuels/auditledger/internal/audit/writer"
)

// Identity describes this pipeline instance, recorded in each event's
// technical metadata.
type Identity struct {
	Service string
	Version string
	Region  string
}

// Mirror fans persisted events out to an external sink, best-effort.
type Mirror interface {
	Publish(ctx context.Context, event audit.Event) error
}

type Service struct {
	classifier classify.Classifier
	signer     *signer.Signer
	writer     *writer.Writer
	ledger     store.Ledger
	verifier   *verify.Verifier
	history    *cache.HistoryCache
	mirror     Mirror
	identity   Identity
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Service)

// WithHistoryCache enables the Redis read-through cache for History.
func WithHistoryCache(c *cache.HistoryCache) Option {
	return func(s *Service) { s.history = c }
}

// WithMirror publishes every persisted event to the given sink.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func New(
	classifier classify.Classifier,
	sig *signer.Signer,
	w *writer.Writer,
	ledger store.Ledger,
	verifier *verify.Verifier,
	identity Identity,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		classifier: classifier,
		signer:     sig,
		writer:     w,
		ledger:     ledger,
		verifier:   verifier,
		identity:   identity,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("auditledger/pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record runs the full pipeline for one observed mutation. There is no
// cancellation once a mutation is observed: the event is carried to a
// terminal state (persisted or dead-lettered) even if the caller's
// context ends, so a request timeout cannot drop an audit record.
func (s *Service) Record(ctx context.Context, m audit.Mutation) writer.Outcome {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "audit.record", trace.WithAttributes(
		attribute.String("audit.collection", m.Collection),
		attribute.String("audit.change_type", string(m.Type)),
	))
	defer span.End()
	start := time.Now()

	draft := s.construct(ctx, m)

	outcome := s.writer.Write(ctx, m, func(alloc sequence.Allocation) (audit.Event, error) {
		return s.seal(ctx, draft, alloc)
	})

	if s.metrics != nil {
		s.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.String("audit.outcome", string(outcome.State)))

	if outcome.State == writer.StatePersisted {
		if s.history != nil {
			s.history.Invalidate(ctx, outcome.Event.OwnerID())
		}
		if s.mirror != nil {
			if err := s.mirror.Publish(ctx, outcome.Event); err != nil {
				s.logger.WarnContext(ctx, "audit mirror publish failed",
					"sequence", outcome.Event.Sequence,
					"error", err,
				)
			}
		}
		s.logger.InfoContext(ctx, "audit event persisted",
			"sequence", outcome.Event.Sequence,
			"event_type", string(outcome.Event.EventType),
			"collection", m.Collection,
			"entity_id", m.EntityID,
			"attempts", outcome.Attempts,
		)
	}
	return outcome
}

// construct builds the sequence-independent part of the event: redacted
// snapshots, diff, actor, technical and compliance metadata. The event
// ID and execution ID are fixed here so persistence retries stay
// idempotent and every attempt carries the same pipeline-run identity.
func (s *Service) construct(ctx context.Context, m audit.Mutation) audit.Event {
	classification, err := s.classifier.Classify(ctx, m.Collection, m.After)
	if err != nil {
		// Never degrade towards public on classifier failure.
		s.logger.WarnContext(ctx, "classification failed, using conservative fallback",
			"collection", m.Collection,
			"error", err,
		)
		classification = classify.Fallback()
	}

	before := diff.TruncatePayload(classify.Redact(m.Before, classification.Label))
	after := diff.TruncatePayload(classify.Redact(m.After, classification.Label))

	beforeChecksum, _ := canonical.Checksum(before)
	afterChecksum, _ := canonical.Checksum(after)

	now := time.Now().UTC()
	event := audit.Event{
		ID:        uuid.NewString(),
		EventType: m.EventTypeFor(),
		Source: audit.Source{
			Collection: m.Collection,
			EntityID:   m.EntityID,
			Path:       m.Path,
		},
		Change: audit.Change{
			Type:   m.Type,
			Before: before,
			After:  after,
			Diff:   diff.Fields(before, after),
		},
		Actor: enrichActor(m.Actor),
		Technical: audit.Technical{
			Service:        s.identity.Service,
			Version:        s.identity.Version,
			ExecutionID:    uuid.NewString(),
			Region:         s.identity.Region,
			Timestamp:      now,
			BeforeChecksum: beforeChecksum,
			AfterChecksum:  afterChecksum,
		},
		Compliance: audit.Compliance{
			Frameworks:         classification.Frameworks,
			DataClassification: classification.Label,
			RetentionDays:      classify.RetentionDays(classification.Label),
		},
	}
	return event
}

// seal runs inside the store's atomic chain extension: it stamps the
// allocation onto the draft, computes the content hash, and signs it.
// It never re-queries the latest event; the allocation is authoritative.
func (s *Service) seal(ctx context.Context, draft audit.Event, alloc sequence.Allocation) (audit.Event, error) {
	event := draft
	event.Sequence = alloc.Sequence
	event.PreviousHash = alloc.PreviousHash

	hash, err := chain.Compute(event)
	if err != nil {
		return audit.Event{}, err
	}
	event.CurrentHash = hash

	sig, witness, err := s.signer.Sign(ctx, hash, event.Technical.Timestamp)
	if err != nil {
		return audit.Event{}, err
	}
	event.Integrity = audit.Integrity{
		Signature:   sig,
		WitnessHash: witness,
		Immutable:   true,
	}
	return event, nil
}

func enrichActor(a *audit.Actor) *audit.Actor {
	if a == nil {
		return nil
	}
	enriched := *a
	if enriched.UserAgent != "" && enriched.Device == "" {
		enriched.Device = device.ParseUserAgent(enriched.UserAgent)
	}
	return &enriched
}

// History returns the most recent events for an owner, newest first,
// served from the cache when possible.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]audit.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if s.history != nil {
		if events, ok := s.history.Get(ctx, ownerID, limit); ok {
			if s.metrics != nil {
				s.metrics.HistoryCacheHits.Inc()
			}
			return events, nil
		}
		if s.metrics != nil {
			s.metrics.HistoryCacheMiss.Inc()
		}
	}
	events, err := s.ledger.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		s.history.Set(ctx, ownerID, limit, events)
	}
	return events, nil
}

// Verify rechecks the supplied events, or the full persisted chain when
// both events and links are empty. Exported subsets pass their chain
// links so verification can bridge events the export does not contain.
// Verification never takes locks; concurrent appends only extend past
// the verified suffix.
func (s *Service) Verify(ctx context.Context, events []audit.Event, links []audit.ChainLink) (verify.Result, error) {
	ctx, span := s.tracer.Start(ctx, "audit.verify")
	defer span.End()

	if len(events) == 0 && len(links) == 0 {
		stored, err := s.ledger.ListAll(ctx)
		if err != nil {
			return verify.Result{}, err
		}
		events = stored
	}

	result, err := s.verifier.VerifySegment(ctx, events, links)
	if s.metrics != nil && err == nil {
		s.metrics.VerifyRuns.Inc()
		if !result.Valid {
			s.metrics.VerifyFailures.Inc()
		}
	}
	span.SetAttributes(attribute.Int("audit.events_checked", result.Checked))
	return result, err
}

// DeadLetters lists recent dead-letter records for reconciliation.
func (s *Service) DeadLetters(ctx context.Context, limit int) ([]audit.DeadLetter, error) {
	return s.ledger.ListDeadLetters(ctx, limit)
}
