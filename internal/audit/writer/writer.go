// Package writer drives durable persistence of audit events: bounded
// retries with exponential backoff around the store's atomic chain
// extension, and a dead-letter record when attempts are exhausted so the
// mutation is never silently lost.
//
// The writer never propagates failure to the business operation that
// produced the mutation; callers read the typed Outcome.
package writer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/metrics"
	"github.com/fsuels/auditledger/internal/audit/sequence"
	"github.com/fsuels/auditledger/internal/audit/store"
	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// State is the terminal persistence state of one event.
type State string

const (
	StatePersisted    State = "persisted"
	StateDeadLettered State = "dead_lettered"
)

// Outcome reports how a write ended. Err is set only for the
// dead-lettered state and carries the final persistence error.
type Outcome struct {
	State    State
	Event    audit.Event
	Attempts int
	Err      error
}

// Config tunes the retry loop.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig matches the documented three-attempt exponential policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

type Writer struct {
	ledger  store.Ledger
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(ledger store.Ledger, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Writer {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}
	return &Writer{ledger: ledger, cfg: cfg, logger: logger, metrics: m}
}

// Write persists the event produced by build, retrying transient
// failures up to the configured bound. A missing signing key is fatal
// for the event and dead-letters immediately; everything else retries.
func (w *Writer) Write(ctx context.Context, m audit.Mutation, build sequence.BuildFunc) Outcome {
	var (
		event    audit.Event
		attempts int
	)

	operation := func() error {
		attempts++
		persisted, err := w.ledger.Append(ctx, build)
		if err == nil {
			event = persisted
			return nil
		}
		if errors.Is(err, sentinel.ErrSigningKeyUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.cfg.InitialInterval
	policy.MaxInterval = w.cfg.MaxInterval
	bounded := backoff.WithMaxRetries(policy, uint64(w.cfg.MaxAttempts-1))

	err := backoff.Retry(operation, backoff.WithContext(bounded, ctx))
	if err == nil {
		if w.metrics != nil {
			w.metrics.EventsPersisted.Inc()
		}
		return Outcome{State: StatePersisted, Event: event, Attempts: attempts}
	}

	w.deadLetter(ctx, m, attempts, err)
	return Outcome{State: StateDeadLettered, Attempts: attempts, Err: err}
}

// deadLetter records the failure best-effort. A failing dead-letter
// insert is logged and swallowed; the pipeline has nowhere further to
// escalate without touching the business transaction.
func (w *Writer) deadLetter(ctx context.Context, m audit.Mutation, attempts int, cause error) {
	rec := audit.DeadLetter{
		ID:         uuid.NewString(),
		FailedAt:   time.Now().UTC(),
		Source:     audit.Source{Collection: m.Collection, EntityID: m.EntityID, Path: m.Path},
		ChangeType: m.Type,
		Attempts:   attempts,
		Reason:     reasonFor(cause),
		LastError:  cause.Error(),
		Payload:    m,
	}
	if w.metrics != nil {
		w.metrics.DeadLetters.Inc()
	}
	if err := w.ledger.DeadLetter(ctx, rec); err != nil {
		w.logger.ErrorContext(ctx, "dead-letter write failed, audit record lost",
			"collection", m.Collection,
			"entity_id", m.EntityID,
			"error", err,
		)
		return
	}
	w.logger.WarnContext(ctx, "audit event dead-lettered",
		"collection", m.Collection,
		"entity_id", m.EntityID,
		"attempts", attempts,
		"reason", rec.Reason,
	)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrSigningKeyUnavailable):
		return "signing_key_unavailable"
	case errors.Is(err, sentinel.ErrSequenceConflict):
		return "sequence_conflict_exhausted"
	default:
		return "persistence_exhausted"
	}
}
