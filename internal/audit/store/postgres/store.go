package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/sequence"
	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// Store is the durable append-only ledger. Each Append attempt runs one
// transaction: read the chain head, build the event against that
// allocation, insert the row, and advance the head with an optimistic
// compare-and-swap. A lost race re-reads and retries; chain forks cannot
// occur and retries consume no sequences.
type Store struct {
	db         *sql.DB
	head       sequence.Head
	onConflict func()
}

// Option configures optional collaborators.
type Option func(*Store)

// WithConflictHook registers fn to run once per lost head race, before
// the append retries against a fresh read.
func WithConflictHook(fn func()) Option {
	return func(s *Store) { s.onConflict = fn }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the ledger tables and chain-head row when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return s.head.Ensure(ctx, s.db)
}

// Append retries lost races as long as the head keeps advancing. Every
// conflict means a concurrent append committed, so the loop makes global
// progress; two consecutive conflicts at the same head version mean the
// stored state cannot resolve by retrying and the append fails.
func (s *Store) Append(ctx context.Context, build sequence.BuildFunc) (audit.Event, error) {
	lastVersion := int64(-1)
	for {
		event, version, err := s.tryAppend(ctx, build)
		if err == nil || !errors.Is(err, sentinel.ErrSequenceConflict) {
			return event, err
		}
		if version == lastVersion {
			return audit.Event{}, fmt.Errorf("chain head stalled at version %d: %w", version, sentinel.ErrSequenceConflict)
		}
		lastVersion = version
		if s.onConflict != nil {
			s.onConflict()
		}
		if ctx.Err() != nil {
			return audit.Event{}, ctx.Err()
		}
	}
}

func (s *Store) tryAppend(ctx context.Context, build sequence.BuildFunc) (audit.Event, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.Event{}, 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	seq, headHash, version, err := s.head.Read(ctx, tx)
	if err != nil {
		return audit.Event{}, 0, err
	}

	event, err := build(sequence.Allocation{Sequence: seq + 1, PreviousHash: headHash})
	if err != nil {
		return audit.Event{}, version, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return audit.Event{}, version, fmt.Errorf("marshal audit event: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, sequence, previous_hash, current_hash, event_type,
			collection, entity_id, owner_id, change_type, created_at, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query,
		event.ID,
		event.Sequence,
		event.PreviousHash,
		event.CurrentHash,
		string(event.EventType),
		event.Source.Collection,
		event.Source.EntityID,
		event.OwnerID(),
		string(event.Change.Type),
		event.Technical.Timestamp,
		payload,
	)
	if err != nil {
		if sequenceTaken(err) {
			// A concurrent append won the race on the sequence unique
			// index before the head CAS could even run.
			return audit.Event{}, version, fmt.Errorf("insert audit event: %w", sentinel.ErrSequenceConflict)
		}
		return audit.Event{}, version, fmt.Errorf("insert audit event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return audit.Event{}, version, fmt.Errorf("insert audit event: %w", err)
	}
	if rows == 0 {
		// Event ID already persisted by an earlier attempt; keep the head
		// where it is and return the stored row.
		_ = tx.Rollback()
		stored, err := s.Get(ctx, event.ID)
		return stored, version, err
	}

	if err := s.head.CompareAndSwap(ctx, tx, version, event.Sequence, event.CurrentHash); err != nil {
		return audit.Event{}, version, err
	}
	if err := tx.Commit(); err != nil {
		return audit.Event{}, version, fmt.Errorf("commit append tx: %w", err)
	}
	return event, version, nil
}

// sequenceTaken reports whether an insert lost the race on the sequence
// unique index: another transaction committed the same sequence while
// this one held a stale head read. Surfacing it as a sequence conflict
// lets Append retry against the fresh head instead of failing the event.
func sequenceTaken(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) &&
		pqErr.Code.Name() == "unique_violation" &&
		pqErr.Constraint == "audit_events_sequence_key"
}

func (s *Store) Get(ctx context.Context, id string) (audit.Event, error) {
	query := `SELECT payload FROM audit_events WHERE id = $1`
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return audit.Event{}, sentinel.ErrNotFound
		}
		return audit.Event{}, fmt.Errorf("get audit event: %w", err)
	}
	return decodeEvent(payload)
}

func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	query := `SELECT payload FROM audit_events ORDER BY sequence ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRange returns the events with sequences in [from, to], ascending.
func (s *Store) ListRange(ctx context.Context, from, to uint64) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_events
		WHERE sequence BETWEEN $1 AND $2
		ORDER BY sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list audit events by range: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByOwner returns the newest events for an owner. A non-positive
// limit returns the full history (used by exports).
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_events
		WHERE owner_id = $1
		ORDER BY sequence DESC
		LIMIT NULLIF($2, 0)
	`
	if limit < 0 {
		limit = 0
	}
	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events by owner: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) DeadLetter(ctx context.Context, rec audit.DeadLetter) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal dead letter payload: %w", err)
	}
	query := `
		INSERT INTO audit_dead_letters (
			id, failed_at, collection, entity_id, path,
			change_type, attempts, reason, last_error, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.FailedAt,
		rec.Source.Collection,
		rec.Source.EntityID,
		rec.Source.Path,
		string(rec.ChangeType),
		rec.Attempts,
		rec.Reason,
		rec.LastError,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]audit.DeadLetter, error) {
	query := `
		SELECT id, failed_at, collection, entity_id, path,
		       change_type, attempts, reason, last_error, payload
		FROM audit_dead_letters
		ORDER BY failed_at DESC
		LIMIT $1
	`
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []audit.DeadLetter
	for rows.Next() {
		var rec audit.DeadLetter
		var changeType string
		var payload []byte
		err := rows.Scan(
			&rec.ID,
			&rec.FailedAt,
			&rec.Source.Collection,
			&rec.Source.EntityID,
			&rec.Source.Path,
			&changeType,
			&rec.Attempts,
			&rec.Reason,
			&rec.LastError,
			&payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		rec.ChangeType = audit.ChangeType(changeType)
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("decode dead letter payload: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return out, nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decodeEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func decodeEvent(payload []byte) (audit.Event, error) {
	var event audit.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit event: %w", err)
	}
	return event, nil
}
