package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/sequence"
	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// Store is the in-memory ledger used by unit tests and local runs. The
// chain head lives in a sequence.Counter; events are stored in sequence
// order so ListAll needs no sorting.
type Store struct {
	mu          sync.RWMutex
	counter     *sequence.Counter
	events      []audit.Event
	byID        map[string]int
	deadLetters []audit.DeadLetter
}

func NewStore() *Store {
	return &Store{
		counter: sequence.NewCounter(),
		byID:    make(map[string]int),
	}
}

// errAlreadyPersisted aborts an extension whose event ID is already
// stored, leaving the chain head untouched.
var errAlreadyPersisted = errors.New("already persisted")

// Append extends the chain under the counter's critical section. A build
// whose event ID was already persisted returns the stored event without
// consuming a sequence.
func (s *Store) Append(_ context.Context, build sequence.BuildFunc) (audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *audit.Event
	event, err := s.counter.Extend(func(alloc sequence.Allocation) (audit.Event, error) {
		built, err := build(alloc)
		if err != nil {
			return audit.Event{}, err
		}
		if idx, ok := s.byID[built.ID]; ok {
			existing = &s.events[idx]
			return audit.Event{}, errAlreadyPersisted
		}
		return built, nil
	})
	if existing != nil {
		return *existing, nil
	}
	if err != nil {
		return audit.Event{}, err
	}
	s.byID[event.ID] = len(s.events)
	s.events = append(s.events, event)
	return event, nil
}

func (s *Store) Get(_ context.Context, id string) (audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return audit.Event{}, sentinel.ErrNotFound
	}
	return s.events[idx], nil
}

func (s *Store) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

func (s *Store) ListRange(_ context.Context, from, to uint64) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, event := range s.events {
		if event.Sequence >= from && event.Sequence <= to {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].OwnerID() != ownerID {
			continue
		}
		out = append(out, s.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeadLetter(_ context.Context, rec audit.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadLetters = append(s.deadLetters, rec)
	return nil
}

func (s *Store) ListDeadLetters(_ context.Context, limit int) ([]audit.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.DeadLetter
	for i := len(s.deadLetters) - 1; i >= 0; i-- {
		out = append(out, s.deadLetters[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
