// Package memory provides in-memory implementations of the persistence
// interfaces. They mirror the PostgreSQL semantics, including per-student
// append serialization, and back the application-layer tests and local
// development wiring.
package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

const lockStripes = 64

// LedgerStore is an in-memory ledger.EventStore. Appends for the same
// student are serialized through striped mutexes, matching the advisory-lock
// behavior of the PostgreSQL store.
type LedgerStore struct {
	mu      sync.RWMutex
	events  map[shared.StudentID][]*ledger.Event
	byID    map[string]*ledger.Event
	stripes [lockStripes]sync.Mutex
}

// NewLedgerStore creates an empty store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		events: make(map[shared.StudentID][]*ledger.Event),
		byID:   make(map[string]*ledger.Event),
	}
}

func (s *LedgerStore) stripe(studentID shared.StudentID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(studentID.String()))
	return &s.stripes[h.Sum32()%lockStripes]
}

// Append runs build against the student's current chain head and stores the
// resulting event. The head read and the insert happen under the same
// per-student lock.
func (s *LedgerStore) Append(ctx context.Context, studentID shared.StudentID, build ledger.BuildFunc) (*ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.stripe(studentID)
	lock.Lock()
	defer lock.Unlock()

	var prev *ledger.Event
	s.mu.RLock()
	chain := s.events[studentID]
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].IsConfirmed() {
			prev = chain[i].Clone()
			break
		}
	}
	s.mu.RUnlock()

	event, err := build(prev)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[event.EventID]; exists {
		return nil, shared.NewDomainError("ledger", "Append", shared.ErrAlreadyExists, "duplicate event ID")
	}

	stored := event.Clone()
	s.events[studentID] = append(s.events[studentID], stored)
	s.byID[stored.EventID] = stored

	return event, nil
}

// ListByStudent returns the student's events in append order.
func (s *LedgerStore) ListByStudent(ctx context.Context, studentID shared.StudentID, f ledger.Filter) ([]*ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Event, 0)
	for _, e := range s.events[studentID] {
		if !matches(e, f) {
			continue
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

// GetByID returns a single event, or ledger.ErrEventNotFound.
func (s *LedgerStore) GetByID(ctx context.Context, eventID string) (*ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[eventID]
	if !ok {
		return nil, ledger.ErrEventNotFound
	}
	return e.Clone(), nil
}

// Tamper overwrites a stored event in place, bypassing every domain
// invariant. It exists so verification tests can corrupt a chain the way a
// hostile direct write to storage would.
func (s *LedgerStore) Tamper(eventID string, mutate func(e *ledger.Event)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[eventID]
	if !ok {
		return false
	}
	mutate(e)
	return true
}

func matches(e *ledger.Event, f ledger.Filter) bool {
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.EventType != nil && e.EventType != *f.EventType {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}
