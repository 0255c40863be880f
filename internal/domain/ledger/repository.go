package ledger

import (
	"context"
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// Filter narrows ListByStudent results. Nil fields are ignored.
type Filter struct {
	EventType *EventType
	Status    *EventStatus
	From      *time.Time
	To        *time.Time
}

// ConfirmedOnly is the default filter for tree building and aggregation.
func ConfirmedOnly() Filter {
	s := StatusConfirmed
	return Filter{Status: &s}
}

// BuildFunc constructs the next event for a student's chain. It receives the
// most recent confirmed event (nil for an empty history) while the per-student
// append lock is held, so the previous-hash link it sets cannot race.
type BuildFunc func(prev *Event) (*Event, error)

// EventStore is the durable append-only store for ledger events.
// Implementations must serialize appends per student (single writer per
// student) or the hash chain can fork; reads are unrestricted.
type EventStore interface {
	// Append runs build under the student's append lock and persists the
	// event it returns. Storage failures surface as shared.ErrStorage kinds
	// and must never result in an event stored without its link field.
	Append(ctx context.Context, studentID shared.StudentID, build BuildFunc) (*Event, error)

	// ListByStudent returns the student's events in append order.
	// The returned slice is a consistent snapshot: callers may build Merkle
	// trees from it without re-reading.
	ListByStudent(ctx context.Context, studentID shared.StudentID, f Filter) ([]*Event, error)

	// GetByID returns a single event, or ErrEventNotFound.
	GetByID(ctx context.Context, eventID string) (*Event, error)
}
