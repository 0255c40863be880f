// Package query contains the read-side application handlers. Everything here
// is read-only and repeatable: handlers recompute from the ledger and never
// mutate ledger or report state.
package query

import (
	"context"
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// GetEvents lists a student's ledger events in append order.
type GetEvents struct {
	events ledger.EventStore
}

// NewGetEvents creates the handler.
func NewGetEvents(events ledger.EventStore) *GetEvents {
	return &GetEvents{events: events}
}

// GetEventsInput narrows the listing. Zero values mean "no filter", except
// Status which defaults to confirmed: pending events never leak into
// downstream consumers unless asked for explicitly.
type GetEventsInput struct {
	StudentID string
	EventType string
	Status    string
	From      time.Time
	To        time.Time
}

// Handle returns the matching events, oldest first.
func (h *GetEvents) Handle(ctx context.Context, in GetEventsInput) ([]*ledger.Event, error) {
	studentID, err := shared.NewStudentID(in.StudentID)
	if err != nil {
		return nil, err
	}

	filter := ledger.ConfirmedOnly()
	if in.Status != "" {
		status := ledger.EventStatus(in.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("ledger", "Query", shared.ErrValidation, "unknown event status")
		}
		filter.Status = &status
	}
	if in.EventType != "" {
		eventType, err := ledger.ParseEventType(in.EventType)
		if err != nil {
			return nil, err
		}
		filter.EventType = &eventType
	}
	if !in.From.IsZero() {
		from := in.From
		filter.From = &from
	}
	if !in.To.IsZero() {
		to := in.To
		filter.To = &to
	}

	return h.events.ListByStudent(ctx, studentID, filter)
}
