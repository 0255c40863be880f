package query

import (
	"context"

	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// ComputeCPI derives the Competency Performance Index for a student.
// Pure function of the event set: same ledger state, same output.
type ComputeCPI struct {
	events ledger.EventStore
	engine *competency.Engine
}

// NewComputeCPI creates the handler.
func NewComputeCPI(events ledger.EventStore, engine *competency.Engine) *ComputeCPI {
	return &ComputeCPI{events: events, engine: engine}
}

// Handle computes the CPI and drift signal from confirmed challenge
// evaluations, oldest first.
func (h *ComputeCPI) Handle(ctx context.Context, rawStudentID string) (*competency.CPIResult, error) {
	studentID, err := shared.NewStudentID(rawStudentID)
	if err != nil {
		return nil, err
	}

	eventType := ledger.EventChallengeEvaluated
	filter := ledger.ConfirmedOnly()
	filter.EventType = &eventType

	events, err := h.events.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, err
	}

	return h.engine.ComputeCPI(studentID, events)
}
