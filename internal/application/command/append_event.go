// Package command contains the write-side application handlers: appending
// ledger events and anchoring reports. Handlers validate at the boundary,
// delegate chain linking to the domain, and keep derived caches coherent.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
)

// SnapshotInvalidator drops a student's cached competency snapshot after the
// ledger changes. Cache failures are logged and swallowed: the cache is
// non-authoritative and the next read recomputes from the ledger.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, studentID shared.StudentID) error
}

// AppendEvent appends one confirmed event to a student's hash chain.
type AppendEvent struct {
	events ledger.EventStore
	cache  SnapshotInvalidator
	clock  func() time.Time
	log    *logger.Logger
}

// NewAppendEvent creates the handler. cache may be nil when no snapshot cache
// is wired.
func NewAppendEvent(events ledger.EventStore, cache SnapshotInvalidator, log *logger.Logger) *AppendEvent {
	return &AppendEvent{
		events: events,
		cache:  cache,
		clock:  func() time.Time { return time.Now().UTC() },
		log:    log.With(logger.Component("ledger")),
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (h *AppendEvent) WithClock(clock func() time.Time) *AppendEvent {
	h.clock = clock
	return h
}

// AppendEventInput carries the raw append request from the outer application.
type AppendEventInput struct {
	StudentID string
	SchoolID  string
	EventType string
	Payload   map[string]interface{}

	// Timestamp is the event occurrence time; zero means "now".
	Timestamp time.Time
}

// Handle validates the input, links the event to the student's chain under
// the per-student append lock, and stores it as confirmed. Timestamps must
// not regress relative to the previous event for the student (clock-skew
// defense); appends that would regress are rejected, not silently reordered.
func (h *AppendEvent) Handle(ctx context.Context, in AppendEventInput) (*ledger.Event, error) {
	studentID, err := shared.NewStudentID(in.StudentID)
	if err != nil {
		return nil, err
	}
	schoolID, err := shared.NewSchoolID(in.SchoolID)
	if err != nil {
		return nil, err
	}
	eventType, err := ledger.ParseEventType(in.EventType)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(eventType, in.Payload); err != nil {
		return nil, err
	}

	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = h.clock()
	}

	event, err := h.events.Append(ctx, studentID, func(prev *ledger.Event) (*ledger.Event, error) {
		previousHash := hashutil.GenesisHash
		if prev != nil {
			if timestamp.Before(prev.Timestamp) {
				return nil, ledger.ErrTimestampRegression
			}
			previousHash = prev.Hash
		}
		return ledger.NewEvent(
			uuid.NewString(),
			studentID,
			schoolID,
			eventType,
			in.Payload,
			timestamp,
			previousHash,
		)
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("ledger event appended",
		logger.StudentID(studentID.String()),
		logger.EventID(event.EventID),
		logger.EventType(eventType.String()),
	)

	h.invalidateSnapshot(ctx, studentID)

	return event, nil
}

// invalidateSnapshot drops the derived competency cache wholesale; it is
// never patched incrementally.
func (h *AppendEvent) invalidateSnapshot(ctx context.Context, studentID shared.StudentID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, studentID); err != nil {
		h.log.Warn("competency snapshot invalidation failed",
			logger.StudentID(studentID.String()),
			logger.Err(err),
		)
	}
}

// validatePayload rejects malformed type-specific payloads at the boundary,
// before anything reaches the chain.
func validatePayload(eventType ledger.EventType, payload map[string]interface{}) error {
	switch eventType {
	case ledger.EventChallengeEvaluated:
		if _, err := competency.ParseScores(payload); err != nil {
			return err
		}
	}
	return nil
}
