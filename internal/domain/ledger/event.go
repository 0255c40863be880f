// Package ledger contains the append-only, hash-chained event log that backs
// the tamper-evident assessment history. Events are immutable once confirmed:
// corrections are new compensating events, never edits.
package ledger

import (
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

// Domain errors for the ledger package.
var (
	ErrUnknownEventType     = shared.NewDomainError("ledger", "Validate", shared.ErrValidation, "unknown event type")
	ErrInvalidPayload       = shared.NewDomainError("ledger", "Validate", shared.ErrValidation, "malformed event payload")
	ErrTimestampRegression  = shared.NewDomainError("ledger", "Append", shared.ErrValidation, "timestamp precedes previous event for this student")
	ErrEventNotFound        = shared.NewDomainError("ledger", "Find", shared.ErrNotFound, "ledger event not found")
	ErrStoreUnavailable     = shared.NewDomainError("ledger", "Append", shared.ErrUnavailable, "event store unavailable")
	ErrMissingPreviousHash  = shared.NewDomainError("ledger", "Append", shared.ErrInvalidState, "previous hash link missing")
	ErrConfirmedEventMutate = shared.NewDomainError("ledger", "Update", shared.ErrImmutable, "confirmed events cannot be modified")
)

// EventType is the closed set of auditable actions recorded in the ledger.
// Dynamic strings are validated at the boundary to prevent schema drift
// between what is written and what is read.
type EventType string

const (
	EventCompetencyAssessed EventType = "competency_assessed"
	EventChallengeEvaluated EventType = "challenge_evaluated"
	EventReportGenerated    EventType = "report_generated"
	EventReportShared       EventType = "report_shared"
	EventReportVerified     EventType = "report_verified"
)

// IsValid checks if the event type belongs to the closed set.
func (t EventType) IsValid() bool {
	switch t {
	case EventCompetencyAssessed, EventChallengeEvaluated,
		EventReportGenerated, EventReportShared, EventReportVerified:
		return true
	}
	return false
}

// String returns the string representation.
func (t EventType) String() string {
	return string(t)
}

// ParseEventType validates a raw string against the closed set.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.IsValid() {
		return "", ErrUnknownEventType
	}
	return t, nil
}

// EventStatus is the lifecycle state of a ledger event. Only confirmed events
// participate in Merkle trees and competency aggregation.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusPending   EventStatus = "pending"
)

// IsValid checks if the status belongs to the closed set.
func (s EventStatus) IsValid() bool {
	return s == StatusConfirmed || s == StatusPending
}

// Event is one immutable, hash-linked record of a single auditable action.
//
// Invariant: for a student, the sequence ordered by append forms a singly
// linked hash chain; PreviousHash of event i equals Hash of event i-1, and the
// first event carries the GENESIS sentinel.
type Event struct {
	EventID      string                 `json:"eventId"`
	StudentID    shared.StudentID       `json:"studentId"`
	SchoolID     shared.SchoolID        `json:"schoolId"`
	EventType    EventType              `json:"eventType"`
	Timestamp    time.Time              `json:"timestamp"`
	Payload      map[string]interface{} `json:"payload"`
	Hash         string                 `json:"hash"`
	PreviousHash string                 `json:"previousHash"`
	Status       EventStatus            `json:"status"`
}

// NewEvent builds a confirmed event linked to the given previous hash and
// computes its content hash. previousHash must be hashutil.GenesisHash for the
// first event of a student's chain. The timestamp is normalized to UTC and
// truncated to microsecond precision, the finest granularity the event store
// round-trips.
func NewEvent(
	eventID string,
	studentID shared.StudentID,
	schoolID shared.SchoolID,
	eventType EventType,
	payload map[string]interface{},
	timestamp time.Time,
	previousHash string,
) (*Event, error) {
	if eventID == "" {
		return nil, shared.NewDomainError("ledger", "NewEvent", shared.ErrInvalidID, "empty event ID")
	}
	if studentID.IsEmpty() {
		return nil, shared.NewDomainError("ledger", "NewEvent", shared.ErrInvalidID, "empty student ID")
	}
	if !eventType.IsValid() {
		return nil, ErrUnknownEventType
	}
	if previousHash == "" {
		return nil, ErrMissingPreviousHash
	}
	if timestamp.IsZero() {
		return nil, shared.NewDomainError("ledger", "NewEvent", shared.ErrInvalidInput, "zero timestamp")
	}

	e := &Event{
		EventID:      eventID,
		StudentID:    studentID,
		SchoolID:     schoolID,
		EventType:    eventType,
		Timestamp:    timestamp.UTC().Truncate(time.Microsecond),
		Payload:      payload,
		PreviousHash: previousHash,
		Status:       StatusConfirmed,
	}

	hash, err := e.ComputeHash()
	if err != nil {
		return nil, shared.WrapError("ledger", "NewEvent", shared.ErrInvalidInput, "hash event content", err)
	}
	e.Hash = hash
	return e, nil
}

// ComputeHash returns the content hash over (eventId, eventType, timestamp,
// payload). The previous-hash link is deliberately outside the content hash:
// linkage is validated separately during chain replay. The timestamp is hashed
// at microsecond precision so an event recomputes to the same hash after a
// round trip through the store.
func (e *Event) ComputeHash() (string, error) {
	return hashutil.Hash(map[string]interface{}{
		"eventId":   e.EventID,
		"eventType": string(e.EventType),
		"timestamp": e.hashTimestamp(),
		"payload":   e.Payload,
	})
}

// LeafHash derives the Merkle leaf for this event at the given position.
// The positional index is part of the leaf so reordering or replaying events
// inside the set changes the root.
func (e *Event) LeafHash(index int) (string, error) {
	return hashutil.Hash(map[string]interface{}{
		"eventId":   e.EventID,
		"hash":      e.Hash,
		"timestamp": e.hashTimestamp(),
		"eventType": string(e.EventType),
		"index":     index,
	})
}

// hashTimestamp renders the timestamp for hashing at microsecond precision,
// the finest granularity the event store round-trips.
func (e *Event) hashTimestamp() string {
	return e.Timestamp.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// IsConfirmed reports whether the event participates in trees and aggregation.
func (e *Event) IsConfirmed() bool {
	return e.Status == StatusConfirmed
}

// IsGenesis reports whether this is the first event of its student's chain.
func (e *Event) IsGenesis() bool {
	return e.PreviousHash == hashutil.GenesisHash
}

// Clone returns a deep-enough copy for safe hand-off across store boundaries.
// Payload values are shared; callers must not mutate them.
func (e *Event) Clone() *Event {
	cp := *e
	if e.Payload != nil {
		cp.Payload = make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}

// LeafHashes derives the ordered Merkle leaves for a sequence of events.
func LeafHashes(events []*Event) ([]string, error) {
	leaves := make([]string, 0, len(events))
	for i, e := range events {
		leaf, err := e.LeafHash(i)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}
