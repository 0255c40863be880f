package ledger

import (
	"fmt"

	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

// ViolationKind classifies a single chain anomaly.
type ViolationKind string

const (
	// ViolationHashMismatch means the event's stored hash does not match the
	// hash recomputed from its own content.
	ViolationHashMismatch ViolationKind = "hash_mismatch"

	// ViolationLinkMismatch means the event's previousHash does not match the
	// recomputed hash of its predecessor (or the GENESIS sentinel for the
	// first event).
	ViolationLinkMismatch ViolationKind = "previous_hash_mismatch"

	// ViolationTimestampRegression means the event's timestamp precedes its
	// predecessor's.
	ViolationTimestampRegression ViolationKind = "timestamp_regression"

	// ViolationDownstreamBroken marks events after a broken link: their own
	// linkage can no longer be trusted because the chain upstream of them has
	// been tampered with.
	ViolationDownstreamBroken ViolationKind = "downstream_of_broken_link"
)

// Violation records one anomaly found during chain replay.
type Violation struct {
	Index   int           `json:"index"`
	EventID string        `json:"eventId"`
	Kind    ViolationKind `json:"kind"`
	Detail  string        `json:"detail"`
}

// ChainReport is the complete result of replaying a student's chain.
// Integrity failure is an expected, reportable outcome, not an error:
// a broken chain is surfaced here, never thrown and never repaired.
type ChainReport struct {
	Valid      bool        `json:"valid"`
	EventCount int         `json:"eventCount"`
	BrokenAt   int         `json:"brokenAt"` // index of the first broken event, -1 if intact
	Violations []Violation `json:"violations"`
}

// ValidateChain recomputes each event's expected hash from its own content and
// confirms previousHash linkage across the full ordered sequence. It never
// aborts early: all violations are collected for audit reporting. Events after
// the first broken link are additionally flagged as downstream-broken, since
// nothing at or beyond a tampering point can be trusted; events strictly
// before it remain valid.
func ValidateChain(events []*Event) ChainReport {
	report := ChainReport{
		Valid:      true,
		EventCount: len(events),
		BrokenAt:   -1,
	}

	expectedPrev := hashutil.GenesisHash
	upstreamBroken := false

	for i, e := range events {
		brokenHere := false

		recomputed, err := e.ComputeHash()
		if err != nil {
			report.addViolation(i, e.EventID, ViolationHashMismatch,
				fmt.Sprintf("content not hashable: %v", err))
			brokenHere = true
		} else if recomputed != e.Hash {
			report.addViolation(i, e.EventID, ViolationHashMismatch,
				"stored hash does not match recomputed content hash")
			brokenHere = true
		}

		if e.PreviousHash != expectedPrev {
			report.addViolation(i, e.EventID, ViolationLinkMismatch,
				"previousHash does not match recomputed predecessor hash")
			brokenHere = true
		}

		if i > 0 && e.Timestamp.Before(events[i-1].Timestamp) {
			report.addViolation(i, e.EventID, ViolationTimestampRegression,
				"timestamp precedes previous event")
			brokenHere = true
		}

		if upstreamBroken && !brokenHere {
			report.addViolation(i, e.EventID, ViolationDownstreamBroken,
				"chain upstream of this event is broken")
		}

		if brokenHere {
			upstreamBroken = true
			if report.BrokenAt == -1 {
				report.BrokenAt = i
			}
		}

		// Linkage for the next event is checked against the recomputed hash,
		// not the stored one, so silent edits propagate forward.
		if err == nil {
			expectedPrev = recomputed
		} else {
			expectedPrev = e.Hash
		}
	}

	return report
}

// ViolationsBefore returns the violations whose index is strictly below n.
// Used by the verifier to separate anomalies inside the anchored event set
// from anomalies in events appended after anchoring.
func (r ChainReport) ViolationsBefore(n int) []Violation {
	out := make([]Violation, 0)
	for _, v := range r.Violations {
		if v.Index < n {
			out = append(out, v)
		}
	}
	return out
}

func (r *ChainReport) addViolation(index int, eventID string, kind ViolationKind, detail string) {
	r.Valid = false
	r.Violations = append(r.Violations, Violation{
		Index:   index,
		EventID: eventID,
		Kind:    kind,
		Detail:  detail,
	})
}
