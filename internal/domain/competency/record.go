package competency

import (
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// Status is the closed set of snapshot states. No other ad hoc statuses are
// permitted downstream.
type Status string

const (
	StatusStable      Status = "stable"
	StatusNotAssessed Status = "not_assessed"
)

// Record is one competency entry in a student's recomputed snapshot.
// It is derived, recomputable cache data: regenerated wholesale from ledger
// events on demand, never incrementally patched, and never treated as the
// source of truth even when persisted for read performance.
type Record struct {
	StudentID    shared.StudentID `json:"studentId"`
	Competency   Competency       `json:"competencyName"`
	Score        *float64         `json:"score"`
	Status       Status           `json:"status"`
	Observations int              `json:"observations"`
}

// IsAssessed reports whether the competency has at least one observation.
func (r Record) IsAssessed() bool {
	return r.Status == StatusStable
}
