// Package report binds generated reports to the ledger state at the moment of
// generation. An anchor is the report's immutable fingerprint: verification
// only ever compares against it, never rewrites it.
package report

import (
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

// Domain errors for the report package.
var (
	ErrAnchorNotFound  = shared.NewDomainError("report", "Find", shared.ErrNotFound, "report anchor not found")
	ErrAnchorExists    = shared.NewDomainError("report", "Anchor", shared.ErrAlreadyExists, "report already anchored")
	ErrNothingToAnchor = shared.NewDomainError("report", "Anchor", shared.ErrEmptyHistory, "student has no anchorable ledger history")
)

// Anchor is the point-in-time fingerprint attached to a generated report.
//
// EventCount records how many confirmed events the anchored Merkle root was
// built from, so the verifier can rebuild the same point-in-time root after
// new events have been appended.
//
// Invariant: once persisted, immutable.
type Anchor struct {
	ReportID    shared.ReportID  `json:"reportId"`
	StudentID   shared.StudentID `json:"studentId"`
	SchoolID    shared.SchoolID  `json:"schoolId"`
	PeriodStart time.Time        `json:"periodStart"`
	PeriodEnd   time.Time        `json:"periodEnd"`
	MerkleRoot  string           `json:"merkleRoot"`
	EventCount  int              `json:"eventCount"`
	ReportHash  string           `json:"reportHash"`
	AnchoredAt  time.Time        `json:"anchoredAt"`
}

// NewAnchor computes the report fingerprint for the given ledger state.
// The report hash is a double hash for extra diffusion.
func NewAnchor(
	reportID shared.ReportID,
	studentID shared.StudentID,
	schoolID shared.SchoolID,
	period shared.TimeRange,
	merkleRoot string,
	eventCount int,
	anchoredAt time.Time,
) (*Anchor, error) {
	if !reportID.IsValid() {
		return nil, shared.NewDomainError("report", "NewAnchor", shared.ErrInvalidID, "invalid report ID")
	}
	if studentID.IsEmpty() {
		return nil, shared.NewDomainError("report", "NewAnchor", shared.ErrInvalidID, "empty student ID")
	}
	if !schoolID.IsValid() {
		return nil, shared.NewDomainError("report", "NewAnchor", shared.ErrInvalidID, "invalid school ID")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("report", "NewAnchor", shared.ErrInvalidInput, "invalid reporting period")
	}
	if merkleRoot == "" || eventCount <= 0 {
		return nil, ErrNothingToAnchor
	}

	hash, err := Fingerprint(studentID, period, merkleRoot)
	if err != nil {
		return nil, shared.WrapError("report", "NewAnchor", shared.ErrInvalidInput, "compute report hash", err)
	}

	return &Anchor{
		ReportID:    reportID,
		StudentID:   studentID,
		SchoolID:    schoolID,
		PeriodStart: period.From.UTC().Truncate(time.Microsecond),
		PeriodEnd:   period.To.UTC().Truncate(time.Microsecond),
		MerkleRoot:  merkleRoot,
		EventCount:  eventCount,
		ReportHash:  hash,
		AnchoredAt:  anchoredAt.UTC().Truncate(time.Microsecond),
	}, nil
}

// Fingerprint computes the report hash from its binding inputs. The verifier
// recomputes it with a freshly rebuilt root and compares against the stored
// value, so the formula must stay stable. Period bounds are hashed at
// microsecond precision, the finest granularity the anchor store round-trips.
func Fingerprint(studentID shared.StudentID, period shared.TimeRange, merkleRoot string) (string, error) {
	return hashutil.DoubleHash(map[string]interface{}{
		"studentId":   studentID.String(),
		"periodStart": period.From.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano),
		"periodEnd":   period.To.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano),
		"merkleRoot":  merkleRoot,
	})
}

// Period returns the anchored reporting period.
func (a *Anchor) Period() shared.TimeRange {
	return shared.TimeRange{From: a.PeriodStart, To: a.PeriodEnd}
}
