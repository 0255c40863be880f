package report

import (
	"context"

	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// AnchorStore persists report anchors. Anchors are write-once; there is no
// update operation.
type AnchorStore interface {
	// Save persists a new anchor. Returns ErrAnchorExists if the report is
	// already anchored.
	Save(ctx context.Context, anchor *Anchor) error

	// GetByReportID returns the anchor for a report, or ErrAnchorNotFound.
	GetByReportID(ctx context.Context, reportID shared.ReportID) (*Anchor, error)

	// ListByStudent returns all anchors for a student, most recent first.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Anchor, error)

	// ListAll returns every anchor. Used by the periodic verification sweep.
	ListAll(ctx context.Context) ([]*Anchor, error)
}
