package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
	"github.com/veritas-school/assessment-ledger/pkg/merkle"
)

// AnchorReport binds a generated report to the ledger state at the moment of
// generation. It does not validate report content, only makes later tampering
// with either the report row or the ledger detectable.
type AnchorReport struct {
	events  ledger.EventStore
	anchors report.AnchorStore
	clock   func() time.Time
	log     *logger.Logger
}

// NewAnchorReport creates the handler.
func NewAnchorReport(events ledger.EventStore, anchors report.AnchorStore, log *logger.Logger) *AnchorReport {
	return &AnchorReport{
		events:  events,
		anchors: anchors,
		clock:   func() time.Time { return time.Now().UTC() },
		log:     log.With(logger.Component("report")),
	}
}

// WithClock overrides the anchoring time source. Intended for tests.
func (h *AnchorReport) WithClock(clock func() time.Time) *AnchorReport {
	h.clock = clock
	return h
}

// AnchorReportInput carries the anchoring request.
type AnchorReportInput struct {
	StudentID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Handle rebuilds the Merkle tree over the student's confirmed events,
// computes the report hash, and persists the anchor. A student with zero
// confirmed events is a valid "not yet anchorable" state and surfaces as
// report.ErrNothingToAnchor.
func (h *AnchorReport) Handle(ctx context.Context, in AnchorReportInput) (*report.Anchor, error) {
	studentID, err := shared.NewStudentID(in.StudentID)
	if err != nil {
		return nil, err
	}
	period, err := shared.NewTimeRange(in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return nil, err
	}

	events, err := h.events.ListByStudent(ctx, studentID, ledger.ConfirmedOnly())
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, report.ErrNothingToAnchor
	}

	leaves, err := ledger.LeafHashes(events)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, err
	}

	reportID := shared.ReportID(uuid.NewString())
	schoolID := events[len(events)-1].SchoolID
	anchor, err := report.NewAnchor(reportID, studentID, schoolID, period, tree.Root(), tree.LeafCount(), h.clock())
	if err != nil {
		return nil, err
	}

	if err := h.anchors.Save(ctx, anchor); err != nil {
		return nil, err
	}

	h.log.Info("report anchored",
		logger.StudentID(studentID.String()),
		logger.ReportID(anchor.ReportID.String()),
		logger.MerkleRoot(anchor.MerkleRoot),
		logger.Int("event_count", anchor.EventCount),
	)

	return anchor, nil
}
