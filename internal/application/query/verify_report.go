package query

import (
	"context"
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
	"github.com/veritas-school/assessment-ledger/pkg/merkle"
)

// VerificationLevel classifies the outcome of a verification run.
type VerificationLevel string

const (
	// VerificationFull: report hash valid, Merkle root valid, chain valid.
	VerificationFull VerificationLevel = "FULL"

	// VerificationPartial: report hash and root valid, but the chain has
	// anomalies strictly outside the anchored event set (events appended
	// after anchoring).
	VerificationPartial VerificationLevel = "PARTIAL"

	// VerificationFailed: report hash or root mismatch, or anomalies inside
	// the anchored event set.
	VerificationFailed VerificationLevel = "FAILED"
)

// VerificationReport is the structured result of a verification run.
// Integrity failure is an expected, reportable outcome: it is always returned
// here, never thrown. Verification never fixes a broken chain and never
// rewrites an anchor.
type VerificationReport struct {
	ReportID  shared.ReportID   `json:"reportId"`
	StudentID shared.StudentID  `json:"studentId"`
	Level     VerificationLevel `json:"level"`

	HashValid  bool `json:"hashValid"`
	RootValid  bool `json:"rootValid"`
	ChainValid bool `json:"chainValid"`

	StoredRoot   string `json:"storedRoot"`
	ComputedRoot string `json:"computedRoot"`
	StoredHash   string `json:"storedHash"`
	ComputedHash string `json:"computedHash"`

	AnchoredEventCount int                `json:"anchoredEventCount"`
	CurrentEventCount  int                `json:"currentEventCount"`
	Chain              ledger.ChainReport `json:"chain"`

	VerifiedAt time.Time `json:"verifiedAt"`
}

// VerifyReport recomputes a report's fingerprint from the live ledger and
// compares it against the stored anchor. The state machine runs
// RebuildChain -> RebuildMerkle -> RecomputeReportHash -> Compare; every
// stage completes even when an earlier one finds violations, so the report
// carries all findings, not just the first.
type VerifyReport struct {
	events  ledger.EventStore
	anchors report.AnchorStore
	clock   func() time.Time
	log     *logger.Logger
}

// NewVerifyReport creates the handler.
func NewVerifyReport(events ledger.EventStore, anchors report.AnchorStore, log *logger.Logger) *VerifyReport {
	return &VerifyReport{
		events:  events,
		anchors: anchors,
		clock:   func() time.Time { return time.Now().UTC() },
		log:     log.With(logger.Component("verifier")),
	}
}

// WithClock overrides the verification time source. Intended for tests.
func (h *VerifyReport) WithClock(clock func() time.Time) *VerifyReport {
	h.clock = clock
	return h
}

// Handle verifies one anchored report.
//
// The Merkle root is rebuilt over the anchored prefix of the chain (the
// first EventCount confirmed events), so the comparison targets the ledger
// state at generation time: events appended after anchoring legitimately
// change the full tree without touching the anchored root. Whether the chain
// as a whole (new events included) is still internally consistent is reported
// separately in Chain.
func (h *VerifyReport) Handle(ctx context.Context, rawReportID string) (*VerificationReport, error) {
	reportID, err := shared.NewReportID(rawReportID)
	if err != nil {
		return nil, err
	}

	anchor, err := h.anchors.GetByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	events, err := h.events.ListByStudent(ctx, anchor.StudentID, ledger.ConfirmedOnly())
	if err != nil {
		return nil, err
	}

	result := &VerificationReport{
		ReportID:           anchor.ReportID,
		StudentID:          anchor.StudentID,
		StoredRoot:         anchor.MerkleRoot,
		StoredHash:         anchor.ReportHash,
		AnchoredEventCount: anchor.EventCount,
		CurrentEventCount:  len(events),
		VerifiedAt:         h.clock(),
	}

	// RebuildChain: replay the full sequence, collecting all violations.
	result.Chain = ledger.ValidateChain(events)
	result.ChainValid = result.Chain.Valid

	// RebuildMerkle: recompute the point-in-time root over the anchored
	// prefix.
	anchored := events
	if anchor.EventCount < len(events) {
		anchored = events[:anchor.EventCount]
	}
	leaves, err := ledger.LeafHashes(anchored)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, err
	}
	result.ComputedRoot = tree.Root()
	result.RootValid = result.ComputedRoot == anchor.MerkleRoot && len(anchored) == anchor.EventCount

	// RecomputeReportHash: same formula as anchoring, fresh root.
	computedHash, err := report.Fingerprint(anchor.StudentID, anchor.Period(), result.ComputedRoot)
	if err != nil {
		return nil, err
	}
	result.ComputedHash = computedHash
	result.HashValid = computedHash == anchor.ReportHash

	// Compare: combine the three independent booleans into a level.
	result.Level = h.classify(result)

	h.log.Info("report verified",
		logger.ReportID(anchor.ReportID.String()),
		logger.StudentID(anchor.StudentID.String()),
		logger.String("level", string(result.Level)),
		logger.Bool("chain_valid", result.ChainValid),
		logger.Int("violations", len(result.Chain.Violations)),
	)

	return result, nil
}

func (h *VerifyReport) classify(r *VerificationReport) VerificationLevel {
	if !r.HashValid || !r.RootValid {
		return VerificationFailed
	}
	if r.ChainValid {
		return VerificationFull
	}
	// Hash and root hold; decide whether the anomalies touch the anchored set.
	if len(r.Chain.ViolationsBefore(r.AnchoredEventCount)) > 0 {
		return VerificationFailed
	}
	return VerificationPartial
}
