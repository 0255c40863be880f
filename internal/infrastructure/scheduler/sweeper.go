// Package scheduler runs the periodic integrity sweep: every anchored report
// is re-verified against the live ledger on an interval, so silent storage
// corruption surfaces without waiting for someone to request verification.
package scheduler

import (
	"context"
	"time"

	"github.com/veritas-school/assessment-ledger/internal/application/command"
	"github.com/veritas-school/assessment-ledger/internal/application/query"
	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
	"github.com/veritas-school/assessment-ledger/pkg/retry"
)

// SweeperConfig configures the verification sweep.
type SweeperConfig struct {
	// Interval between full sweeps over all anchors.
	Interval time.Duration

	// Timeout bounds a single anchor verification.
	Timeout time.Duration

	// RecordResults appends a report_verified event to the student's ledger
	// after each verification. The audit trail then lives in the same
	// tamper-evident chain it audits.
	RecordResults bool
}

// SweepStats summarizes one completed sweep.
type SweepStats struct {
	Total   int
	Full    int
	Partial int
	Failed  int
	Errored int
	Drifted int
}

// Sweeper iterates all report anchors and verifies each one.
type Sweeper struct {
	anchors  report.AnchorStore
	verify   *query.VerifyReport
	appender *command.AppendEvent
	cpi      *query.ComputeCPI
	cfg      SweeperConfig
	retry    retry.Config
	log      *logger.Logger
}

// NewSweeper creates a sweeper. appender may be nil when results are not
// recorded back into the ledger.
func NewSweeper(
	anchors report.AnchorStore,
	verify *query.VerifyReport,
	appender *command.AppendEvent,
	cfg SweeperConfig,
	log *logger.Logger,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Sweeper{
		anchors:  anchors,
		verify:   verify,
		appender: appender,
		cfg:      cfg,
		retry:    retry.DefaultConfig(),
		log:      log.With(logger.Component("sweeper")),
	}
}

// WithDriftCheck enables a per-student CPI drift check after each sweep pass.
// Drift is a performance signal, not an integrity finding; it only logs and
// counts.
func (s *Sweeper) WithDriftCheck(cpi *query.ComputeCPI) *Sweeper {
	s.cpi = cpi
	return s
}

// Run sweeps immediately, then on every interval tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("verification sweep started",
		logger.Duration("interval", s.cfg.Interval),
	)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("verification sweep stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep verifies every anchor once. A failed verification is a finding, not
// an error: the sweep continues through the full anchor set regardless of
// individual outcomes.
func (s *Sweeper) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats

	var anchors []*report.Anchor
	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		var listErr error
		anchors, listErr = s.anchors.ListAll(ctx)
		return listErr
	})
	if err != nil {
		s.log.Error("sweep aborted, anchor listing failed", logger.Err(err))
		return stats
	}

	stats.Total = len(anchors)
	started := time.Now()

	checked := make(map[string]struct{})
	for _, a := range anchors {
		if ctx.Err() != nil {
			return stats
		}
		s.sweepOne(ctx, a, &stats)
		s.checkDrift(ctx, a, checked, &stats)
	}

	s.log.Info("sweep completed",
		logger.Int("total", stats.Total),
		logger.Int("full", stats.Full),
		logger.Int("partial", stats.Partial),
		logger.Int("failed", stats.Failed),
		logger.Int("errored", stats.Errored),
		logger.Int("drifted", stats.Drifted),
		logger.Latency(time.Since(started)),
	)

	return stats
}

func (s *Sweeper) sweepOne(ctx context.Context, a *report.Anchor, stats *SweepStats) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var result *query.VerificationReport
	err := retry.Do(verifyCtx, s.retry, func(ctx context.Context) error {
		var verifyErr error
		result, verifyErr = s.verify.Handle(ctx, a.ReportID.String())
		return verifyErr
	})
	if err != nil {
		stats.Errored++
		s.log.Error("anchor verification errored",
			logger.ReportID(a.ReportID.String()),
			logger.Err(err),
		)
		return
	}

	switch result.Level {
	case query.VerificationFull:
		stats.Full++
	case query.VerificationPartial:
		stats.Partial++
		s.log.Warn("anchor verified with out-of-range anomalies",
			logger.ReportID(a.ReportID.String()),
			logger.Int("violations", len(result.Chain.Violations)),
		)
	case query.VerificationFailed:
		stats.Failed++
		s.log.Error("anchor verification FAILED",
			logger.ReportID(a.ReportID.String()),
			logger.StudentID(a.StudentID.String()),
			logger.Bool("hash_valid", result.HashValid),
			logger.Bool("root_valid", result.RootValid),
			logger.Bool("chain_valid", result.ChainValid),
		)
	}

	if s.cfg.RecordResults && s.appender != nil {
		s.record(ctx, a, result)
	}
}

// checkDrift recomputes the CPI once per student per sweep and flags drift.
func (s *Sweeper) checkDrift(ctx context.Context, a *report.Anchor, checked map[string]struct{}, stats *SweepStats) {
	if s.cpi == nil {
		return
	}
	studentID := a.StudentID.String()
	if _, done := checked[studentID]; done {
		return
	}
	checked[studentID] = struct{}{}

	result, err := s.cpi.Handle(ctx, studentID)
	if err != nil {
		s.log.Warn("drift check failed", logger.StudentID(studentID), logger.Err(err))
		return
	}
	if result.DriftDetected {
		stats.Drifted++
		s.log.Warn("performance drift detected",
			logger.StudentID(studentID),
			logger.String("model", result.Model),
		)
	}
}

// record appends the verification outcome as a report_verified event. The
// append failing does not fail the sweep.
func (s *Sweeper) record(ctx context.Context, a *report.Anchor, result *query.VerificationReport) {
	_, err := s.appender.Handle(ctx, command.AppendEventInput{
		StudentID: a.StudentID.String(),
		SchoolID:  a.SchoolID.String(),
		EventType: ledger.EventReportVerified.String(),
		Payload: map[string]interface{}{
			"reportId":   a.ReportID.String(),
			"level":      string(result.Level),
			"hashValid":  result.HashValid,
			"rootValid":  result.RootValid,
			"chainValid": result.ChainValid,
			"verifiedAt": result.VerifiedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		s.log.Warn("recording verification result failed",
			logger.ReportID(a.ReportID.String()),
			logger.Err(err),
		)
	}
}
