package query

import (
	"context"

	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
)

// SnapshotCache holds recomputed competency snapshots for read performance.
// It is cache-aside and non-authoritative: a miss or failure always degrades
// to recomputation from the ledger.
type SnapshotCache interface {
	Get(ctx context.Context, studentID shared.StudentID) ([]competency.Record, bool, error)
	Set(ctx context.Context, studentID shared.StudentID, records []competency.Record) error
	Invalidate(ctx context.Context, studentID shared.StudentID) error
}

// RecomputeCompetencies rebuilds a student's full competency snapshot from
// confirmed challenge_evaluated events.
type RecomputeCompetencies struct {
	events ledger.EventStore
	engine *competency.Engine
	cache  SnapshotCache
	log    *logger.Logger
}

// NewRecomputeCompetencies creates the handler. cache may be nil.
func NewRecomputeCompetencies(
	events ledger.EventStore,
	engine *competency.Engine,
	cache SnapshotCache,
	log *logger.Logger,
) *RecomputeCompetencies {
	return &RecomputeCompetencies{
		events: events,
		engine: engine,
		cache:  cache,
		log:    log.With(logger.Component("competency")),
	}
}

// Handle returns one record per canonical competency: computed scores for
// assessed competencies, nil score and not_assessed for the rest. The result
// set always equals the full taxonomy, never a partial list.
func (h *RecomputeCompetencies) Handle(ctx context.Context, rawStudentID string) ([]competency.Record, error) {
	studentID, err := shared.NewStudentID(rawStudentID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if records, hit, err := h.cache.Get(ctx, studentID); err != nil {
			h.log.Warn("snapshot cache read failed", logger.StudentID(studentID.String()), logger.Err(err))
		} else if hit {
			return records, nil
		}
	}

	eventType := ledger.EventChallengeEvaluated
	filter := ledger.ConfirmedOnly()
	filter.EventType = &eventType

	events, err := h.events.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, err
	}

	records, err := h.engine.Aggregate(studentID, events)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, studentID, records); err != nil {
			h.log.Warn("snapshot cache write failed", logger.StudentID(studentID.String()), logger.Err(err))
		}
	}

	return records, nil
}
