package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// AnchorStore is an in-memory report.AnchorStore.
type AnchorStore struct {
	mu      sync.RWMutex
	anchors map[shared.ReportID]*report.Anchor
}

// NewAnchorStore creates an empty store.
func NewAnchorStore() *AnchorStore {
	return &AnchorStore{anchors: make(map[shared.ReportID]*report.Anchor)}
}

// Save persists a new anchor. Anchors are write-once.
func (s *AnchorStore) Save(ctx context.Context, a *report.Anchor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.anchors[a.ReportID]; exists {
		return report.ErrAnchorExists
	}

	clone := *a
	s.anchors[a.ReportID] = &clone
	return nil
}

// GetByReportID returns the anchor for a report.
func (s *AnchorStore) GetByReportID(ctx context.Context, reportID shared.ReportID) (*report.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.anchors[reportID]
	if !ok {
		return nil, report.ErrAnchorNotFound
	}
	clone := *a
	return &clone, nil
}

// ListByStudent returns all anchors for a student, most recent first.
func (s *AnchorStore) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*report.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*report.Anchor, 0)
	for _, a := range s.anchors {
		if a.StudentID != studentID {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sortAnchors(out)
	return out, nil
}

// ListAll returns every anchor, most recent first.
func (s *AnchorStore) ListAll(ctx context.Context) ([]*report.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*report.Anchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		clone := *a
		out = append(out, &clone)
	}
	sortAnchors(out)
	return out, nil
}

func sortAnchors(anchors []*report.Anchor) {
	sort.Slice(anchors, func(i, j int) bool {
		if anchors[i].AnchoredAt.Equal(anchors[j].AnchoredAt) {
			return anchors[i].ReportID < anchors[j].ReportID
		}
		return anchors[i].AnchoredAt.After(anchors[j].AnchoredAt)
	})
}
