package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/hashutil"
)

func testAnchor(t *testing.T, reportID string, anchoredAt time.Time) *report.Anchor {
	t.Helper()
	period, err := shared.NewTimeRange(base, base.Add(24*time.Hour))
	require.NoError(t, err)

	a, err := report.NewAnchor(
		shared.ReportID(reportID),
		studentA,
		schoolA,
		period,
		hashutil.HashBytes([]byte(reportID)),
		3,
		anchoredAt,
	)
	require.NoError(t, err)
	return a
}

func TestAnchorStore_SaveAndGet(t *testing.T) {
	store := NewAnchorStore()
	ctx := context.Background()
	a := testAnchor(t, "33333333-3333-3333-3333-333333333333", base)

	require.NoError(t, store.Save(ctx, a))

	got, err := store.GetByReportID(ctx, a.ReportID)
	require.NoError(t, err)
	assert.Equal(t, a.ReportHash, got.ReportHash)
}

func TestAnchorStore_WriteOnce(t *testing.T) {
	store := NewAnchorStore()
	ctx := context.Background()
	a := testAnchor(t, "33333333-3333-3333-3333-333333333333", base)

	require.NoError(t, store.Save(ctx, a))
	assert.ErrorIs(t, store.Save(ctx, a), report.ErrAnchorExists)
}

func TestAnchorStore_NotFound(t *testing.T) {
	store := NewAnchorStore()

	_, err := store.GetByReportID(context.Background(), "44444444-4444-4444-4444-444444444444")
	assert.ErrorIs(t, err, report.ErrAnchorNotFound)
}

func TestAnchorStore_ListMostRecentFirst(t *testing.T) {
	store := NewAnchorStore()
	ctx := context.Background()

	older := testAnchor(t, "33333333-3333-3333-3333-333333333333", base)
	newer := testAnchor(t, "44444444-4444-4444-4444-444444444444", base.Add(time.Hour))
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	byStudent, err := store.ListByStudent(ctx, studentA)
	require.NoError(t, err)
	require.Len(t, byStudent, 2)
	assert.Equal(t, newer.ReportID, byStudent[0].ReportID)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAnchorStore_StoredCopyIsolated(t *testing.T) {
	store := NewAnchorStore()
	ctx := context.Background()
	a := testAnchor(t, "33333333-3333-3333-3333-333333333333", base)

	require.NoError(t, store.Save(ctx, a))
	a.ReportHash = "clobbered"

	got, err := store.GetByReportID(ctx, a.ReportID)
	require.NoError(t, err)
	assert.NotEqual(t, "clobbered", got.ReportHash)
}
