package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/internal/infrastructure/persistence/memory"
)

// fakeSnapshotCache is an in-process SnapshotCache double with fault injection.
type fakeSnapshotCache struct {
	entries map[shared.StudentID][]competency.Record
	fail    bool

	gets, sets, invalidations int
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[shared.StudentID][]competency.Record)}
}

func (c *fakeSnapshotCache) Get(_ context.Context, studentID shared.StudentID) ([]competency.Record, bool, error) {
	c.gets++
	if c.fail {
		return nil, false, errors.New("cache down")
	}
	records, ok := c.entries[studentID]
	return records, ok, nil
}

func (c *fakeSnapshotCache) Set(_ context.Context, studentID shared.StudentID, records []competency.Record) error {
	c.sets++
	if c.fail {
		return errors.New("cache down")
	}
	c.entries[studentID] = records
	return nil
}

func (c *fakeSnapshotCache) Invalidate(_ context.Context, studentID shared.StudentID) error {
	c.invalidations++
	if c.fail {
		return errors.New("cache down")
	}
	delete(c.entries, studentID)
	return nil
}

func TestRecomputeCompetencies_FullTaxonomy(t *testing.T) {
	f := newFixture()
	f.append(t, 0, 70)
	f.append(t, 1, 90)

	h := NewRecomputeCompetencies(f.events, competency.DefaultEngine(), nil, testLogger())
	records, err := h.Handle(context.Background(), studentA)
	require.NoError(t, err)
	require.Len(t, records, len(competency.Canonical()))

	for _, r := range records {
		if r.Competency == competency.CriticalThinking {
			require.NotNil(t, r.Score)
			assert.Equal(t, 80.0, *r.Score)
			assert.Equal(t, 2, r.Observations)
			continue
		}
		assert.Nil(t, r.Score)
		assert.Equal(t, competency.StatusNotAssessed, r.Status)
	}
}

func TestRecomputeCompetencies_CacheAside(t *testing.T) {
	f := newFixture()
	f.append(t, 0, 70)

	cache := newFakeSnapshotCache()
	h := NewRecomputeCompetencies(f.events, competency.DefaultEngine(), cache, testLogger())
	ctx := context.Background()

	first, err := h.Handle(ctx, studentA)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := h.Handle(ctx, studentA)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.sets) // hit, no rewrite
}

func TestRecomputeCompetencies_CacheFailureDegradesToRecompute(t *testing.T) {
	f := newFixture()
	f.append(t, 0, 70)

	cache := newFakeSnapshotCache()
	cache.fail = true
	h := NewRecomputeCompetencies(f.events, competency.DefaultEngine(), cache, testLogger())

	records, err := h.Handle(context.Background(), studentA)
	require.NoError(t, err)
	assert.Len(t, records, len(competency.Canonical()))
}

func TestRecomputeCompetencies_InvalidStudentID(t *testing.T) {
	h := NewRecomputeCompetencies(memory.NewLedgerStore(), competency.DefaultEngine(), nil, testLogger())

	_, err := h.Handle(context.Background(), "whoever")
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestComputeCPI_FromLedger(t *testing.T) {
	f := newFixture()
	for i, score := range []float64{70, 80, 90, 60, 100} {
		f.append(t, i, score)
	}

	h := NewComputeCPI(f.events, competency.DefaultEngine())
	result, err := h.Handle(context.Background(), studentA)
	require.NoError(t, err)

	require.NotNil(t, result.CPI)
	assert.Equal(t, 80.0, *result.CPI)
	assert.Equal(t, competency.CPIModel, result.Model)
}

func TestComputeCPI_EmptyLedger(t *testing.T) {
	h := NewComputeCPI(memory.NewLedgerStore(), competency.DefaultEngine())

	result, err := h.Handle(context.Background(), studentA)
	require.NoError(t, err)
	assert.Nil(t, result.CPI)
	assert.False(t, result.DriftDetected)
}
