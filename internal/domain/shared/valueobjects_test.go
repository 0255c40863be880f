package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudentID(t *testing.T) {
	id, err := NewStudentID("  11111111-1111-1111-1111-111111111111 ")
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", id.String())

	upper, err := NewStudentID("ABCDEF01-2345-6789-ABCD-EF0123456789")
	require.NoError(t, err)
	assert.Equal(t, "abcdef01-2345-6789-abcd-ef0123456789", upper.String())

	_, err = NewStudentID("student-42")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewStudentID("")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNewSchoolID_And_ReportID(t *testing.T) {
	_, err := NewSchoolID("22222222-2222-2222-2222-222222222222")
	assert.NoError(t, err)

	_, err = NewReportID("33333333-3333-3333-3333-333333333333")
	assert.NoError(t, err)

	_, err = NewSchoolID("nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestTimeRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(30 * 24 * time.Hour)

	tr, err := NewTimeRange(from, to)
	require.NoError(t, err)
	assert.True(t, tr.Contains(from))
	assert.True(t, tr.Contains(to))
	assert.True(t, tr.Contains(from.Add(time.Hour)))
	assert.False(t, tr.Contains(to.Add(time.Second)))
	assert.Equal(t, 30*24*time.Hour, tr.Duration())

	_, err = NewTimeRange(to, from)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTimeRange(time.Time{}, to)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewTimeRange_TruncatesToStorePrecision(t *testing.T) {
	offset := 123456789 * time.Nanosecond
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr, err := NewTimeRange(from.Add(offset), from.Add(time.Hour).Add(offset))
	require.NoError(t, err)

	assert.Zero(t, tr.From.Nanosecond()%1000)
	assert.Zero(t, tr.To.Nanosecond()%1000)
	assert.Equal(t, offset.Truncate(time.Microsecond), tr.From.Sub(from))
}

func TestDomainError_Matching(t *testing.T) {
	base := NewDomainError("ledger", "Append", ErrValidation, "bad payload")
	assert.ErrorIs(t, base, ErrValidation)
	assert.Contains(t, base.Error(), "ledger.Append")

	inner := errors.New("connection refused")
	wrapped := WrapError("ledger", "Append", ErrStorage, "insert event", inner)
	assert.ErrorIs(t, wrapped, ErrStorage)
	assert.ErrorIs(t, wrapped, inner)
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewDomainError("report", "Find", ErrNotFound, "missing")))
	assert.True(t, IsValidation(NewDomainError("ledger", "Validate", ErrValidation, "bad")))
	assert.True(t, IsStorage(NewDomainError("ledger", "List", ErrStorage, "down")))
	assert.True(t, IsEmptyHistory(NewDomainError("report", "Anchor", ErrEmptyHistory, "empty")))
	assert.False(t, IsNotFound(ErrValidation))
}
