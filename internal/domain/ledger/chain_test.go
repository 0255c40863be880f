package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain constructs a well-formed chain of n confirmed events, one minute
// apart, properly hash-linked.
func buildChain(t *testing.T, n int) []*Event {
	t.Helper()

	events := make([]*Event, 0, n)
	prev := "GENESIS"
	for i := 0; i < n; i++ {
		e, err := NewEvent(
			fmt.Sprintf("evt-%d", i),
			testStudentID,
			testSchoolID,
			EventChallengeEvaluated,
			map[string]interface{}{
				"scores": []interface{}{
					map[string]interface{}{"competency": "critical-thinking", "score": 70.0 + float64(i)},
				},
			},
			testBase.Add(time.Duration(i)*time.Minute),
			prev,
		)
		require.NoError(t, err)
		events = append(events, e)
		prev = e.Hash
	}
	return events
}

func TestValidateChain_Empty(t *testing.T) {
	report := ValidateChain(nil)

	assert.True(t, report.Valid)
	assert.Equal(t, 0, report.EventCount)
	assert.Equal(t, -1, report.BrokenAt)
	assert.Empty(t, report.Violations)
}

func TestValidateChain_Intact(t *testing.T) {
	report := ValidateChain(buildChain(t, 10))

	assert.True(t, report.Valid)
	assert.Equal(t, 10, report.EventCount)
	assert.Equal(t, -1, report.BrokenAt)
	assert.Empty(t, report.Violations)
}

func TestValidateChain_CleanAfterStoreRoundTrip(t *testing.T) {
	// Chain appended with nanosecond wall-clock timestamps, read back at the
	// microsecond precision the store keeps. An untampered chain must still
	// replay clean.
	offset := 123456789 * time.Nanosecond
	events := make([]*Event, 0, 3)
	prev := "GENESIS"
	for i := 0; i < 3; i++ {
		e, err := NewEvent(
			fmt.Sprintf("evt-%d", i),
			testStudentID,
			testSchoolID,
			EventReportShared,
			map[string]interface{}{},
			testBase.Add(time.Duration(i)*time.Minute).Add(offset),
			prev,
		)
		require.NoError(t, err)
		events = append(events, e)
		prev = e.Hash
	}

	for _, e := range events {
		e.Timestamp = e.Timestamp.Truncate(time.Microsecond)
	}

	report := ValidateChain(events)

	assert.True(t, report.Valid)
	assert.Equal(t, -1, report.BrokenAt)
	assert.Empty(t, report.Violations)
}

func TestValidateChain_TamperedPayloadCascades(t *testing.T) {
	events := buildChain(t, 5)

	// Simulate a hostile direct write: content edited, stored hash untouched.
	events[2].Payload = map[string]interface{}{
		"scores": []interface{}{
			map[string]interface{}{"competency": "critical-thinking", "score": 100.0},
		},
	}

	report := ValidateChain(events)

	assert.False(t, report.Valid)
	assert.Equal(t, 2, report.BrokenAt)

	kinds := violationKinds(report)
	// The edited event fails its own hash check.
	assert.Contains(t, kinds[2], ViolationHashMismatch)
	// Its successor links to the stored (stale) hash, which no longer matches
	// the recomputed one.
	assert.Contains(t, kinds[3], ViolationLinkMismatch)
	// Everything at or beyond the break is flagged.
	for i := 3; i < 5; i++ {
		assert.NotEmpty(t, kinds[i], "event %d should carry a violation", i)
	}
	// Events before the break stay clean.
	assert.Empty(t, kinds[0])
	assert.Empty(t, kinds[1])
}

func TestValidateChain_ForgedLink(t *testing.T) {
	events := buildChain(t, 4)
	events[2].PreviousHash = events[0].Hash // points at the wrong predecessor

	report := ValidateChain(events)

	assert.False(t, report.Valid)
	assert.Equal(t, 2, report.BrokenAt)

	kinds := violationKinds(report)
	assert.Contains(t, kinds[2], ViolationLinkMismatch)
	// Content hashes are untouched, so only linkage breaks; the rest of the
	// chain is downstream of a break.
	assert.NotContains(t, kinds[2], ViolationHashMismatch)
	assert.Contains(t, kinds[3], ViolationDownstreamBroken)
}

func TestValidateChain_FirstEventMustBeGenesis(t *testing.T) {
	events := buildChain(t, 2)
	events[0].PreviousHash = events[1].Hash

	report := ValidateChain(events)

	assert.False(t, report.Valid)
	assert.Equal(t, 0, report.BrokenAt)
	assert.Contains(t, violationKinds(report)[0], ViolationLinkMismatch)
}

func TestValidateChain_TimestampRegression(t *testing.T) {
	events := buildChain(t, 3)
	// Rebuild the middle event with an earlier timestamp but valid links, so
	// only the ordering check fires for it.
	regressed, err := NewEvent(
		events[1].EventID,
		events[1].StudentID,
		events[1].SchoolID,
		events[1].EventType,
		events[1].Payload,
		testBase.Add(-time.Hour),
		events[0].Hash,
	)
	require.NoError(t, err)
	events[1] = regressed

	report := ValidateChain(events)

	assert.False(t, report.Valid)
	kinds := violationKinds(report)
	assert.Contains(t, kinds[1], ViolationTimestampRegression)
}

func TestValidateChain_NeverAbortsEarly(t *testing.T) {
	events := buildChain(t, 6)
	events[1].Payload = map[string]interface{}{"tampered": true}
	events[4].Payload = map[string]interface{}{"tampered": "again"}

	report := ValidateChain(events)

	kinds := violationKinds(report)
	assert.Contains(t, kinds[1], ViolationHashMismatch)
	assert.Contains(t, kinds[4], ViolationHashMismatch)
	assert.Equal(t, 1, report.BrokenAt)
}

func TestViolationsBefore(t *testing.T) {
	events := buildChain(t, 6)
	events[4].Payload = map[string]interface{}{"tampered": true}

	report := ValidateChain(events)
	require.False(t, report.Valid)

	assert.Empty(t, report.ViolationsBefore(4))
	assert.NotEmpty(t, report.ViolationsBefore(5))
}

func violationKinds(r ChainReport) map[int][]ViolationKind {
	kinds := make(map[int][]ViolationKind)
	for _, v := range r.Violations {
		kinds[v.Index] = append(kinds[v.Index], v.Kind)
	}
	return kinds
}
