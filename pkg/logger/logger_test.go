package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Options{Output: buf, Level: LevelDebug}), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry LogEntry
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_JSONOutput(t *testing.T) {
	log, buf := capture()

	log.Info("report anchored", ReportID("r-1"), Int("event_count", 5))

	entry := lastEntry(t, buf)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "report anchored", entry.Message)
	assert.Equal(t, "r-1", entry.Fields["report_id"])
	assert.Equal(t, float64(5), entry.Fields["event_count"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf, Level: LevelWarn})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("visible")

	entry := lastEntry(t, buf)
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestLogger_WithFieldsPropagate(t *testing.T) {
	log, buf := capture()
	child := log.With(Component("ledger"), StudentID("s-1"))

	child.Info("event appended", EventID("e-1"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "ledger", entry.Fields["component"])
	assert.Equal(t, "s-1", entry.Fields["student_id"])
	assert.Equal(t, "e-1", entry.Fields["event_id"])
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	log, buf := capture()
	_ = log.With(Component("child"))

	log.Info("from parent")

	entry := lastEntry(t, buf)
	assert.NotContains(t, entry.Fields, "component")
}

func TestLogger_ErrField(t *testing.T) {
	log, buf := capture()

	log.Error("append failed", Err(errors.New("boom")))

	entry := lastEntry(t, buf)
	assert.Equal(t, "boom", entry.Fields["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelInfo, ParseLevel("mystery"))
}

func TestContextRoundTrip(t *testing.T) {
	log, _ := capture()
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
