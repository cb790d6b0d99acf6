package decoder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRunLog(t *testing.T) *RunLog {
	t.Helper()
	runLog, err := OpenRunLog("sqlite", filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runLog.Close() })
	runLog.now = func() time.Time { return time.Unix(1700000000, 0) }
	return runLog
}

func TestRunLogPasses(t *testing.T) {
	ctx := context.Background()
	runLog := openTestRunLog(t)
	_, err := uuid.Parse(runLog.RunID)
	require.NoError(t, err)

	summary := PassSummary{Events: 41600, Truncated: 1, BadAddress: 2, SequenceViolations: 3, DecodingErrors: 6, StrayWords: 7, LostTriggers: 8, Hits: 83200}
	require.NoError(t, runLog.RecordPass(ctx, "efficiency", 1, summary))
	require.NoError(t, runLog.RecordPass(ctx, "efficiency", 0, PassSummary{Events: 10}))
	assert.Error(t, runLog.RecordPass(ctx, "efficiency", 0, PassSummary{}))

	passes, err := runLog.Passes(ctx)
	require.NoError(t, err)
	want := []PassRecord{
		{RunID: runLog.RunID, Test: "efficiency", PassNumber: 0, RecordedAt: 1700000000, Events: 10},
		{
			RunID: runLog.RunID, Test: "efficiency", PassNumber: 1, RecordedAt: 1700000000,
			Events: 41600, Truncated: 1, BadAddress: 2, SequenceViolations: 3, DecodingErrors: 6, StrayWords: 7, LostTriggers: 8, Hits: 83200,
		},
	}
	if diff := cmp.Diff(want, passes); diff != "" {
		t.Errorf("passes mismatch (-want +got):\n%s", diff)
	}
}

func TestRunLogMeasurements(t *testing.T) {
	ctx := context.Background()
	runLog := openTestRunLog(t)

	require.NoError(t, runLog.RecordMeasurement(ctx, "efficiency_C0", Measurement{Value: 99.5, Error: 0.1}, "%"))
	require.NoError(t, runLog.RecordMeasurement(ctx, "background_C0", Measurement{Value: 1.25, Error: 0.5}, "MHz/cm2"))
	assert.Error(t, runLog.RecordMeasurement(ctx, "efficiency_C0", Measurement{}, "%"))

	other, err := NewRunLog(runLog.db)
	require.NoError(t, err)
	require.NoError(t, other.RecordMeasurement(ctx, "efficiency_C0", Measurement{Value: 50}, "%"))

	measurements, err := runLog.Measurements(ctx)
	require.NoError(t, err)
	want := []MeasurementRecord{
		{RunID: runLog.RunID, Name: "background_C0", Measured: 1.25, Uncertainty: 0.5, Unit: "MHz/cm2"},
		{RunID: runLog.RunID, Name: "efficiency_C0", Measured: 99.5, Uncertainty: 0.1, Unit: "%"},
	}
	assert.Equal(t, want, measurements)

	measurements, err = other.Measurements(ctx)
	require.NoError(t, err)
	require.Len(t, measurements, 1)
	assert.Equal(t, 50.0, measurements[0].Measured)
}
