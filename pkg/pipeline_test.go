package decoder

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineDispatchOrder(t *testing.T) {
	geometry := &Geometry{NRoc: 2}
	words := encodeEvents(geometry, []DecodedHit{hit(0, 1, 1)}, nil, []DecodedHit{hit(1, 2, 2)})

	var journal []string
	a := &recordingSink{name: "a", journal: &journal}
	b := &recordingSink{name: "b", journal: &journal}
	summary, err := RunPass(newTestSource(t, words), geometry, nil, a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, journal)
	assert.Equal(t, 1, a.finalized)
	assert.Equal(t, 1, b.finalized)
	if diff := cmp.Diff(a.outcomes, b.outcomes); diff != "" {
		t.Errorf("sinks saw different outcomes (-a +b):\n%s", diff)
	}
	for i, outcome := range a.outcomes {
		assert.Equal(t, i, outcome.Seq)
		assert.Equal(t, i, outcome.Trigger)
	}
	assert.Equal(t, PassSummary{Events: 3, Hits: 2}, summary)
}

func TestPipelineRunsOnce(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	sink := &recordingSink{}
	p := NewPipeline(newTestSource(t, encodeEvents(geometry, nil)), NewEventDecoder(geometry))

	_, err := p.Run()
	assert.ErrorIs(t, err, ErrNoSinks)

	require.NoError(t, p.Attach(sink))
	_, err = p.Run()
	require.NoError(t, err)

	_, err = p.Run()
	assert.ErrorIs(t, err, ErrPassDone)
	assert.ErrorIs(t, p.Attach(&recordingSink{}), ErrPipelineStarted)
	assert.Equal(t, 1, sink.finalized)
	assert.Len(t, sink.outcomes, 1)
}

func TestPipelineRejectsConsumedSource(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	source := newTestSource(t, encodeEvents(geometry, nil))
	_, err := RunPass(source, geometry, nil, &recordingSink{})
	require.NoError(t, err)

	sink := &recordingSink{}
	_, err = RunPass(source, geometry, nil, sink)
	assert.ErrorIs(t, err, ErrSourceConsumed)
	assert.Zero(t, sink.finalized)
}

func TestPipelineStampsArmedPixel(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	schedule, err := NewScanSchedule([]Pixel{{1, 1}, {2, 2}}, 2)
	require.NoError(t, err)

	var events [][]DecodedHit
	for seq := 0; seq < 5; seq++ {
		events = append(events, []DecodedHit{hit(0, 1, 1), hit(0, 2, 2)})
	}
	sink := &recordingSink{}
	_, err = RunPass(newTestSource(t, encodeEvents(geometry, events...)), geometry, schedule, sink)
	require.NoError(t, err)
	require.Len(t, sink.outcomes, 5)

	for seq, outcome := range sink.outcomes[:4] {
		armed := schedule.Pixels[seq/2]
		assert.True(t, outcome.HasArmed)
		assert.Equal(t, armed, outcome.Armed)
		for _, h := range outcome.Hits {
			assert.Equal(t, h.Pixel() == armed, h.IsCalibrationSignal, "event %d hit %v", seq, h.Pixel())
		}
	}

	last := sink.outcomes[4]
	assert.False(t, last.HasArmed)
	for _, h := range last.Hits {
		assert.False(t, h.IsCalibrationSignal)
	}
}

func TestLostHeaderCostsOnlyItsOwnEvent(t *testing.T) {
	const triggers = 2
	geometry := &Geometry{NRoc: 1}
	schedule, err := NewScanSchedule([]Pixel{{1, 1}, {2, 2}, {3, 3}}, triggers)
	require.NoError(t, err)

	words := encodeScan(geometry, schedule)
	require.Equal(t, RawWord(TAG_EVENT_HEADER), words[0])
	words[0] = TAG_IDLE

	efficiency := NewEfficiencyAggregator(geometry.NRoc, triggers)
	summary, err := RunPass(newTestSource(t, words), geometry, schedule, efficiency)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Events)
	assert.Equal(t, 1, summary.LostTriggers)
	assert.Equal(t, 4, summary.StrayWords)
	assert.Equal(t, 0, summary.DecodingErrors)

	s := efficiency.Snapshot()
	assert.Equal(t, 1, s.EfficiencyMap(0).At(1, 1))
	assert.Equal(t, 2, s.EfficiencyMap(0).At(2, 2))
	assert.Equal(t, 2, s.EfficiencyMap(0).At(3, 3))
	assert.Zero(t, s.BackgroundMap(0).Sum())
	assert.InDelta(t, 100*5.0/6.0, OverallEfficiency(s, 0, nil).Value, 1e-9)
}

func TestPipelineTruncatedEventHasNoHits(t *testing.T) {
	geometry := &Geometry{NRoc: 2}
	words := []RawWord{TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_COLUMN | 3, TAG_ROW | 4}
	words = append(words, encodeEvents(geometry, []DecodedHit{hit(1, 5, 5)})...)
	words = append(words, TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_COLUMN|7, TAG_ROW|7)

	sink := &recordingSink{}
	counter := NewEventCounter()
	summary, err := RunPass(newTestSource(t, words), geometry, nil, sink, counter)
	require.NoError(t, err)
	require.Len(t, sink.outcomes, 3)

	assert.Equal(t, Truncated, sink.outcomes[0].Failure)
	assert.Empty(t, sink.outcomes[0].Hits)
	assert.True(t, sink.outcomes[1].OK())
	assert.Len(t, sink.outcomes[1].Hits, 1)
	assert.Equal(t, Truncated, sink.outcomes[2].Failure)
	assert.Empty(t, sink.outcomes[2].Hits)

	assert.Equal(t, 2, summary.Truncated)
	assert.Equal(t, 2, summary.DecodingErrors)
	assert.Equal(t, 1, summary.Hits)
	assert.Equal(t, EventCounts{DataCounter: 1}, counter.Snapshot())
}

func TestCheckpointSinksUndoesAbortedPass(t *testing.T) {
	geometry := &Geometry{NRoc: 1, AnalogReadout: true}
	hits := []DecodedHit{{Roc: 0, Column: 7, Row: 7, PulseHeight: 50}, {Roc: 0, Column: 9, Row: 3, PulseHeight: 80}}
	words := encodeEvents(geometry, hits, hits)

	counter := NewEventCounter()
	hitMap := NewHitMapAggregator(1, 1)
	multiplicity := NewMultiplicityAggregator(1)
	pulseHeight := NewPulseHeightAggregator(1)
	sinks := []Sink{counter, hitMap, multiplicity, pulseHeight}
	_, err := RunPass(newTestSource(t, words), geometry, nil, sinks...)
	require.NoError(t, err)
	counts, maps, multiplicities, pulseHeights := counter.Snapshot(), hitMap.Snapshot(), multiplicity.Snapshot(), pulseHeight.Snapshot()

	restore := CheckpointSinks(sinks...)
	assert.Panics(t, func() {
		_, _ = RunPass(newTestSource(t, words), geometry, nil, append(sinks, &panickingSink{after: 1})...)
	})
	require.Equal(t, 4, counter.DataCounter)

	restore()
	for _, sink := range sinks {
		sink.Finalize()
	}
	assert.Equal(t, counts, counter.Snapshot())
	if diff := cmp.Diff(maps, hitMap.Snapshot()); diff != "" {
		t.Errorf("hit maps changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(multiplicities, multiplicity.Snapshot()); diff != "" {
		t.Errorf("multiplicity changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(pulseHeights, pulseHeight.Snapshot()); diff != "" {
		t.Errorf("pulse height changed (-before +after):\n%s", diff)
	}
}

func TestPipelineReportsSourceError(t *testing.T) {
	readErr := errors.New("usb transfer failed")
	buffer := &failingBuffer{words: 2 * SOURCE_BLOCK_WORDS, failAt: SOURCE_BLOCK_WORDS, readErr: readErr}
	source, err := NewRawWordSource(buffer, 0)
	require.NoError(t, err)

	summary, err := RunPass(source, &Geometry{NRoc: 1}, nil, &recordingSink{})
	require.NoError(t, err)
	assert.ErrorIs(t, summary.SourceErr, readErr)
}

func TestFullScanIsFullyEfficient(t *testing.T) {
	const triggers = 10
	geometry := &Geometry{NRoc: 2}
	schedule, err := NewScanSchedule(ColumnMajorScan(geometry.NRoc, nil), triggers)
	require.NoError(t, err)
	require.Equal(t, ROC_NUMCOLS*ROC_NUMROWS*triggers, schedule.Events())

	efficiency := NewEfficiencyAggregator(geometry.NRoc, triggers)
	counter := NewEventCounter()
	summary, err := RunPass(newTestSource(t, encodeScan(geometry, schedule)), geometry, schedule, counter, efficiency)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.DecodingErrors)
	assert.Equal(t, schedule.Events(), counter.Snapshot().DataCounter)
	assert.Equal(t, 0, counter.Snapshot().RocSequenceErrorCounter)

	s := efficiency.Snapshot()
	assert.Equal(t, ROC_NUMCOLS*ROC_NUMROWS, s.ArmedPixels())
	for _, roc := range []int{0, 1, ModuleIndex} {
		assert.InDelta(t, 100, OverallEfficiency(s, roc, nil).Value, 1e-9, "roc %d", roc)
		assert.InDelta(t, 100, CoreEfficiency(s, roc, nil).Value, 1e-9, "roc %d", roc)
		assert.Zero(t, OverallEfficiency(s, roc, nil).Error)
		assert.Zero(t, BackgroundRate(s, roc, nil).Value)
	}
	assert.EqualValues(t, ROC_NUMCOLS*ROC_NUMROWS, s.EfficiencyDistribution(0).Counts[triggers])
	assert.EqualValues(t, 2*ROC_NUMCOLS*ROC_NUMROWS, s.EfficiencyDistribution(ModuleIndex).Counts[triggers])
	assert.Zero(t, s.Overflows)
}
