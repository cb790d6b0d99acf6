package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameAll(framer *EventFramer) []RawEvent {
	var events []RawEvent
	for event, ok := framer.Next(); ok; event, ok = framer.Next() {
		events = append(events, event)
	}
	return events
}

func TestFramerCompleteEvents(t *testing.T) {
	geometry := &Geometry{NRoc: 2}
	const m = 25
	hits := make([][]DecodedHit, m)
	for i := range hits {
		hits[i] = []DecodedHit{hit(i%2, i, i)}
	}
	framer := NewEventFramer(newTestSource(t, encodeEvents(geometry, hits...)))

	events := frameAll(framer)
	require.Len(t, events, m)
	for i, event := range events {
		assert.Equal(t, i, event.Seq)
		assert.Equal(t, i, event.Trigger)
		assert.False(t, event.Truncated)
		assert.Equal(t, RawWord(TAG_EVENT_HEADER|i), event.Words[0])
		assert.Equal(t, TAG_EVENT_TRAILER, wordTag(event.Words[len(event.Words)-1]))
	}
	assert.Equal(t, m, framer.Events)
	assert.Equal(t, 0, framer.TruncatedEvents)
	assert.Equal(t, 0, framer.StrayWords)
	assert.Equal(t, 0, framer.LostTriggers)
}

func TestFramerUnwrapsTriggerCounter(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	m := TRIGGER_COUNTER_PERIOD + 100
	framer := NewEventFramer(newTestSource(t, encodeEvents(geometry, make([][]DecodedHit, m)...)))

	events := frameAll(framer)
	require.Len(t, events, m)
	for i, event := range events {
		if event.Trigger != i {
			t.Fatalf("event %d has trigger %d", i, event.Trigger)
		}
	}
	assert.Equal(t, 0, framer.LostTriggers)
}

func TestFramerCountsLostTriggers(t *testing.T) {
	words := []RawWord{
		TAG_EVENT_HEADER | 4094, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
		// header of trigger 4095 lost
		TAG_IDLE, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
		TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
		TAG_EVENT_HEADER | 3, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
	}
	framer := NewEventFramer(newTestSource(t, words))

	events := frameAll(framer)
	require.Len(t, events, 3)
	triggers := []int{events[0].Trigger, events[1].Trigger, events[2].Trigger}
	assert.Equal(t, []int{4094, 4096, 4099}, triggers)
	assert.Equal(t, 4094+1+2, framer.LostTriggers)
	assert.Equal(t, 2, framer.StrayWords)

	framer.Reset()
	assert.Equal(t, 0, framer.LostTriggers)
}

func TestFramerCorruptedCounterMovesOneEvent(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	words := encodeEvents(geometry, make([][]DecodedHit, 10)...)
	// every empty event is header, ROC header, trailer
	words[5*3] = TAG_EVENT_HEADER | 13
	framer := NewEventFramer(newTestSource(t, words))

	events := frameAll(framer)
	require.Len(t, events, 10)
	for i, event := range events {
		if i == 5 {
			assert.Equal(t, 13, event.Trigger)
			continue
		}
		assert.Equal(t, i, event.Trigger, "event %d", i)
	}
}

func TestFramerMissingTrailerAtEnd(t *testing.T) {
	words := []RawWord{
		TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
		TAG_EVENT_HEADER | 1, TAG_ROC_HEADER, TAG_COLUMN | 3, TAG_ROW | 4,
	}
	framer := NewEventFramer(newTestSource(t, words))

	events := frameAll(framer)
	require.Len(t, events, 2)
	assert.False(t, events[0].Truncated)
	assert.True(t, events[1].Truncated)
	assert.Len(t, events[1].Words, 4)
	assert.Equal(t, 1, framer.TruncatedEvents)

	_, ok := framer.Next()
	assert.False(t, ok)
	assert.Equal(t, 1, framer.TruncatedEvents)
}

func TestFramerHeaderInsideEvent(t *testing.T) {
	words := []RawWord{
		TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_COLUMN | 1,
		TAG_EVENT_HEADER | 1, TAG_ROC_HEADER, TAG_EVENT_TRAILER,
	}
	framer := NewEventFramer(newTestSource(t, words))

	events := frameAll(framer)
	require.Len(t, events, 2)
	assert.True(t, events[0].Truncated)
	assert.Equal(t, []RawWord{TAG_EVENT_HEADER, TAG_ROC_HEADER, TAG_COLUMN | 1}, events[0].Words)
	assert.False(t, events[1].Truncated)
	assert.Equal(t, 1, events[1].Seq)
}

func TestFramerStrayWords(t *testing.T) {
	words := []RawWord{
		TAG_IDLE, TAG_COLUMN | 1, TAG_EVENT_TRAILER,
		TAG_EVENT_HEADER, TAG_EVENT_TRAILER,
		TAG_IDLE, TAG_ROW | 2,
	}
	framer := NewEventFramer(newTestSource(t, words))

	events := frameAll(framer)
	require.Len(t, events, 1)
	assert.Equal(t, 3, framer.StrayWords)

	framer.Reset()
	assert.Equal(t, 0, framer.StrayWords)
	assert.Equal(t, 0, framer.Events)
}

func TestFramerEventWordsAreNotShared(t *testing.T) {
	geometry := &Geometry{NRoc: 1}
	words := encodeEvents(geometry, []DecodedHit{hit(0, 1, 1)}, []DecodedHit{hit(0, 2, 2)})
	framer := NewEventFramer(newTestSource(t, words))

	first, ok := framer.Next()
	require.True(t, ok)
	saved := append([]RawWord(nil), first.Words...)
	_, ok = framer.Next()
	require.True(t, ok)
	assert.Equal(t, saved, first.Words)
}
