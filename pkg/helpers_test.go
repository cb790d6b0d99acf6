package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, words []RawWord) *RawWordSource {
	t.Helper()
	source, err := NewRawWordSource(NewMemoryBuffer(words), 2*len(words))
	require.NoError(t, err)
	return source
}

// encodeEvents encodes one event per hit list.
func encodeEvents(geometry *Geometry, events ...[]DecodedHit) []RawWord {
	encoder := NewEventEncoder(geometry)
	var words []RawWord
	for _, hits := range events {
		words = encoder.Append(words, hits)
	}
	return words
}

// encodeScan encodes a calibration scan where every trigger gives a hit on
// the armed pixel of every ROC.
func encodeScan(geometry *Geometry, schedule *ScanSchedule) []RawWord {
	encoder := NewEventEncoder(geometry)
	var words []RawWord
	hits := make([]DecodedHit, geometry.NRoc)
	for trigger := 0; trigger < schedule.Events(); trigger++ {
		armed, _ := schedule.ArmedPixel(trigger)
		for roc := range hits {
			hits[roc] = DecodedHit{Roc: roc, Column: armed.Column, Row: armed.Row, PulseHeight: 100}
		}
		words = encoder.Append(words, hits)
	}
	return words
}

func hit(roc, col, row int) DecodedHit {
	return DecodedHit{Roc: roc, Column: col, Row: row}
}

// recordingSink keeps every outcome it receives.
type recordingSink struct {
	name      string
	outcomes  []DecodeOutcome
	finalized int
	journal   *[]string
}

func (s *recordingSink) Consume(outcome DecodeOutcome) {
	s.outcomes = append(s.outcomes, outcome)
	if s.journal != nil {
		*s.journal = append(*s.journal, s.name)
	}
}

func (s *recordingSink) Finalize() {
	s.finalized++
}

// panickingSink panics on the outcome after the first after ones.
type panickingSink struct {
	after int
	seen  int
}

func (s *panickingSink) Consume(DecodeOutcome) {
	s.seen++
	if s.seen > s.after {
		panic("sink failed")
	}
}

func (s *panickingSink) Finalize() {}
