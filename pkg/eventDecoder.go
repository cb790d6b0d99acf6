package decoder

import "fmt"

// EventDecoder turns framed events into pixel hits. A malformed event is
// dropped whole and counted by failure kind, decoding always continues.
type EventDecoder struct {
	geometry *Geometry
	errors   [Truncated + 1]int
}

func NewEventDecoder(geometry *Geometry) *EventDecoder {
	return &EventDecoder{geometry: geometry}
}

type hitState struct {
	column    int
	row       int
	hasColumn bool
	hasRow    bool
}

func (s *hitState) pending() bool {
	return s.hasColumn || s.hasRow
}

func (s *hitState) clear() {
	*s = hitState{}
}

func (d *EventDecoder) Decode(event RawEvent) DecodeOutcome {
	if event.Truncated {
		return d.drop(event, Truncated, "no trailer")
	}

	var hits []DecodedHit
	var hit hitState
	roc := -1

	for i, word := range event.Words {
		if i == 0 {
			continue
		}
		payload := wordPayload(word)

		switch wordTag(word) {
		case TAG_IDLE:
		case TAG_ROC_HEADER:
			if hit.pending() {
				return d.drop(event, BadAddress, "incomplete hit before ROC header")
			}
			id := payload & ROC_ID_MASK
			if id >= d.geometry.NRoc {
				return d.drop(event, BadAddress, fmt.Sprintf("ROC id %d", id))
			}
			if id <= roc {
				return d.drop(event, SequenceViolation, fmt.Sprintf("ROC %d after ROC %d", id, roc))
			}
			roc = id

		case TAG_COLUMN:
			if roc < 0 {
				return d.drop(event, SequenceViolation, "hit before first ROC header")
			}
			if hit.pending() {
				return d.drop(event, BadAddress, "incomplete hit")
			}
			if payload >= ROC_NUMCOLS {
				return d.drop(event, BadAddress, fmt.Sprintf("column %d", payload))
			}
			hit.column = payload
			hit.hasColumn = true

		case TAG_ROW:
			if !hit.hasColumn || hit.hasRow {
				return d.drop(event, BadAddress, "row word without column")
			}
			if payload > ROW_MASK {
				return d.drop(event, BadAddress, fmt.Sprintf("row address %#x", payload))
			}
			row := payload
			if d.geometry.InvertedRowAddress {
				row = reverseRow(row)
			}
			if row >= ROC_NUMROWS {
				return d.drop(event, BadAddress, fmt.Sprintf("row %d", row))
			}
			hit.row = row
			hit.hasRow = true
			if !d.geometry.AnalogReadout {
				hits = append(hits, DecodedHit{Roc: roc, Column: hit.column, Row: hit.row})
				hit.clear()
			}

		case TAG_PULSE_HEIGHT:
			// digital chips have no analog channel, the word is filler
			if !d.geometry.AnalogReadout {
				continue
			}
			if !hit.hasRow {
				return d.drop(event, BadAddress, "pulse height without address")
			}
			hits = append(hits, DecodedHit{
				Roc:            roc,
				Column:         hit.column,
				Row:            hit.row,
				PulseHeight:    payload,
				HasPulseHeight: true,
			})
			hit.clear()

		case TAG_EVENT_TRAILER:
			if hit.pending() {
				return d.drop(event, BadAddress, "incomplete hit before trailer")
			}
			return DecodeOutcome{Seq: event.Seq, Trigger: event.Trigger, Hits: hits}

		default:
			return d.drop(event, BadAddress, fmt.Sprintf("unexpected word %#04x", uint16(word)))
		}
	}

	if hit.pending() {
		return d.drop(event, BadAddress, "incomplete hit")
	}
	return DecodeOutcome{Seq: event.Seq, Trigger: event.Trigger, Hits: hits}
}

func (d *EventDecoder) drop(event RawEvent, failure Failure, reason string) DecodeOutcome {
	d.errors[failure]++
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Discarding event %d (%s): %s", event.Seq, failure, reason)
		logger.Info(message, "eventDecoder")
	}
	return DecodeOutcome{Seq: event.Seq, Trigger: event.Trigger, Failure: failure}
}

// DecodingErrors returns the number of events dropped in this pass.
func (d *EventDecoder) DecodingErrors() int {
	total := 0
	for _, n := range d.errors {
		total += n
	}
	return total
}

func (d *EventDecoder) Errors(failure Failure) int {
	if failure <= FailureNone || failure > Truncated {
		return 0
	}
	return d.errors[failure]
}

func (d *EventDecoder) Reset() {
	d.errors = [Truncated + 1]int{}
}
