package decoder

import "math/bits"

// Readout word layout: bits 15-12 tag, bits 11-0 payload.
//
//	0x8 event header   payload: trigger counter
//	0x7 ROC header     bits 3-0 ROC id, bits 11-4 last DAC readback
//	0x1 column         bits 5-0 column
//	0x2 row            bits 6-0 row address, bit reversed on inverted chips
//	0x3 pulse height   12 bit ADC code of the analog channel
//	0x4 event trailer  payload: status
//	0x0 idle
const (
	TAG_MASK     = 0xF000
	PAYLOAD_MASK = 0x0FFF

	TAG_IDLE          = 0x0000
	TAG_COLUMN        = 0x1000
	TAG_ROW           = 0x2000
	TAG_PULSE_HEIGHT  = 0x3000
	TAG_EVENT_TRAILER = 0x4000
	TAG_ROC_HEADER    = 0x7000
	TAG_EVENT_HEADER  = 0x8000

	ROC_ID_MASK  = 0x000F
	COLUMN_MASK  = 0x003F
	ROW_MASK     = 0x007F
	ROW_BITS     = 7
	MAX_ADC_CODE = PAYLOAD_MASK

	// The header trigger counter wraps after this many triggers
	TRIGGER_COUNTER_PERIOD = PAYLOAD_MASK + 1
)

func wordTag(word RawWord) int {
	return int(word & TAG_MASK)
}

func wordPayload(word RawWord) int {
	return int(word & PAYLOAD_MASK)
}

// reverseRow swaps the order of the 7 row address bits.
func reverseRow(address int) int {
	return int(bits.Reverse8(uint8(address&ROW_MASK)) >> (8 - ROW_BITS))
}

// EventEncoder writes events in the readout format. It is the inverse of
// EventDecoder and is used to simulate testboard data.
type EventEncoder struct {
	geometry *Geometry
	trigger  int
}

func NewEventEncoder(geometry *Geometry) *EventEncoder {
	return &EventEncoder{geometry: geometry}
}

// Append encodes one triggered event: a header, every ROC header in token
// order followed by that ROC's hits, and the trailer. Hits outside the
// geometry are not encoded.
func (e *EventEncoder) Append(dst []RawWord, hits []DecodedHit) []RawWord {
	dst = append(dst, RawWord(TAG_EVENT_HEADER|(e.trigger&PAYLOAD_MASK)))
	e.trigger++
	for roc := 0; roc < e.geometry.NRoc; roc++ {
		dst = append(dst, RawWord(TAG_ROC_HEADER|roc))
		for _, hit := range hits {
			if hit.Roc != roc || !e.geometry.Contains(hit.Roc, hit.Column, hit.Row) {
				continue
			}
			dst = e.appendHit(dst, hit)
		}
	}
	return append(dst, RawWord(TAG_EVENT_TRAILER))
}

func (e *EventEncoder) appendHit(dst []RawWord, hit DecodedHit) []RawWord {
	row := hit.Row
	if e.geometry.InvertedRowAddress {
		row = reverseRow(row)
	}
	dst = append(dst, RawWord(TAG_COLUMN|hit.Column), RawWord(TAG_ROW|row))
	if e.geometry.AnalogReadout {
		dst = append(dst, RawWord(TAG_PULSE_HEIGHT|(hit.PulseHeight&MAX_ADC_CODE)))
	}
	return dst
}
