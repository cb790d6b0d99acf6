package decoder

// RawWord is one 16 bit sample deposited by the deserializer in testboard RAM.
type RawWord uint16

// RawEvent is the sequence of words between a start marker and a trailer
// marker (or the end of the buffer, in which case Truncated is set).
// Trigger is the header's trigger counter unwrapped past its 12 bits.
type RawEvent struct {
	Seq       int
	Trigger   int
	Words     []RawWord
	Truncated bool
}

type DecodedHit struct {
	Roc                 int
	Column              int
	Row                 int
	PulseHeight         int
	HasPulseHeight      bool
	IsCalibrationSignal bool
}

func (h DecodedHit) Pixel() Pixel {
	return Pixel{Column: h.Column, Row: h.Row}
}

type Failure int

const (
	FailureNone Failure = iota
	BadAddress
	SequenceViolation
	Truncated
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case BadAddress:
		return "bad address"
	case SequenceViolation:
		return "ROC sequence violation"
	case Truncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// DecodeOutcome is the result of decoding one raw event. Dropped events
// carry a Failure and no hits.
type DecodeOutcome struct {
	Seq     int
	Trigger int
	Hits    []DecodedHit
	Failure Failure
	// Armed is the pixel under calibration when the event was triggered,
	// only meaningful when HasArmed is set
	Armed    Pixel
	HasArmed bool
}

func (o DecodeOutcome) OK() bool {
	return o.Failure == FailureNone
}
