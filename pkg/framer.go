package decoder

import "fmt"

// EventFramer groups raw words into events delimited by the header and
// trailer markers. Events come out in arrival order.
//
// The testboard counts triggers from zero at the start of an acquisition
// and writes the count, modulo TRIGGER_COUNTER_PERIOD, into every event
// header. The framer unwraps it so each event keeps the number of the
// trigger that produced it, and counts the triggers that never showed up
// as LostTriggers.
type EventFramer struct {
	source      WordSource
	pending     []RawWord
	open        bool
	seq         int
	trigger     int
	lastTrigger int
	seenHeader  bool

	Events          int
	TruncatedEvents int
	StrayWords      int
	LostTriggers    int
}

func NewEventFramer(source WordSource) *EventFramer {
	return &EventFramer{
		source:  source,
		pending: make([]RawWord, 0, 64),
	}
}

// Next returns the next event. An event still open when a new header
// arrives or when the buffer ends is returned once, marked truncated.
func (f *EventFramer) Next() (RawEvent, bool) {
	for {
		word, ok := f.source.Next()
		if !ok {
			if f.open {
				f.open = false
				return f.emit(true), true
			}
			return RawEvent{}, false
		}

		switch wordTag(word) {
		case TAG_EVENT_HEADER:
			if f.open {
				event := f.emit(true)
				f.begin(word)
				return event, true
			}
			f.begin(word)
		case TAG_EVENT_TRAILER:
			if !f.open {
				f.StrayWords++
				continue
			}
			f.pending = append(f.pending, word)
			f.open = false
			return f.emit(false), true
		default:
			if !f.open {
				if word != TAG_IDLE {
					f.StrayWords++
				}
				continue
			}
			f.pending = append(f.pending, word)
		}
	}
}

func (f *EventFramer) begin(header RawWord) {
	f.pending = append(f.pending[:0], header)
	f.open = true
	f.trigger = f.unwrapTrigger(wordPayload(header))
}

// unwrapTrigger picks the trigger number with the given counter value that
// is closest to the one expected after the previous header. A corrupted
// counter therefore moves only its own event.
func (f *EventFramer) unwrapTrigger(counter int) int {
	if !f.seenHeader {
		f.seenHeader = true
		f.lastTrigger = counter
		f.LostTriggers += counter
		return counter
	}
	expected := f.lastTrigger + 1
	delta := (counter - expected) & PAYLOAD_MASK
	if delta >= TRIGGER_COUNTER_PERIOD/2 {
		delta -= TRIGGER_COUNTER_PERIOD
	}
	trigger := expected + delta
	if delta > 0 {
		f.LostTriggers += delta
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("%d triggers lost before trigger %d", delta, trigger)
			logger.Info(message, "framer")
		}
	}
	f.lastTrigger = trigger
	return trigger
}

func (f *EventFramer) emit(truncated bool) RawEvent {
	words := make([]RawWord, len(f.pending))
	copy(words, f.pending)
	f.pending = f.pending[:0]

	event := RawEvent{Seq: f.seq, Trigger: f.trigger, Words: words, Truncated: truncated}
	f.seq++
	f.Events++
	if truncated {
		f.TruncatedEvents++
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("event %d truncated after %d words", event.Seq, len(words))
			logger.Info(message, "framer")
		}
	}
	return event
}

func (f *EventFramer) Reset() {
	f.pending = f.pending[:0]
	f.open = false
	f.seq = 0
	f.trigger = 0
	f.lastTrigger = 0
	f.seenHeader = false
	f.Events = 0
	f.TruncatedEvents = 0
	f.StrayWords = 0
	f.LostTriggers = 0
}
