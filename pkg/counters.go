package decoder

import "fmt"

// EventCounter keeps the data quality counters of a pass.
type EventCounter struct {
	DataCounter             int
	RocSequenceErrorCounter int
	snapshot                EventCounts
}

type EventCounts struct {
	DataCounter             int
	RocSequenceErrorCounter int
}

func NewEventCounter() *EventCounter {
	return &EventCounter{}
}

func (c *EventCounter) Consume(outcome DecodeOutcome) {
	switch outcome.Failure {
	case FailureNone:
		c.DataCounter++
	case SequenceViolation:
		c.RocSequenceErrorCounter++
	}
}

func (c *EventCounter) Finalize() {
	c.snapshot = EventCounts{
		DataCounter:             c.DataCounter,
		RocSequenceErrorCounter: c.RocSequenceErrorCounter,
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Events: %d good, %d ROC sequence errors", c.DataCounter, c.RocSequenceErrorCounter)
		logger.Info(message, "eventCounter")
	}
}

func (c *EventCounter) Checkpoint() func() {
	saved := *c
	return func() {
		*c = saved
	}
}

func (c *EventCounter) Snapshot() EventCounts {
	return c.snapshot
}

func (c *EventCounter) Reset() {
	*c = EventCounter{}
}
