package decoder

import (
	"fmt"
)

// Sink receives every decode outcome of a pass, in emission order. Hits
// are shared between sinks and must not be modified.
type Sink interface {
	Consume(outcome DecodeOutcome)
	Finalize()
}

// Checkpointer is a sink that keeps state from one pass to the next. The
// function returned by Checkpoint puts the sink back to the state it had
// when Checkpoint was called.
type Checkpointer interface {
	Checkpoint() func()
}

// CheckpointSinks checkpoints every sink that supports it and returns a
// function restoring all of them.
func CheckpointSinks(sinks ...Sink) func() {
	var restores []func()
	for _, sink := range sinks {
		if c, ok := sink.(Checkpointer); ok {
			restores = append(restores, c.Checkpoint())
		}
	}
	return restoreAll(restores)
}

type PassSummary struct {
	Events             int
	Truncated          int
	StrayWords         int
	LostTriggers       int
	DecodingErrors     int
	BadAddress         int
	SequenceViolations int
	Hits               int
	// Read error that ended the pass before the end of the buffer
	SourceErr error
}

type PipelineOption func(*Pipeline)

// WithSchedule stamps the armed pixel on every outcome and flags the hits
// on it as calibration signal. The schedule is looked up by trigger number,
// so events lost to a corrupted header do not shift the later ones.
func WithSchedule(schedule ArmedSchedule) PipelineOption {
	return func(p *Pipeline) {
		p.schedule = schedule
	}
}

// Pipeline runs one pass: source, framer, decoder and an ordered list of
// sinks, all on the calling goroutine.
type Pipeline struct {
	source   WordSource
	decoder  *EventDecoder
	schedule ArmedSchedule
	sinks    []Sink
	started  bool
}

func NewPipeline(source WordSource, decoder *EventDecoder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{source: source, decoder: decoder}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach adds sinks. They receive outcomes in the order they were attached.
func (p *Pipeline) Attach(sinks ...Sink) error {
	if p.started {
		return ErrPipelineStarted
	}
	p.sinks = append(p.sinks, sinks...)
	return nil
}

// Run drains the source, dispatches every outcome to every sink and then
// finalizes the sinks. A pipeline runs only once.
func (p *Pipeline) Run() (PassSummary, error) {
	if p.started {
		return PassSummary{}, ErrPassDone
	}
	if len(p.sinks) == 0 {
		return PassSummary{}, ErrNoSinks
	}
	if c, ok := p.source.(interface{ Consumed() bool }); ok && c.Consumed() {
		return PassSummary{}, ErrSourceConsumed
	}
	p.started = true
	p.decoder.Reset()

	var summary PassSummary
	framer := NewEventFramer(p.source)
	for {
		event, ok := framer.Next()
		if !ok {
			break
		}
		outcome := p.decoder.Decode(event)
		p.stamp(&outcome)
		summary.Hits += len(outcome.Hits)
		for _, sink := range p.sinks {
			sink.Consume(outcome)
		}
	}

	for _, sink := range p.sinks {
		sink.Finalize()
	}

	summary.Events = framer.Events
	summary.Truncated = framer.TruncatedEvents
	summary.StrayWords = framer.StrayWords
	summary.LostTriggers = framer.LostTriggers
	summary.DecodingErrors = p.decoder.DecodingErrors()
	summary.BadAddress = p.decoder.Errors(BadAddress)
	summary.SequenceViolations = p.decoder.Errors(SequenceViolation)

	if s, ok := p.source.(interface{ Err() error }); ok && s.Err() != nil {
		summary.SourceErr = s.Err()
		logger.Error(fmt.Sprintf("pass ended early: %v", summary.SourceErr))
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Pass done: %d events, %d hits, %d decoding problems (%d truncated, %d bad address, %d ROC sequence), %d stray words, %d lost triggers",
			summary.Events, summary.Hits, summary.DecodingErrors, summary.Truncated, summary.BadAddress, summary.SequenceViolations, summary.StrayWords, summary.LostTriggers)
		logger.Info(message, "pipeline")
	}
	return summary, nil
}

func (p *Pipeline) stamp(outcome *DecodeOutcome) {
	if p.schedule == nil {
		return
	}
	armed, ok := p.schedule.ArmedPixel(outcome.Trigger)
	if !ok {
		return
	}
	outcome.Armed = armed
	outcome.HasArmed = true
	for i := range outcome.Hits {
		outcome.Hits[i].IsCalibrationSignal = outcome.Hits[i].Pixel() == armed
	}
}

// RunPass decodes one buffer with a fresh decoder for geometry.
func RunPass(source WordSource, geometry *Geometry, schedule ArmedSchedule, sinks ...Sink) (PassSummary, error) {
	var opts []PipelineOption
	if schedule != nil {
		opts = append(opts, WithSchedule(schedule))
	}
	p := NewPipeline(source, NewEventDecoder(geometry), opts...)
	if err := p.Attach(sinks...); err != nil {
		return PassSummary{}, err
	}
	return p.Run()
}
