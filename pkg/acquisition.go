package decoder

import (
	"errors"
	"fmt"
	"time"
)

// PhaseSelector is implemented by buffers with a 160 MHz deserializer whose
// sampling phase must be chosen before acquisition starts.
type PhaseSelector interface {
	SelectDeserializerPhase(phase int) error
}

type AcquireOptions struct {
	CapacityBytes int
	// Deserializer phase, applied only when the buffer supports it. Negative
	// values leave the hardware default.
	DeserPhase int
	// Time given to the DMA controller to flush before acquisition stops
	Settle time.Duration
}

// Acquisition owns the testboard buffer from Open until Close. The source
// is only built after acquisition stopped, so decoding never overlaps it.
type Acquisition struct {
	handle  BufferHandle
	granted int
	source  *RawWordSource
}

// Acquire opens and starts the buffer, runs the caller's trigger routine,
// stops acquisition and claims the deposited words. A nil trigger is allowed
// when triggers come from an external loop already programmed.
func Acquire(handle BufferHandle, opts AcquireOptions, trigger func() error) (*Acquisition, error) {
	granted, err := handle.Open(opts.CapacityBytes)
	if err != nil {
		return nil, fmt.Errorf("error opening testboard buffer: %w", err)
	}

	if selector, ok := handle.(PhaseSelector); ok && opts.DeserPhase >= 0 {
		if err := selector.SelectDeserializerPhase(opts.DeserPhase); err != nil {
			return nil, errors.Join(fmt.Errorf("error selecting deserializer phase: %w", err), handle.Close())
		}
	}

	if err := handle.Start(); err != nil {
		return nil, errors.Join(fmt.Errorf("error starting acquisition: %w", err), handle.Close())
	}

	var triggerErr error
	if trigger != nil {
		triggerErr = trigger()
	}
	if opts.Settle > 0 {
		time.Sleep(opts.Settle)
	}
	if err := handle.Stop(); err != nil {
		return nil, errors.Join(fmt.Errorf("error stopping acquisition: %w", err), handle.Close())
	}
	if triggerErr != nil {
		return nil, errors.Join(fmt.Errorf("error triggering: %w", triggerErr), handle.Close())
	}

	source, err := NewRawWordSource(handle, granted)
	if err != nil {
		return nil, errors.Join(err, handle.Close())
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Acquired %d words (%d bytes granted)", source.Len(), granted)
		logger.Info(message, "acquisition")
	}
	return &Acquisition{handle: handle, granted: granted, source: source}, nil
}

func (a *Acquisition) Source() *RawWordSource {
	return a.source
}

func (a *Acquisition) Granted() int {
	return a.granted
}

// Close frees the testboard memory.
func (a *Acquisition) Close() error {
	return a.handle.Close()
}
