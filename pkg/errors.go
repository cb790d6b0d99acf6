package decoder

import (
	"errors"
	"fmt"
)

var (
	ErrBufferTimeout    = errors.New("testboard buffer transfer timed out")
	ErrCalibrationLoad  = errors.New("pulse height calibration could not be loaded")
	ErrSourceConsumed   = errors.New("raw word source already consumed")
	ErrPassDone         = errors.New("pipeline pass already run")
	ErrNoSinks          = errors.New("no sinks attached to pipeline")
	ErrPipelineStarted  = errors.New("sinks must be attached before the pass starts")
	ErrEmptyScan        = errors.New("scan schedule has no pixels")
	ErrInvalidTriggers  = errors.New("number of triggers must be positive")
	ErrBufferNotStopped = errors.New("testboard buffer read before acquisition stopped")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// BufferTimeoutError is returned before any decoding when the hardware
// reports that the transfer into RAM did not complete.
type BufferTimeoutError struct {
	Words   int
	Claimed int
}

func (e *BufferTimeoutError) Error() string {
	return fmt.Sprintf("buffer transfer incomplete: %d words available, %d bytes claimed", e.Words, e.Claimed)
}

func (e *BufferTimeoutError) Is(target error) bool {
	return target == ErrBufferTimeout
}

// CalibrationLoadError describes why a calibration table was rejected.
type CalibrationLoadError struct {
	Filename string
	Line     int
	Err      error
}

func (e *CalibrationLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error loading calibration %q line %d: %v", e.Filename, e.Line, e.Err)
	}
	return fmt.Sprintf("error loading calibration %q: %v", e.Filename, e.Err)
}

func (e *CalibrationLoadError) Unwrap() error {
	return e.Err
}

func (e *CalibrationLoadError) Is(target error) bool {
	return target == ErrCalibrationLoad
}
