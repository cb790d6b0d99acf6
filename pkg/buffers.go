package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

type bufferState int

const (
	bufferIdle bufferState = iota
	bufferOpen
	bufferRunning
	bufferStopped
	bufferClosed
)

// MemoryBuffer is an in-memory stand-in for the testboard RAM. Words can be
// preloaded or deposited while acquisition is running.
type MemoryBuffer struct {
	words      []RawWord
	capacity   int
	state      bufferState
	phase      int
	Incomplete bool
}

func NewMemoryBuffer(words []RawWord) *MemoryBuffer {
	return &MemoryBuffer{words: words, capacity: -1, phase: -1}
}

func (b *MemoryBuffer) Open(capacityBytes int) (int, error) {
	if b.state == bufferOpen || b.state == bufferRunning {
		return 0, errors.New("memory buffer already open")
	}
	if capacityBytes <= 0 {
		return 0, fmt.Errorf("invalid buffer capacity %d bytes", capacityBytes)
	}
	b.capacity = capacityBytes / 2
	b.state = bufferOpen
	return capacityBytes, nil
}

func (b *MemoryBuffer) SelectDeserializerPhase(phase int) error {
	if b.state != bufferOpen {
		return errors.New("deserializer phase must be selected before acquisition starts")
	}
	b.phase = phase
	return nil
}

// Phase returns the deserializer phase selected for this acquisition, or -1.
func (b *MemoryBuffer) Phase() int {
	return b.phase
}

func (b *MemoryBuffer) Start() error {
	if b.state != bufferOpen {
		return errors.New("memory buffer not open")
	}
	b.state = bufferRunning
	return nil
}

// Deposit appends words as the hardware would during acquisition. Words
// beyond the opened capacity are lost.
func (b *MemoryBuffer) Deposit(words ...RawWord) error {
	if b.state != bufferRunning {
		return errors.New("memory buffer is not acquiring")
	}
	room := b.capacity - len(b.words)
	if room < len(words) {
		words = words[:max(room, 0)]
	}
	b.words = append(b.words, words...)
	return nil
}

func (b *MemoryBuffer) Stop() error {
	if b.state != bufferRunning {
		return errors.New("memory buffer is not acquiring")
	}
	b.state = bufferStopped
	return nil
}

func (b *MemoryBuffer) Close() error {
	b.state = bufferClosed
	b.words = nil
	return nil
}

func (b *MemoryBuffer) Pending() (int, bool) {
	if b.state == bufferRunning {
		return len(b.words), false
	}
	return len(b.words), !b.Incomplete
}

func (b *MemoryBuffer) ReadWords(offset int, dst []RawWord) (int, error) {
	if b.state == bufferRunning {
		return 0, ErrBufferNotStopped
	}
	if offset >= len(b.words) {
		return 0, nil
	}
	return copy(dst, b.words[offset:]), nil
}

// DumpBuffer replays a raw RAM dump written to disk as little-endian 16 bit
// words. An odd number of bytes means the transfer did not complete.
type DumpBuffer struct {
	Filename string
	data     []byte
}

func OpenDumpBuffer(filename string) (*DumpBuffer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Read %d bytes from %s", len(data), filename)
		logger.Info(message, "dumpBuffer")
	}
	return &DumpBuffer{Filename: filename, data: data}, nil
}

func (b *DumpBuffer) Open(capacityBytes int) (int, error) {
	if capacityBytes <= 0 {
		return 0, fmt.Errorf("invalid buffer capacity %d bytes", capacityBytes)
	}
	return capacityBytes, nil
}

func (b *DumpBuffer) Start() error { return nil }
func (b *DumpBuffer) Stop() error  { return nil }

func (b *DumpBuffer) Close() error {
	b.data = nil
	return nil
}

func (b *DumpBuffer) Pending() (int, bool) {
	return len(b.data) / 2, len(b.data)%2 == 0
}

func (b *DumpBuffer) ReadWords(offset int, dst []RawWord) (int, error) {
	nWords := len(b.data) / 2
	nRead := 0
	for i := range dst {
		position := offset + i
		if position >= nWords {
			break
		}
		dst[i] = RawWord(binary.LittleEndian.Uint16(b.data[2*position:]))
		nRead++
	}
	return nRead, nil
}

// WriteDump stores words in the raw dump format read by DumpBuffer.
func WriteDump(filename string, words []RawWord) error {
	data := make([]byte, 2*len(words))
	for i, word := range words {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(word))
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	return nil
}
