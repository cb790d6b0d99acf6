package decoder

import (
	"fmt"
)

// Words fetched from the testboard per read
const SOURCE_BLOCK_WORDS = 4096

// Buffer is the read view of the testboard RAM once acquisition has stopped.
type Buffer interface {
	// Pending reports how many words were deposited and whether the DMA
	// transfer into RAM completed.
	Pending() (int, bool)
	ReadWords(offset int, dst []RawWord) (int, error)
}

// BufferHandle is the testboard data acquisition memory.
type BufferHandle interface {
	Buffer
	Open(capacityBytes int) (int, error)
	Start() error
	Stop() error
	Close() error
}

type WordSource interface {
	Next() (RawWord, bool)
}

// RawWordSource delivers, exactly once, the words the hardware deposited
// before acquisition stopped. Words are fetched lazily in blocks.
type RawWordSource struct {
	buffer   Buffer
	total    int
	position int
	block    []RawWord
	blockPos int
	done     bool
	err      error
}

// NewRawWordSource claims the buffer. A transfer reported as incomplete is
// fatal and returned before any word is read.
func NewRawWordSource(buffer Buffer, claimedBytes int) (*RawWordSource, error) {
	words, complete := buffer.Pending()
	if !complete {
		return nil, &BufferTimeoutError{Words: words, Claimed: claimedBytes}
	}

	total := words
	if claimedBytes > 0 && total > claimedBytes/2 {
		message := fmt.Sprintf("buffer holds %d words, only %d fit in the claimed %d bytes", total, claimedBytes/2, claimedBytes)
		logger.Error(message)
		total = claimedBytes / 2
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Megabytes in RAM: %.3f", float64(total)*2/1024/1024)
		logger.Info(message, "rawSource")
	}

	return &RawWordSource{
		buffer: buffer,
		total:  total,
		block:  make([]RawWord, 0, SOURCE_BLOCK_WORDS),
	}, nil
}

func (s *RawWordSource) Next() (RawWord, bool) {
	for s.blockPos >= len(s.block) {
		if s.done {
			return 0, false
		}
		s.fill()
	}
	word := s.block[s.blockPos]
	s.blockPos++
	return word, true
}

func (s *RawWordSource) fill() {
	s.blockPos = 0
	s.block = s.block[:0]
	if s.position >= s.total {
		s.done = true
		return
	}

	n := min(SOURCE_BLOCK_WORDS, s.total-s.position)
	s.block = s.block[:n]
	nRead, err := s.buffer.ReadWords(s.position, s.block)
	s.block = s.block[:nRead]
	s.position += nRead

	if err != nil {
		s.err = fmt.Errorf("error reading testboard buffer at word %d: %w", s.position, err)
		s.done = true
		return
	}
	if nRead == 0 {
		s.err = fmt.Errorf("testboard buffer returned no data at word %d of %d", s.position, s.total)
		s.done = true
	}
}

// Err returns the read error that ended the pass early, if any.
func (s *RawWordSource) Err() error {
	return s.err
}

// Consumed reports whether the source has been drained. A consumed source
// cannot be restarted.
func (s *RawWordSource) Consumed() bool {
	return s.done && s.blockPos >= len(s.block)
}

// Len is the number of words the source will deliver.
func (s *RawWordSource) Len() int {
	return s.total
}
