package sampler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/ggtrigg/touch-switch/internal/serialport"
)

// StreamSampler reads newline-delimited decimal raw counts, one per
// measurement, from a microcontroller that performs the capacitive timing.
type StreamSampler struct {
	*queue
	src  io.ReadCloser
	done chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// OpenSerial opens a serial device and starts reading samples from it.
func OpenSerial(path string, opts serialport.PortOptions, queueSize int) (*StreamSampler, error) {
	port, err := serialport.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open sampler: %w", err)
	}
	return NewStreamSampler(port, queueSize), nil
}

// NewStreamSampler starts reading samples from src in the background.
func NewStreamSampler(src io.ReadCloser, queueSize int) *StreamSampler {
	s := &StreamSampler{
		queue:  newQueue(queueSize),
		src:    src,
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *StreamSampler) read() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := ParseSample(line)
		if err != nil {
			log.Printf("sampler: skipping line %q: %v", line, err)
			continue
		}
		s.offer(v)
	}

	select {
	case <-s.closed:
		return
	default:
	}
	if err := scanner.Err(); err != nil {
		log.Printf("sampler: read error: %v", err)
	} else {
		log.Printf("sampler: stream ended")
	}
}

// ParseSample parses one decimal raw count. An optional "raw=" prefix is
// accepted.
func ParseSample(line string) (uint32, error) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "raw=")
	v, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	return uint32(v), nil
}

// Done is closed when the background reader exits.
func (s *StreamSampler) Done() <-chan struct{} {
	return s.done
}

// Close stops reading and closes the underlying stream.
func (s *StreamSampler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.src.Close()
	})
	return err
}
