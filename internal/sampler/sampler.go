// Package sampler provides raw touch samples with hardware abstraction.
// Real samplers measure in the background and hand values over through a
// bounded queue, so Poll never blocks the tick loop.
// The fake implementation allows testing without hardware.
package sampler

import "sync/atomic"

// Sampler yields raw capacitive readings from one sensing channel.
type Sampler interface {
	// Poll returns a fresh raw sample, or false if none arrived since the
	// last call. It never blocks.
	Poll() (uint32, bool)

	// Close releases sampler resources.
	Close() error
}

// DefaultQueueSize is the number of samples buffered between a background
// reader and Poll.
const DefaultQueueSize = 64

// queue hands samples from a background reader to Poll without blocking
// either side. When full, the newest sample is dropped.
type queue struct {
	ch      chan uint32
	dropped atomic.Uint64
}

func newQueue(size int) *queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &queue{ch: make(chan uint32, size)}
}

func (q *queue) offer(v uint32) {
	select {
	case q.ch <- v:
	default:
		q.dropped.Add(1)
	}
}

// Poll returns the oldest queued sample, if any.
func (q *queue) Poll() (uint32, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		return 0, false
	}
}

// Dropped returns the number of samples discarded because Poll fell behind.
func (q *queue) Dropped() uint64 {
	return q.dropped.Load()
}
