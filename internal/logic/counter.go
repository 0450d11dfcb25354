package logic

import "math"

// counter is a tick counter that freezes at its maximum instead of wrapping.
type counter uint32

func (c *counter) inc() {
	if *c < math.MaxUint32 {
		*c++
	}
}

func (c *counter) reset() { *c = 0 }
