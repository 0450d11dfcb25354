package logic

import "math"

// touchThreshold is the normalised level below which a tick counts as touched.
const touchThreshold = 0.5

// Channel normalises raw samples from one sensing input and classifies them
// into debounced gestures. It owns its calibration window and debounce state.
type Channel struct {
	tuning Tuning

	warmup uint32
	lo, hi uint32

	level    float32
	hasLevel bool

	held  bool
	phase counter
	last  Gesture
}

// NewChannel creates a channel in warmup with an empty calibration window.
func NewChannel(t Tuning) *Channel {
	return &Channel{
		tuning: t,
		warmup: t.WarmupTicks,
		lo:     math.MaxUint32,
		hi:     0,
		last:   GestureIdle,
	}
}

// Classify consumes one raw sample and returns the gesture for this tick.
func (c *Channel) Classify(raw uint32) Gesture {
	if c.warmup > 0 {
		c.warmup--
		c.hasLevel = false
		c.last = GestureWarmup
		return GestureWarmup
	}

	level, ok := c.normalize(raw)
	if !ok {
		// Still learning the dynamic range.
		c.last = GestureIdle
		return GestureIdle
	}

	touch := level < touchThreshold
	var g Gesture
	if uint32(c.phase) > c.tuning.DebounceTicks {
		var reset bool
		g, reset = decide(c.held, touch, uint32(c.phase), c.tuning.LongPressTicks)
		if reset {
			c.phase.reset()
		}
		c.held = touch
	} else {
		g = repeat(c.last)
	}
	c.phase.inc()

	c.last = g
	return g
}

// normalize widens the calibration window with raw and maps raw into [0,1],
// inverted so the observed minimum is the strongest signal.
func (c *Channel) normalize(raw uint32) (float32, bool) {
	if raw < c.lo {
		c.lo = raw
	}
	if raw > c.hi {
		c.hi = raw
	}

	width := c.hi - c.lo
	if width <= c.tuning.MinWindow {
		c.hasLevel = false
		return 0, false
	}
	c.level = 1 - float32(raw-c.lo)/float32(width)
	c.hasLevel = true
	return c.level, true
}

// decide is the debounced transition table keyed on (held, touch). It is only
// consulted once the current phase has outlasted the debounce gate. The second
// result reports whether the phase counter restarts.
func decide(held, touch bool, phase, longAt uint32) (Gesture, bool) {
	switch {
	case held && touch:
		if phase > longAt {
			return GestureLong, false
		}
		return GestureIdle, false
	case !held && touch:
		// Rising edge: start timing the press.
		return GestureIdle, true
	case held && !touch:
		// Release after a Long has already been reported yields nothing.
		if phase != 0 && phase <= longAt {
			return GestureShort, true
		}
		return GestureIdle, true
	default:
		return GestureIdle, false
	}
}

// repeat returns the gesture reported while the debounce gate is closed.
// Short is a one-shot release report and Warmup never outlives warmup.
func repeat(last Gesture) Gesture {
	if last == GestureShort || last == GestureWarmup {
		return GestureIdle
	}
	return last
}

// Window returns the calibration window bounds. Before any post-warmup sample
// lo is max uint32 and hi is 0.
func (c *Channel) Window() (lo, hi uint32) {
	return c.lo, c.hi
}

// Level returns the normalised level of the last tick, if one was available.
func (c *Channel) Level() (float32, bool) {
	return c.level, c.hasLevel
}

// WarmingUp reports whether the channel is still inside its warmup period.
func (c *Channel) WarmingUp() bool {
	return c.warmup > 0
}

// Calibrated reports whether the window is wide enough to produce levels.
func (c *Channel) Calibrated() bool {
	return c.hi >= c.lo && c.hi-c.lo > c.tuning.MinWindow
}

// Held reports the debounced touch state.
func (c *Channel) Held() bool {
	return c.held
}

// Phase returns the saturating tick count of the current held/released phase.
func (c *Channel) Phase() uint32 {
	return uint32(c.phase)
}
