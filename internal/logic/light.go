package logic

// lightEvent is a gesture reduced to what the ramp state machine reacts to.
type lightEvent uint8

const (
	evNone lightEvent = iota
	evTick            // Idle: advance the sub-tick clock
	evTap             // Short
	evHold            // first Long of a run
)

// effect is the brightness action a transition asks for.
type effect uint8

const (
	effNone effect = iota
	effStepUp
	effStepDown
	effFull
	effDark
	effStartRise
	effStartFall
)

// transition is the ramp state machine keyed on (state, event). Ramp steps
// that reach their end state are resolved by Advance, not here.
func transition(s LightState, ev lightEvent) (LightState, effect) {
	switch ev {
	case evTick:
		switch s {
		case LightRising:
			return LightRising, effStepUp
		case LightFalling:
			return LightFalling, effStepDown
		}
	case evHold:
		if s == LightOff {
			return LightOn, effFull
		}
		return LightOff, effDark
	case evTap:
		switch s {
		case LightOff:
			return LightRising, effStartRise
		case LightOn:
			return LightFalling, effStartFall
		}
	}
	return s, effNone
}

// Actuator drives one dimmable light from gestures through a ramped
// Off/On/Rising/Falling state machine.
type Actuator struct {
	out     Output
	divisor uint32

	state      LightState
	brightness uint8
	sub        counter
	last       Gesture
}

// NewActuator creates an actuator in the Off state at zero brightness.
// A zero divisor is treated as one.
func NewActuator(out Output, rampDivisor uint32) *Actuator {
	if rampDivisor == 0 {
		rampDivisor = 1
	}
	return &Actuator{
		out:     out,
		divisor: rampDivisor,
		state:   LightOff,
		last:    GestureIdle,
	}
}

// Advance applies one classified tick to the light.
func (a *Actuator) Advance(g Gesture) {
	ev := a.event(g)
	a.last = g

	if ev == evTick {
		a.sub.inc()
		if uint32(a.sub) < a.divisor {
			return
		}
		a.sub.reset()
	}

	next, eff := transition(a.state, ev)
	a.state = next

	switch eff {
	case effNone:
		return
	case effStepUp:
		if a.brightness < 255 {
			a.brightness++
		}
		if a.brightness == 255 {
			a.state = LightOn
		}
	case effStepDown:
		if a.brightness > 0 {
			a.brightness--
		}
		if a.brightness == 0 {
			a.state = LightOff
		}
	case effFull:
		a.brightness = 255
	case effDark:
		a.brightness = 0
	case effStartRise:
		a.brightness = 0
		a.sub.reset()
	case effStartFall:
		a.brightness = 255
		a.sub.reset()
	}
	a.Refresh()
}

func (a *Actuator) event(g Gesture) lightEvent {
	switch g {
	case GestureIdle:
		return evTick
	case GestureShort:
		return evTap
	case GestureLong:
		if a.last != GestureLong {
			return evHold
		}
	}
	return evNone
}

// Refresh re-sends the current brightness to the output.
func (a *Actuator) Refresh() {
	if a.out != nil {
		a.out.Write(a.brightness)
	}
}

// State returns the current ramp state.
func (a *Actuator) State() LightState {
	return a.state
}

// Brightness returns the current brightness.
func (a *Actuator) Brightness() uint8 {
	return a.brightness
}

// SubTick returns the ramp throttle counter.
func (a *Actuator) SubTick() uint32 {
	return uint32(a.sub)
}
