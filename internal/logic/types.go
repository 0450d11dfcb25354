// Package logic contains the pure touch and light state machines.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// The core is tick counted; wall-clock time only enters through Monitor inputs.
package logic

import (
	"errors"
	"time"
)

// Gesture is the debounced classification of one tick of touch input.
type Gesture uint8

const (
	GestureWarmup Gesture = iota
	GestureIdle
	GestureShort
	GestureLong
)

func (g Gesture) String() string {
	switch g {
	case GestureWarmup:
		return "WARMUP"
	case GestureIdle:
		return "IDLE"
	case GestureShort:
		return "SHORT"
	case GestureLong:
		return "LONG"
	}
	return "UNKNOWN"
}

// LightState is the ramp state of the light actuator.
type LightState uint8

const (
	LightOff LightState = iota
	LightOn
	LightRising
	LightFalling
)

func (s LightState) String() string {
	switch s {
	case LightOff:
		return "OFF"
	case LightOn:
		return "ON"
	case LightRising:
		return "RISING"
	case LightFalling:
		return "FALLING"
	}
	return "UNKNOWN"
}

// Output accepts a brightness value for the physical light.
// Writes are best effort: implementations must not block and report nothing.
type Output interface {
	Write(brightness uint8)
}

// Tuning holds the tick-counted constants of the channel and actuator.
type Tuning struct {
	WarmupTicks    uint32 `yaml:"warmup_ticks"`
	MinWindow      uint32 `yaml:"min_window"`
	DebounceTicks  uint32 `yaml:"debounce_ticks"`
	LongPressTicks uint32 `yaml:"long_press_ticks"`
	RampDivisor    uint32 `yaml:"ramp_divisor"`
}

// DefaultTuning returns the reference configuration.
func DefaultTuning() Tuning {
	return Tuning{
		WarmupTicks:    100,
		MinWindow:      64,
		DebounceTicks:  100,
		LongPressTicks: 2000,
		RampDivisor:    512,
	}
}

// Validate reports tunings that would make a gesture unreachable.
func (t Tuning) Validate() error {
	if t.RampDivisor == 0 {
		return errors.New("ramp_divisor must be positive")
	}
	if t.LongPressTicks <= t.DebounceTicks {
		return errors.New("long_press_ticks must exceed debounce_ticks")
	}
	return nil
}

// EventType represents a publishable change observed by the Monitor.
type EventType string

const (
	EventShort        EventType = "GESTURE_SHORT"
	EventLong         EventType = "GESTURE_LONG"
	EventLightOn      EventType = "LIGHT_ON"
	EventLightOff     EventType = "LIGHT_OFF"
	EventLightRising  EventType = "LIGHT_RISING"
	EventLightFalling EventType = "LIGHT_FALLING"
)

// Event represents a gesture or light transition to be published.
type Event struct {
	Timestamp  time.Time
	Tick       uint64
	Type       EventType
	Gesture    Gesture
	Light      LightState
	Brightness uint8
}

// Input is one classified tick as seen by the Monitor.
type Input struct {
	Gesture    Gesture
	Light      LightState
	Brightness uint8
	Calibrated bool
	Time       time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Short   int
	Long    int
	On      int
	Off     int
	Rising  int
	Falling int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Ticks     uint64
	Counts    EventCounts
}
