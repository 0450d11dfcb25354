package sampler

import "time"

// RCConfig configures the RC charge-time sampler.
type RCConfig struct {
	Chip     string        // gpio chip name, e.g. "gpiochip0"
	Line     int           // line offset of the touch electrode
	Interval time.Duration // pause between measurements
	MaxCount uint32        // poll iterations before a measurement is abandoned
	Queue    int
}

// DefaultRCConfig returns defaults for a Raspberry Pi header pin.
func DefaultRCConfig() RCConfig {
	return RCConfig{
		Chip:     "gpiochip0",
		Line:     17,
		Interval: time.Millisecond,
		MaxCount: 100000,
		Queue:    DefaultQueueSize,
	}
}
