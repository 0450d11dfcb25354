// Package status provides a thread-safe status tracker for the touch-switch daemon.
// The run loop writes it once per tick; HTTP handlers and MQTT system events read it.
package status

import (
	"sync"
	"time"

	"github.com/ggtrigg/touch-switch/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollUs      int64
	HeartbeatMs int64
	RefreshMs   int64
	Sampler     string
	Fixture     string
	Broker      string
	HTTPAddr    string
	Tuning      logic.Tuning
}

// Touch is the per-tick view of the channel and actuator.
type Touch struct {
	Gesture    logic.Gesture
	Light      logic.LightState
	Brightness uint8
	WindowLo   uint32
	WindowHi   uint32
	Level      float32
	HasLevel   bool
	Held       bool
	Ready      bool
	Ticks      uint64
	Counts     logic.EventCounts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Touch
	Dropped       uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Touch:     Touch{Gesture: logic.GestureWarmup},
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the touch state.
// Called from runLoop on every tick.
func (t *Tracker) Update(touch Touch) {
	t.mu.Lock()
	t.snap.Touch = touch
	t.mu.Unlock()
}

// SetDropped sets the number of samples the sampler discarded.
func (t *Tracker) SetDropped(n uint64) {
	t.mu.Lock()
	t.snap.Dropped = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
