package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string      `json:"event,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Gesture        string      `json:"gesture"`
	Light          string      `json:"light"`
	Brightness     uint8       `json:"brightness"`
	Held           bool        `json:"held"`
	Ready          bool        `json:"ready"`
	Calibration    Calibration `json:"calibration"`
	Ticks          uint64      `json:"ticks"`
	SamplesDropped uint64      `json:"samples_dropped"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	StartTime      string      `json:"start_time"`
	Timestamp      string      `json:"timestamp"`
	MQTT           MQTTStatus  `json:"mqtt"`
	Counts         CountsJSON  `json:"event_counts"`
	Config         ConfigJSON  `json:"config"`
}

// Calibration reports the learned window and the last normalised level.
// Window bounds and level are omitted until they exist.
type Calibration struct {
	Lo    *uint32  `json:"lo,omitempty"`
	Hi    *uint32  `json:"hi,omitempty"`
	Level *float32 `json:"level,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Short   int `json:"short"`
	Long    int `json:"long"`
	On      int `json:"on"`
	Off     int `json:"off"`
	Rising  int `json:"rising"`
	Falling int `json:"falling"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollUs         int64  `json:"poll_us"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	RefreshMs      int64  `json:"refresh_ms"`
	Sampler        string `json:"sampler"`
	Fixture        string `json:"fixture"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	WarmupTicks    uint32 `json:"warmup_ticks"`
	MinWindow      uint32 `json:"min_window"`
	DebounceTicks  uint32 `json:"debounce_ticks"`
	LongPressTicks uint32 `json:"long_press_ticks"`
	RampDivisor    uint32 `json:"ramp_divisor"`
}

func buildCalibration(snap Snapshot) Calibration {
	var c Calibration
	if snap.WindowHi >= snap.WindowLo {
		lo, hi := snap.WindowLo, snap.WindowHi
		c.Lo, c.Hi = &lo, &hi
	}
	if snap.HasLevel {
		lvl := snap.Level
		c.Level = &lvl
	}
	return c
}

func buildInner(snap Snapshot) StatusInner {
	cfg := snap.Config
	return StatusInner{
		Gesture:        snap.Gesture.String(),
		Light:          snap.Light.String(),
		Brightness:     snap.Brightness,
		Held:           snap.Held,
		Ready:          snap.Ready,
		Calibration:    buildCalibration(snap),
		Ticks:          snap.Ticks,
		SamplesDropped: snap.Dropped,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Counts: CountsJSON{
			Short:   snap.Counts.Short,
			Long:    snap.Counts.Long,
			On:      snap.Counts.On,
			Off:     snap.Counts.Off,
			Rising:  snap.Counts.Rising,
			Falling: snap.Counts.Falling,
		},
		Config: ConfigJSON{
			PollUs:         cfg.PollUs,
			HeartbeatMs:    cfg.HeartbeatMs,
			RefreshMs:      cfg.RefreshMs,
			Sampler:        cfg.Sampler,
			Fixture:        cfg.Fixture,
			Broker:         cfg.Broker,
			HTTPAddr:       cfg.HTTPAddr,
			WarmupTicks:    cfg.Tuning.WarmupTicks,
			MinWindow:      cfg.Tuning.MinWindow,
			DebounceTicks:  cfg.Tuning.DebounceTicks,
			LongPressTicks: cfg.Tuning.LongPressTicks,
			RampDivisor:    cfg.Tuning.RampDivisor,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
