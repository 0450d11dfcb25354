package logic

import "time"

// Monitor observes classified ticks and derives publishable events.
type Monitor struct {
	startTime     time.Time
	lastHeartbeat time.Time

	ready    bool
	ticks    uint64
	gesture  Gesture
	light    LightState
	counts   EventCounts
	prevLong bool
}

// NewMonitor creates a monitor. The startTime is used for calculating uptime
// in heartbeat events.
func NewMonitor(startTime time.Time) *Monitor {
	return &Monitor{
		startTime:     startTime,
		lastHeartbeat: startTime,
		gesture:       GestureWarmup,
		light:         LightOff,
	}
}

// Observe records one classified tick and returns any events it produced.
// Events are ordered gesture first, then light.
func (m *Monitor) Observe(in Input) []Event {
	m.ticks++
	if in.Calibrated {
		m.ready = true
	}

	var events []Event

	switch {
	case in.Gesture == GestureShort:
		events = append(events, m.event(in, EventShort))
	case in.Gesture == GestureLong && !m.prevLong:
		events = append(events, m.event(in, EventLong))
	}
	m.prevLong = in.Gesture == GestureLong
	m.gesture = in.Gesture

	if in.Light != m.light {
		events = append(events, m.event(in, eventForLight(in.Light)))
		m.light = in.Light
	}

	for _, e := range events {
		switch e.Type {
		case EventShort:
			m.counts.Short++
		case EventLong:
			m.counts.Long++
		case EventLightOn:
			m.counts.On++
		case EventLightOff:
			m.counts.Off++
		case EventLightRising:
			m.counts.Rising++
		case EventLightFalling:
			m.counts.Falling++
		}
	}

	return events
}

func (m *Monitor) event(in Input, t EventType) Event {
	return Event{
		Timestamp:  in.Time,
		Tick:       m.ticks,
		Type:       t,
		Gesture:    in.Gesture,
		Light:      in.Light,
		Brightness: in.Brightness,
	}
}

func eventForLight(s LightState) EventType {
	switch s {
	case LightOn:
		return EventLightOn
	case LightRising:
		return EventLightRising
	case LightFalling:
		return EventLightFalling
	}
	return EventLightOff
}

// IsReady returns whether the channel has produced a calibrated level yet.
func (m *Monitor) IsReady() bool {
	return m.ready
}

// Ticks returns the number of classified ticks observed.
func (m *Monitor) Ticks() uint64 {
	return m.ticks
}

// LastGesture returns the gesture of the most recent tick.
func (m *Monitor) LastGesture() Gesture {
	return m.gesture
}

// EventCountsSnapshot returns a copy of the running event counts.
func (m *Monitor) EventCountsSnapshot() EventCounts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet ready, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !m.ready {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Ticks:     m.ticks,
		Counts:    m.counts,
	}
}
