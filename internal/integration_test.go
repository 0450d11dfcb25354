package internal

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ggtrigg/touch-switch/internal/fixture"
	"github.com/ggtrigg/touch-switch/internal/logic"
	"github.com/ggtrigg/touch-switch/internal/mqtt"
	"github.com/ggtrigg/touch-switch/internal/sampler"
	"github.com/ggtrigg/touch-switch/internal/status"
)

// pipeline wires the core to fakes the same way the command does.
type pipeline struct {
	ch        *logic.Channel
	act       *logic.Actuator
	mon       *logic.Monitor
	led       *fixture.Fake
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	start     time.Time
	tick      int
}

func newPipeline(tuning logic.Tuning) *pipeline {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &pipeline{
		ch:        logic.NewChannel(tuning),
		mon:       logic.NewMonitor(start),
		led:       fixture.NewFake(),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(start, status.Config{Tuning: tuning}),
		start:     start,
	}
	out := fixture.Multi{p.led, fixture.NewMQTT(p.publisher, fixture.CurveLinear)}
	p.act = logic.NewActuator(out, tuning.RampDivisor)
	return p
}

// drain runs one tick per Poll until the sampler is exhausted, mirroring the
// command's loop at a 1ms poll interval.
func (p *pipeline) drain(t *testing.T, src sampler.Sampler, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		p.tick++
		now := p.start.Add(time.Duration(p.tick) * time.Millisecond)
		raw, ok := src.Poll()
		if !ok {
			continue
		}
		g := p.ch.Classify(raw)
		p.act.Advance(g)
		events := p.mon.Observe(logic.Input{
			Gesture:    g,
			Light:      p.act.State(),
			Brightness: p.act.Brightness(),
			Calibrated: p.ch.Calibrated(),
			Time:       now,
		})
		for _, e := range events {
			if err := p.publisher.Publish(e); err != nil {
				t.Fatalf("tick %d: publish error: %v", p.tick, err)
			}
		}
		lo, hi := p.ch.Window()
		p.tracker.Update(status.Touch{
			Gesture:    g,
			Light:      p.act.State(),
			Brightness: p.act.Brightness(),
			WindowLo:   lo,
			WindowHi:   hi,
			Held:       p.ch.Held(),
			Ready:      p.mon.IsReady(),
			Ticks:      p.mon.Ticks(),
			Counts:     p.mon.EventCountsSnapshot(),
		})
	}
}

func (p *pipeline) types() []logic.EventType {
	var out []logic.EventType
	for _, e := range p.publisher.Events {
		out = append(out, e.Type)
	}
	return out
}

const (
	touched  = 1100 // top of the calibration window, level 0
	released = 900  // bottom of the window, level 1
)

func samples(runs ...[]sampler.Sample) []sampler.Sample {
	var out []sampler.Sample
	for _, r := range runs {
		out = append(out, r...)
	}
	return out
}

// calibration is warmup plus a window opened to [900, 1100], released past
// the default debounce gate.
func calibration() []sampler.Sample {
	return samples(
		sampler.Repeat(1000, 100),
		sampler.Repeat(touched, 1),
		sampler.Repeat(released, 101),
	)
}

// TestIntegrationTapRampsOnThenOff drives a full on and off cycle with the
// default tuning.
func TestIntegrationTapRampsOnThenOff(t *testing.T) {
	tuning := logic.DefaultTuning()
	ramp := 255 * int(tuning.RampDivisor)
	script := samples(
		calibration(),
		sampler.Repeat(touched, 300), sampler.Repeat(released, ramp+10), // tap, ramp up
		sampler.Repeat(touched, 300), sampler.Repeat(released, ramp+10), // tap, ramp down
	)
	src := sampler.NewFakeSampler(script)
	p := newPipeline(tuning)

	p.drain(t, src, len(script))

	want := []logic.EventType{
		logic.EventShort, logic.EventLightRising, logic.EventLightOn,
		logic.EventShort, logic.EventLightFalling, logic.EventLightOff,
	}
	got := p.types()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}

	// 2 ramp starts plus 255 steps each way.
	if len(p.led.Writes) != 2+2*255 {
		t.Errorf("led writes: got %d, want %d", len(p.led.Writes), 2+2*255)
	}
	if len(p.publisher.LightPayloads) != len(p.led.Writes) {
		t.Errorf("light payloads: got %d, want %d", len(p.publisher.LightPayloads), len(p.led.Writes))
	}
	for i := 1; i < len(p.led.Writes); i++ {
		d := int(p.led.Writes[i]) - int(p.led.Writes[i-1])
		if d > 1 || d < -1 {
			t.Fatalf("write %d jumped %d -> %d", i, p.led.Writes[i-1], p.led.Writes[i])
		}
	}

	snap := p.tracker.Snapshot()
	if snap.Light != logic.LightOff || snap.Brightness != 0 {
		t.Errorf("final light: got %s/%d, want OFF/0", snap.Light, snap.Brightness)
	}
	if snap.Counts.Short != 2 || snap.Counts.On != 1 || snap.Counts.Off != 1 {
		t.Errorf("counts: %+v", snap.Counts)
	}
}

// TestIntegrationLongPress checks that a held touch toggles the light exactly
// once and that the release is silent.
func TestIntegrationLongPress(t *testing.T) {
	script := samples(
		calibration(),
		sampler.Repeat(touched, 2600),
		sampler.Repeat(released, 500),
	)
	src := sampler.NewFakeSampler(script)
	p := newPipeline(logic.DefaultTuning())

	p.drain(t, src, len(script))

	got := p.types()
	if len(got) != 2 || got[0] != logic.EventLong || got[1] != logic.EventLightOn {
		t.Fatalf("events: got %v, want [GESTURE_LONG LIGHT_ON]", got)
	}
	if len(p.led.Writes) != 1 || p.led.Writes[0] != 255 {
		t.Errorf("led writes: got %v, want [255]", p.led.Writes)
	}

	var lp fixture.LightPayload
	if err := json.Unmarshal(p.publisher.LightPayloads[0], &lp); err != nil {
		t.Fatalf("invalid light payload: %v", err)
	}
	if lp.Brightness != 255 || lp.Level != 255 || lp.RGB != "#ffffff" {
		t.Errorf("light payload: got %+v", lp)
	}
}

// TestIntegrationStreamSampler feeds the core from a text stream the way the
// serial sampler does.
func TestIntegrationStreamSampler(t *testing.T) {
	var sb strings.Builder
	write := func(raw string, n int) {
		for i := 0; i < n; i++ {
			sb.WriteString(raw)
			sb.WriteByte('\n')
		}
	}
	write("1000", 100)
	write("raw=1100", 1)
	write("900", 101)
	write("garbage", 3)
	write("1100", 300)
	write("900", 5)

	src := sampler.NewStreamSampler(io.NopCloser(strings.NewReader(sb.String())), 1024)
	defer src.Close()
	<-src.Done()

	p := newPipeline(logic.DefaultTuning())
	p.drain(t, src, 2000)

	got := p.types()
	if len(got) != 2 || got[0] != logic.EventShort || got[1] != logic.EventLightRising {
		t.Fatalf("events: got %v, want [GESTURE_SHORT LIGHT_RISING]", got)
	}
	if src.Dropped() != 0 {
		t.Errorf("dropped: got %d, want 0", src.Dropped())
	}
	if p.mon.Ticks() != 100+1+101+300+5 {
		t.Errorf("ticks: got %d, want %d", p.mon.Ticks(), 100+1+101+300+5)
	}
}

// TestIntegrationSparseSampling shows gaps in the sample stream do not count
// as ticks.
func TestIntegrationSparseSampling(t *testing.T) {
	var script []sampler.Sample
	for _, s := range samples(calibration(), sampler.Repeat(touched, 300), sampler.Repeat(released, 1)) {
		script = append(script, s, sampler.Sample{Missing: true})
	}
	src := sampler.NewFakeSampler(script)
	p := newPipeline(logic.DefaultTuning())

	p.drain(t, src, len(script))

	got := p.types()
	if len(got) != 2 || got[0] != logic.EventShort {
		t.Fatalf("events: got %v, want a SHORT then LIGHT_RISING", got)
	}
	if p.mon.Ticks() != uint64(len(script)/2) {
		t.Errorf("ticks: got %d, want %d", p.mon.Ticks(), len(script)/2)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	event := logic.Event{
		Timestamp:  time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Tick:       4321,
		Type:       logic.EventShort,
		Gesture:    logic.GestureShort,
		Light:      logic.LightRising,
		Brightness: 0,
	}

	publisher := mqtt.NewFakePublisher()
	publisher.Publish(event)

	expected := `{"touch":{"timestamp":"2026-02-02T22:18:12Z","tick":4321,"event":"GESTURE_SHORT","gesture":"SHORT","light":"RISING","brightness":0}}`

	if string(publisher.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.Payloads[0]), expected)
	}
}

func TestIntegrationShutdownPayloadFormat(t *testing.T) {
	publisher := mqtt.NewFakePublisher()

	event := mqtt.SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	publisher.PublishSystem(event)

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`

	if string(publisher.SystemPayloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.SystemPayloads[0]), expected)
	}
}

// TestIntegrationStartupThenShutdown checks the status snapshots carried by
// the lifecycle events.
func TestIntegrationStartupThenShutdown(t *testing.T) {
	p := newPipeline(logic.DefaultTuning())

	snap := p.tracker.Snapshot()
	p.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	script := samples(calibration(), sampler.Repeat(touched, 300), sampler.Repeat(released, 1))
	p.drain(t, sampler.NewFakeSampler(script), len(script))

	snap = p.tracker.Snapshot()
	p.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	})

	if len(p.publisher.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(p.publisher.SystemPayloads))
	}

	var startup, shutdown status.StatusJSON
	if err := json.Unmarshal(p.publisher.SystemPayloads[0], &startup); err != nil {
		t.Fatalf("startup payload: %v", err)
	}
	if err := json.Unmarshal(p.publisher.SystemPayloads[1], &shutdown); err != nil {
		t.Fatalf("shutdown payload: %v", err)
	}

	if startup.Status.Event != "STARTUP" || startup.Status.Ready || startup.Status.Gesture != "WARMUP" {
		t.Errorf("startup status: %+v", startup.Status)
	}
	if shutdown.Status.Event != "SHUTDOWN" || shutdown.Status.Reason != "SIGTERM" {
		t.Errorf("shutdown event/reason: %q/%q", shutdown.Status.Event, shutdown.Status.Reason)
	}
	if !shutdown.Status.Ready || shutdown.Status.Light != "RISING" || shutdown.Status.Counts.Short != 1 {
		t.Errorf("shutdown status: %+v", shutdown.Status)
	}
}

func TestIntegrationPublishFailureDoesNotStopTheLight(t *testing.T) {
	p := newPipeline(logic.DefaultTuning())
	p.publisher.PublishError = errors.New("broker unavailable")

	script := samples(calibration(), sampler.Repeat(touched, 300), sampler.Repeat(released, 1))
	src := sampler.NewFakeSampler(script)
	for i := 0; i < len(script); i++ {
		raw, _ := src.Poll()
		g := p.ch.Classify(raw)
		p.act.Advance(g)
		for _, e := range p.mon.Observe(logic.Input{Gesture: g, Light: p.act.State(), Calibrated: p.ch.Calibrated()}) {
			if err := p.publisher.Publish(e); err == nil {
				t.Fatal("expected publish error")
			}
		}
	}

	if p.act.State() != logic.LightRising {
		t.Errorf("light: got %s, want RISING", p.act.State())
	}
	// The LED still saw the ramp start even though the MQTT fixture failed.
	if len(p.led.Writes) != 1 || p.led.Writes[0] != 0 {
		t.Errorf("led writes: got %v, want [0]", p.led.Writes)
	}
}
